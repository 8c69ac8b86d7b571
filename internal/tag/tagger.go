// Package tag extracts exactly three single-word tags describing a
// lesson. Tagging is best effort: it degrades to category defaults
// instead of failing the pipeline.
package tag

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
	"github.com/myksyouki/lesson-manager-sub001/internal/prompts"
)

// TagCount is the fixed number of tags every completed job carries.
const TagCount = 3

// maxInputRunes caps the text sent to the tagging endpoint. The
// summary is short; only raw transcripts need truncation.
const maxInputRunes = 10000

// Tagger requests tags from the tagging endpoint.
type Tagger struct {
	http *resty.Client
}

// NewTagger creates a Tagger.
// Parameters:
//   - cfg: endpoint, credentials, and timeout settings.
// Returns:
//   - *Tagger: configured tagger.
func NewTagger(cfg *config.TaggingConfig) *Tagger {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Tagger{http: http}
}

type tagRequest struct {
	Query        string         `json:"query"`
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

type tagResponse struct {
	Answer string `json:"answer"`
}

// Tag returns exactly TagCount tags for the lesson text. It never
// returns an error: any transport or parse failure falls back to the
// category defaults, so tagging cannot abort a completed run.
func (t *Tagger) Tag(ctx context.Context, text, category string) []string {
	tags := t.requestTags(ctx, text, category)
	return Normalize(tags, category, TagCount)
}

func (t *Tagger) requestTags(ctx context.Context, text, category string) []string {
	if runes := []rune(text); len(runes) > maxInputRunes {
		text = string(runes[:maxInputRunes])
	}

	query := prompts.BuildTagQuery(TagCount, category)

	var parsed tagResponse
	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(tagRequest{
			Query: query,
			Inputs: map[string]any{
				"content":    text,
				"instrument": category,
			},
			ResponseMode: "blocking",
			User:         "lesson-pipeline",
		}).
		SetResult(&parsed).
		Post("/chat-messages")
	if err != nil {
		logger.CtxWarn(ctx, "tag request failed, falling back to defaults: %v", err)
		return nil
	}
	if resp.StatusCode() != 200 {
		logger.CtxWarn(ctx, "tag endpoint returned %d, falling back to defaults", resp.StatusCode())
		return nil
	}

	tags := ExtractTags(parsed.Answer)
	logger.CtxInfo(ctx, "extracted %d tag(s) from response", len(tags))
	return tags
}
