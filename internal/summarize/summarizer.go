// Package summarize produces the lesson summary from the combined
// transcription through a chat-completion style endpoint.
package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
	"github.com/myksyouki/lesson-manager-sub001/internal/prompts"
)

// minPlausibleSummaryChars guards against the model returning an
// empty or truncated answer. Anything shorter is treated as a failed
// part.
const minPlausibleSummaryChars = 30

// Summarizer calls the summarization endpoint, splitting overlong
// transcripts into sentence-aligned parts first.
type Summarizer struct {
	http          *resty.Client
	maxInputChars int
}

// NewSummarizer creates a Summarizer.
// Parameters:
//   - cfg: endpoint, credentials, timeout, and input size limit.
// Returns:
//   - *Summarizer: configured summarizer.
func NewSummarizer(cfg *config.SummaryConfig) *Summarizer {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = 30000
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Summarizer{http: http, maxInputChars: maxChars}
}

type summaryRequest struct {
	Query        string         `json:"query"`
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

type summaryResponse struct {
	Answer string `json:"answer"`
}

// Summarize produces a summary of text for the given lesson category.
// Overlong transcripts are split at sentence boundaries and each part
// summarized separately, with the part summaries joined by blank
// lines. customInstructions, when present, steer the model instead of
// the default query and are capped at 100 characters.
func (s *Summarizer) Summarize(ctx context.Context, text, category, customInstructions string) (string, error) {
	if len(text) == 0 {
		return "", apperr.New(apperr.KindInvalidArgument, "transcription text is empty")
	}

	parts := SplitBySentences(text, s.maxInputChars)
	logger.CtxInfo(ctx, "summarizing %d chars in %d part(s)", len([]rune(text)), len(parts))

	combined := ""
	for i, part := range parts {
		partInfo := ""
		if len(parts) > 1 {
			partInfo = fmt.Sprintf("part %d/%d", i+1, len(parts))
		}

		partSummary, err := s.summarizePart(ctx, part, category, customInstructions, partInfo)
		if err != nil {
			return "", err
		}

		if len([]rune(partSummary)) < minPlausibleSummaryChars {
			logger.CtxWarn(ctx, "summary for part %d/%d implausibly short (%d chars)", i+1, len(parts), len([]rune(partSummary)))
			if i < len(parts)-1 {
				continue
			}
			return "", apperr.New(apperr.KindInternal, "summary implausibly short (%d chars)", len([]rune(partSummary)))
		}

		if combined != "" {
			combined += "\n\n"
		}
		combined += partSummary
	}

	logger.CtxInfo(ctx, "summary complete, %d chars", len([]rune(combined)))
	return combined, nil
}

func (s *Summarizer) summarizePart(ctx context.Context, part, category, customInstructions, partInfo string) (string, error) {
	query := buildQuery(category, customInstructions)

	inputs := map[string]any{
		"transcription": part,
		"instrument":    orDefault(category, "unknown"),
	}
	if partInfo != "" {
		inputs["part_info"] = partInfo
	}

	var parsed summaryResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(summaryRequest{
			Query:        query,
			Inputs:       inputs,
			ResponseMode: "blocking",
			User:         "lesson-pipeline",
		}).
		SetResult(&parsed).
		Post("/chat-messages")
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, err, "summary request failed")
	}
	if resp.StatusCode() != 200 {
		return "", apperr.FromHTTPStatus(resp.StatusCode(), "summary generation: "+resp.String())
	}
	if parsed.Answer == "" {
		return "", apperr.New(apperr.KindInternal, "summary response contains no answer")
	}

	return ParseSummaryResponse(parsed.Answer), nil
}

// buildQuery chooses between the custom instructions (capped at 100
// characters) and the default summary prompt for the category.
func buildQuery(category, customInstructions string) string {
	if customInstructions != "" {
		runes := []rune(customInstructions)
		if len(runes) > 100 {
			runes = runes[:100]
		}
		return prompts.BuildSummaryQuery(category, string(runes))
	}
	return prompts.BuildSummaryQuery(category, "")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
