// Package transcribe turns audio chunks into text through a
// Whisper-compatible speech-to-text endpoint.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/domain"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
)

// ProgressFunc reports transcription progress after each chunk.
// fraction is in (0, 1], current and total count chunks.
type ProgressFunc func(ctx context.Context, fraction float64, current, total int) error

// Client calls the speech-to-text endpoint chunk by chunk.
type Client struct {
	http     *resty.Client
	model    string
	language string
}

// NewClient creates a transcription client.
// Parameters:
//   - cfg: endpoint, credentials, model, and timeout settings.
// Returns:
//   - *Client: configured client.
func NewClient(cfg *config.WhisperConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)

	return &Client{
		http:     http,
		model:    cfg.Model,
		language: cfg.Language,
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// TranscribeChunk uploads a single chunk and returns its text.
func (c *Client) TranscribeChunk(ctx context.Context, chunkPath string) (string, error) {
	if _, err := os.Stat(chunkPath); err != nil {
		return "", apperr.Wrap(apperr.KindNotFound, err, "chunk file missing: %s", chunkPath)
	}

	var parsed transcriptionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", chunkPath).
		SetFormData(map[string]string{
			"model":           c.model,
			"language":        c.language,
			"response_format": "json",
		}).
		SetResult(&parsed).
		Post("/audio/transcriptions")
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, err, "transcription request failed for %s", filepath.Base(chunkPath))
	}
	if resp.StatusCode() != 200 {
		return "", apperr.FromHTTPStatus(resp.StatusCode(), fmt.Sprintf("transcription of %s: %s", filepath.Base(chunkPath), resp.String()))
	}
	return parsed.Text, nil
}

// TranscribeChunks transcribes every chunk in order and combines the
// texts, deduplicating any boundary overlap. Chunks are processed
// strictly sequentially; the first failure aborts the whole run.
// onProgress, when non-nil, is invoked after each completed chunk.
func (c *Client) TranscribeChunks(ctx context.Context, chunks []domain.AudioChunk, onProgress ProgressFunc) (string, error) {
	if len(chunks) == 0 {
		return "", apperr.New(apperr.KindInvalidArgument, "no audio chunks to transcribe")
	}

	logger.CtxInfo(ctx, "starting transcription of %d chunks", len(chunks))
	parts := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		text, err := c.TranscribeChunk(ctx, chunk.LocalPath)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
		logger.CtxInfo(ctx, "transcribed chunk %d/%d (%d chars)", i+1, len(chunks), len([]rune(text)))

		if onProgress != nil {
			fraction := float64(i+1) / float64(len(chunks))
			if err := onProgress(ctx, fraction, i+1, len(chunks)); err != nil {
				return "", err
			}
		}
	}

	combined := CombineTranscripts(parts)
	logger.CtxInfo(ctx, "transcription complete, %d chars total", len([]rune(combined)))
	return combined, nil
}
