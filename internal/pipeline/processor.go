// Package pipeline orchestrates the lesson audio processing run:
// download, split, transcribe, summarize, tag, persist.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/domain"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
	"github.com/myksyouki/lesson-manager-sub001/internal/transcribe"
)

// Progress checkpoints, in percent. Transcription advances
// incrementally through its band as chunks complete.
const (
	progressStart           = 5
	progressDownloaded      = 10
	progressProbed          = 15
	progressSplit           = 20
	progressTranscribeStart = 20
	progressTranscribeEnd   = 70
	progressSummarizing     = 80
	progressTagging         = 90
	progressComplete        = 100
)

// Downloader fetches the source recording to local disk.
type Downloader interface {
	Fetch(ctx context.Context, sourceURL, destDir string) (string, error)
}

// Prober inspects a downloaded recording.
type Prober interface {
	Probe(ctx context.Context, path string) (*domain.ProbeInfo, error)
}

// Splitter cuts a recording into upload-sized chunks.
type Splitter interface {
	Split(ctx context.Context, inputPath, outDir string, info *domain.ProbeInfo) ([]domain.AudioChunk, error)
}

// Transcriber turns chunks into a combined transcript.
type Transcriber interface {
	TranscribeChunks(ctx context.Context, chunks []domain.AudioChunk, onProgress transcribe.ProgressFunc) (string, error)
}

// Summarizer produces the lesson summary.
type Summarizer interface {
	Summarize(ctx context.Context, text, category, customInstructions string) (string, error)
}

// Tagger extracts the lesson tags. It never fails.
type Tagger interface {
	Tag(ctx context.Context, text, category string) []string
}

// JobStore persists job lookups and status checkpoints.
type JobStore interface {
	Find(ctx context.Context, jobID, pathHint string) (*domain.Job, error)
	UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, progress int, message string, extra map[string]interface{}) error
}

// ProcessRequest carries the trigger payload for one run.
type ProcessRequest struct {
	SourceURL          string `json:"sourceUrl"`
	JobID              string `json:"jobId"`
	OwnerID            string `json:"ownerId"`
	Category           string `json:"category,omitempty"`
	CustomInstructions string `json:"customInstructions,omitempty"`
}

// ProcessResult is the outcome of a completed run.
type ProcessResult struct {
	Transcription         string   `json:"transcription"`
	Summary               string   `json:"summary"`
	Tags                  []string `json:"tags"`
	ProcessingTimeSeconds int      `json:"processingTimeSeconds"`
}

// Processor runs the pipeline end to end for one job.
type Processor struct {
	downloader  Downloader
	prober      Prober
	splitter    Splitter
	transcriber Transcriber
	summarizer  Summarizer
	tagger      Tagger
	store       JobStore
	cfg         *config.PipelineConfig
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(
	downloader Downloader,
	prober Prober,
	splitter Splitter,
	transcriber Transcriber,
	summarizer Summarizer,
	tagger Tagger,
	store JobStore,
	cfg *config.PipelineConfig,
) *Processor {
	return &Processor{
		downloader:  downloader,
		prober:      prober,
		splitter:    splitter,
		transcriber: transcriber,
		summarizer:  summarizer,
		tagger:      tagger,
		store:       store,
		cfg:         cfg,
	}
}

// run tracks the per-run state: the job identity and the progress
// high-water mark that keeps reported progress monotonic.
type run struct {
	jobID    string
	mark     int
	store    JobStore
	finished bool
}

// checkpoint records a forward progress step. Progress never moves
// backwards: a value below the high-water mark is raised to it.
// Checkpoint writes are best effort; a failed write is logged and the
// run continues, because losing a progress update must not lose the
// lesson.
func (r *run) checkpoint(ctx context.Context, status domain.JobStatus, progress int, message string, extra map[string]interface{}) {
	if progress < r.mark {
		progress = r.mark
	}
	r.mark = progress
	if err := r.store.UpdateStatus(ctx, r.jobID, status, progress, message, extra); err != nil {
		logger.CtxWarn(ctx, "status update to %s/%d failed: %v", status, progress, err)
	}
}

// mustCheckpoint records a step whose payload must not be lost (the
// transcription and the final results). The write error aborts the run.
func (r *run) mustCheckpoint(ctx context.Context, status domain.JobStatus, progress int, message string, extra map[string]interface{}) error {
	if progress < r.mark {
		progress = r.mark
	}
	r.mark = progress
	return r.store.UpdateStatus(ctx, r.jobID, status, progress, message, extra)
}

// Process runs the full pipeline for one job. On failure the job
// record is marked status=error with the classified kind, leaving the
// progress at its last value so partial results stay visible.
func (p *Processor) Process(ctx context.Context, req ProcessRequest) (result *ProcessResult, err error) {
	started := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	jobID := domain.NormalizeJobID(req.JobID)
	runID := uuid.NewString()
	ctx = logger.SetJobID(ctx, jobID)
	ctx = logger.SetOwnerID(ctx, req.OwnerID)
	ctx = logger.SetRunID(ctx, runID)

	r := &run{jobID: jobID, store: p.store}

	// Temp workspace for this run, removed on every exit path.
	tempDir := filepath.Join(p.tempRoot(), fmt.Sprintf("lesson-%s-%s", domain.BareJobID(jobID), runID))
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to create temp directory")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = apperr.New(apperr.KindInternal, "pipeline panic: %v", rec)
		}
		if err != nil {
			p.writeError(ctx, r, err)
		}
		cleanupTempDir(ctx, tempDir)
	}()

	logger.CtxInfo(ctx, "processing started for %s", req.SourceURL)

	category, instructions := p.resolveJobContext(ctx, req)

	r.checkpoint(ctx, domain.JobStatusDownloading, progressStart, "processing started", nil)

	// Download.
	audioPath, err := p.downloader.Fetch(ctx, req.SourceURL, tempDir)
	if err != nil {
		return nil, err
	}
	r.checkpoint(ctx, domain.JobStatusDownloading, progressDownloaded, "audio download complete", nil)

	// Probe and enforce the duration cap.
	info, err := p.prober.Probe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if p.cfg.MaxAudioDurationSeconds > 0 && info.DurationSeconds > float64(p.cfg.MaxAudioDurationSeconds) {
		return nil, apperr.New(apperr.KindInvalidArgument,
			"audio duration %.0fs exceeds the maximum %ds", info.DurationSeconds, p.cfg.MaxAudioDurationSeconds)
	}
	r.checkpoint(ctx, domain.JobStatusSplitting, progressProbed, "audio analyzed", map[string]interface{}{
		"audio_duration": int(math.Round(info.DurationSeconds)),
		"audio_size_mb":  math.Round(info.SizeMB*100) / 100,
	})

	// Split.
	chunks, err := p.splitter.Split(ctx, audioPath, tempDir, info)
	if err != nil {
		return nil, err
	}
	r.checkpoint(ctx, domain.JobStatusSplitting, progressSplit, "audio split complete", nil)

	// Transcribe, advancing through the 20-70 band chunk by chunk.
	transcription, err := p.transcriber.TranscribeChunks(ctx, chunks,
		func(ctx context.Context, fraction float64, current, total int) error {
			progress := progressTranscribeStart +
				int(math.Round(fraction*float64(progressTranscribeEnd-progressTranscribeStart)))
			if progress < progressTranscribeEnd {
				r.checkpoint(ctx, domain.JobStatusTranscribing, progress,
					fmt.Sprintf("transcribing (%d/%d)", current, total), nil)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcription) == "" {
		return nil, apperr.New(apperr.KindInternal, "transcription produced no text")
	}

	// The transcript is a checkpointed partial result: it must survive
	// a later summarization failure.
	err = r.mustCheckpoint(ctx, domain.JobStatusTranscribing, progressTranscribeEnd, "transcription complete",
		map[string]interface{}{
			"transcription":    transcription,
			"transcription_id": strings.ReplaceAll(uuid.NewString(), "-", ""),
		})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to persist transcription")
	}

	// Summarize.
	r.checkpoint(ctx, domain.JobStatusSummarizing, progressSummarizing, "generating summary", nil)
	summary, err := p.summarizer.Summarize(ctx, transcription, category, instructions)
	if err != nil {
		return nil, err
	}

	// Tag. Best effort, cannot abort the run.
	r.checkpoint(ctx, domain.JobStatusTagging, progressTagging, "generating tags", nil)
	tags := p.tagger.Tag(ctx, summary, category)

	err = r.mustCheckpoint(ctx, domain.JobStatusCompleted, progressComplete, "processing complete",
		map[string]interface{}{
			"summary": summary,
			"tags":    domain.StringArray(tags),
		})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to persist results")
	}
	r.finished = true

	elapsed := int(math.Round(time.Since(started).Seconds()))
	logger.CtxInfo(ctx, "processing complete in %ds (%d chars transcript, %d chars summary, %d tags)",
		elapsed, len([]rune(transcription)), len([]rune(summary)), len(tags))

	return &ProcessResult{
		Transcription:         transcription,
		Summary:               summary,
		Tags:                  tags,
		ProcessingTimeSeconds: elapsed,
	}, nil
}

// resolveJobContext reads the job record to fill in the category and
// custom instructions when the request left them empty. A missing
// record is tolerated here; only the final persistence cares.
func (p *Processor) resolveJobContext(ctx context.Context, req ProcessRequest) (category, instructions string) {
	category = req.Category
	instructions = req.CustomInstructions

	job, err := p.store.Find(ctx, req.JobID, req.SourceURL)
	if err != nil {
		logger.CtxWarn(ctx, "job record lookup failed, using request fields: %v", err)
	} else {
		if category == "" && job.Category != "" {
			category = job.Category
		}
		if instructions == "" && job.CustomInstructions != "" {
			instructions = job.CustomInstructions
		}
	}
	if category == "" {
		category = "unknown"
	}
	return category, instructions
}

// writeError marks the job failed. The stored progress is left at its
// last checkpoint so completed partial results remain attributable.
func (p *Processor) writeError(ctx context.Context, r *run, cause error) {
	if r.finished {
		return
	}
	kind := apperr.KindOf(cause)
	updateErr := p.store.UpdateStatus(ctx, r.jobID, domain.JobStatusError, -1, "processing failed",
		map[string]interface{}{
			"error":      cause.Error(),
			"error_kind": string(kind),
		})
	if updateErr != nil {
		logger.CtxError(ctx, "failed to record error state: %v (original error: %v)", updateErr, cause)
	}
	logger.CtxError(ctx, "processing failed (%s): %v", kind, cause)
}

func (p *Processor) tempRoot() string {
	if p.cfg.TempDir != "" {
		return p.cfg.TempDir
	}
	return os.TempDir()
}

func validateRequest(req ProcessRequest) error {
	if strings.TrimSpace(req.SourceURL) == "" {
		return apperr.New(apperr.KindInvalidArgument, "sourceUrl is required")
	}
	if strings.TrimSpace(req.JobID) == "" {
		return apperr.New(apperr.KindInvalidArgument, "jobId is required")
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return apperr.New(apperr.KindInvalidArgument, "ownerId is required")
	}
	return nil
}

func cleanupTempDir(ctx context.Context, dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.CtxWarn(ctx, "failed to clean up temp directory %s: %v", dir, err)
		return
	}
	logger.CtxDebug(ctx, "cleaned up temp directory %s", dir)
}
