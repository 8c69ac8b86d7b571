package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/domain"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
)

// ChunkMode selects how the splitter sizes its chunks.
const (
	// ChunkModeSize derives the chunk duration from the upload size
	// limit, so every chunk stays under MaxChunkSizeMB.
	ChunkModeSize = "size"

	// ChunkModeDuration cuts fixed-length chunks with a small overlap
	// between neighbours so no words are lost at the boundaries.
	ChunkModeDuration = "duration"
)

// ChunkWindow is a planned time window before any ffmpeg execution.
type ChunkWindow struct {
	Index        int
	StartSeconds float64
	Seconds      float64
}

// PlanChunks computes the chunk windows for a recording of the given
// duration and size. The windows always cover [0, duration) without
// gaps. In size mode the chunk length shrinks proportionally with the
// file size so every chunk fits the upload limit; in duration mode
// fixed windows overlap by the configured amount.
func PlanChunks(durationSeconds, fileSizeMB float64, cfg *config.PipelineConfig) []ChunkWindow {
	if durationSeconds <= 0 {
		return nil
	}

	if cfg.ChunkMode == ChunkModeDuration {
		return planOverlapChunks(durationSeconds, cfg)
	}

	if fileSizeMB <= cfg.MaxChunkSizeMB {
		return []ChunkWindow{{Index: 0, StartSeconds: 0, Seconds: durationSeconds}}
	}

	chunkSeconds := math.Floor((cfg.MaxChunkSizeMB / fileSizeMB) * durationSeconds)
	if chunkSeconds < 1 {
		chunkSeconds = 1
	}
	chunkCount := int(math.Ceil(durationSeconds / chunkSeconds))

	windows := make([]ChunkWindow, 0, chunkCount)
	for i := 0; i < chunkCount; i++ {
		start := float64(i) * chunkSeconds
		length := math.Min(chunkSeconds, durationSeconds-start)
		windows = append(windows, ChunkWindow{Index: i, StartSeconds: start, Seconds: length})
	}
	return windows
}

func planOverlapChunks(durationSeconds float64, cfg *config.PipelineConfig) []ChunkWindow {
	chunk := float64(cfg.ChunkDurationSeconds)
	overlap := float64(cfg.ChunkOverlapSeconds)
	if chunk <= 0 {
		chunk = 600
	}
	if overlap < 0 || overlap >= chunk {
		overlap = 0
	}
	if durationSeconds <= chunk {
		return []ChunkWindow{{Index: 0, StartSeconds: 0, Seconds: durationSeconds}}
	}

	step := chunk - overlap
	var windows []ChunkWindow
	for i := 0; ; i++ {
		start := float64(i) * step
		if start >= durationSeconds {
			break
		}
		length := math.Min(chunk, durationSeconds-start)
		windows = append(windows, ChunkWindow{Index: i, StartSeconds: start, Seconds: length})
		if start+length >= durationSeconds {
			break
		}
	}
	return windows
}

// Splitter cuts a recording into chunks with ffmpeg.
type Splitter struct {
	cfg    *config.PipelineConfig
	runner commandRunner
}

// NewSplitter creates a Splitter using the configured ffmpeg binary.
func NewSplitter(cfg *config.PipelineConfig) *Splitter {
	return &Splitter{cfg: cfg, runner: execRunner{}}
}

// Split cuts the recording at inputPath into the planned chunks under
// outDir. A file already within the size limit is returned as a single
// chunk pointing at the original file, with no ffmpeg run.
func (s *Splitter) Split(ctx context.Context, inputPath, outDir string, info *domain.ProbeInfo) ([]domain.AudioChunk, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "input audio file not found: %s", inputPath)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to create chunk directory")
	}

	windows := PlanChunks(info.DurationSeconds, info.SizeMB, s.cfg)
	if len(windows) == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "audio has no playable duration: %s", inputPath)
	}

	if len(windows) == 1 {
		logger.CtxInfo(ctx, "processing without splitting: %.2fMB, %.0fs", info.SizeMB, info.DurationSeconds)
		return []domain.AudioChunk{{
			Index:        0,
			LocalPath:    inputPath,
			StartSeconds: 0,
			Seconds:      info.DurationSeconds,
		}}, nil
	}

	logger.CtxInfo(ctx, "splitting into %d chunks of about %.0fs", len(windows), windows[0].Seconds)

	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)

	chunks := make([]domain.AudioChunk, 0, len(windows))
	for _, w := range windows {
		outPath := filepath.Join(outDir, fmt.Sprintf("%s-%03d%s", base, w.Index+1, ext))
		args := []string{
			"-y",
			"-i", inputPath,
			"-ss", formatSeconds(w.StartSeconds),
			"-t", formatSeconds(w.Seconds),
			"-ac", "1",
			"-ar", "16000",
			"-b:a", "64k",
			outPath,
		}
		if _, err := s.runner.Run(ctx, s.ffmpegPath(), args...); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to split audio chunk %d", w.Index)
		}
		chunks = append(chunks, domain.AudioChunk{
			Index:        w.Index,
			LocalPath:    outPath,
			StartSeconds: w.StartSeconds,
			Seconds:      w.Seconds,
		})
		logger.CtxInfo(ctx, "generated chunk %d/%d: %s", w.Index+1, len(windows), outPath)
	}
	return chunks, nil
}

func (s *Splitter) ffmpegPath() string {
	if s.cfg.FFmpegPath != "" {
		return s.cfg.FFmpegPath
	}
	return "ffmpeg"
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
