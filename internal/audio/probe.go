package audio

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strconv"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/domain"
)

// commandRunner abstracts subprocess execution so probing and
// splitting can be tested without ffmpeg installed.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// Prober inspects a local audio file with ffprobe.
type Prober struct {
	ffprobePath string
	runner      commandRunner
}

// NewProber creates a Prober invoking the given ffprobe binary.
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath, runner: execRunner{}}
}

// ffprobe JSON output shapes, limited to the fields we read.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

// Probe returns the media attributes of the file at path. A file with
// no audio stream is rejected as invalid input.
func (p *Prober) Probe(ctx context.Context, path string) (*domain.ProbeInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "audio file not found: %s", path)
	}

	out, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to probe audio file: %s", path)
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse ffprobe output")
	}

	var audioStream *ffprobeStream
	for i := range probed.Streams {
		if probed.Streams[i].CodecType == "audio" {
			audioStream = &probed.Streams[i]
			break
		}
	}
	if audioStream == nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "no audio stream found in file: %s", path)
	}

	info := &domain.ProbeInfo{
		DurationSeconds: parseFloat(probed.Format.Duration),
		FormatName:      orUnknown(probed.Format.FormatName),
		CodecName:       orUnknown(audioStream.CodecName),
		SampleRate:      parseInt(audioStream.SampleRate),
		Channels:        audioStream.Channels,
		BitRate:         parseInt(probed.Format.BitRate),
		SizeMB:          float64(stat.Size()) / (1024 * 1024),
	}
	return info, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
