package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/domain"
)

// fakeRunner records invocations and plays back canned output.
type fakeRunner struct {
	output []byte
	err    error
	calls  [][]string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output, r.err
}

func writeAudioFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lesson.mp3")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

const ffprobeJSON = `{
	"streams": [
		{"codec_type": "video", "codec_name": "mjpeg"},
		{"codec_type": "audio", "codec_name": "mp3", "sample_rate": "44100", "channels": 2}
	],
	"format": {"format_name": "mp3", "duration": "1800.42", "bit_rate": "128000"}
}`

func TestProbeParsesOutput(t *testing.T) {
	runner := &fakeRunner{output: []byte(ffprobeJSON)}
	p := &Prober{ffprobePath: "ffprobe", runner: runner}

	path := writeAudioFile(t, 2*1024*1024)
	info, err := p.Probe(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1800.42, info.DurationSeconds)
	assert.Equal(t, "mp3", info.FormatName)
	assert.Equal(t, "mp3", info.CodecName)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 128000, info.BitRate)
	assert.Equal(t, 2.0, info.SizeMB)

	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0], "-show_streams")
	assert.Contains(t, runner.calls[0], path)
}

func TestProbeRejectsNoAudioStream(t *testing.T) {
	runner := &fakeRunner{output: []byte(`{
		"streams": [{"codec_type": "video", "codec_name": "h264"}],
		"format": {"format_name": "mp4", "duration": "10"}
	}`)}
	p := &Prober{ffprobePath: "ffprobe", runner: runner}

	_, err := p.Probe(context.Background(), writeAudioFile(t, 100))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestProbeMissingFile(t *testing.T) {
	p := &Prober{ffprobePath: "ffprobe", runner: &fakeRunner{}}

	_, err := p.Probe(context.Background(), "/nonexistent/lesson.mp3")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestProbeUnknownFallbacks(t *testing.T) {
	runner := &fakeRunner{output: []byte(`{
		"streams": [{"codec_type": "audio"}],
		"format": {"duration": "5"}
	}`)}
	p := &Prober{ffprobePath: "ffprobe", runner: runner}

	info, err := p.Probe(context.Background(), writeAudioFile(t, 100))
	require.NoError(t, err)
	assert.Equal(t, "unknown", info.FormatName)
	assert.Equal(t, "unknown", info.CodecName)
}

func TestSplitSingleChunkSkipsFFmpeg(t *testing.T) {
	runner := &fakeRunner{}
	s := &Splitter{cfg: sizeCfg(), runner: runner}

	path := writeAudioFile(t, 100)
	info := probeInfo(1800, 8)

	chunks, err := s.Split(context.Background(), path, t.TempDir(), info)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, path, chunks[0].LocalPath)
	assert.Empty(t, runner.calls, "single chunk must not shell out")
}

func TestSplitRunsFFmpegPerChunk(t *testing.T) {
	runner := &fakeRunner{}
	cfg := sizeCfg()
	cfg.FFmpegPath = "/usr/local/bin/ffmpeg"
	s := &Splitter{cfg: cfg, runner: runner}

	path := writeAudioFile(t, 100)
	info := probeInfo(2700, 35)

	outDir := t.TempDir()
	chunks, err := s.Split(context.Background(), path, outDir, info)
	require.NoError(t, err)

	require.Len(t, chunks, 4)
	require.Len(t, runner.calls, 4)

	first := runner.calls[0]
	assert.Equal(t, "/usr/local/bin/ffmpeg", first[0])
	assert.Contains(t, first, "-ss")
	assert.Contains(t, first, "0.000")
	assert.Contains(t, first, "-ar")
	assert.Contains(t, first, "16000")

	// Chunk files are numbered from 1 inside the output directory.
	assert.Equal(t, filepath.Join(outDir, "lesson-001.mp3"), chunks[0].LocalPath)
	assert.Equal(t, filepath.Join(outDir, "lesson-004.mp3"), chunks[3].LocalPath)
}

func TestSplitFFmpegFailure(t *testing.T) {
	runner := &fakeRunner{err: os.ErrPermission}
	s := &Splitter{cfg: sizeCfg(), runner: runner}

	_, err := s.Split(context.Background(), writeAudioFile(t, 100), t.TempDir(), probeInfo(2700, 35))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func probeInfo(duration, sizeMB float64) *domain.ProbeInfo {
	return &domain.ProbeInfo{DurationSeconds: duration, SizeMB: sizeMB}
}
