package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myksyouki/lesson-manager-sub001/internal/config"
)

func sizeCfg() *config.PipelineConfig {
	return &config.PipelineConfig{
		MaxChunkSizeMB:          10,
		MaxAudioDurationSeconds: 5400,
		ChunkMode:               ChunkModeSize,
	}
}

func TestPlanChunksSingleWhenSmall(t *testing.T) {
	windows := PlanChunks(1800, 8, sizeCfg())
	require.Len(t, windows, 1)
	assert.Equal(t, 0.0, windows[0].StartSeconds)
	assert.Equal(t, 1800.0, windows[0].Seconds)
}

func TestPlanChunksSizeMode(t *testing.T) {
	// 45 minute lesson at 35MB with a 10MB limit: chunk length is
	// floor((10/35)*2700) = 771s, giving ceil(2700/771) = 4 chunks.
	windows := PlanChunks(2700, 35, sizeCfg())
	require.Len(t, windows, 4)

	assert.Equal(t, 771.0, windows[0].Seconds)
	assert.Equal(t, 771.0, windows[1].Seconds)
	assert.Equal(t, 771.0, windows[2].Seconds)
	// Last chunk covers the remainder.
	assert.Equal(t, 2700.0-3*771.0, windows[3].Seconds)
}

func TestPlanChunksCoverWithoutGaps(t *testing.T) {
	cases := []struct {
		duration float64
		sizeMB   float64
	}{
		{2700, 35},
		{3600, 11},
		{5400, 49.9},
		{61, 10.01},
		{1, 100},
	}

	for _, tc := range cases {
		windows := PlanChunks(tc.duration, tc.sizeMB, sizeCfg())
		require.NotEmpty(t, windows)

		assert.Equal(t, 0.0, windows[0].StartSeconds)
		for i := 1; i < len(windows); i++ {
			// Each window starts exactly where the previous ends.
			prevEnd := windows[i-1].StartSeconds + windows[i-1].Seconds
			assert.InDelta(t, prevEnd, windows[i].StartSeconds, 1e-9,
				"gap between windows %d and %d (duration=%v size=%v)", i-1, i, tc.duration, tc.sizeMB)
		}
		last := windows[len(windows)-1]
		assert.InDelta(t, tc.duration, last.StartSeconds+last.Seconds, 1e-9)
	}
}

func TestPlanChunksDurationMode(t *testing.T) {
	cfg := &config.PipelineConfig{
		MaxChunkSizeMB:       10,
		ChunkMode:            ChunkModeDuration,
		ChunkDurationSeconds: 600,
		ChunkOverlapSeconds:  20,
	}

	windows := PlanChunks(1500, 50, cfg)
	require.Len(t, windows, 3)

	// Neighbouring windows overlap by 20 seconds.
	assert.Equal(t, 0.0, windows[0].StartSeconds)
	assert.Equal(t, 580.0, windows[1].StartSeconds)
	assert.Equal(t, 1160.0, windows[2].StartSeconds)
	assert.Equal(t, 600.0, windows[0].Seconds)
	assert.Equal(t, 600.0, windows[1].Seconds)
	assert.Equal(t, 340.0, windows[2].Seconds)

	// Short recordings stay whole.
	windows = PlanChunks(400, 50, cfg)
	require.Len(t, windows, 1)
	assert.Equal(t, 400.0, windows[0].Seconds)
}

func TestPlanChunksZeroDuration(t *testing.T) {
	assert.Nil(t, PlanChunks(0, 10, sizeCfg()))
	assert.Nil(t, PlanChunks(-5, 10, sizeCfg()))
}

func TestPlanChunksEveryChunkFitsLimit(t *testing.T) {
	// Size mode exists to keep chunks under the upload limit. With a
	// constant bitrate assumption, chunkSeconds/duration of the file
	// size must not exceed the limit.
	duration, sizeMB := 5400.0, 49.0
	windows := PlanChunks(duration, sizeMB, sizeCfg())
	for _, w := range windows {
		chunkMB := (w.Seconds / duration) * sizeMB
		assert.LessOrEqual(t, chunkMB, 10.0+1e-9)
	}
	assert.Equal(t, int(math.Ceil(duration/math.Floor((10.0/sizeMB)*duration))), len(windows))
}
