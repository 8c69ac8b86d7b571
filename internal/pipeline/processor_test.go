package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/domain"
	"github.com/myksyouki/lesson-manager-sub001/internal/transcribe"
)

type statusWrite struct {
	status   domain.JobStatus
	progress int
	message  string
	extra    map[string]interface{}
}

// recordingStore captures every checkpoint write in order.
type recordingStore struct {
	mu        sync.Mutex
	job       *domain.Job
	writes    []statusWrite
	updateErr error
	findErr   error
}

func (s *recordingStore) Find(ctx context.Context, jobID, pathHint string) (*domain.Job, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.job == nil {
		return nil, apperr.New(apperr.KindNotFound, "job %s not found", jobID)
	}
	return s.job, nil
}

func (s *recordingStore) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, progress int, message string, extra map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.writes = append(s.writes, statusWrite{status: status, progress: progress, message: message, extra: extra})
	return nil
}

func (s *recordingStore) lastWrite() statusWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[len(s.writes)-1]
}

func (s *recordingStore) writeWithKey(key string) (statusWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.writes {
		if _, ok := w.extra[key]; ok {
			return w, true
		}
	}
	return statusWrite{}, false
}

type fakeDownloader struct {
	err error
}

func (d *fakeDownloader) Fetch(ctx context.Context, sourceURL, destDir string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	path := filepath.Join(destDir, "download.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeProber struct {
	info *domain.ProbeInfo
	err  error
}

func (p *fakeProber) Probe(ctx context.Context, path string) (*domain.ProbeInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.info, nil
}

type fakeSplitter struct {
	chunks int
	err    error
}

func (s *fakeSplitter) Split(ctx context.Context, inputPath, outDir string, info *domain.ProbeInfo) ([]domain.AudioChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	chunks := make([]domain.AudioChunk, s.chunks)
	for i := range chunks {
		chunks[i] = domain.AudioChunk{Index: i, LocalPath: inputPath}
	}
	return chunks, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) TranscribeChunks(ctx context.Context, chunks []domain.AudioChunk, onProgress transcribe.ProgressFunc) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	for i := range chunks {
		if onProgress != nil {
			if err := onProgress(ctx, float64(i+1)/float64(len(chunks)), i+1, len(chunks)); err != nil {
				return "", err
			}
		}
	}
	return t.text, nil
}

type fakeSummarizer struct {
	summary      string
	err          error
	gotText      string
	gotCategory  string
	gotCustomIns string
}

func (s *fakeSummarizer) Summarize(ctx context.Context, text, category, customInstructions string) (string, error) {
	s.gotText = text
	s.gotCategory = category
	s.gotCustomIns = customInstructions
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

type fakeTagger struct {
	tags []string
}

func (t *fakeTagger) Tag(ctx context.Context, text, category string) []string {
	return t.tags
}

type fixture struct {
	downloader  *fakeDownloader
	prober      *fakeProber
	splitter    *fakeSplitter
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
	tagger      *fakeTagger
	store       *recordingStore
	cfg         *config.PipelineConfig
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		downloader: &fakeDownloader{},
		prober: &fakeProber{info: &domain.ProbeInfo{
			DurationSeconds: 1800,
			SizeMB:          8.5,
			FormatName:      "mp3",
			CodecName:       "mp3",
		}},
		splitter:    &fakeSplitter{chunks: 1},
		transcriber: &fakeTranscriber{text: "レッスンの文字起こし全文です。"},
		summarizer:  &fakeSummarizer{summary: "レッスンの要約です。"},
		tagger:      &fakeTagger{tags: []string{"scales", "piano", "lesson"}},
		store:       &recordingStore{},
		cfg: &config.PipelineConfig{
			MaxChunkSizeMB:          10,
			MaxAudioDurationSeconds: 5400,
			TempDir:                 t.TempDir(),
		},
	}
}

func (f *fixture) processor() *Processor {
	return NewProcessor(f.downloader, f.prober, f.splitter, f.transcriber, f.summarizer, f.tagger, f.store, f.cfg)
}

func validRequest() ProcessRequest {
	return ProcessRequest{
		SourceURL: "https://example.com/lesson.mp3",
		JobID:     "abc123",
		OwnerID:   "user1",
		Category:  "piano",
	}
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.processor().Process(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "レッスンの文字起こし全文です。", result.Transcription)
	assert.Equal(t, "レッスンの要約です。", result.Summary)
	assert.Equal(t, []string{"scales", "piano", "lesson"}, result.Tags)

	// The run ends completed at 100 with the summary and tags attached.
	last := f.store.lastWrite()
	assert.Equal(t, domain.JobStatusCompleted, last.status)
	assert.Equal(t, 100, last.progress)
	assert.Equal(t, "レッスンの要約です。", last.extra["summary"])
	assert.Equal(t, domain.StringArray{"scales", "piano", "lesson"}, last.extra["tags"])
}

func TestProcessProgressMonotonic(t *testing.T) {
	f := newFixture(t)
	f.splitter.chunks = 5

	_, err := f.processor().Process(context.Background(), validRequest())
	require.NoError(t, err)

	require.NotEmpty(t, f.store.writes)
	prev := -1
	for i, w := range f.store.writes {
		assert.GreaterOrEqual(t, w.progress, prev, "write %d went backwards", i)
		prev = w.progress
	}
	assert.Equal(t, 100, prev)
}

func TestProcessCheckpointSequence(t *testing.T) {
	f := newFixture(t)
	f.splitter.chunks = 2

	_, err := f.processor().Process(context.Background(), validRequest())
	require.NoError(t, err)

	var seen []int
	for _, w := range f.store.writes {
		seen = append(seen, w.progress)
	}
	// 5 start, 10 downloaded, 15 probed, 20 split, 45 mid-transcribe,
	// 70 transcript persisted, 80 summarizing, 90 tagging, 100 done.
	assert.Equal(t, []int{5, 10, 15, 20, 45, 70, 80, 90, 100}, seen)
}

func TestProcessPersistsAudioMetadata(t *testing.T) {
	f := newFixture(t)
	f.prober.info.DurationSeconds = 1800.4
	f.prober.info.SizeMB = 8.526

	_, err := f.processor().Process(context.Background(), validRequest())
	require.NoError(t, err)

	w, ok := f.store.writeWithKey("audio_duration")
	require.True(t, ok)
	assert.Equal(t, 15, w.progress)
	assert.Equal(t, 1800, w.extra["audio_duration"])
	assert.Equal(t, 8.53, w.extra["audio_size_mb"])
}

func TestProcessTranscriptPersistedBeforeSummary(t *testing.T) {
	// Summarization fails after the transcript checkpoint: the stored
	// transcript must survive and the job end in error state.
	f := newFixture(t)
	f.summarizer.err = apperr.New(apperr.KindUnavailable, "summary endpoint down")

	_, err := f.processor().Process(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))

	w, ok := f.store.writeWithKey("transcription")
	require.True(t, ok)
	assert.Equal(t, 70, w.progress)
	assert.Equal(t, "レッスンの文字起こし全文です。", w.extra["transcription"])
	assert.NotEmpty(t, w.extra["transcription_id"])

	last := f.store.lastWrite()
	assert.Equal(t, domain.JobStatusError, last.status)
	// -1 leaves the stored progress at the last checkpoint.
	assert.Equal(t, -1, last.progress)
	assert.Equal(t, string(apperr.KindUnavailable), last.extra["error_kind"])
}

func TestProcessDownloadFailureMarksError(t *testing.T) {
	f := newFixture(t)
	f.downloader.err = apperr.New(apperr.KindNotFound, "object missing")

	_, err := f.processor().Process(context.Background(), validRequest())
	require.Error(t, err)

	last := f.store.lastWrite()
	assert.Equal(t, domain.JobStatusError, last.status)
	assert.Equal(t, string(apperr.KindNotFound), last.extra["error_kind"])
	assert.Equal(t, "object missing", last.extra["error"])
}

func TestProcessRejectsOverlongAudio(t *testing.T) {
	f := newFixture(t)
	f.prober.info.DurationSeconds = 5401

	_, err := f.processor().Process(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	last := f.store.lastWrite()
	assert.Equal(t, domain.JobStatusError, last.status)
}

func TestProcessEmptyTranscriptionFails(t *testing.T) {
	f := newFixture(t)
	f.transcriber.text = "   "

	_, err := f.processor().Process(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestProcessValidation(t *testing.T) {
	f := newFixture(t)
	p := f.processor()

	tests := []struct {
		name string
		mod  func(*ProcessRequest)
	}{
		{"missing source url", func(r *ProcessRequest) { r.SourceURL = "" }},
		{"missing job id", func(r *ProcessRequest) { r.JobID = "  " }},
		{"missing owner id", func(r *ProcessRequest) { r.OwnerID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mod(&req)
			_, err := p.Process(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
		})
	}

	// Validation failures never touch the store.
	assert.Empty(t, f.store.writes)
}

func TestProcessCategoryFromJobRecord(t *testing.T) {
	f := newFixture(t)
	f.store.job = &domain.Job{
		JobID:              "job_abc123",
		Category:           "violin",
		CustomInstructions: "ビブラートに注目して",
	}

	req := validRequest()
	req.Category = ""
	req.CustomInstructions = ""

	_, err := f.processor().Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "violin", f.summarizer.gotCategory)
	assert.Equal(t, "ビブラートに注目して", f.summarizer.gotCustomIns)
}

func TestProcessCategoryDefaultsUnknown(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.Category = ""

	_, err := f.processor().Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "unknown", f.summarizer.gotCategory)
}

func TestProcessCleansTempDir(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor().Process(context.Background(), validRequest())
	require.NoError(t, err)

	entries, err := os.ReadDir(f.cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessCleansTempDirOnFailure(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = apperr.New(apperr.KindResourceExhausted, "rate limited")

	_, err := f.processor().Process(context.Background(), validRequest())
	require.Error(t, err)

	entries, err := os.ReadDir(f.cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessFinalWriteFailureReported(t *testing.T) {
	f := newFixture(t)
	f.store.updateErr = apperr.New(apperr.KindUnavailable, "db down")

	_, err := f.processor().Process(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
