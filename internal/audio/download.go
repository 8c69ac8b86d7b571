package audio

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
	"github.com/myksyouki/lesson-manager-sub001/internal/storage"
)

// Downloader fetches the source recording into a local working
// directory. Sources are either http(s) URLs or storage:// object
// references into the configured object store.
type Downloader struct {
	client        *resty.Client
	store         storage.ObjectStorage
	retries       int
	maxMB         float64
	retryInterval time.Duration
}

// NewDownloader creates a Downloader.
// Parameters:
//   - cfg: download timeouts and retry budget.
//   - pipeCfg: pipeline limits; the size guard derives from MaxChunkSizeMB.
//   - store: object store used for storage:// references; may be nil
//     when only http sources are expected.
// Returns:
//   - *Downloader: configured downloader.
func NewDownloader(cfg *config.DownloadsConfig, pipeCfg *config.PipelineConfig, store storage.ObjectStorage) *Downloader {
	client := resty.New().
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetHeader("Accept", "audio/*").
		SetHeader("User-Agent", "lesson-pipeline/1.0")

	return &Downloader{
		client:        client,
		store:         store,
		retries:       cfg.RetryCount,
		maxMB:         pipeCfg.MaxChunkSizeMB * 5,
		retryInterval: time.Second,
	}
}

// Fetch downloads sourceURL into destDir and returns the local path.
// The directory is created when missing. Files larger than five times
// the chunk limit are rejected, as are empty downloads.
func (d *Downloader) Fetch(ctx context.Context, sourceURL, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "failed to create download directory")
	}

	isObjectRef := storage.IsObjectRef(sourceURL)
	isHTTP := strings.HasPrefix(sourceURL, "http://") || strings.HasPrefix(sourceURL, "https://")
	if !isObjectRef && !isHTTP {
		return "", apperr.New(apperr.KindInvalidArgument, "invalid source url, must be http(s) or storage reference: %s", sourceURL)
	}

	var fileName string
	if isObjectRef {
		fileName = path.Base(sourceURL)
	} else {
		fileName = "download-" + randomHex(8) + GuessFileExtension(sourceURL)
	}
	destPath := filepath.Join(destDir, fileName)

	var err error
	if isObjectRef {
		err = d.fetchObject(ctx, sourceURL, destPath)
	} else {
		err = d.fetchHTTP(ctx, sourceURL, destPath)
	}
	if err != nil {
		return "", err
	}

	stat, err := os.Stat(destPath)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "downloaded file missing")
	}
	if stat.Size() == 0 {
		os.Remove(destPath)
		return "", apperr.New(apperr.KindUnavailable, "downloaded file is empty: %s", sourceURL)
	}
	sizeMB := float64(stat.Size()) / (1024 * 1024)
	if sizeMB > d.maxMB {
		os.Remove(destPath)
		return "", apperr.New(apperr.KindInvalidArgument,
			"file size (%.2fMB) exceeds the maximum allowed size (%.0fMB)", sizeMB, d.maxMB)
	}

	logger.CtxInfo(ctx, "downloaded %s (%.2fMB)", destPath, sizeMB)
	return destPath, nil
}

// fetchObject downloads a storage:// reference with exponential
// backoff. Transient store failures are retried; a missing object is
// reported immediately.
func (d *Downloader) fetchObject(ctx context.Context, sourceURL, destPath string) error {
	if d.store == nil {
		return apperr.New(apperr.KindInternal, "object storage not configured for %s", sourceURL)
	}
	key, err := storage.ParseObjectRef(sourceURL)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, err, "malformed object reference")
	}

	exists, err := d.store.Exists(ctx, key)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, err, "failed to check object %s", key)
	}
	if !exists {
		return apperr.New(apperr.KindNotFound, "object not found in storage: %s", key)
	}

	// retries is the total attempt budget; WithMaxRetries counts
	// retries on top of the initial attempt.
	maxRetries := uint64(0)
	if d.retries > 1 {
		maxRetries = uint64(d.retries - 1)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(d.retryInterval)),
		maxRetries,
	), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		body, err := d.store.Download(ctx, key)
		if err != nil {
			logger.CtxWarn(ctx, "object download attempt %d failed for %s: %v", attempt, key, err)
			return err
		}
		defer body.Close()
		return writeFile(destPath, body)
	}
	if err := backoff.Retry(operation, policy); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, err,
			"failed to download object after %d attempts: %s", attempt, key)
	}
	return nil
}

// fetchHTTP streams an http(s) URL to disk.
func (d *Downloader) fetchHTTP(ctx context.Context, sourceURL, destPath string) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(sourceURL)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, err, "failed to download file: %s", sourceURL)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != 200 {
		return apperr.FromHTTPStatus(resp.StatusCode(), fmt.Sprintf("download of %s", sourceURL))
	}
	contentType := resp.Header().Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "audio/") {
		logger.CtxWarn(ctx, "content type is not audio: %s", contentType)
	}

	if err := writeFile(destPath, body); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to write download to disk")
	}
	return nil
}

// GuessFileExtension infers an audio extension from the URL path, then
// from content-type hints embedded in the URL, defaulting to .mp3.
func GuessFileExtension(sourceURL string) string {
	fileName := ""
	if u, err := url.Parse(sourceURL); err == nil {
		fileName = path.Base(u.Path)
	} else {
		fileName = path.Base(sourceURL)
	}

	if ext := path.Ext(fileName); ext != "" {
		return ext
	}

	switch {
	case strings.Contains(sourceURL, "audio/mp3"), strings.Contains(sourceURL, "audio/mpeg"):
		return ".mp3"
	case strings.Contains(sourceURL, "audio/wav"), strings.Contains(sourceURL, "audio/x-wav"):
		return ".wav"
	case strings.Contains(sourceURL, "audio/ogg"):
		return ".ogg"
	case strings.Contains(sourceURL, "audio/m4a"), strings.Contains(sourceURL, "audio/x-m4a"):
		return ".m4a"
	}
	return ".mp3"
}

func writeFile(destPath string, r io.Reader) error {
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(destPath)
		return err
	}
	return nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
