package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ObjectStorage defines the interface for object storage operations
type ObjectStorage interface {
	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download downloads an object from storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns the size in bytes of an object
	Stat(ctx context.Context, key string) (int64, error)

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}

// ObjectRefScheme prefixes source URLs that point into the object
// store rather than a public HTTP location.
const ObjectRefScheme = "storage://"

// IsObjectRef reports whether url names an object in the store.
func IsObjectRef(url string) bool {
	return strings.HasPrefix(url, ObjectRefScheme)
}

// ParseObjectRef extracts the object key from a storage:// reference.
// The bucket segment is informational; the configured bucket is used.
func ParseObjectRef(url string) (string, error) {
	if !IsObjectRef(url) {
		return "", fmt.Errorf("not an object reference: %s", url)
	}
	rest := strings.TrimPrefix(url, ObjectRefScheme)
	// The first segment is the bucket; the key follows it.
	idx := strings.Index(rest, "/")
	if idx == -1 || rest[idx+1:] == "" {
		return "", fmt.Errorf("object reference has no key: %s", url)
	}
	return rest[idx+1:], nil
}

// AudioObjectKey builds the canonical object key for a lesson
// recording: audio/{ownerID}/{jobID}/{filename}.
func AudioObjectKey(ownerID, jobID, filename string) string {
	return fmt.Sprintf("audio/%s/%s/%s", ownerID, jobID, filename)
}

// OwnerFromAudioKey extracts the owner segment from an audio object
// key or path hint. Returns "" when the path does not follow the
// audio/{ownerID}/... convention.
func OwnerFromAudioKey(key string) string {
	key = strings.TrimPrefix(key, ObjectRefScheme)
	parts := strings.Split(strings.Trim(key, "/"), "/")
	for i, p := range parts {
		if p == "audio" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
