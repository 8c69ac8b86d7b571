package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectRef(t *testing.T) {
	key, err := ParseObjectRef("storage://lesson-audio/audio/user1/job_abc/rec.m4a")
	require.NoError(t, err)
	assert.Equal(t, "audio/user1/job_abc/rec.m4a", key)

	_, err = ParseObjectRef("https://example.com/file.mp3")
	assert.Error(t, err)

	_, err = ParseObjectRef("storage://bucket-only")
	assert.Error(t, err)
}

func TestAudioObjectKey(t *testing.T) {
	key := AudioObjectKey("user1", "job_abc", "rec.m4a")
	assert.Equal(t, "audio/user1/job_abc/rec.m4a", key)
}

func TestOwnerFromAudioKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"plain key", "audio/user1/job_abc/rec.m4a", "user1"},
		{"object ref", "storage://bucket/audio/user2/job_x/rec.mp3", "user2"},
		{"leading slash", "/audio/user3/job_y/rec.wav", "user3"},
		{"no audio segment", "uploads/user1/rec.m4a", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OwnerFromAudioKey(tt.key))
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "s3.example.com", normalizeEndpoint("https://s3.example.com"))
	assert.Equal(t, "s3.example.com", normalizeEndpoint("http://s3.example.com/bucket/path"))
	assert.Equal(t, "s3.example.com", normalizeEndpoint("s3.example.com/"))
}
