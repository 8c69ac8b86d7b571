package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJobID(t *testing.T) {
	assert.Equal(t, "job_abc123", NormalizeJobID("abc123"))
	assert.Equal(t, "job_abc123", NormalizeJobID("job_abc123"))
	assert.Equal(t, "", NormalizeJobID(""))
}

func TestBareJobID(t *testing.T) {
	assert.Equal(t, "abc123", BareJobID("job_abc123"))
	assert.Equal(t, "abc123", BareJobID("abc123"))
}

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusError.Terminal())
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusTranscribing.Terminal())
}

func TestStringArrayRoundTrip(t *testing.T) {
	tags := StringArray{"scales", "リズム", "tone"}

	value, err := tags.Value()
	require.NoError(t, err)

	var scanned StringArray
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, tags, scanned)
}

func TestStringArrayNilValue(t *testing.T) {
	var tags StringArray
	value, err := tags.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	var scanned StringArray
	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
}

func TestStringArrayScanBytes(t *testing.T) {
	var scanned StringArray
	require.NoError(t, scanned.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringArray{"a", "b"}, scanned)

	assert.Error(t, scanned.Scan(42))
}
