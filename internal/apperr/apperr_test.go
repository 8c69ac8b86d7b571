package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Kind
	}{
		{"unauthorized", 401, KindUnauthenticated},
		{"rate limited", 429, KindResourceExhausted},
		{"payload too large", 413, KindInvalidArgument},
		{"bad request", 400, KindInvalidArgument},
		{"not found treated as bad request", 404, KindInvalidArgument},
		{"server error", 500, KindUnavailable},
		{"bad gateway", 502, KindUnavailable},
		{"gateway timeout", 504, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromHTTPStatus(tt.status, "detail")
			assert.Equal(t, tt.want, err.Kind)
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(New(KindNotFound, "missing")))

	// A classified error keeps its kind through fmt wrapping.
	wrapped := fmt.Errorf("outer: %w", New(KindUnavailable, "down"))
	assert.Equal(t, KindUnavailable, KindOf(wrapped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUnavailable, cause, "fetch failed")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Contains(t, err.Error(), "fetch failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindRetryable(t *testing.T) {
	assert.True(t, KindUnavailable.Retryable())
	assert.True(t, KindResourceExhausted.Retryable())
	assert.False(t, KindInvalidArgument.Retryable())
	assert.False(t, KindUnauthenticated.Retryable())
	assert.False(t, KindNotFound.Retryable())
	assert.False(t, KindInternal.Retryable())
}

func TestIsKind(t *testing.T) {
	err := New(KindResourceExhausted, "slow down")
	assert.True(t, IsKind(err, KindResourceExhausted))
	assert.False(t, IsKind(err, KindUnavailable))
	assert.False(t, IsKind(nil, KindInternal))
}
