// Package apperr defines the error taxonomy shared by all pipeline stages.
//
// Every failure that crosses a component boundary is classified into a
// Kind so that callers can decide between retrying, aborting, and
// surfacing the failure to the job record.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and reporting decisions.
type Kind string

const (
	// KindInvalidArgument marks malformed or missing input, oversize or
	// undersize files, and chunk-too-large responses. Never retried.
	KindInvalidArgument Kind = "invalid-argument"

	// KindUnauthenticated marks credentials rejected by an external API.
	// Never retried; requires operator intervention.
	KindUnauthenticated Kind = "unauthenticated"

	// KindResourceExhausted marks rate limiting by an external API. Safe
	// for the caller to retry with backoff.
	KindResourceExhausted Kind = "resource-exhausted"

	// KindNotFound marks a job record or audio source that cannot be
	// located. Terminal for the run.
	KindNotFound Kind = "not-found"

	// KindUnavailable marks transient network or service failures.
	KindUnavailable Kind = "unavailable"

	// KindInternal marks unexpected local failures: encode errors, parse
	// failures with no usable fallback, implausible results.
	KindInternal Kind = "internal"
)

// Retryable reports whether a caller may retry an operation that failed
// with this kind. Only transient kinds qualify.
func (k Kind) Retryable() bool {
	return k == KindUnavailable || k == KindResourceExhausted
}

// Error is a classified error carrying an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error from a format string.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, preserving it as the cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err. Unclassified non-nil errors map to
// KindInternal; nil maps to the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromHTTPStatus maps an external API status code onto the taxonomy.
// The mapping mirrors how the transcription and summarization endpoints
// report failure: 401 is a credential problem, 429 is rate limiting,
// 413 means the uploaded chunk was too large (a splitter sizing bug),
// any other 4xx is a bad request, and 5xx is a service-side outage.
func FromHTTPStatus(status int, detail string) *Error {
	switch {
	case status == 401:
		return New(KindUnauthenticated, "api authentication rejected: %s", detail)
	case status == 429:
		return New(KindResourceExhausted, "api rate limit exceeded: %s", detail)
	case status == 413:
		return New(KindInvalidArgument, "uploaded chunk too large: %s", detail)
	case status >= 400 && status < 500:
		return New(KindInvalidArgument, "api rejected request (%d): %s", status, detail)
	default:
		return New(KindUnavailable, "api service error (%d): %s", status, detail)
	}
}
