package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies every error an adapter can return. The set is closed:
// the fallback orchestrator branches on Kind to decide whether to try the
// next candidate, surface the error to the client, or stop entirely.
type Kind int

const (
	// KindInvalidRequest means the request itself is malformed or rejected
	// by the upstream for a client-side reason. Terminal; never retried.
	KindInvalidRequest Kind = iota

	// KindAuthFailed means the upstream rejected our credential.
	KindAuthFailed

	// KindNotFound means the model or endpoint does not exist upstream.
	KindNotFound

	// KindRateLimited means the upstream returned 429 for request rate.
	KindRateLimited

	// KindQuotaExhausted means the upstream account is out of quota or
	// billing credit, as opposed to a momentary rate limit.
	KindQuotaExhausted

	// KindContextLengthExceeded means the prompt does not fit the model's
	// context window. Terminal; retrying elsewhere cannot help the caller.
	KindContextLengthExceeded

	// KindTransient covers momentary upstream failures (500, read errors)
	// that are worth retrying on another candidate.
	KindTransient

	// KindUpstreamUnavailable means the provider cannot be reached at all
	// (connect/DNS failure, 502/503/504).
	KindUpstreamUnavailable

	// KindCanceled means the request context was canceled by the caller.
	KindCanceled

	// KindInternal is the catch-all for gateway-side bugs.
	KindInternal
)

// String returns the snake_case name of the kind, used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindAuthFailed:
		return "auth_failed"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindContextLengthExceeded:
		return "context_length_exceeded"
	case KindTransient:
		return "transient"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// Terminal reports whether the kind is a client-side fault that must be
// surfaced immediately, with no fallback and no provider failure attribution.
func (k Kind) Terminal() bool {
	switch k {
	case KindInvalidRequest, KindAuthFailed, KindNotFound, KindContextLengthExceeded:
		return true
	}
	return false
}

// Retryable reports whether the fallback orchestrator may continue to the
// next candidate after seeing this kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindQuotaExhausted, KindTransient, KindUpstreamUnavailable:
		return true
	}
	return false
}

// Error is the normalized adapter error. Every failure crossing the adapter
// boundary is an *Error; callers branch on Kind rather than on string
// matching or concrete upstream types.
type Error struct {
	// Kind is the normalized classification.
	Kind Kind

	// Provider is the provider key the error originated from ("" for
	// gateway-side errors).
	Provider string

	// Status is the upstream HTTP status code (0 if not applicable).
	Status int

	// Message is a human-readable description. It may contain upstream
	// text and must not be returned verbatim to clients.
	Message string

	// RetryAfter is the upstream-suggested wait, if any (429 responses).
	RetryAfter time.Duration

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		if e.Status > 0 {
			return fmt.Sprintf("provider %q: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
		}
		return fmt.Sprintf("provider %q: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs a normalized adapter error.
func NewError(kind Kind, provider, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message}
}

// Errorf constructs a normalized adapter error with a formatted message.
func Errorf(kind Kind, provider, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an error chain. Context cancellation maps to
// KindCanceled, deadline expiry to KindTransient, and anything unrecognized
// to KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindInternal
}
