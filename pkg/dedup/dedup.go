// Package dedup collapses identical concurrent requests into a single
// upstream call. The first caller for a fingerprint becomes the owner
// and executes; concurrent callers with the same fingerprint join and
// receive the owner's published result. Deduplication is strictly
// best-effort: on any coordination failure callers fall through and
// execute directly. Streaming requests bypass deduplication entirely
// because their results are not reusable.
package dedup

import (
	"context"
	"time"
)

// RunFunc produces the serialized response body for one request.
type RunFunc func(ctx context.Context) ([]byte, error)

// Deduplicator coordinates in-flight request sharing.
type Deduplicator interface {
	// Execute runs or joins the request identified by fingerprint.
	// shared is true when the returned payload came from another
	// caller's execution rather than run.
	Execute(ctx context.Context, fingerprint string, run RunFunc) (payload []byte, shared bool, err error)
}

// resultTTL bounds how long a published result may be served to late
// joiners.
const resultTTL = 5 * time.Minute

// Noop executes every request directly.
type Noop struct{}

// Execute implements Deduplicator.
func (Noop) Execute(ctx context.Context, _ string, run RunFunc) ([]byte, bool, error) {
	payload, err := run(ctx)
	return payload, false, err
}
