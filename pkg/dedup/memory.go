package dedup

import (
	"context"
	"sync"
	"time"
)

// entry is one in-flight or recently completed execution.
type entry struct {
	done    chan struct{}
	payload []byte
	err     error
	expires time.Time
}

// MemoryDeduplicator coordinates within a single process. It is the
// fallback when Redis is not configured.
type MemoryDeduplicator struct {
	mu          sync.Mutex
	entries     map[string]*entry
	waitTimeout time.Duration
	now         func() time.Time
}

// NewMemory creates an in-process deduplicator. waitTimeout bounds how
// long joiners wait for the owner before falling through.
func NewMemory(waitTimeout time.Duration) *MemoryDeduplicator {
	return &MemoryDeduplicator{
		entries:     make(map[string]*entry),
		waitTimeout: waitTimeout,
		now:         time.Now,
	}
}

// Execute implements Deduplicator.
func (d *MemoryDeduplicator) Execute(ctx context.Context, fingerprint string, run RunFunc) ([]byte, bool, error) {
	d.mu.Lock()
	e, ok := d.entries[fingerprint]
	if ok && !e.expires.IsZero() && d.now().After(e.expires) {
		delete(d.entries, fingerprint)
		ok = false
	}
	if !ok {
		e = &entry{done: make(chan struct{})}
		d.entries[fingerprint] = e
		d.mu.Unlock()
		return d.runAsOwner(ctx, fingerprint, e, run)
	}
	d.mu.Unlock()

	// Completed result still within its TTL.
	select {
	case <-e.done:
		if e.err == nil {
			return e.payload, true, nil
		}
		// The owner failed; execute directly.
		payload, err := run(ctx)
		return payload, false, err
	default:
	}

	// In flight: wait for the owner, the deadline, or cancellation.
	timer := time.NewTimer(d.waitTimeout)
	defer timer.Stop()
	select {
	case <-e.done:
		if e.err == nil {
			return e.payload, true, nil
		}
		payload, err := run(ctx)
		return payload, false, err
	case <-timer.C:
		payload, err := run(ctx)
		return payload, false, err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (d *MemoryDeduplicator) runAsOwner(ctx context.Context, fingerprint string, e *entry, run RunFunc) ([]byte, bool, error) {
	payload, err := run(ctx)

	d.mu.Lock()
	e.payload = payload
	e.err = err
	e.expires = d.now().Add(resultTTL)
	close(e.done)
	if err != nil {
		// Failed executions are not reusable; let the next caller own.
		delete(d.entries, fingerprint)
	}
	d.mu.Unlock()

	return payload, false, err
}
