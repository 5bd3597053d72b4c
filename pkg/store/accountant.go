package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Accountant buffers usage records and flushes them to the backend in
// batches. Recording never blocks the request path on backend latency.
type Accountant struct {
	backend Backend
	logger  *slog.Logger

	mu     sync.Mutex
	buffer []UsageRecord

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewAccountant creates an accountant flushing every interval.
func NewAccountant(backend Backend, interval time.Duration, logger *slog.Logger) *Accountant {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Accountant{
		backend: backend,
		logger:  logger,
		done:    make(chan struct{}),
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.Flush(context.Background())
			case <-a.done:
				return
			}
		}
	}()
	return a
}

// Record buffers one usage record.
func (a *Accountant) Record(rec UsageRecord) {
	a.mu.Lock()
	a.buffer = append(a.buffer, rec)
	a.mu.Unlock()
}

// Flush writes the buffered records to the backend. Failed batches are
// dropped; accounting is best-effort.
func (a *Accountant) Flush(ctx context.Context) {
	a.mu.Lock()
	batch := a.buffer
	a.buffer = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := a.backend.SaveBatch(ctx, batch); err != nil {
		a.logger.Warn("usage flush failed, batch dropped",
			"records", len(batch), "error", err)
	}
}

// Totals delegates to the backend after flushing pending records.
func (a *Accountant) Totals(ctx context.Context, since time.Time) ([]Total, error) {
	a.Flush(ctx)
	return a.backend.Totals(ctx, since)
}

// Close flushes outstanding records and closes the backend.
func (a *Accountant) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
	})
	a.wg.Wait()
	a.Flush(context.Background())
	return a.backend.Close()
}
