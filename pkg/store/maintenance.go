package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRetention is how long usage records are kept before the
// scheduled purge removes them.
const DefaultRetention = 30 * 24 * time.Hour

// Maintenance runs the scheduled housekeeping jobs: flushing the
// accountant and purging expired usage records.
type Maintenance struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewMaintenance schedules housekeeping on the accountant. schedule is
// a cron expression (standard five fields, or @every syntax) for the
// purge job; retention 0 means DefaultRetention.
func NewMaintenance(a *Accountant, schedule string, retention time.Duration, logger *slog.Logger) (*Maintenance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if retention == 0 {
		retention = DefaultRetention
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		a.Flush(ctx)
		purged, err := a.backend.PurgeBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Warn("usage purge failed", "error", err)
			return
		}
		logger.Info("usage maintenance complete", "purged", purged)
	})
	if err != nil {
		return nil, err
	}

	return &Maintenance{cron: c, logger: logger}, nil
}

// Start begins running scheduled jobs.
func (m *Maintenance) Start() { m.cron.Start() }

// Stop stops the scheduler, waiting for a running job to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}
