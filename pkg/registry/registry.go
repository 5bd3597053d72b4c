package registry

import (
	"log/slog"
	"sync/atomic"

	"github.com/switchboard-ai/switchboard/pkg/config"
)

// Registry hands out the current catalog snapshot. Swaps are atomic;
// in-flight requests keep the snapshot they started with.
type Registry struct {
	snap    atomic.Pointer[Snapshot]
	version atomic.Uint64
	logger  *slog.Logger
}

// New creates a registry seeded with the given snapshot.
func New(snap *Snapshot, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}
	r.Swap(snap)
	return r
}

// FromConfig builds the initial snapshot from configuration and wraps it
// in a registry.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	snap, err := NewSnapshot(cfg)
	if err != nil {
		return nil, err
	}
	return New(snap, logger), nil
}

// Current returns the live snapshot. The result must be treated as
// read-only and is safe to use for the remainder of a request even if a
// swap happens concurrently.
func (r *Registry) Current() *Snapshot {
	return r.snap.Load()
}

// Swap installs a new snapshot, assigning it the next generation number.
func (r *Registry) Swap(snap *Snapshot) {
	snap.version = r.version.Add(1)
	r.snap.Store(snap)
	r.logger.Info("catalog snapshot installed",
		"version", snap.version,
		"models", len(snap.models),
		"providers", len(snap.providersByKey),
	)
}

// Reload builds a snapshot from the given configuration and installs it.
// On build failure the previous snapshot stays live.
func (r *Registry) Reload(cfg *config.Config) error {
	snap, err := NewSnapshot(cfg)
	if err != nil {
		return err
	}
	r.Swap(snap)
	return nil
}
