// Package health tracks per-binding provider health. A binding that
// keeps failing enters an exponentially growing cooldown during which
// the router skips it; one success clears the slate.
package health

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

// Key identifies one provider binding in the health store.
type Key struct {
	Provider string
	Model    string
}

// entry is the mutable health state of one binding.
type entry struct {
	consecutiveFailures int
	cooldownUntil       time.Time
	lastFailure         time.Time
	lastSuccess         time.Time
}

// Status is a read-only view of one binding's health.
type Status struct {
	Key                 Key
	ConsecutiveFailures int
	CooldownUntil       time.Time
	Healthy             bool
}

// Store tracks binding health with striped locking so hot paths on
// different bindings do not contend.
type Store struct {
	cooldownBase time.Duration
	cooldownMax  time.Duration
	now          func() time.Time

	shards [shardCount]struct {
		mu      sync.Mutex
		entries map[Key]*entry
	}
}

// NewStore creates a health store. The cooldown after the n-th
// consecutive failure is base * 2^(n-1), capped at max.
func NewStore(cooldownBase, cooldownMax time.Duration) *Store {
	s := &Store{
		cooldownBase: cooldownBase,
		cooldownMax:  cooldownMax,
		now:          time.Now,
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[Key]*entry)
	}
	return s
}

func (s *Store) shard(k Key) *struct {
	mu      sync.Mutex
	entries map[Key]*entry
} {
	h := fnv.New32a()
	h.Write([]byte(k.Provider))
	h.Write([]byte{0})
	h.Write([]byte(k.Model))
	return &s.shards[h.Sum32()%shardCount]
}

// MarkSuccess records a successful attempt, clearing any cooldown.
func (s *Store) MarkSuccess(k Key) {
	sh := s.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.entries[k]
	if e == nil {
		e = &entry{}
		sh.entries[k] = e
	}
	e.consecutiveFailures = 0
	e.cooldownUntil = time.Time{}
	e.lastSuccess = s.now()
}

// MarkFailure records a failed attempt and arms the next cooldown,
// doubling with each consecutive failure.
func (s *Store) MarkFailure(k Key) {
	sh := s.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.entries[k]
	if e == nil {
		e = &entry{}
		sh.entries[k] = e
	}
	e.consecutiveFailures++
	e.lastFailure = s.now()
	e.cooldownUntil = e.lastFailure.Add(s.cooldown(e.consecutiveFailures))
}

// MarkFailureFor records a failed attempt with a caller-chosen cooldown
// instead of the escalating one. Used for rate-limit pushback, where the
// cooldown reflects the upstream's window rather than an outage.
func (s *Store) MarkFailureFor(k Key, cooldown time.Duration) {
	sh := s.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.entries[k]
	if e == nil {
		e = &entry{}
		sh.entries[k] = e
	}
	e.consecutiveFailures++
	e.lastFailure = s.now()
	if cooldown > s.cooldownMax {
		cooldown = s.cooldownMax
	}
	e.cooldownUntil = e.lastFailure.Add(cooldown)
}

// cooldown returns base * 2^(n-1) capped at max.
func (s *Store) cooldown(failures int) time.Duration {
	d := s.cooldownBase
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= s.cooldownMax {
			return s.cooldownMax
		}
	}
	if d > s.cooldownMax {
		return s.cooldownMax
	}
	return d
}

// IsHealthy reports whether the binding is outside any cooldown window.
// Unknown bindings are healthy.
func (s *Store) IsHealthy(k Key) bool {
	sh := s.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.entries[k]
	if e == nil {
		return true
	}
	return !s.now().Before(e.cooldownUntil)
}

// SafetyScore returns a [0,1] factor for routing: 1 for a binding with
// no consecutive failures, 0 while cooling down, and a degraded value
// in between for bindings that failed recently but are routable again.
func (s *Store) SafetyScore(k Key) float64 {
	sh := s.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.entries[k]
	if e == nil || e.consecutiveFailures == 0 {
		return 1
	}
	if s.now().Before(e.cooldownUntil) {
		return 0
	}
	score := 1 - 0.25*float64(e.consecutiveFailures)
	if score < 0.1 {
		return 0.1
	}
	return score
}

// Snapshot returns the current status of every tracked binding.
func (s *Store) Snapshot() []Status {
	var out []Status
	now := s.now()
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, e := range sh.entries {
			out = append(out, Status{
				Key:                 k,
				ConsecutiveFailures: e.consecutiveFailures,
				CooldownUntil:       e.cooldownUntil,
				Healthy:             !now.Before(e.cooldownUntil),
			})
		}
		sh.mu.Unlock()
	}
	return out
}
