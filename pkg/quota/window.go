// Package quota tracks per-binding request and token consumption over
// sliding one-minute windows and answers admission checks against the
// binding's RPM/TPM budgets. A zero budget means unlimited; the tracker
// never blocks a request it cannot account for.
package quota

import (
	"sync"
	"time"
)

// slidingWindow is a circular-buffer counter over a rolling time window.
// Old buckets are pruned on every access, which avoids the reset spike
// of fixed windows.
type slidingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []bucket
	mu         sync.Mutex
}

type bucket struct {
	timestamp time.Time
	value     int64
}

// newSlidingWindow creates a counter with window/bucketSize buckets.
func newSlidingWindow(window, bucketSize time.Duration) *slidingWindow {
	n := int(window / bucketSize)
	if n == 0 {
		n = 1
	}
	return &slidingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, n),
	}
}

// add increments the bucket covering now by value.
func (sw *slidingWindow) add(now time.Time, value int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(now)

	slot := sw.slotLocked(now)
	slot.value += value
}

// sum returns the total across the live window.
func (sw *slidingWindow) sum(now time.Time) int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(now)

	var total int64
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() {
			total += sw.buckets[i].value
		}
	}
	return total
}

// oldest returns the timestamp of the oldest live bucket, or zero when
// the window is empty.
func (sw *slidingWindow) oldest(now time.Time) time.Time {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(now)

	var oldest time.Time
	for i := range sw.buckets {
		ts := sw.buckets[i].timestamp
		if ts.IsZero() {
			continue
		}
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
	}
	return oldest
}

func (sw *slidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-sw.window)
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() && sw.buckets[i].timestamp.Before(cutoff) {
			sw.buckets[i] = bucket{}
		}
	}
}

// slotLocked finds or claims the bucket for now's boundary.
func (sw *slidingWindow) slotLocked(now time.Time) *bucket {
	boundary := now.Truncate(sw.bucketSize)

	var free *bucket
	for i := range sw.buckets {
		b := &sw.buckets[i]
		if b.timestamp.Equal(boundary) {
			return b
		}
		if free == nil && b.timestamp.IsZero() {
			free = b
		}
	}
	if free != nil {
		free.timestamp = boundary
		return free
	}

	// All buckets live; reclaim the oldest.
	victim := &sw.buckets[0]
	for i := range sw.buckets {
		if sw.buckets[i].timestamp.Before(victim.timestamp) {
			victim = &sw.buckets[i]
		}
	}
	*victim = bucket{timestamp: boundary}
	return victim
}
