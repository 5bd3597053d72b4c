package quota

import (
	"sync"
	"time"
)

// Key identifies one provider binding in the tracker.
type Key struct {
	Provider string
	Model    string
}

// Window and granularity of the per-minute budgets.
const (
	windowSize = time.Minute
	bucketSize = time.Second
)

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether the request fits the binding's budgets.
	Allowed bool

	// RetryAfter estimates when the window will have room again. Only
	// meaningful when Allowed is false.
	RetryAfter time.Duration

	// Headroom is the remaining fraction of the tighter budget, in
	// [0,1]. Unlimited budgets report 1.
	Headroom float64
}

// windows holds the request and token counters for one binding.
type windows struct {
	requests *slidingWindow
	tokens   *slidingWindow
}

// Tracker tracks consumption per binding. All methods are safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[Key]*windows
	now     func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[Key]*windows),
		now:     time.Now,
	}
}

func (t *Tracker) get(k Key) *windows {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.entries[k]
	if w == nil {
		w = &windows{
			requests: newSlidingWindow(windowSize, bucketSize),
			tokens:   newSlidingWindow(windowSize, bucketSize),
		}
		t.entries[k] = w
	}
	return w
}

// Check reports whether one more request fits within the binding's RPM
// and TPM budgets. A zero budget is unlimited. Checks are advisory: the
// caller records consumption separately, so concurrent requests may
// both pass and briefly overshoot.
func (t *Tracker) Check(k Key, rpm, tpm int) Decision {
	if rpm <= 0 && tpm <= 0 {
		return Decision{Allowed: true, Headroom: 1}
	}

	w := t.get(k)
	now := t.now()

	headroom := 1.0
	allowed := true
	var retryAfter time.Duration

	if rpm > 0 {
		used := w.requests.sum(now)
		if used+1 > int64(rpm) {
			allowed = false
			retryAfter = maxDuration(retryAfter, t.windowRetry(w.requests, now))
		}
		headroom = minFloat(headroom, remaining(used, int64(rpm)))
	}
	if tpm > 0 {
		used := w.tokens.sum(now)
		if used >= int64(tpm) {
			allowed = false
			retryAfter = maxDuration(retryAfter, t.windowRetry(w.tokens, now))
		}
		headroom = minFloat(headroom, remaining(used, int64(tpm)))
	}

	return Decision{Allowed: allowed, RetryAfter: retryAfter, Headroom: headroom}
}

// RecordRequest counts one request against the binding.
func (t *Tracker) RecordRequest(k Key) {
	w := t.get(k)
	w.requests.add(t.now(), 1)
}

// RecordUsage counts consumed tokens against the binding. Calls with
// non-positive totals are ignored.
func (t *Tracker) RecordUsage(k Key, tokens int) {
	if tokens <= 0 {
		return
	}
	w := t.get(k)
	w.tokens.add(t.now(), int64(tokens))
}

// Headroom returns the remaining fraction of the tighter budget without
// performing an admission check.
func (t *Tracker) Headroom(k Key, rpm, tpm int) float64 {
	return t.Check(k, rpm, tpm).Headroom
}

// Headrooms returns the remaining fractions of the request and token
// budgets separately. Unlimited budgets report 1.
func (t *Tracker) Headrooms(k Key, rpm, tpm int) (requests, tokens float64) {
	requests, tokens = 1, 1
	if rpm <= 0 && tpm <= 0 {
		return
	}

	w := t.get(k)
	now := t.now()
	if rpm > 0 {
		requests = remaining(w.requests.sum(now), int64(rpm))
	}
	if tpm > 0 {
		tokens = remaining(w.tokens.sum(now), int64(tpm))
	}
	return
}

// windowRetry estimates how long until the oldest bucket leaves the
// window, freeing budget.
func (t *Tracker) windowRetry(sw *slidingWindow, now time.Time) time.Duration {
	oldest := sw.oldest(now)
	if oldest.IsZero() {
		return bucketSize
	}
	d := oldest.Add(windowSize).Sub(now)
	if d < bucketSize {
		return bucketSize
	}
	return d
}

func remaining(used, limit int64) float64 {
	if used >= limit {
		return 0
	}
	return float64(limit-used) / float64(limit)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
