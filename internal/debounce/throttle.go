package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const pruneThreshold = 1024

// Throttle allows one action per key per interval.
type Throttle struct {
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewThrottle(clock clockwork.Clock, interval time.Duration) *Throttle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Throttle{clock: clock, interval: interval, last: make(map[string]time.Time)}
}

// Allow records an action for key and reports whether it was permitted.
// Denied attempts do not extend the window.
func (t *Throttle) Allow(key string) bool {
	if t.interval <= 0 {
		return true
	}
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.last[key]; ok && now.Sub(prev) < t.interval {
		return false
	}
	t.last[key] = now
	if len(t.last) > pruneThreshold {
		t.prune(now)
	}
	return true
}

// RetryAfter is how long key must wait before Allow succeeds again.
func (t *Throttle) RetryAfter(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.last[key]
	if !ok {
		return 0
	}
	if wait := t.interval - t.clock.Since(prev); wait > 0 {
		return wait
	}
	return 0
}

func (t *Throttle) prune(now time.Time) {
	for k, at := range t.last {
		if now.Sub(at) >= t.interval {
			delete(t.last, k)
		}
	}
}
