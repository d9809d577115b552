// Package stream paces host-originated media chunks and absorbs
// delivery jitter on the follower side.
package stream

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Throttle enforces a minimum interval between forwarded chunks,
// bounding relay bandwidth no matter how often the capturer produces
// data. Chunks arriving inside the interval are dropped, not queued.
type Throttle struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	interval time.Duration
	last     time.Time
}

func NewThrottle(clock clockwork.Clock, interval time.Duration) *Throttle {
	return &Throttle{clock: clock, interval: interval}
}

// Allow reports whether a chunk may be forwarded now.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
