// Package clock provides the single source of "now" for the engine: a ticking
// time source that pushes ticks to subscribers, plus a fake for tests.
package clock

import (
	"sync"
	"time"
)

// DefaultInterval is the tick cadence of an interactive session.
const DefaultInterval = time.Second

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// TickSource delivers ticks to subscribers. The returned function removes the
// subscription.
type TickSource interface {
	Clock
	Subscribe(fn func(now time.Time)) (unsubscribe func())
}

// System reads the wall clock directly.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Elapsed returns whole seconds between start and now, floored.
// A start in the future yields 0 so clock skew never produces negative time.
func Elapsed(now, start time.Time) int64 {
	d := now.Sub(start)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// ElapsedSince returns whole seconds between start and c.Now().
func ElapsedSince(c Clock, start time.Time) int64 {
	return Elapsed(c.Now(), start)
}

// hub fans a tick out to subscribers in subscription order.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn func(time.Time)
}

func (h *hub) Subscribe(fn func(now time.Time)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subs {
				if s.id == id {
					h.subs = append(h.subs[:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// publish calls every subscriber outside the lock so subscribers may
// subscribe or unsubscribe from inside a tick.
func (h *hub) publish(now time.Time) {
	h.mu.Lock()
	subs := make([]subscription, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(now)
	}
}
