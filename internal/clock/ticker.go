package clock

import (
	"context"
	"sync"
	"time"
)

// Ticker samples a source clock on a fixed interval and pushes each sample to
// subscribers. Now returns the most recent sample, so every reader in a session
// observes the same "now" between ticks, and a stopped ticker keeps answering
// with the last known value.
type Ticker struct {
	hub

	interval time.Duration
	source   Clock

	mu     sync.RWMutex
	last   time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker creates a stopped ticker. A nil source uses the system clock and a
// non-positive interval uses DefaultInterval.
func NewTicker(interval time.Duration, source Clock) *Ticker {
	if source == nil {
		source = System{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{
		interval: interval,
		source:   source,
		last:     source.Now(),
	}
}

// Now returns the time of the last tick.
func (t *Ticker) Now() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Interval returns the tick cadence.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Running reports whether the tick loop is active.
func (t *Ticker) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cancel != nil
}

// Tick samples the source immediately and notifies subscribers.
func (t *Ticker) Tick() time.Time {
	now := t.source.Now()
	t.mu.Lock()
	t.last = now
	t.mu.Unlock()
	t.publish(now)
	return now
}

// Start begins ticking until ctx is cancelled or Stop is called. Starting a
// running ticker is a no-op. A stopped ticker may be started again.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	go t.loop(ctx, done)
}

func (t *Ticker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		// Context cancelled from outside: forget the loop so Start can run again.
		t.mu.Lock()
		if t.done == done {
			t.cancel, t.done = nil, nil
		}
		t.mu.Unlock()
	}()
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	t.Tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.Tick()
		}
	}
}

// Stop halts the tick loop and waits for it to exit.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
