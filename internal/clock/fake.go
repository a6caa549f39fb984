package clock

import (
	"sync"
	"time"
)

// Fake is a manually driven clock for tests.
type Fake struct {
	hub

	mu  sync.Mutex
	now time.Time
}

// NewFake returns a fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t without ticking.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d without ticking.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Tick notifies subscribers with the current time.
func (f *Fake) Tick() time.Time {
	now := f.Now()
	f.publish(now)
	return now
}

// Step advances one second and ticks, n times.
func (f *Fake) Step(n int) {
	for i := 0; i < n; i++ {
		f.Advance(time.Second)
		f.Tick()
	}
}
