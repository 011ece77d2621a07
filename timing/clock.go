// Package timing provides the clocks used to bound hardware waits.
package timing

import (
	"sync"
	"time"
)

// A Clock tells time and can wait. It also satisfies the clock interface of
// gopkg.in/retry.v1 so that the same clock drives every bounded poll loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
}

// WallClock is the Clock backed by the operating system time.
type WallClock struct{}

// Now returns the current wall time.
func (WallClock) Now() time.Time {
	return time.Now()
}

// After waits for the duration to elapse.
func (WallClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Sleep pauses the calling goroutine.
func (WallClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// FakeClock is a manually driven Clock. Sleeping or waiting on it advances
// its time immediately, so a poll loop with a 10ms budget finishes without
// any real delay.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a FakeClock starting at the given time.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the fake time forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// Sleep advances the fake time by d.
func (c *FakeClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// After advances the fake time by d and returns a channel that already holds
// the new time.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.Advance(d)

	ch := make(chan time.Time, 1)
	ch <- c.Now()

	return ch
}

// Since returns the fake time elapsed since t.
func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
