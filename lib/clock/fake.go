// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance or Set is called.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d. Panics if d is negative.
func (c *FakeClock) Advance(d time.Duration) {
	if d < 0 {
		panic("clock: negative duration for Advance")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the clock to t, which may be earlier than the current time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
