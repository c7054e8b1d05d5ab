// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake returns a FakeClock reading initial. Time moves only when
// Advance is called.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a Clock for tests. After and Sleep register waiters
// that are released by Advance once their deadline is reached.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []fakeWaiter
	changed *sync.Cond
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel released when the clock reaches now+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.waiters = append(c.waiters, fakeWaiter{deadline: c.current.Add(d), channel: channel})
	c.changed.Broadcast()
	return channel
}

// Sleep blocks until the clock has been advanced by at least d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves the clock forward by d and releases every waiter whose
// deadline has been reached, earliest first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	var due []fakeWaiter
	c.waiters = slices.DeleteFunc(c.waiters, func(w fakeWaiter) bool {
		if w.deadline.After(now) {
			return false
		}
		due = append(due, w)
		return true
	})
	c.changed.Broadcast()
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b fakeWaiter) int { return a.deadline.Compare(b.deadline) })
	for _, w := range due {
		w.channel <- now
	}
}

// WaitForTimers blocks until at least n waiters are pending. Tests
// call it before Advance so that a goroutine's After or Sleep is
// registered before time moves.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.waiters) < n {
		c.changed.Wait()
	}
}

// Pending returns the number of waiters not yet released.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
