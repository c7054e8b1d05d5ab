// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is an injectable source of time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep blocks for at least d.
	Sleep(d time.Duration)
}

// Since returns the time elapsed on c since t.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}
