// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by the control client.
//
// The client never calls time.Now, time.After, or time.Sleep directly.
// It takes a Clock in its options: Real in production, Fake in tests.
// A Fake stands still until Advance is called, so poll intervals and
// trigger waits run deterministically:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go client.Trigger(ctx, 0, 2*time.Second)
//	fake.WaitForTimers(1)      // the trigger is waiting out its exposure
//	fake.Advance(2 * time.Second)
//
// Socket deadlines are set against the operating system clock and are
// not affected by a Fake.
package clock
