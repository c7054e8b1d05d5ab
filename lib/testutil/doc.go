// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the module's tests.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern used when a test waits on a goroutine, so that a hung
// exchange fails the test instead of stalling the run. They are the
// only place tests wait on the wall clock; everything else uses
// lib/clock's fake.
package testutil
