// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for simplon binaries: the
// raw stderr reporting used by main() before or after the structured
// logger exists.
package process
