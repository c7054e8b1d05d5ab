// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information for the simplon
// tool and library.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//
// [Version] is the semantic version, set by hand for releases. The
// control client sends it in its User-Agent header.
package version
