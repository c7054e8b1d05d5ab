// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds the socket and HTTP body helpers shared by the
// control client and the command line tool.
//
// Body helpers (ReadBody, ErrorBody) bound every read so that a
// misbehaving detector cannot exhaust memory. Error classifiers
// (IsStaleConnection, IsTimeout) decide whether a failed exchange on a
// pooled keep-alive socket should be retried or surfaced.
package netutil
