// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package control is a client for the detector's HTTP control channel.
//
// The control server exposes configuration, status, commands, the
// monitor, and the file store as a REST dialect addressed by subsystem:
//
//	GET /detector/api/1.8.0/config/count_time  ->  {"value": 0.5, ...}
//	PUT /detector/api/1.8.0/command/arm        ->  {"sequence id": 3}
//	HEAD /data/series_3_master.h5              ->  404 until written
//
// A [Client] owns a small fixed pool of keep-alive TCP connections. A
// call takes the first idle connection without waiting; when every
// connection is busy it fails at once with [ErrNoSocketAvailable], and
// the caller decides whether to retry. A request whose connection turns
// out to have been closed by the server while idle is resent once on a
// fresh connection; no other failure is retried.
//
// # Timeouts
//
// Operations that take a timeout apply it to every socket read of the
// exchange. Zero selects the client's default (Options.RequestTimeout,
// 20 seconds unless configured). A negative timeout waits indefinitely,
// which is what long-running commands such as initialize and wait need
// against a server that replies only once the command completes.
// Cancelling the context aborts a blocked exchange in either case.
//
// # Errors
//
// Failures to connect, send, or receive wrap [ErrTransport]. A reply
// with an unexpected status code is a [*StatusError]. A reply whose
// body is not the expected JSON wraps [ErrBodyParse].
package control
