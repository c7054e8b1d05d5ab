// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the shared general-purpose CBOR configuration.
//
// The stream decoder in lib/stream reads the detector's message
// dialect with its own zero-copy cursor, because image payloads must
// stay views into the received buffer. Everything that dialect does
// not name is handed to this package instead:
//
//   - [Skip] advances past one well-formed CBOR item, so fields added
//     by newer detector firmware are ignored rather than rejected.
//   - [Unmarshal] decodes opaque values such as the user_data field
//     into caller-chosen Go types.
//   - [Diagnose] renders CBOR diagnostic notation (RFC 8949 §8) for
//     the CLI.
//   - [Marshal] encodes with Core Deterministic Encoding; tests use it
//     to build stream fixtures.
package codec
