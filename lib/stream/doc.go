// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream decodes the detector's streaming messages.
//
// Each message arrives from the streaming transport as one complete
// buffer holding a self-described CBOR map (RFC 8949 §3.4.6) whose
// first entry is "type". [Decode] turns the buffer into one of three
// message types, handled with a type switch:
//
//	message, err := stream.Decode(buffer)
//	if err != nil {
//	    return err
//	}
//	switch m := message.(type) {
//	case *stream.Start:
//	    // series configuration, flatfields, pixel masks
//	case *stream.Image:
//	    pixels, err := m.Data["threshold_1"].Materialize()
//	case *stream.End:
//	    // series finished
//	}
//
// # Borrowed payloads
//
// Byte payloads (pixel data, lookup tables, user data) are not copied.
// They are returned as [View] values that alias the buffer passed to
// Decode. A View is valid only while that buffer is alive and
// unmodified: a transport that recycles receive buffers must finish
// with the message, or Clone the views it keeps, before reusing the
// buffer. All other fields (strings, maps, dimension vectors) are
// owned by the message.
//
// # Compression
//
// Payloads compressed by the detector are wrapped in CBOR tag 56500
// and surface as [Bytes] with non-nil Compression metadata. Decode does
// not decompress; [Bytes.Materialize] and [Bytes.DecodeInto] do, via
// lib/compression.
//
// # Errors
//
// Decode returns either a complete message or an error, never both.
// Errors wrap [ErrSignature] (missing self-description preamble),
// [ErrDecode] (ill-formed or truncated CBOR), [ErrParse] (well-formed
// CBOR that breaks the message schema) or [ErrNotImplemented] (a
// recognized construct this decoder does not support, such as an
// unknown compression algorithm).
//
// Decode is a pure function and safe to call from many goroutines.
package stream
