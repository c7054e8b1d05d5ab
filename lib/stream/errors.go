// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrSignature means the buffer does not start with the CBOR
	// self-description preamble d9 d9 f7.
	ErrSignature = errors.New("stream: missing CBOR self-description preamble")

	// ErrDecode means the buffer is not well-formed CBOR: truncated
	// items, reserved encodings, or lengths beyond the buffer.
	ErrDecode = errors.New("stream: malformed CBOR")

	// ErrParse means the CBOR is well-formed but does not match the
	// message schema.
	ErrParse = errors.New("stream: invalid message")

	// ErrNotImplemented means the message uses a recognized construct
	// that this decoder does not support.
	ErrNotImplemented = errors.New("stream: not implemented")
)

func decodeError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

func parseError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// fieldError attaches the map key being decoded to err.
func fieldError(key string, err error) error {
	return fmt.Errorf("field %q: %w", key, err)
}

func notImplemented(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, fmt.Sprintf(format, args...))
}
