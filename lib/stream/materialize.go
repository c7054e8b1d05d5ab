// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"

	"github.com/simplon-foundation/simplon/lib/compression"
)

// Materialize returns the uncompressed payload as an owned slice.
func (b Bytes) Materialize() ([]byte, error) {
	out := make([]byte, b.Size())
	if _, err := b.DecodeInto(out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeInto writes the uncompressed payload into dst, which must hold
// at least Size bytes, and returns the number of bytes written.
func (b Bytes) DecodeInto(dst []byte) (int, error) {
	size := b.Size()
	if len(dst) < size {
		return 0, fmt.Errorf("stream: destination of %d bytes is smaller than payload of %d", len(dst), size)
	}
	if b.Compression == nil {
		return copy(dst, b.View.Bytes()), nil
	}
	if size == 0 {
		return 0, nil
	}

	algorithm, ok := compression.Lookup(b.Compression.Algorithm)
	if !ok {
		return 0, notImplemented("compression algorithm %q", b.Compression.Algorithm)
	}
	written, err := compression.Decode(algorithm, dst[:size], b.View.Bytes(), b.Compression.ElementSize)
	if err != nil {
		return 0, fmt.Errorf("stream: decompressing %s payload: %w", algorithm.Name(), err)
	}
	if written != size {
		return 0, fmt.Errorf("stream: %s payload decoded to %d bytes, header declared %d", algorithm.Name(), written, size)
	}
	return written, nil
}
