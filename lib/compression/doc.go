// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package compression decodes the block-framed compressed buffers the
// detector produces for image payloads.
//
// Two algorithms share one frame layout, the same layout used by the
// LZ4 and bitshuffle HDF5 filters, so buffers taken from the stream can
// be written into HDF5 datasets unchanged and vice versa:
//
//	offset 0   total uncompressed size   u64 big-endian
//	offset 8   block size in bytes       u32 big-endian
//	offset 12  blocks, each:             u32 big-endian stored length, then bytes
//	end        verbatim tail             bslz4 only
//
// [LZ4] decodes plain LZ4 blocks. A block whose stored length equals
// its uncompressed length is a literal copy. [BSLZ4] decodes LZ4
// blocks that were bit-transposed (bitshuffled) before compression and
// untransposes them into the destination.
//
// Callers select an implementation by name with [Lookup] (the names
// carried in stream messages are "lz4" and "bslz4") and call
// [Decode]. Passing an empty destination probes the header and returns
// the uncompressed size without touching block data:
//
//	size, err := compression.Decode(algorithm, nil, payload, elementSize)
//	pixels := make([]byte, size)
//	_, err = compression.Decode(algorithm, pixels, payload, elementSize)
//
// This package only decodes. Every failure is reported as [ErrCorrupt].
package compression
