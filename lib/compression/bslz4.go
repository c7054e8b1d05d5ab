// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// maxElementSize bounds the element width accepted by BSLZ4 so the
// transposition granularity (8 * elementSize) stays far from overflow.
const maxElementSize = 1 << 16

// BSLZ4 decodes frames of LZ4 blocks holding bit-transposed data. The
// block size must be a multiple of 8*elementSize; a tail shorter than
// that granularity is stored verbatim after the last block.
var BSLZ4 Algorithm = bslz4Algorithm{}

type bslz4Algorithm struct{}

func (bslz4Algorithm) Name() string { return "bslz4" }

func (bslz4Algorithm) Decode(dst, src []byte, elementSize int) (int, error) {
	header, err := ParseHeader(src)
	if err != nil {
		return 0, err
	}
	if err := header.validate(len(dst)); err != nil {
		return 0, err
	}
	if elementSize <= 0 || elementSize > maxElementSize {
		return 0, fmt.Errorf("%w: element size %d out of range", ErrCorrupt, elementSize)
	}
	granularity := 8 * elementSize
	if int(header.BlockSize)%granularity != 0 {
		return 0, fmt.Errorf("%w: block size %d is not a multiple of %d", ErrCorrupt, header.BlockSize, granularity)
	}
	if header.TotalSize == 0 {
		return 0, nil
	}

	total := int(header.TotalSize)
	blockSize := int(header.BlockSize)
	leftover := total % granularity
	aligned := total - leftover
	fullBlocks := aligned / blockSize
	lastBlock := aligned % blockSize

	reader := blockReader{src: src, position: HeaderSize}
	scratch := make([]byte, 2*blockSize)
	written := 0
	for i := 0; i < fullBlocks; i++ {
		if err := decodeBitshuffleBlock(&reader, scratch, dst[written:written+blockSize], elementSize); err != nil {
			return 0, fmt.Errorf("block %d: %w", i, err)
		}
		written += blockSize
	}
	if lastBlock > 0 {
		if err := decodeBitshuffleBlock(&reader, scratch, dst[written:written+lastBlock], elementSize); err != nil {
			return 0, fmt.Errorf("last block: %w", err)
		}
		written += lastBlock
	}

	tail := reader.remaining()
	if len(tail) != leftover {
		return 0, fmt.Errorf("%w: %d trailing bytes, expected %d", ErrCorrupt, len(tail), leftover)
	}
	written += copy(dst[written:written+leftover], tail)
	return written, nil
}

// decodeBitshuffleBlock decompresses the next block into scratch and
// untransposes it into out. Both steps must produce exactly len(out)
// bytes.
func decodeBitshuffleBlock(reader *blockReader, scratch, out []byte, elementSize int) error {
	block, err := reader.next()
	if err != nil {
		return err
	}
	read, err := lz4.UncompressBlock(block, scratch)
	if err != nil {
		return fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
	}
	if read != len(out) {
		return fmt.Errorf("%w: lz4: got %d bytes, expected %d", ErrCorrupt, read, len(out))
	}
	if untransposed := untransposeBits(out, scratch[:read], elementSize); untransposed != len(out) {
		return fmt.Errorf("%w: untranspose: got %d bytes, expected %d", ErrCorrupt, untransposed, len(out))
	}
	return nil
}
