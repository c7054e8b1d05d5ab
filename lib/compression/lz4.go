// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 decodes frames of independently compressed LZ4 blocks.
var LZ4 Algorithm = lz4Algorithm{}

type lz4Algorithm struct{}

func (lz4Algorithm) Name() string { return "lz4" }

func (lz4Algorithm) Decode(dst, src []byte, _ int) (int, error) {
	header, err := ParseHeader(src)
	if err != nil {
		return 0, err
	}
	if err := header.validate(len(dst)); err != nil {
		return 0, err
	}
	if header.TotalSize == 0 {
		return 0, nil
	}

	total := int(header.TotalSize)
	blockSize := int(header.BlockSize)
	fullBlocks := total / blockSize
	lastBlock := total % blockSize

	reader := blockReader{src: src, position: HeaderSize}
	written := 0
	for i := 0; i < fullBlocks; i++ {
		if err := decodeLZ4Block(&reader, dst[written:written+blockSize]); err != nil {
			return 0, fmt.Errorf("block %d: %w", i, err)
		}
		written += blockSize
	}
	if lastBlock > 0 {
		if err := decodeLZ4Block(&reader, dst[written:written+lastBlock]); err != nil {
			return 0, fmt.Errorf("last block: %w", err)
		}
		written += lastBlock
	}
	return written, nil
}

// decodeLZ4Block fills out from the next block. A stored length equal
// to len(out) marks an uncompressed block.
func decodeLZ4Block(reader *blockReader, out []byte) error {
	block, err := reader.next()
	if err != nil {
		return err
	}
	if len(block) == len(out) {
		copy(out, block)
		return nil
	}
	read, err := lz4.UncompressBlock(block, out)
	if err != nil {
		return fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
	}
	if read != len(out) {
		return fmt.Errorf("%w: lz4: got %d bytes, expected %d", ErrCorrupt, read, len(out))
	}
	return nil
}
