// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the length of the frame header: an 8-byte total size
// followed by a 4-byte block size, both big-endian.
const HeaderSize = 12

// blockPrefixSize is the length of the big-endian compressed-length
// prefix in front of every block.
const blockPrefixSize = 4

// maxBlockSize bounds block sizes and per-block compressed lengths to
// the range LZ4 block APIs can address.
const maxBlockSize = math.MaxInt32

// maxExpansion is the largest ratio of uncompressed to stored bytes an
// LZ4 block can reach: one match-length byte extends a match by at
// most 255 bytes.
const maxExpansion = 255

// ErrCorrupt is returned for every decode failure: malformed headers,
// truncated blocks, size mismatches and undersized destinations.
var ErrCorrupt = errors.New("compression: corrupt or unsupported frame")

// Header is the parsed 12-byte frame header.
type Header struct {
	// TotalSize is the uncompressed size of the whole buffer in bytes.
	TotalSize uint64

	// BlockSize is the uncompressed size of every full block in bytes.
	BlockSize uint32
}

// ParseHeader reads the frame header at the start of src. Only the
// first HeaderSize bytes are inspected.
func ParseHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the %d-byte header", ErrCorrupt, len(src), HeaderSize)
	}
	return Header{
		TotalSize: binary.BigEndian.Uint64(src[0:8]),
		BlockSize: binary.BigEndian.Uint32(src[8:12]),
	}, nil
}

// validate applies the checks shared by both algorithms before any
// block is read.
func (h Header) validate(capacity int) error {
	if h.TotalSize > uint64(capacity) {
		return fmt.Errorf("%w: total size %d exceeds destination capacity %d", ErrCorrupt, h.TotalSize, capacity)
	}
	if h.TotalSize != 0 && h.BlockSize == 0 {
		return fmt.Errorf("%w: zero block size with total size %d", ErrCorrupt, h.TotalSize)
	}
	if h.BlockSize > maxBlockSize {
		return fmt.Errorf("%w: block size %d out of range", ErrCorrupt, h.BlockSize)
	}
	return nil
}

// CheckFrame reports whether a frame of length bytes, header included,
// could hold the declared total size. It rejects headers whose block
// count would need more length prefixes than the frame has room for,
// and totals beyond what LZ4 can expand the stored bytes into.
func (h Header) CheckFrame(length int) error {
	if length < HeaderSize {
		return fmt.Errorf("%w: %d bytes is shorter than the %d-byte header", ErrCorrupt, length, HeaderSize)
	}
	if h.TotalSize == 0 {
		return nil
	}
	if h.BlockSize == 0 || h.BlockSize > maxBlockSize {
		return fmt.Errorf("%w: block size %d out of range", ErrCorrupt, h.BlockSize)
	}
	stored := uint64(length - HeaderSize)
	if blocks := h.TotalSize / uint64(h.BlockSize); blocks > stored/blockPrefixSize {
		return fmt.Errorf("%w: %d full blocks do not fit in %d stored bytes", ErrCorrupt, blocks, stored)
	}
	ceiling := h.TotalSize / maxExpansion
	if h.TotalSize%maxExpansion != 0 {
		ceiling++
	}
	if ceiling > stored {
		return fmt.Errorf("%w: total size %d cannot be encoded in %d stored bytes", ErrCorrupt, h.TotalSize, stored)
	}
	return nil
}

// Algorithm is one compressed-frame format. Implementations are
// stateless and safe for concurrent use.
type Algorithm interface {
	// Name returns the algorithm name as it appears in stream
	// messages ("lz4", "bslz4").
	Name() string

	// Decode decompresses the framed buffer src into dst and returns
	// the number of bytes written. elementSize is the width in bytes
	// of one data element; only bit-transposing algorithms use it.
	// dst must have length of at least the declared total size.
	Decode(dst, src []byte, elementSize int) (int, error)
}

// Lookup returns the algorithm registered under name.
func Lookup(name string) (Algorithm, bool) {
	switch name {
	case LZ4.Name():
		return LZ4, true
	case BSLZ4.Name():
		return BSLZ4, true
	default:
		return nil, false
	}
}

// Decode decompresses src into dst with the given algorithm. An empty
// dst is a size probe: only the header is parsed and the declared
// total size is returned.
func Decode(algorithm Algorithm, dst, src []byte, elementSize int) (int, error) {
	if len(dst) == 0 {
		return ProbeSize(src)
	}
	if algorithm == nil {
		return 0, fmt.Errorf("%w: no algorithm", ErrCorrupt)
	}
	return algorithm.Decode(dst, src, elementSize)
}

// ProbeSize returns the declared total uncompressed size from the
// frame header without inspecting block data.
func ProbeSize(src []byte) (int, error) {
	header, err := ParseHeader(src)
	if err != nil {
		return 0, err
	}
	if header.TotalSize > math.MaxInt {
		return 0, fmt.Errorf("%w: total size %d out of range", ErrCorrupt, header.TotalSize)
	}
	return int(header.TotalSize), nil
}

// blockReader walks the length-prefixed blocks that follow the header.
type blockReader struct {
	src      []byte
	position int
}

// next returns the stored bytes of the next block.
func (r *blockReader) next() ([]byte, error) {
	if len(r.src)-r.position < blockPrefixSize {
		return nil, fmt.Errorf("%w: truncated block length at offset %d", ErrCorrupt, r.position)
	}
	length := binary.BigEndian.Uint32(r.src[r.position:])
	r.position += blockPrefixSize
	if length > maxBlockSize {
		return nil, fmt.Errorf("%w: block length %d out of range", ErrCorrupt, length)
	}
	if int(length) > len(r.src)-r.position {
		return nil, fmt.Errorf("%w: block length %d exceeds remaining %d bytes", ErrCorrupt, length, len(r.src)-r.position)
	}
	block := r.src[r.position : r.position+int(length)]
	r.position += int(length)
	return block, nil
}

// remaining returns the unread source bytes.
func (r *blockReader) remaining() []byte {
	return r.src[r.position:]
}
