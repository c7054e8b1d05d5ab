// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/pierrec/lz4/v4"
)

// frameBuilder assembles compressed frames for tests.
type frameBuilder struct {
	buffer bytes.Buffer
}

func newFrame(total uint64, blockSize uint32) *frameBuilder {
	builder := &frameBuilder{}
	var header [HeaderSize]byte
	binary.BigEndian.PutUint64(header[0:8], total)
	binary.BigEndian.PutUint32(header[8:12], blockSize)
	builder.buffer.Write(header[:])
	return builder
}

// block appends a length-prefixed block holding stored verbatim.
func (b *frameBuilder) block(stored []byte) *frameBuilder {
	var prefix [blockPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(stored)))
	b.buffer.Write(prefix[:])
	b.buffer.Write(stored)
	return b
}

// raw appends bytes without a length prefix.
func (b *frameBuilder) raw(data []byte) *frameBuilder {
	b.buffer.Write(data)
	return b
}

func (b *frameBuilder) bytes() []byte {
	return b.buffer.Bytes()
}

// compressLZ4 compresses data as one LZ4 block, failing the test when
// the data does not compress.
func compressLZ4(t *testing.T, data []byte) []byte {
	t.Helper()
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		t.Fatalf("lz4.CompressBlock: %v", err)
	}
	if written == 0 || written >= len(data) {
		t.Fatalf("test data of %d bytes did not compress", len(data))
	}
	return destination[:written]
}

// compressibleData returns length bytes with a short repeating pattern.
func compressibleData(length int, seed byte) []byte {
	data := make([]byte, length)
	for i := range data {
		data[i] = seed + byte(i%17)
	}
	return data
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"lz4", "bslz4"} {
		t.Run(name, func(t *testing.T) {
			algorithm, ok := Lookup(name)
			if !ok {
				t.Fatalf("Lookup(%q) found nothing", name)
			}
			if algorithm.Name() != name {
				t.Errorf("Lookup(%q).Name() = %q", name, algorithm.Name())
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, ok := Lookup("zstd"); ok {
			t.Error("Lookup(\"zstd\") should fail")
		}
	})
}

func TestProbeSizeReadsOnlyHeader(t *testing.T) {
	tests := []struct {
		name  string
		total uint64
		block uint32
	}{
		{"zero", 0, 0},
		{"small", 12, 12},
		{"frame", 4 << 20, 8192},
		{"odd block", 1 << 40, 7},
	}

	for _, algorithm := range []Algorithm{LZ4, BSLZ4} {
		for _, tt := range tests {
			t.Run(algorithm.Name()+"/"+tt.name, func(t *testing.T) {
				// The bytes after the header are garbage; a probe
				// must never look at them.
				source := newFrame(tt.total, tt.block).raw([]byte{0xff, 0xff, 0xff, 0xff, 0x01}).bytes()
				size, err := Decode(algorithm, nil, source, 0)
				if err != nil {
					t.Fatalf("Decode probe: %v", err)
				}
				if uint64(size) != tt.total {
					t.Errorf("probe size = %d, want %d", size, tt.total)
				}
			})
		}
	}
}

func TestProbeSizeShortHeader(t *testing.T) {
	_, err := ProbeSize([]byte{0, 0, 0, 0, 0, 0, 0, 12, 0, 0})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("ProbeSize on 10 bytes: got %v, want ErrCorrupt", err)
	}
}

func TestCheckFrame(t *testing.T) {
	tests := []struct {
		name    string
		header  Header
		length  int
		wantErr bool
	}{
		{"empty frame", Header{}, HeaderSize, false},
		{"at expansion limit", Header{TotalSize: 16 * maxExpansion, BlockSize: 1 << 16}, HeaderSize + 16, false},
		{"past expansion limit", Header{TotalSize: 16*maxExpansion + 1, BlockSize: 1 << 16}, HeaderSize + 16, true},
		{"blocks without prefixes", Header{TotalSize: 64, BlockSize: 8}, HeaderSize + 16, true},
		{"zero block size", Header{TotalSize: 64}, HeaderSize + 64, true},
		{"terabyte header", Header{TotalSize: 1 << 41, BlockSize: 1 << 20}, HeaderSize + 16, true},
		{"huge total", Header{TotalSize: 1 << 62, BlockSize: maxBlockSize}, HeaderSize + 16, true},
		{"short frame", Header{}, HeaderSize - 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.CheckFrame(tt.length)
			if tt.wantErr {
				if !errors.Is(err, ErrCorrupt) {
					t.Fatalf("CheckFrame = %v, want ErrCorrupt", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckFrame: %v", err)
			}
		})
	}
}

func TestCheckFrameAcceptsRealFrame(t *testing.T) {
	data := make([]byte, 1<<16)
	stored := compressLZ4(t, data)
	source := newFrame(uint64(len(data)), uint32(len(data))).block(stored).bytes()
	header, err := ParseHeader(source)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if err := header.CheckFrame(len(source)); err != nil {
		t.Fatalf("CheckFrame on an all-zero frame: %v", err)
	}
}

func TestDecodeNilAlgorithm(t *testing.T) {
	source := newFrame(4, 4).block([]byte{1, 2, 3, 4}).bytes()
	_, err := Decode(nil, make([]byte, 4), source, 1)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Decode with nil algorithm: got %v, want ErrCorrupt", err)
	}
}

func TestZeroTotalSize(t *testing.T) {
	for _, algorithm := range []Algorithm{LZ4, BSLZ4} {
		t.Run(algorithm.Name(), func(t *testing.T) {
			size, err := algorithm.Decode(make([]byte, 16), newFrame(0, 0).bytes(), 2)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if size != 0 {
				t.Errorf("size = %d, want 0", size)
			}
		})
	}
}

func TestLZ4LiteralBlockCopiedAtOffset(t *testing.T) {
	const blockSize = 64
	first := compressibleData(blockSize, 1)
	second := bytes.Repeat([]byte{0xa5}, blockSize)
	second[0] = 0x11
	second[blockSize-1] = 0x22

	source := newFrame(2*blockSize, blockSize).
		block(compressLZ4(t, first)).
		block(second).
		bytes()

	destination := make([]byte, 2*blockSize)
	size, err := Decode(LZ4, destination, source, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if size != 2*blockSize {
		t.Fatalf("size = %d, want %d", size, 2*blockSize)
	}
	if !bytes.Equal(destination[:blockSize], first) {
		t.Error("compressed first block decoded incorrectly")
	}
	if !bytes.Equal(destination[blockSize:], second) {
		t.Error("literal second block not copied verbatim at offset")
	}
}

func TestLZ4SingleCompressedBlock(t *testing.T) {
	data := compressibleData(4096, 3)
	source := newFrame(uint64(len(data)), uint32(len(data))).block(compressLZ4(t, data)).bytes()

	destination := make([]byte, len(data))
	size, err := Decode(LZ4, destination, source, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if size != len(data) {
		t.Errorf("size = %d, want %d", size, len(data))
	}
	if !bytes.Equal(destination, data) {
		t.Error("decoded bytes differ from original")
	}
}

func TestLZ4PartialLastBlock(t *testing.T) {
	const blockSize = 1024
	data := compressibleData(3*blockSize+300, 7)

	builder := newFrame(uint64(len(data)), blockSize)
	for offset := 0; offset < len(data); offset += blockSize {
		end := min(offset+blockSize, len(data))
		builder.block(compressLZ4(t, data[offset:end]))
	}

	// A larger destination is allowed; only the declared size is
	// written.
	destination := make([]byte, len(data)+100)
	size, err := Decode(LZ4, destination, builder.bytes(), 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if size != len(data) {
		t.Fatalf("size = %d, want %d", size, len(data))
	}
	if !bytes.Equal(destination[:size], data) {
		t.Error("decoded bytes differ from original")
	}
}

func TestLZ4Rejects(t *testing.T) {
	data := compressibleData(256, 0)
	compressed := compressLZ4(t, data)

	tests := []struct {
		name        string
		source      []byte
		destination int
	}{
		{
			name:        "total exceeds capacity",
			source:      newFrame(256, 256).block(compressed).bytes(),
			destination: 255,
		},
		{
			name:        "zero block size",
			source:      newFrame(256, 0).block(compressed).bytes(),
			destination: 256,
		},
		{
			name:        "block size out of range",
			source:      newFrame(256, 1<<31).block(compressed).bytes(),
			destination: 256,
		},
		{
			name:        "missing block",
			source:      newFrame(256, 256).bytes(),
			destination: 256,
		},
		{
			name:        "truncated block length",
			source:      newFrame(256, 256).raw([]byte{0, 0}).bytes(),
			destination: 256,
		},
		{
			name:        "block length exceeds source",
			source:      newFrame(256, 256).raw([]byte{0, 0, 1, 0}).raw(compressed).bytes(),
			destination: 256,
		},
		{
			name:        "decompressed size mismatch",
			source:      newFrame(512, 512).block(compressed).bytes(),
			destination: 512,
		},
		{
			name:        "header only",
			source:      []byte{0, 0, 0},
			destination: 256,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := Decode(LZ4, make([]byte, tt.destination), tt.source, 0)
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("Decode: got (%d, %v), want ErrCorrupt", size, err)
			}
		})
	}
}
