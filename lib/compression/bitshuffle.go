// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package compression

// untransposeBits reverses the bitshuffle transform of one block.
//
// A transposed block of n elements (n a multiple of 8) holds
// 8*elementSize bit rows of n/8 bytes each. Row j*8+k collects bit k of
// byte j of every element, element i at bit i%8 of byte i/8 of the row.
// Returns the number of bytes written to out, which is len(in) on
// success and 0 when the block is not a whole number of 8-element
// groups or out is too small.
func untransposeBits(out, in []byte, elementSize int) int {
	granularity := 8 * elementSize
	if elementSize <= 0 || len(in)%granularity != 0 || len(out) < len(in) {
		return 0
	}
	out = out[:len(in)]
	clear(out)

	elements := len(in) / elementSize
	rowBytes := elements / 8
	for byteIndex := 0; byteIndex < elementSize; byteIndex++ {
		for bit := 0; bit < 8; bit++ {
			row := in[(byteIndex*8+bit)*rowBytes : (byteIndex*8+bit+1)*rowBytes]
			mask := byte(1) << bit
			for group, packed := range row {
				if packed == 0 {
					continue
				}
				base := group * 8 * elementSize
				for lane := 0; lane < 8; lane++ {
					if packed&(1<<lane) != 0 {
						out[base+lane*elementSize+byteIndex] |= mask
					}
				}
			}
		}
	}
	return len(in)
}
