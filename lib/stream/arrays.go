// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"math/bits"

	"github.com/simplon-foundation/simplon/lib/compression"
)

// CBOR tags of the detector dialect.
const (
	// tagMultiDimArray is a row-major multi-dimensional array
	// (RFC 8746 §3.1.1).
	tagMultiDimArray uint64 = 40

	// tagTypedArrayFirst and tagTypedArrayLast bound the typed numeric
	// array tags (RFC 8746 §2).
	tagTypedArrayFirst uint64 = 64
	tagTypedArrayLast  uint64 = 87

	// tagCompressed wraps a compressed byte string as
	// [algorithm, element size, bytes].
	tagCompressed uint64 = 56500
)

// elementType decodes the element description from a typed array tag.
// The tag is 0b010_f_s_e_ll: f float, s signed, e little-endian, ll the
// width exponent. The width in bytes is 2^(f+ll).
func elementType(tag uint64) ElementType {
	bitsValue := tag - tagTypedArrayFirst
	float := bitsValue&0x10 != 0
	exponent := int(bitsValue & 0x03)
	if float {
		exponent++
	}
	return ElementType{
		Float:        float,
		Signed:       !float && bitsValue&0x08 != 0,
		LittleEndian: bitsValue&0x04 != 0,
		Size:         1 << exponent,
	}
}

// readBytes reads a byte string, either plain or wrapped in the
// compression tag.
func (r *reader) readBytes() (Bytes, error) {
	major, err := r.peekMajor()
	if err != nil {
		return Bytes{}, err
	}
	if major == majorTag {
		return r.readCompressed()
	}
	view, err := r.readPlainBytes()
	if err != nil {
		return Bytes{}, err
	}
	return Bytes{View: view}, nil
}

// readCompressed reads tag 56500 wrapping [algorithm, element size,
// bytes]. The uncompressed size is taken from the compressed frame
// header, which must be plausible for the stored payload length.
func (r *reader) readCompressed() (Bytes, error) {
	if err := r.readTag(tagCompressed); err != nil {
		return Bytes{}, err
	}
	array, err := r.openFixedArray(3)
	if err != nil {
		return Bytes{}, err
	}

	if err := array.element(); err != nil {
		return Bytes{}, err
	}
	algorithm, err := r.readText()
	if err != nil {
		return Bytes{}, err
	}

	if err := array.element(); err != nil {
		return Bytes{}, err
	}
	elementSize, err := r.readUint()
	if err != nil {
		return Bytes{}, err
	}
	if elementSize == 0 || elementSize > 1<<16 {
		return Bytes{}, parseError("compression element size %d out of range", elementSize)
	}

	if err := array.element(); err != nil {
		return Bytes{}, err
	}
	payload, err := r.readPlainBytes()
	if err != nil {
		return Bytes{}, err
	}
	if err := array.close(); err != nil {
		return Bytes{}, err
	}

	if _, ok := compression.Lookup(algorithm); !ok {
		return Bytes{}, notImplemented("compression algorithm %q", algorithm)
	}
	size, err := compression.ProbeSize(payload.Bytes())
	if err != nil {
		return Bytes{}, parseError("compressed payload: %v", err)
	}
	header, _ := compression.ParseHeader(payload.Bytes())
	if err := header.CheckFrame(payload.Len()); err != nil {
		return Bytes{}, parseError("compressed payload: %v", err)
	}

	return Bytes{
		View: payload,
		Compression: &Compression{
			Algorithm:        algorithm,
			ElementSize:      int(elementSize),
			UncompressedSize: size,
		},
	}, nil
}

// readTypedArray reads a typed numeric array. The element count is
// the payload size (uncompressed, if compressed) divided by the element
// width and must divide exactly.
func (r *reader) readTypedArray() (TypedArray, error) {
	tag, err := r.readTagNumber()
	if err != nil {
		return TypedArray{}, err
	}
	if tag < tagTypedArrayFirst || tag > tagTypedArrayLast {
		return TypedArray{}, parseError("tag %d is not a typed array tag", tag)
	}
	element := elementType(tag)

	data, err := r.readBytes()
	if err != nil {
		return TypedArray{}, err
	}
	size := data.Size()
	if size%element.Size != 0 {
		return TypedArray{}, parseError("typed array of %d bytes is not a whole number of %d-byte elements", size, element.Size)
	}

	return TypedArray{
		Tag:     tag,
		Element: element,
		Count:   size / element.Size,
		Data:    data,
	}, nil
}

// readMultiDimArray reads tag 40 wrapping [dims, typed array] and
// checks that the dimensions cover exactly the array's elements.
func (r *reader) readMultiDimArray() (MultiDimArray, error) {
	if err := r.readTag(tagMultiDimArray); err != nil {
		return MultiDimArray{}, err
	}
	array, err := r.openFixedArray(2)
	if err != nil {
		return MultiDimArray{}, err
	}

	if err := array.element(); err != nil {
		return MultiDimArray{}, err
	}
	dims, err := r.readUintPair()
	if err != nil {
		return MultiDimArray{}, err
	}

	if err := array.element(); err != nil {
		return MultiDimArray{}, err
	}
	typed, err := r.readTypedArray()
	if err != nil {
		return MultiDimArray{}, err
	}
	if err := array.close(); err != nil {
		return MultiDimArray{}, err
	}

	high, product := bits.Mul64(dims[0], dims[1])
	if high != 0 || product != uint64(typed.Count) {
		return MultiDimArray{}, parseError("dimensions %dx%d do not match %d elements", dims[0], dims[1], typed.Count)
	}
	return MultiDimArray{Dims: dims, Array: typed}, nil
}

// readChannelArrays reads a map of channel name to multi-dimensional
// array.
func (r *reader) readChannelArrays() (map[string]MultiDimArray, error) {
	entries, err := r.openMap()
	if err != nil {
		return nil, err
	}
	arrays := make(map[string]MultiDimArray)
	for {
		more, err := entries.more()
		if err != nil {
			return nil, err
		}
		if !more {
			return arrays, nil
		}
		channel, err := r.readText()
		if err != nil {
			return nil, err
		}
		array, err := r.readMultiDimArray()
		if err != nil {
			return nil, fieldError(channel, err)
		}
		arrays[channel] = array
	}
}

// readChannelFloats reads a map of channel name to float.
func (r *reader) readChannelFloats() (map[string]float64, error) {
	if err := r.skipTags(); err != nil {
		return nil, err
	}
	entries, err := r.openMap()
	if err != nil {
		return nil, err
	}
	values := make(map[string]float64)
	for {
		more, err := entries.more()
		if err != nil {
			return nil, err
		}
		if !more {
			return values, nil
		}
		channel, err := r.readText()
		if err != nil {
			return nil, err
		}
		value, err := r.readFloat()
		if err != nil {
			return nil, fieldError(channel, err)
		}
		values[channel] = value
	}
}

// readGoniometer reads a map of axis name to {increment, start}.
// Unknown axis keys are skipped.
func (r *reader) readGoniometer() (map[string]GoniometerAxis, error) {
	if err := r.skipTags(); err != nil {
		return nil, err
	}
	axes, err := r.openMap()
	if err != nil {
		return nil, err
	}
	goniometer := make(map[string]GoniometerAxis)
	for {
		more, err := axes.more()
		if err != nil {
			return nil, err
		}
		if !more {
			return goniometer, nil
		}
		name, err := r.readText()
		if err != nil {
			return nil, err
		}
		axis, err := r.readGoniometerAxis()
		if err != nil {
			return nil, fieldError(name, err)
		}
		goniometer[name] = axis
	}
}

func (r *reader) readGoniometerAxis() (GoniometerAxis, error) {
	var axis GoniometerAxis
	if err := r.skipTags(); err != nil {
		return axis, err
	}
	fields, err := r.openMap()
	if err != nil {
		return axis, err
	}
	for {
		more, err := fields.more()
		if err != nil {
			return axis, err
		}
		if !more {
			return axis, nil
		}
		key, known, err := r.readKey()
		if err != nil {
			return axis, err
		}
		switch {
		case known && key == "increment":
			axis.Increment, err = r.readFloat()
		case known && key == "start":
			axis.Start, err = r.readFloat()
		default:
			err = r.skip()
		}
		if err != nil {
			return axis, fieldError(key, err)
		}
	}
}
