// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"

	"github.com/simplon-foundation/simplon/lib/codec"
)

// CBOR major types (RFC 8949 §3.1).
const (
	majorUnsigned byte = 0
	majorNegative byte = 1
	majorBytes    byte = 2
	majorText     byte = 3
	majorArray    byte = 4
	majorMap      byte = 5
	majorTag      byte = 6
	majorSimple   byte = 7
)

// Additional information values with fixed meaning.
const (
	infoUint8      byte = 24
	infoUint16     byte = 25
	infoUint32     byte = 26
	infoUint64     byte = 27
	infoIndefinite byte = 31

	simpleFalse   byte = 20
	simpleTrue    byte = 21
	simpleFloat16 byte = 25
	simpleFloat32 byte = 26
	simpleFloat64 byte = 27

	breakCode byte = 0xff
)

// reader is a forward-only cursor over one CBOR buffer. Byte and text
// strings are returned as subslices of data.
type reader struct {
	data     []byte
	position int
}

// item is a decoded initial byte and argument.
type item struct {
	major byte
	info  byte

	// argument is the value for integers, the length for strings and
	// containers, the tag number for tags, and the raw bits for floats.
	argument uint64
}

func (i item) indefinite() bool { return i.info == infoIndefinite }

func (r *reader) remaining() int { return len(r.data) - r.position }

// peekByte returns the next byte without consuming it.
func (r *reader) peekByte() (byte, error) {
	if r.position >= len(r.data) {
		return 0, decodeError("unexpected end of buffer at offset %d", r.position)
	}
	return r.data[r.position], nil
}

// peekMajor returns the major type of the next item without consuming it.
func (r *reader) peekMajor() (byte, error) {
	initial, err := r.peekByte()
	if err != nil {
		return 0, err
	}
	return initial >> 5, nil
}

// next consumes the initial byte and argument of the next item.
func (r *reader) next() (item, error) {
	initial, err := r.peekByte()
	if err != nil {
		return item{}, err
	}
	start := r.position
	r.position++

	head := item{major: initial >> 5, info: initial & 0x1f}
	switch {
	case head.info < infoUint8:
		head.argument = uint64(head.info)
	case head.info <= infoUint64:
		width := 1 << (head.info - infoUint8)
		if r.remaining() < width {
			return item{}, decodeError("truncated argument at offset %d", start)
		}
		encoded := r.data[r.position : r.position+width]
		switch width {
		case 1:
			head.argument = uint64(encoded[0])
		case 2:
			head.argument = uint64(binary.BigEndian.Uint16(encoded))
		case 4:
			head.argument = uint64(binary.BigEndian.Uint32(encoded))
		case 8:
			head.argument = binary.BigEndian.Uint64(encoded)
		}
		r.position += width
	case head.info == infoIndefinite:
		switch head.major {
		case majorBytes, majorText, majorArray, majorMap:
		default:
			return item{}, decodeError("indefinite length on major type %d at offset %d", head.major, start)
		}
	default:
		return item{}, decodeError("reserved additional information %d at offset %d", head.info, start)
	}
	return head, nil
}

// expect consumes the next item and checks its major type.
func (r *reader) expect(major byte, what string) (item, error) {
	head, err := r.next()
	if err != nil {
		return item{}, err
	}
	if head.major != major {
		return item{}, parseError("expected %s, found major type %d", what, head.major)
	}
	return head, nil
}

// skipTags consumes any tags in front of the next item.
func (r *reader) skipTags() error {
	for {
		major, err := r.peekMajor()
		if err != nil {
			return err
		}
		if major != majorTag {
			return nil
		}
		if _, err := r.next(); err != nil {
			return err
		}
	}
}

// skip advances past one complete item of any type.
func (r *reader) skip() error {
	consumed, err := codec.Skip(r.data[r.position:])
	if err != nil {
		return decodeError("skipping item at offset %d: %v", r.position, err)
	}
	r.position += consumed
	return nil
}

// raw returns the encoded bytes of the next item and advances past it.
func (r *reader) raw() (View, error) {
	start := r.position
	if err := r.skip(); err != nil {
		return View{}, err
	}
	return View{data: r.data[start:r.position]}, nil
}

// readTag consumes a tag and checks its number.
func (r *reader) readTag(expected uint64) error {
	head, err := r.expect(majorTag, "tag")
	if err != nil {
		return err
	}
	if head.argument != expected {
		return parseError("expected tag %d, found tag %d", expected, head.argument)
	}
	return nil
}

// readTagNumber consumes a tag and returns its number.
func (r *reader) readTagNumber() (uint64, error) {
	head, err := r.expect(majorTag, "tag")
	if err != nil {
		return 0, err
	}
	return head.argument, nil
}

func (r *reader) readBool() (bool, error) {
	if err := r.skipTags(); err != nil {
		return false, err
	}
	head, err := r.expect(majorSimple, "boolean")
	if err != nil {
		return false, err
	}
	switch head.info {
	case simpleFalse:
		return false, nil
	case simpleTrue:
		return true, nil
	default:
		return false, parseError("expected boolean, found simple value %d", head.info)
	}
}

// readUint reads an unsigned integer.
func (r *reader) readUint() (uint64, error) {
	if err := r.skipTags(); err != nil {
		return 0, err
	}
	head, err := r.expect(majorUnsigned, "unsigned integer")
	if err != nil {
		return 0, err
	}
	return head.argument, nil
}

// readFloat reads a half, single or double precision float. Integers
// are accepted and converted.
func (r *reader) readFloat() (float64, error) {
	if err := r.skipTags(); err != nil {
		return 0, err
	}
	head, err := r.next()
	if err != nil {
		return 0, err
	}
	switch head.major {
	case majorUnsigned:
		return float64(head.argument), nil
	case majorNegative:
		return -1 - float64(head.argument), nil
	case majorSimple:
		switch head.info {
		case simpleFloat16:
			return float64(float16.Frombits(uint16(head.argument)).Float32()), nil
		case simpleFloat32:
			return float64(math.Float32frombits(uint32(head.argument))), nil
		case simpleFloat64:
			return math.Float64frombits(head.argument), nil
		}
	}
	return 0, parseError("expected float, found major type %d info %d", head.major, head.info)
}

// definiteString consumes a definite-length string of the given major
// type and returns its bytes.
func (r *reader) definiteString(major byte, what string) ([]byte, error) {
	head, err := r.expect(major, what)
	if err != nil {
		return nil, err
	}
	if head.indefinite() {
		return nil, notImplemented("indefinite-length %s", what)
	}
	if head.argument > uint64(r.remaining()) {
		return nil, decodeError("%s of %d bytes exceeds remaining %d", what, head.argument, r.remaining())
	}
	data := r.data[r.position : r.position+int(head.argument)]
	r.position += int(head.argument)
	return data, nil
}

// readText reads a text string into an owned string.
func (r *reader) readText() (string, error) {
	if err := r.skipTags(); err != nil {
		return "", err
	}
	data, err := r.definiteString(majorText, "text string")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readPlainBytes reads a byte string as a view.
func (r *reader) readPlainBytes() (View, error) {
	data, err := r.definiteString(majorBytes, "byte string")
	if err != nil {
		return View{}, err
	}
	return View{data: data}, nil
}

// container is an open array or map being iterated.
type container struct {
	reader     *reader
	remaining  uint64
	indefinite bool
}

// more reports whether another element (or map entry) follows. For
// indefinite containers the break code is consumed at the end.
func (c *container) more() (bool, error) {
	if !c.indefinite {
		if c.remaining == 0 {
			return false, nil
		}
		c.remaining--
		return true, nil
	}
	next, err := c.reader.peekByte()
	if err != nil {
		return false, err
	}
	if next == breakCode {
		c.reader.position++
		return false, nil
	}
	return true, nil
}

// open consumes an array or map header. Definite lengths are checked
// against the remaining buffer so corrupt counts fail fast.
func (r *reader) open(major byte, what string) (*container, error) {
	head, err := r.expect(major, what)
	if err != nil {
		return nil, err
	}
	if head.indefinite() {
		return &container{reader: r, indefinite: true}, nil
	}
	if head.argument > uint64(r.remaining()) {
		return nil, decodeError("%s of %d elements exceeds remaining %d bytes", what, head.argument, r.remaining())
	}
	return &container{reader: r, remaining: head.argument}, nil
}

func (r *reader) openArray() (*container, error) { return r.open(majorArray, "array") }

func (r *reader) openMap() (*container, error) { return r.open(majorMap, "map") }

// openFixedArray opens an array that must hold exactly length
// elements. Indefinite arrays are accepted; the caller steps through
// them with element and finishes with close.
func (r *reader) openFixedArray(length int) (*container, error) {
	array, err := r.openArray()
	if err != nil {
		return nil, err
	}
	if !array.indefinite && array.remaining != uint64(length) {
		return nil, parseError("expected array of %d elements, found %d", length, array.remaining)
	}
	return array, nil
}

// close checks that a fixed array has been fully consumed.
func (c *container) close() error {
	more, err := c.more()
	if err != nil {
		return err
	}
	if more {
		return parseError("array has more elements than expected")
	}
	return nil
}

// element advances a fixed array to its next element, failing if the
// array ended early.
func (c *container) element() error {
	more, err := c.more()
	if err != nil {
		return err
	}
	if !more {
		return parseError("array has fewer elements than expected")
	}
	return nil
}

// readUintPair reads a two-element unsigned integer array.
func (r *reader) readUintPair() ([2]uint64, error) {
	var pair [2]uint64
	if err := r.skipTags(); err != nil {
		return pair, err
	}
	array, err := r.openFixedArray(2)
	if err != nil {
		return pair, err
	}
	for i := range pair {
		if err := array.element(); err != nil {
			return pair, err
		}
		if pair[i], err = r.readUint(); err != nil {
			return pair, err
		}
	}
	return pair, array.close()
}

// readFloatArray reads an array of floats of any length.
func (r *reader) readFloatArray() ([]float64, error) {
	if err := r.skipTags(); err != nil {
		return nil, err
	}
	array, err := r.openArray()
	if err != nil {
		return nil, err
	}
	values := []float64{}
	for {
		more, err := array.more()
		if err != nil {
			return nil, err
		}
		if !more {
			return values, nil
		}
		value, err := r.readFloat()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
}

// readTextArray reads an array of text strings.
func (r *reader) readTextArray() ([]string, error) {
	if err := r.skipTags(); err != nil {
		return nil, err
	}
	array, err := r.openArray()
	if err != nil {
		return nil, err
	}
	values := []string{}
	for {
		more, err := array.more()
		if err != nil {
			return nil, err
		}
		if !more {
			return values, nil
		}
		value, err := r.readText()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
}

// maxKeyLength bounds recognized map keys. Longer keys cannot name a
// known field; they and their values are skipped.
const maxKeyLength = 64

// readKey reads a map key. ok is false for keys longer than
// maxKeyLength.
func (r *reader) readKey() (key string, ok bool, err error) {
	data, err := r.definiteString(majorText, "text map key")
	if err != nil {
		return "", false, err
	}
	if len(data) > maxKeyLength {
		return "", false, nil
	}
	return string(data), true, nil
}
