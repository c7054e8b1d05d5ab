// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pierrec/lz4/v4"

	"github.com/simplon-foundation/simplon/lib/codec"
)

// messageBuilder assembles a stream message with keys in insertion
// order. codec.Marshal sorts map keys, so the top-level map is written
// by hand to keep "type" first.
type messageBuilder struct {
	t       testing.TB
	entries [][]byte
}

func newMessage(t testing.TB, messageType string) *messageBuilder {
	t.Helper()
	return (&messageBuilder{t: t}).field("type", messageType)
}

// field appends one entry. The value is encoded with codec.Marshal;
// codec.RawMessage values are spliced in unchanged.
func (b *messageBuilder) field(key string, value any) *messageBuilder {
	b.t.Helper()
	encodedKey, err := codec.Marshal(key)
	if err != nil {
		b.t.Fatalf("encoding key %q: %v", key, err)
	}
	encodedValue, err := codec.Marshal(value)
	if err != nil {
		b.t.Fatalf("encoding value of %q: %v", key, err)
	}
	b.entries = append(b.entries, append(encodedKey, encodedValue...))
	return b
}

// bytes returns the message with the self-description preamble and a
// definite-length map header.
func (b *messageBuilder) bytes() []byte {
	var buffer bytes.Buffer
	buffer.Write(selfDescribed)
	buffer.Write(encodeHead(majorMap, uint64(len(b.entries))))
	for _, entry := range b.entries {
		buffer.Write(entry)
	}
	return buffer.Bytes()
}

// indefiniteBytes returns the message with an indefinite-length map.
func (b *messageBuilder) indefiniteBytes() []byte {
	var buffer bytes.Buffer
	buffer.Write(selfDescribed)
	buffer.WriteByte(majorMap<<5 | infoIndefinite)
	for _, entry := range b.entries {
		buffer.Write(entry)
	}
	buffer.WriteByte(breakCode)
	return buffer.Bytes()
}

// encodeHead encodes an initial byte with the shortest argument.
func encodeHead(major byte, argument uint64) []byte {
	switch {
	case argument < uint64(infoUint8):
		return []byte{major<<5 | byte(argument)}
	case argument <= 0xff:
		return []byte{major<<5 | infoUint8, byte(argument)}
	case argument <= 0xffff:
		return binary.BigEndian.AppendUint16([]byte{major<<5 | infoUint16}, uint16(argument))
	case argument <= 0xffffffff:
		return binary.BigEndian.AppendUint32([]byte{major<<5 | infoUint32}, uint32(argument))
	default:
		return binary.BigEndian.AppendUint64([]byte{major<<5 | infoUint64}, argument)
	}
}

func typedArray(tag uint64, data any) codec.Tag {
	return codec.Tag{Number: tag, Content: data}
}

func compressed(algorithm string, elementSize int, payload []byte) codec.Tag {
	return codec.Tag{Number: tagCompressed, Content: []any{algorithm, elementSize, payload}}
}

func multiDim(rows, columns uint64, array codec.Tag) codec.Tag {
	return codec.Tag{Number: tagMultiDimArray, Content: []any{[]uint64{rows, columns}, array}}
}

// uint16Pixels returns count little-endian uint16 values.
func uint16Pixels(count int) []byte {
	data := make([]byte, 2*count)
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(i/8))
	}
	return data
}

// lz4Frame wraps data in a single-block lz4 frame.
func lz4Frame(t *testing.T, data []byte) []byte {
	t.Helper()
	block := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, block, nil)
	if err != nil {
		t.Fatalf("lz4.CompressBlock: %v", err)
	}
	if written == 0 || written >= len(data) {
		t.Fatalf("test data of %d bytes did not compress", len(data))
	}

	frame := binary.BigEndian.AppendUint64(nil, uint64(len(data)))
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(data)))
	frame = binary.BigEndian.AppendUint32(frame, uint32(written))
	return append(frame, block[:written]...)
}

// forgedFrame returns a frame header declaring total bytes in blocks of
// block bytes, followed by padding zero bytes of block data.
func forgedFrame(total uint64, block uint32, padding int) []byte {
	frame := binary.BigEndian.AppendUint64(nil, total)
	frame = binary.BigEndian.AppendUint32(frame, block)
	return append(frame, make([]byte, padding)...)
}

// startFields adds a complete set of start message fields to builder.
func startFields(builder *messageBuilder) *messageBuilder {
	flatfield := make([]byte, 16)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(flatfield[4*i:], 0x3f800000) // 1.0
	}
	return builder.
		field("series_id", uint64(7)).
		field("series_unique_id", "01JGX").
		field("arm_date", "2026-10-14T09:00:00Z").
		field("beam_center_x", 1024.5).
		field("beam_center_y", 1100.25).
		field("channels", []string{"threshold_1", "threshold_2"}).
		field("count_time", 0.5).
		field("countrate_correction_enabled", true).
		field("countrate_correction_lookup_table", typedArray(70, make([]byte, 4*4))).
		field("detector_description", "Area detector 9M").
		field("detector_serial_number", "E-32-0123").
		field("detector_translation", []float64{0, 0, -0.125}).
		field("flatfield", map[string]any{
			"threshold_1": multiDim(2, 2, typedArray(85, flatfield)),
		}).
		field("flatfield_enabled", false).
		field("frame_time", 0.01).
		field("goniometer", map[string]any{
			"omega": map[string]any{"increment": 0.1, "start": 90.0, "unit": "deg"},
		}).
		field("image_dtype", "uint16").
		field("image_size_x", uint64(3110)).
		field("image_size_y", uint64(3269)).
		field("incident_energy", 12398.4).
		field("incident_wavelength", 1.0000).
		field("number_of_images", uint64(1800)).
		field("pixel_mask", map[string]any{
			"threshold_1": multiDim(2, 2, typedArray(70, make([]byte, 16))),
		}).
		field("pixel_mask_enabled", true).
		field("pixel_size_x", 7.5e-05).
		field("pixel_size_y", 7.5e-05).
		field("saturation_value", uint64(65535)).
		field("sensor_material", "Si").
		field("sensor_thickness", 0.00045).
		field("threshold_energy", map[string]float64{"threshold_1": 6200, "threshold_2": 9300.5}).
		field("user_data", map[string]any{"operator": "cryo", "dose": 1.5}).
		field("virtual_pixel_interpolation_enabled", true)
}
