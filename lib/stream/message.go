// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"time"

	"github.com/simplon-foundation/simplon/lib/codec"
)

// MessageType is the value of the "type" key that opens every message.
type MessageType string

const (
	TypeStart MessageType = "start"
	TypeImage MessageType = "image"
	TypeEnd   MessageType = "end"
)

// Message is one decoded stream message: *Start, *Image or *End.
type Message interface {
	// Type returns the message type.
	Type() MessageType

	// Identity returns the series the message belongs to.
	Identity() Series

	message()
}

// Series identifies one acquisition run. Every message of a run
// carries the same identity.
type Series struct {
	// ID is the numeric series id, incremented by every arm.
	ID uint64

	// UniqueID is the textual series id. Empty when the detector does
	// not send one.
	UniqueID string
}

// Identity returns s.
func (s Series) Identity() Series { return s }

// Start opens a series. It carries the detector configuration that
// stays fixed for every image of the series. Fields absent from the
// message keep their zero value; maps and slices are nil.
type Start struct {
	Series

	ArmDate string

	BeamCenterX float64
	BeamCenterY float64

	// Channels lists the data channel names (for example one per
	// energy threshold). Image.Data is keyed by these names.
	Channels []string

	CountTime float64

	CountrateCorrectionEnabled     bool
	CountrateCorrectionLookupTable *TypedArray

	DetectorDescription  string
	DetectorSerialNumber string
	DetectorTranslation  []float64

	// Flatfield maps channel name to its flatfield correction array.
	Flatfield        map[string]MultiDimArray
	FlatfieldEnabled bool

	FrameTime float64

	// Goniometer maps axis name to its scan parameters.
	Goniometer map[string]GoniometerAxis

	ImageDType string
	ImageSizeX uint64
	ImageSizeY uint64

	IncidentEnergy     float64
	IncidentWavelength float64

	NumberOfImages uint64

	// PixelMask maps channel name to its pixel mask array.
	PixelMask        map[string]MultiDimArray
	PixelMaskEnabled bool

	PixelSizeX float64
	PixelSizeY float64

	SaturationValue uint64

	SensorMaterial  string
	SensorThickness float64

	// ThresholdEnergy maps channel name to its threshold in eV.
	ThresholdEnergy map[string]float64

	UserData UserData

	VirtualPixelInterpolationEnabled bool
}

func (*Start) Type() MessageType { return TypeStart }
func (*Start) message()          {}

// GoniometerAxis is the scan of one goniometer axis.
type GoniometerAxis struct {
	Increment float64
	Start     float64
}

// Image carries the pixel data of one frame, one array per channel.
type Image struct {
	Series

	ImageID uint64

	RealTime  Rational
	StartTime Rational
	StopTime  Rational

	SeriesDate string

	UserData UserData

	// Data maps channel name to the frame's pixels. The arrays are
	// views into the decoded buffer.
	Data map[string]MultiDimArray
}

func (*Image) Type() MessageType { return TypeImage }
func (*Image) message()          {}

// End closes a series.
type End struct {
	Series
}

func (*End) Type() MessageType { return TypeEnd }
func (*End) message()          {}

// Rational is a time value sent as [numerator, denominator] seconds.
type Rational [2]uint64

// Seconds returns the value in seconds, or 0 for a zero denominator.
func (r Rational) Seconds() float64 {
	if r[1] == 0 {
		return 0
	}
	return float64(r[0]) / float64(r[1])
}

// Duration returns the value as a time.Duration.
func (r Rational) Duration() time.Duration {
	return time.Duration(r.Seconds() * float64(time.Second))
}

// UserData is the opaque user_data value, kept encoded.
type UserData struct {
	// Raw is the encoded CBOR item. Empty when the message has no
	// user_data field.
	Raw View
}

// IsEmpty reports whether the message carried no user data.
func (u UserData) IsEmpty() bool { return u.Raw.IsEmpty() }

// Decode unmarshals the user data into v.
func (u UserData) Decode(v any) error {
	if u.Raw.IsEmpty() {
		return fmt.Errorf("stream: no user data")
	}
	return codec.Unmarshal(u.Raw.Bytes(), v)
}

// MultiDimArray is a row-major two-dimensional array (RFC 8746 tag 40).
type MultiDimArray struct {
	// Dims holds the dimensions as sent, slowest-varying first.
	Dims [2]uint64

	Array TypedArray
}

// Materialize returns the array's element bytes, decompressed and
// owned by the caller.
func (a MultiDimArray) Materialize() ([]byte, error) {
	return a.Array.Materialize()
}

// TypedArray is a homogeneous numeric array (RFC 8746 tags 64-87).
type TypedArray struct {
	// Tag is the CBOR tag the array was sent with.
	Tag uint64

	Element ElementType

	// Count is the number of elements.
	Count int

	Data Bytes
}

// Materialize returns the array's element bytes, decompressed and
// owned by the caller.
func (a TypedArray) Materialize() ([]byte, error) {
	return a.Data.Materialize()
}

// ElementType describes the elements of a typed array, as encoded in
// its tag.
type ElementType struct {
	Float        bool
	Signed       bool
	LittleEndian bool

	// Size is the element width in bytes.
	Size int
}

// String returns a name such as "uint16" or "float32".
func (e ElementType) String() string {
	switch {
	case e.Float:
		return fmt.Sprintf("float%d", 8*e.Size)
	case e.Signed:
		return fmt.Sprintf("int%d", 8*e.Size)
	default:
		return fmt.Sprintf("uint%d", 8*e.Size)
	}
}

// Bytes is a byte payload, optionally compressed.
type Bytes struct {
	// View holds the payload as sent: compressed when Compression is
	// set.
	View View

	// Compression describes how View is compressed. Nil for plain
	// payloads.
	Compression *Compression
}

// Size returns the uncompressed payload size in bytes.
func (b Bytes) Size() int {
	if b.Compression != nil {
		return b.Compression.UncompressedSize
	}
	return b.View.Len()
}

// Compression is the metadata of a payload wrapped in tag 56500.
type Compression struct {
	// Algorithm is the compression algorithm name, "lz4" or "bslz4".
	Algorithm string

	// ElementSize is the element width the payload was shuffled with.
	ElementSize int

	// UncompressedSize is the total size declared in the compressed
	// frame header.
	UncompressedSize int
}
