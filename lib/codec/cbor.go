// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2). Floats use the shortest exact encoding, so
// values like 0.5 encode as half-precision.
var encMode cbor.EncMode

// decMode accepts standard CBOR. Maps decoded into any-typed targets
// become map[string]any so user data can be re-encoded as JSON.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Detector frames can be large; the default element limits
		// are sized for RPC payloads.
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 20,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Skip returns the number of bytes occupied by the first CBOR data
// item in data. The item is checked for well-formedness; its content is
// discarded.
func Skip(data []byte) (int, error) {
	var skipped cbor.RawMessage
	rest, err := decMode.UnmarshalFirst(data, &skipped)
	if err != nil {
		return 0, err
	}
	return len(data) - len(rest), nil
}

// Tag is a CBOR tag with arbitrary content. Type alias so consumers
// import only lib/codec, not fxamacker/cbor directly.
type Tag = cbor.Tag

// RawMessage is a raw encoded CBOR value, used to splice pre-encoded
// items into a larger structure.
type RawMessage = cbor.RawMessage

// Diagnose returns the CBOR diagnostic notation for the entire
// contents of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// DiagnoseFirst returns the CBOR diagnostic notation for the first
// data item in data, along with the remaining unconsumed bytes.
func DiagnoseFirst(data []byte) (string, []byte, error) {
	return cbor.DiagnoseFirst(data)
}
