// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"errors"

	"github.com/buger/jsonparser"
)

// Kind is the JSON type of a parameter value.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

func kindOf(dataType jsonparser.ValueType) Kind {
	switch dataType {
	case jsonparser.String:
		return KindString
	case jsonparser.Number:
		return KindNumber
	case jsonparser.Boolean:
		return KindBool
	case jsonparser.Array:
		return KindArray
	case jsonparser.Object:
		return KindObject
	case jsonparser.Null:
		return KindNull
	default:
		return KindUnknown
	}
}

// Value is a parameter value as sent by the control server. Its raw
// JSON text is kept; the accessors convert on demand.
type Value struct {
	raw  []byte
	kind Kind
}

// extractValue returns the value under key in body. An absent key
// yields a zero Value and found false.
func extractValue(body []byte, key string) (value Value, found bool, err error) {
	raw, dataType, _, err := jsonparser.Get(body, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, bodyParseError("field %q: %v", key, err)
	}
	return Value{raw: raw, kind: kindOf(dataType)}, true, nil
}

// parseValue returns the "value" field of a parameter reply.
func parseValue(body []byte) (Value, error) {
	value, found, err := extractValue(body, "value")
	if err != nil {
		return Value{}, err
	}
	if !found {
		return Value{}, bodyParseError("reply has no \"value\" field")
	}
	return value, nil
}

// Kind returns the JSON type of the value.
func (v Value) Kind() Kind { return v.kind }

// Raw returns the JSON text of the value. String values are returned
// without their quotes and still escaped.
func (v Value) Raw() []byte { return v.raw }

// IsZero reports whether v holds no value.
func (v Value) IsZero() bool { return v.kind == KindUnknown }

// String returns string values unescaped and every other value as its
// JSON text, so {"value": 0.5} reads as "0.5".
func (v Value) String() string {
	if v.kind == KindString {
		if text, err := jsonparser.ParseString(v.raw); err == nil {
			return text
		}
	}
	return string(v.raw)
}

// Float64 returns a numeric value.
func (v Value) Float64() (float64, error) {
	if v.kind != KindNumber {
		return 0, v.kindError(KindNumber)
	}
	number, err := jsonparser.ParseFloat(v.raw)
	if err != nil {
		return 0, bodyParseError("number %q: %v", v.raw, err)
	}
	return number, nil
}

// Int64 returns an integral numeric value.
func (v Value) Int64() (int64, error) {
	if v.kind != KindNumber {
		return 0, v.kindError(KindNumber)
	}
	number, err := jsonparser.ParseInt(v.raw)
	if err != nil {
		return 0, bodyParseError("integer %q: %v", v.raw, err)
	}
	return number, nil
}

// Bool returns a boolean value.
func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, v.kindError(KindBool)
	}
	flag, err := jsonparser.ParseBoolean(v.raw)
	if err != nil {
		return false, bodyParseError("boolean %q: %v", v.raw, err)
	}
	return flag, nil
}

// Strings returns the elements of an array value, each converted as by
// String.
func (v Value) Strings() ([]string, error) {
	if v.kind != KindArray {
		return nil, v.kindError(KindArray)
	}
	return stringElements(v.raw)
}

func (v Value) kindError(want Kind) error {
	return bodyParseError("value %s is a %s, not a %s", v.String(), v.kind, want)
}

func stringElements(array []byte) ([]string, error) {
	elements := []string{}
	var elementErr error
	_, err := jsonparser.ArrayEach(array, func(raw []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil {
			elementErr = err
			return
		}
		elements = append(elements, Value{raw: raw, kind: kindOf(dataType)}.String())
	})
	if err = errors.Join(err, elementErr); err != nil {
		return nil, bodyParseError("array: %v", err)
	}
	return elements, nil
}

// Parameter is the full description the server returns for a
// configuration or status parameter.
type Parameter struct {
	Value      Value
	ValueType  string
	AccessMode string
	Unit       string

	// Min and Max are zero Values when the parameter has no bounds.
	Min Value
	Max Value

	AllowedValues []string
}

// Writable reports whether the access mode permits writes.
func (p Parameter) Writable() bool {
	return p.AccessMode == "rw" || p.AccessMode == "w"
}

func parseParameter(body []byte) (Parameter, error) {
	var parameter Parameter
	var err error
	if parameter.Value, err = parseValue(body); err != nil {
		return Parameter{}, err
	}

	texts := []struct {
		key    string
		target *string
	}{
		{"value_type", &parameter.ValueType},
		{"access_mode", &parameter.AccessMode},
		{"unit", &parameter.Unit},
	}
	for _, text := range texts {
		value, found, err := extractValue(body, text.key)
		if err != nil {
			return Parameter{}, err
		}
		if found {
			*text.target = value.String()
		}
	}

	if parameter.Min, _, err = extractValue(body, "min"); err != nil {
		return Parameter{}, err
	}
	if parameter.Max, _, err = extractValue(body, "max"); err != nil {
		return Parameter{}, err
	}

	allowed, found, err := extractValue(body, "allowed_values")
	if err != nil {
		return Parameter{}, err
	}
	if found && allowed.kind == KindArray {
		if parameter.AllowedValues, err = allowed.Strings(); err != nil {
			return Parameter{}, err
		}
	}
	return parameter, nil
}

// Reply is the body of a PUT reply. Configuration writes answer with a
// JSON array of the parameters that changed as a side effect; commands
// such as arm answer with an object carrying a sequence id. Other
// commands answer with an empty body.
type Reply struct {
	body []byte
}

// Raw returns the reply body.
func (r Reply) Raw() []byte { return r.body }

// IsEmpty reports whether the server sent no body.
func (r Reply) IsEmpty() bool { return len(r.body) == 0 }

// top returns the top-level value of the body.
func (r Reply) top() (Value, bool) {
	if r.IsEmpty() {
		return Value{}, false
	}
	raw, dataType, _, err := jsonparser.Get(r.body)
	if err != nil {
		return Value{}, false
	}
	return Value{raw: raw, kind: kindOf(dataType)}, true
}

// ChangedParameters returns the names listed in an array reply. ok is
// false when the reply is not an array.
func (r Reply) ChangedParameters() (names []string, ok bool) {
	top, found := r.top()
	if !found || top.kind != KindArray {
		return nil, false
	}
	names, err := top.Strings()
	if err != nil {
		return nil, false
	}
	return names, true
}

// SequenceID returns the "sequence id" of an object reply. ok is false
// when the reply is not an object carrying one.
func (r Reply) SequenceID() (id int64, ok bool) {
	if top, found := r.top(); !found || top.kind != KindObject {
		return 0, false
	}
	id, err := jsonparser.GetInt(r.body, "sequence id")
	if err != nil {
		return 0, false
	}
	return id, true
}

func (r Reply) String() string {
	if r.IsEmpty() {
		return "(empty)"
	}
	return string(r.body)
}
