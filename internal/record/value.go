// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies how a Value was written in the extraction output
type Kind int

const (
	KindText Kind = iota
	KindInt
)

// MissingSentinel is the placeholder extractors write when a score is absent from the note
const MissingSentinel = "missing"

// Value is a single extracted field value: an integer score or a text value
type Value struct {
	Kind Kind
	Int  int
	Text string
}

// Int returns an integer value
func Int(n int) Value {
	return Value{Kind: KindInt, Int: n}
}

// Text returns a text value
func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// AsInt returns the integer form of the value. Text values never convert,
// even when they look numeric: "9" written as text is a format problem.
func (v Value) AsInt() (int, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

// IsMissing reports whether the value is the "missing" sentinel
func (v Value) IsMissing() bool {
	return v.Kind == KindText && v.Text == MissingSentinel
}

// Equal compares kind and content
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	if v.Kind == KindInt {
		return v.Int == other.Int
	}
	return v.Text == other.Text
}

func (v Value) String() string {
	if v.Kind == KindInt {
		return strconv.Itoa(v.Int)
	}
	return v.Text
}

// Interface returns the value as a plain Go value for generic encoders
func (v Value) Interface() any {
	if v.Kind == KindInt {
		return v.Int
	}
	return v.Text
}

// UnmarshalYAML keeps the YAML scalar kind: !!int becomes KindInt, every other scalar is text
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: field value must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*v = Int(n)
		return nil
	}
	*v = Text(node.Value)
	return nil
}

// MarshalYAML writes the value back with its original kind
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

// MarshalJSON writes integers as JSON numbers and text as JSON strings
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts JSON numbers (integral only) and strings
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		if t != float64(int(t)) {
			return fmt.Errorf("non-integral number %v", t)
		}
		*v = Int(int(t))
	case string:
		*v = Text(t)
	default:
		return fmt.Errorf("unsupported field value %s", string(data))
	}
	return nil
}
