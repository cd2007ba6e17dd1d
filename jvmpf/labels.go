// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jvmpf // import "github.com/openprofiling/jvm-profiler/jvmpf"

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// NumericLabelValue is the payload of a numeric label: a value and the unit
// it is measured in.
type NumericLabelValue struct {
	Value int64
	Unit  string
}

// labelKind discriminates the active variant of a Label.
type labelKind uint8

const (
	labelString labelKind = iota
	labelNumeric
)

// Label annotates a sample with either a string value or a numeric value
// plus unit. Labels are immutable; construct them with StringLabel or
// NumericLabel. The zero value is an empty string label.
type Label struct {
	key  string
	str  string
	num  NumericLabelValue
	kind labelKind
}

// StringLabel returns a string-valued label.
func StringLabel(key, value string) Label {
	return Label{key: key, str: value, kind: labelString}
}

// NumericLabel returns a numeric-valued label.
func NumericLabel(key string, value int64, unit string) Label {
	return Label{key: key, num: NumericLabelValue{Value: value, Unit: unit}, kind: labelNumeric}
}

// Key returns the label key.
func (l Label) Key() string {
	return l.key
}

// StringValue returns the string payload. ok is false for numeric labels.
func (l Label) StringValue() (value string, ok bool) {
	return l.str, l.kind == labelString
}

// NumericValue returns the numeric payload. ok is false for string labels.
func (l Label) NumericValue() (value NumericLabelValue, ok bool) {
	return l.num, l.kind == labelNumeric
}

// Equal reports structural equality. Labels of different variants are never
// equal, even when their keys match.
func (l Label) Equal(other Label) bool {
	return l == other
}

// Hash folds the label content into seed. The fold is deterministic so that
// chaining it over a label sequence yields a stable combined hash.
func (l Label) Hash(seed uint64) uint64 {
	var buf [9]byte
	buf[0] = byte(l.kind)
	binary.LittleEndian.PutUint64(buf[1:], uint64(l.num.Value))

	h := xxh3.HashStringSeed(l.key, seed)
	h = xxh3.HashSeed(buf[:], h)
	if l.kind == labelString {
		return xxh3.HashStringSeed(l.str, h)
	}
	return xxh3.HashStringSeed(l.num.Unit, h)
}

func (l Label) String() string {
	if l.kind == labelString {
		return fmt.Sprintf("%s=%q", l.key, l.str)
	}
	return fmt.Sprintf("%s=%d%s", l.key, l.num.Value, l.num.Unit)
}
