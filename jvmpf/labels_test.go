// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jvmpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelVariants(t *testing.T) {
	str := StringLabel("thread", "main")
	value, ok := str.StringValue()
	assert.True(t, ok)
	assert.Equal(t, "main", value)
	_, ok = str.NumericValue()
	assert.False(t, ok)

	num := NumericLabel("bytes", 4096, "bytes")
	numValue, ok := num.NumericValue()
	assert.True(t, ok)
	assert.Equal(t, NumericLabelValue{Value: 4096, Unit: "bytes"}, numValue)
	_, ok = num.StringValue()
	assert.False(t, ok)
}

func TestLabelEquality(t *testing.T) {
	tests := map[string]struct {
		a, b  Label
		equal bool
	}{
		"identical strings": {
			a:     StringLabel("thread", "main"),
			b:     StringLabel("thread", "main"),
			equal: true,
		},
		"different values": {
			a:     StringLabel("thread", "main"),
			b:     StringLabel("thread", "worker"),
			equal: false,
		},
		"identical numerics": {
			a:     NumericLabel("size", 10, "bytes"),
			b:     NumericLabel("size", 10, "bytes"),
			equal: true,
		},
		"different units": {
			a:     NumericLabel("size", 10, "bytes"),
			b:     NumericLabel("size", 10, "kilobytes"),
			equal: false,
		},
		"no cross-variant equality": {
			a:     StringLabel("size", ""),
			b:     NumericLabel("size", 0, ""),
			equal: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.equal, test.a.Equal(test.b))
			if test.equal {
				assert.Equal(t, test.a.Hash(42), test.b.Hash(42))
			}
		})
	}
}

func TestLabelHashFold(t *testing.T) {
	a := StringLabel("thread", "main")
	b := NumericLabel("size", 10, "bytes")

	// Deterministic for the same seed.
	assert.Equal(t, a.Hash(7), a.Hash(7))

	// Sensitive to seed, key and variant.
	assert.NotEqual(t, a.Hash(7), a.Hash(8))
	assert.NotEqual(t, a.Hash(7), b.Hash(7))
	assert.NotEqual(t,
		StringLabel("size", "10").Hash(7),
		NumericLabel("size", 10, "").Hash(7))

	// Chained folding is stable regardless of how often it runs.
	fold := func() uint64 {
		h := uint64(0)
		for _, l := range []Label{a, b} {
			h = l.Hash(h)
		}
		return h
	}
	assert.Equal(t, fold(), fold())
}
