// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jvmpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallFrame(t *testing.T) {
	java := JavaFrame(MethodID(0x1234), 42)
	assert.False(t, java.IsNative())
	assert.Equal(t, LineNo(42), java.LineNo)

	native := NativeFrame(Address(0xdeadbeef))
	assert.True(t, native.IsNative())
	assert.Equal(t, Address(0xdeadbeef), native.Address())
}

func TestTraceAndLabelsStructuralIdentity(t *testing.T) {
	frames := func() []CallFrame {
		return []CallFrame{
			JavaFrame(1, 10),
			JavaFrame(2, 20),
			NativeFrame(0x7f00),
		}
	}

	// Two physically distinct buffers with identical content must collapse
	// to the same key.
	a := &TraceAndLabels{
		Trace:  CallTrace{Frames: frames()},
		Labels: []Label{StringLabel("thread", "main")},
	}
	b := &TraceAndLabels{
		Trace:  CallTrace{Frames: frames()},
		Labels: []Label{StringLabel("thread", "main")},
	}
	assert.Equal(t, a.Hash(), b.Hash())
	assert.True(t, a.EqualContent(b))

	// Different labels on the same frames are a different key.
	c := &TraceAndLabels{
		Trace:  CallTrace{Frames: frames()},
		Labels: []Label{StringLabel("thread", "worker")},
	}
	assert.False(t, a.EqualContent(c))
	assert.NotEqual(t, a.Hash(), c.Hash())

	// So are the same frames with no labels at all.
	d := &TraceAndLabels{Trace: CallTrace{Frames: frames()}}
	assert.False(t, a.EqualContent(d))

	// And a different frame order.
	reversed := frames()
	reversed[0], reversed[2] = reversed[2], reversed[0]
	e := &TraceAndLabels{
		Trace:  CallTrace{Frames: reversed},
		Labels: []Label{StringLabel("thread", "main")},
	}
	assert.False(t, a.EqualContent(e))
	assert.NotEqual(t, a.Hash(), e.Hash())
}

func TestTraceHashDistinguishesLineAndMethod(t *testing.T) {
	base := &TraceAndLabels{Trace: CallTrace{Frames: []CallFrame{JavaFrame(1, 10)}}}
	line := &TraceAndLabels{Trace: CallTrace{Frames: []CallFrame{JavaFrame(1, 11)}}}
	method := &TraceAndLabels{Trace: CallTrace{Frames: []CallFrame{JavaFrame(2, 10)}}}

	assert.NotEqual(t, base.Hash(), line.Hash())
	assert.NotEqual(t, base.Hash(), method.Hash())
}
