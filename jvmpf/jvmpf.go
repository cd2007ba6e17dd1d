// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package jvmpf provides the data types shared by the profile construction
// engine and its collaborators: opaque method handles, call frames and traces
// as delivered by the JVM stack sampler, and the labels annotating them.
package jvmpf // import "github.com/openprofiling/jvm-profiler/jvmpf"

import (
	"fmt"

	"github.com/openprofiling/jvm-profiler/jvmpf/hash"
)

// MethodID is an opaque handle identifying one JVM method. Handles are only
// meaningful to the method resolver that issued them and may go stale between
// collection windows. For native frames the same field carries the program
// counter instead.
type MethodID uint64

// Address is a native code address.
type Address uint64

// Hash returns a 64 bit hash of the address.
func (a Address) Hash() uint64 {
	return hash.Uint64(uint64(a))
}

// Hash32 returns a 32 bit hash of the address. Its main use is to be the
// hashing function for LRU caches.
func (a Address) Hash32() uint32 {
	return uint32(a.Hash())
}

// LineNo is the line number field of a captured frame: a source line or
// byte-code index for managed frames, or a negative sentinel.
type LineNo int32

// NativeLineNo marks a frame as native machine code. The value follows the
// AsyncGetCallTrace convention for non-Java frames.
const NativeLineNo LineNo = -3

// CallFrame is one frame of a captured stack.
type CallFrame struct {
	// LineNo is the source line of the call in managed frames and
	// NativeLineNo in native frames.
	LineNo LineNo
	// Method is the method handle, or the program counter for native frames.
	Method MethodID
}

// JavaFrame returns a managed frame for the given method handle and line.
func JavaFrame(method MethodID, line LineNo) CallFrame {
	return CallFrame{LineNo: line, Method: method}
}

// NativeFrame returns a native frame for the given program counter.
func NativeFrame(pc Address) CallFrame {
	return CallFrame{LineNo: NativeLineNo, Method: MethodID(pc)}
}

// IsNative reports whether the frame refers to native machine code rather
// than a managed JVM method.
func (f CallFrame) IsNative() bool {
	return f.LineNo == NativeLineNo
}

// Address returns the program counter carried by a native frame.
func (f CallFrame) Address() Address {
	return Address(f.Method)
}

func (f CallFrame) String() string {
	if f.IsNative() {
		return fmt.Sprintf("native<%#x>", uint64(f.Method))
	}
	return fmt.Sprintf("java<%#x:%d>", uint64(f.Method), f.LineNo)
}

// CallTrace is one captured stack, leaf frame first. The frame slice remains
// owned by the caller; consumers copy what they keep.
type CallTrace struct {
	Frames []CallFrame
}

// MethodInfo is the resolved description of one method handle.
type MethodInfo struct {
	ClassName  string
	MethodName string
	FileName   string
	StartLine  int64
	Native     bool
}

// Name returns the fully qualified dotted method name.
func (mi *MethodInfo) Name() string {
	return FormatMethodName(mi.ClassName, mi.MethodName)
}
