// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "github.com/openprofiling/jvm-profiler/pprof"

import (
	"github.com/google/pprof/profile"

	"github.com/openprofiling/jvm-profiler/jvmpf"
)

// MethodResolver resolves opaque method handles into method metadata.
// Implementations wrap the host VM interface; the engine treats their calls
// as opaque, short, synchronous operations.
type MethodResolver interface {
	// ResolveMethod returns the metadata for the given handle. An error
	// marks the handle unresolvable (stale handle, unloaded class); the
	// engine degrades the affected frames instead of failing the build.
	ResolveMethod(method jvmpf.MethodID) (jvmpf.MethodInfo, error)
}

// FrameCache symbolizes the frames a method resolver cannot: JIT stubs,
// interpreter segments and other native code identified by program counter.
type FrameCache interface {
	// ProcessTraces is called once per submitted batch before any
	// individual frame resolution, allowing bulk pre-symbolization.
	ProcessTraces(traces []jvmpf.ProfileStackTrace)

	// LocationFor returns the location for a native frame, interning
	// whatever records it creates through lb. A nil return means the frame
	// cannot be symbolized; the builder then falls back to its shared
	// unknown-native sentinel.
	LocationFor(frame jvmpf.CallFrame, lb *LocationBuilder) *profile.Location

	// FunctionName returns the function name of a native frame, or "" when
	// unknown. It backs the top-of-stack skip scan.
	FunctionName(frame jvmpf.CallFrame) string
}

// Symbolization selects how much symbol detail a FrameCache implementation
// attaches to native locations.
type Symbolization int

const (
	// Symbols resolves native frames to function name and file.
	Symbols Symbolization = iota
	// NoSymbols records native frames as bare addresses.
	NoSymbols
)
