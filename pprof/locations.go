// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "github.com/openprofiling/jvm-profiler/pprof"

import (
	"github.com/google/pprof/profile"

	"github.com/openprofiling/jvm-profiler/jvmpf"
)

// locationKey is the complete identity of an interned location. Two frames
// share a location only when every field matches.
type locationKey struct {
	class     string
	function  string
	file      string
	startLine int64
	line      int64
	address   uint64
}

// functionKey identifies the function record backing one or more locations.
// The line number is deliberately absent: all call sites within a method
// share its function record.
type functionKey struct {
	class     string
	function  string
	file      string
	startLine int64
}

// LocationBuilder interns locations and their function records into the
// destination profile. The same key returns the same *profile.Location for
// the lifetime of one build, so the symbol tables grow with the number of
// distinct symbols observed, not with the number of samples.
type LocationBuilder struct {
	profile   *profile.Profile
	locations map[locationKey]*profile.Location
	functions map[functionKey]*profile.Function
}

// NewLocationBuilder returns a builder interning into p. Frame cache
// implementations receive one per build; constructing one directly is mainly
// useful to test them.
func NewLocationBuilder(p *profile.Profile) *LocationBuilder {
	return &LocationBuilder{
		profile:   p,
		locations: make(map[locationKey]*profile.Location),
		functions: make(map[functionKey]*profile.Function),
	}
}

// LocationFor returns the canonical location for the given frame identity,
// creating the location and its backing function record on first use. An
// empty class and function yields an address-only location without line
// information.
func (lb *LocationBuilder) LocationFor(class, function, file string,
	startLine, line int64, address uint64) *profile.Location {
	key := locationKey{
		class:     class,
		function:  function,
		file:      file,
		startLine: startLine,
		line:      line,
		address:   address,
	}
	if loc, found := lb.locations[key]; found {
		return loc
	}

	loc := &profile.Location{
		ID:      uint64(len(lb.profile.Location) + 1),
		Address: address,
	}
	if class != "" || function != "" {
		loc.Line = []profile.Line{{
			Function: lb.functionFor(class, function, file, startLine),
			Line:     line,
		}}
	}
	lb.profile.Location = append(lb.profile.Location, loc)
	lb.locations[key] = loc
	return loc
}

func (lb *LocationBuilder) functionFor(class, function, file string,
	startLine int64) *profile.Function {
	key := functionKey{
		class:     class,
		function:  function,
		file:      file,
		startLine: startLine,
	}
	if fn, found := lb.functions[key]; found {
		return fn
	}

	fn := &profile.Function{
		ID:         uint64(len(lb.profile.Function) + 1),
		Name:       jvmpf.FormatMethodName(class, function),
		SystemName: function,
		Filename:   file,
		StartLine:  startLine,
	}
	lb.profile.Function = append(lb.profile.Function, fn)
	lb.functions[key] = fn
	return fn
}
