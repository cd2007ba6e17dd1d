// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "github.com/openprofiling/jvm-profiler/pprof"

// correctionPolicy picks how Build rescales the accumulated sample values.
type correctionPolicy int

const (
	// correctExact multiplies values by the fixed sampling rate.
	correctExact correctionPolicy = iota
	// correctPoisson inverts the capture probability of size-triggered
	// sampling.
	correctPoisson
)

// kindSpec fixes the value vocabulary, metadata and correction of one
// profile kind.
type kindSpec struct {
	name string

	countType  string
	countUnit  string
	metricType string
	metricUnit string

	defaultSampleType string
	hasPeriod         bool
	correction        correctionPolicy

	requireFrameCache bool
}

var (
	cpuSpec = kindSpec{
		name:              "cpu",
		countType:         "samples",
		countUnit:         "count",
		metricType:        "cpu",
		metricUnit:        "nanoseconds",
		hasPeriod:         true,
		correction:        correctExact,
		requireFrameCache: true,
	}

	heapSpec = kindSpec{
		name:       "heap",
		countType:  "inuse_objects",
		countUnit:  "count",
		metricType: "inuse_space",
		metricUnit: "bytes",
		correction: correctPoisson,
	}

	contentionSpec = kindSpec{
		name:              "contention",
		countType:         "contentions",
		countUnit:         "count",
		metricType:        "delay",
		metricUnit:        "microseconds",
		defaultSampleType: "delay",
		hasPeriod:         true,
		correction:        correctExact,
		requireFrameCache: true,
	}
)

// NewCPU returns a builder for CPU time profiles: sample counts plus CPU
// nanoseconds, scaled by the fixed sampling rate at build time. A frame
// cache is required because CPU stacks routinely reach into native code.
func NewCPU(cfg Config) (*ProfileBuilder, error) {
	return newBuilder(cpuSpec, cfg)
}

// NewHeap returns a builder for live heap profiles: in-use objects plus
// in-use bytes, statistically unsampled at build time. Heap stacks come from
// allocation instrumentation and may run without a frame cache.
func NewHeap(cfg Config) (*ProfileBuilder, error) {
	return newBuilder(heapSpec, cfg)
}

// NewContention returns a builder for lock contention profiles: contention
// counts plus delay microseconds, scaled by the fixed sampling rate. The
// document declares "delay" as its default sample type.
func NewContention(cfg Config) (*ProfileBuilder, error) {
	return newBuilder(contentionSpec, cfg)
}
