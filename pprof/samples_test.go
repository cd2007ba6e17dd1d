// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof

import (
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprofiling/jvm-profiler/jvmpf"
)

func TestSampleForUnknownKey(t *testing.T) {
	ts := newTraceSamples()
	tl := &jvmpf.TraceAndLabels{
		Trace: jvmpf.CallTrace{Frames: []jvmpf.CallFrame{jvmpf.JavaFrame(1, 2)}},
	}
	assert.Nil(t, ts.sampleFor(tl))
}

func TestSampleLookupIsStructural(t *testing.T) {
	ts := newTraceSamples()
	sample := &profile.Sample{Value: []int64{1, 10}}

	ts.add(&jvmpf.TraceAndLabels{
		Trace:  jvmpf.CallTrace{Frames: []jvmpf.CallFrame{jvmpf.JavaFrame(1, 2), jvmpf.JavaFrame(3, 4)}},
		Labels: []jvmpf.Label{jvmpf.StringLabel("thread", "main")},
	}, sample)

	// A physically distinct key with the same content hits.
	probe := &jvmpf.TraceAndLabels{
		Trace:  jvmpf.CallTrace{Frames: []jvmpf.CallFrame{jvmpf.JavaFrame(1, 2), jvmpf.JavaFrame(3, 4)}},
		Labels: []jvmpf.Label{jvmpf.StringLabel("thread", "main")},
	}
	assert.Same(t, sample, ts.sampleFor(probe))

	// Differing labels or frames miss.
	probe.Labels = []jvmpf.Label{jvmpf.StringLabel("thread", "worker")}
	assert.Nil(t, ts.sampleFor(probe))

	probe.Labels = []jvmpf.Label{jvmpf.StringLabel("thread", "main")}
	probe.Trace.Frames = []jvmpf.CallFrame{jvmpf.JavaFrame(1, 2)}
	assert.Nil(t, ts.sampleFor(probe))
}

func TestAddClonesBorrowedBuffers(t *testing.T) {
	ts := newTraceSamples()
	sample := &profile.Sample{Value: []int64{1, 10}}

	frames := []jvmpf.CallFrame{jvmpf.JavaFrame(1, 2), jvmpf.JavaFrame(3, 4)}
	labels := []jvmpf.Label{jvmpf.NumericLabel("bytes", 512, "bytes")}
	ts.add(&jvmpf.TraceAndLabels{
		Trace:  jvmpf.CallTrace{Frames: frames},
		Labels: labels,
	}, sample)

	// The sampler reuses its buffers between batches. Overwriting them must
	// not disturb the registered key.
	frames[0] = jvmpf.JavaFrame(99, 99)
	labels[0] = jvmpf.StringLabel("overwritten", "yes")

	probe := &jvmpf.TraceAndLabels{
		Trace:  jvmpf.CallTrace{Frames: []jvmpf.CallFrame{jvmpf.JavaFrame(1, 2), jvmpf.JavaFrame(3, 4)}},
		Labels: []jvmpf.Label{jvmpf.NumericLabel("bytes", 512, "bytes")},
	}
	assert.Same(t, sample, ts.sampleFor(probe))

	mutated := &jvmpf.TraceAndLabels{
		Trace:  jvmpf.CallTrace{Frames: frames},
		Labels: labels,
	}
	assert.Nil(t, ts.sampleFor(mutated))
}

func TestHashChainHoldsDistinctKeys(t *testing.T) {
	ts := newTraceSamples()

	var samples []*profile.Sample
	for i := 0; i < 16; i++ {
		s := &profile.Sample{Value: []int64{int64(i), 0}}
		samples = append(samples, s)
		ts.add(&jvmpf.TraceAndLabels{
			Trace: jvmpf.CallTrace{Frames: []jvmpf.CallFrame{
				jvmpf.JavaFrame(jvmpf.MethodID(i), 1),
			}},
		}, s)
	}

	for i := 0; i < 16; i++ {
		probe := &jvmpf.TraceAndLabels{
			Trace: jvmpf.CallTrace{Frames: []jvmpf.CallFrame{
				jvmpf.JavaFrame(jvmpf.MethodID(i), 1),
			}},
		}
		require.Same(t, samples[i], ts.sampleFor(probe), "key %d", i)
	}
}
