// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "github.com/openprofiling/jvm-profiler/pprof"

import (
	"slices"

	"github.com/google/pprof/profile"

	"github.com/openprofiling/jvm-profiler/jvmpf"
)

// sampleEntry ties one deduplication key to its accumulating sample. Frame
// and label content is cloned out of the caller's buffers when the entry is
// created; nothing here aliases submitted traces.
type sampleEntry struct {
	frames []jvmpf.CallFrame
	labels []jvmpf.Label
	sample *profile.Sample
}

func (e *sampleEntry) matches(tl *jvmpf.TraceAndLabels) bool {
	return slices.Equal(e.frames, tl.Trace.Frames) &&
		slices.Equal(e.labels, tl.Labels)
}

// traceSamples deduplicates (trace, labels) keys into samples. Keys are
// structural: entries chain under their content hash and a full comparison
// decides on a match, so hash collisions merely cost a compare.
type traceSamples struct {
	entries map[uint64][]sampleEntry
}

func newTraceSamples() *traceSamples {
	return &traceSamples{entries: make(map[uint64][]sampleEntry)}
}

// sampleFor returns the accumulated sample for the key, or nil when the key
// has not been seen.
func (ts *traceSamples) sampleFor(tl *jvmpf.TraceAndLabels) *profile.Sample {
	chain := ts.entries[tl.Hash()]
	for i := range chain {
		if chain[i].matches(tl) {
			return chain[i].sample
		}
	}
	return nil
}

// add registers the sample under the key, cloning the borrowed content.
func (ts *traceSamples) add(tl *jvmpf.TraceAndLabels, sample *profile.Sample) {
	h := tl.Hash()
	ts.entries[h] = append(ts.entries[h], sampleEntry{
		frames: slices.Clone(tl.Trace.Frames),
		labels: slices.Clone(tl.Labels),
		sample: sample,
	})
}
