// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jvmpf // import "github.com/openprofiling/jvm-profiler/jvmpf"

import (
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"
)

// TraceAndLabels pairs one borrowed call trace with the labels that apply to
// every sample aggregated from it.
//
// The frame slice stays owned by the caller, which must keep it alive for the
// duration of the add call it is submitted with. Hashing and equality cover
// the structural content (frames and labels in order), never the identity of
// the backing buffer, so two distinct buffers holding the same frames and
// labels collapse to one deduplication key.
type TraceAndLabels struct {
	Trace  CallTrace
	Labels []Label
}

// Hash returns the structural hash of the frames and labels.
func (tl *TraceAndLabels) Hash() uint64 {
	var buf [12]byte
	var h uint64
	for _, f := range tl.Trace.Frames {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(f.LineNo))
		binary.LittleEndian.PutUint64(buf[4:12], uint64(f.Method))
		h = xxh3.HashSeed(buf[:], h)
	}
	for _, l := range tl.Labels {
		h = l.Hash(h)
	}
	return h
}

// EqualContent reports whether other holds the same frames and labels.
func (tl *TraceAndLabels) EqualContent(other *TraceAndLabels) bool {
	return slices.Equal(tl.Trace.Frames, other.Trace.Frames) &&
		slices.Equal(tl.Labels, other.Labels)
}

// ProfileStackTrace is the unit of input to a profile builder: one observed
// stack worth MetricValue of the measured quantity.
type ProfileStackTrace struct {
	MetricValue    int64
	TraceAndLabels *TraceAndLabels
}
