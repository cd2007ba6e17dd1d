// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package pprof builds deduplicated pprof profiles out of raw JVM stack
// records. A ProfileBuilder interns frames into canonical location and
// function records, merges repeated (trace, labels) combinations into single
// weighted samples, applies the sampling correction of its profile kind and
// produces one immutable profile document.
package pprof // import "github.com/openprofiling/jvm-profiler/pprof"

import (
	"errors"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	log "github.com/sirupsen/logrus"

	"github.com/openprofiling/jvm-profiler/jvmpf"
	"github.com/openprofiling/jvm-profiler/metrics"
)

const (
	// unknownMethodName labels managed frames whose handle failed resolution.
	unknownMethodName = "<unknown method>"
	// unknownNativeName labels native frames with no symbolization available.
	unknownNativeName = "<unknown native method>"
)

var (
	// ErrMissingFrameCache is returned when a profile kind that requires
	// native symbolization is constructed without a frame cache.
	ErrMissingFrameCache = errors.New("profile kind requires a frame cache")

	// ErrCountMismatch is returned when an explicit counts slice does not
	// line up with its traces.
	ErrCountMismatch = errors.New("counts length does not match traces")
)

// Config carries the construction-time options common to all profile kinds.
type Config struct {
	// SamplingRate is the collection rate: for CPU and contention profiles
	// the number of events one observation stands for, for heap profiles
	// the average sampled allocation interval in bytes.
	SamplingRate int64

	// Duration is the length of the collection window, recorded on kinds
	// that carry period metadata.
	Duration time.Duration

	// SkipTopNativeFrames elides profiler-internal native frames from the
	// top of every stack.
	SkipTopNativeFrames bool

	// SkipFrames holds the function name substrings the skip scan matches.
	SkipFrames []string

	// MethodResolver resolves managed method handles. A nil resolver
	// degrades every managed frame to the unknown placeholder.
	MethodResolver MethodResolver

	// FrameCache symbolizes native frames. Required for CPU and contention
	// profiles, optional for heap.
	FrameCache FrameCache
}

// ProfileBuilder turns batches of stack records into one pprof document.
//
// A builder passes through two phases: while open, any number of AddTraces
// and AddArtificialTrace calls may run from a single goroutine; the terminal
// Build call applies the kind's sampling correction and closes the builder
// for good. Mutating a closed builder panics.
type ProfileBuilder struct {
	spec kindSpec
	cfg  Config

	profile   *profile.Profile
	locations *LocationBuilder
	samples   *traceSamples
	methods   *methodCache

	dedupHits int64
	built     bool
}

func newBuilder(spec kindSpec, cfg Config) (*ProfileBuilder, error) {
	if spec.requireFrameCache && cfg.FrameCache == nil {
		return nil, ErrMissingFrameCache
	}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: spec.countType, Unit: spec.countUnit},
			{Type: spec.metricType, Unit: spec.metricUnit},
		},
		PeriodType: &profile.ValueType{
			Type: spec.metricType,
			Unit: spec.metricUnit,
		},
		DefaultSampleType: spec.defaultSampleType,
		TimeNanos:         time.Now().UnixNano(),
	}
	if spec.hasPeriod {
		p.Period = cfg.SamplingRate
		p.DurationNanos = cfg.Duration.Nanoseconds()
	}

	return &ProfileBuilder{
		spec:      spec,
		cfg:       cfg,
		profile:   p,
		locations: NewLocationBuilder(p),
		samples:   newTraceSamples(),
		methods:   newMethodCache(cfg.MethodResolver),
	}, nil
}

// AddTraces ingests one batch of stack records, counting each record as a
// single occurrence.
func (b *ProfileBuilder) AddTraces(traces []jvmpf.ProfileStackTrace) {
	b.mutable()
	if cache := b.cfg.FrameCache; cache != nil {
		cache.ProcessTraces(traces)
	}
	for i := range traces {
		b.addTrace(&traces[i], 1)
	}
	metrics.AddTracesIngested(int64(len(traces)))
}

// AddTracesWithCounts ingests one batch with an explicit occurrence count
// per record.
func (b *ProfileBuilder) AddTracesWithCounts(traces []jvmpf.ProfileStackTrace,
	counts []int32) error {
	b.mutable()
	if len(counts) != len(traces) {
		return ErrCountMismatch
	}
	if cache := b.cfg.FrameCache; cache != nil {
		cache.ProcessTraces(traces)
	}
	for i := range traces {
		b.addTrace(&traces[i], int64(counts[i]))
	}
	metrics.AddTracesIngested(int64(len(traces)))
	return nil
}

// AddArtificialTrace records a synthetic single-frame sample named name,
// standing for count occurrences of a fixed runtime activity such as garbage
// collection. samplingRate back-scales its weight consistently with real
// samples.
func (b *ProfileBuilder) AddArtificialTrace(name string, count int32,
	samplingRate int64) {
	b.mutable()
	loc := b.locations.LocationFor("", name, "", 0, 0, 0)
	b.profile.Sample = append(b.profile.Sample, &profile.Sample{
		Location: []*profile.Location{loc},
		Value:    []int64{int64(count), int64(count) * samplingRate},
	})
}

// Build applies the kind's sampling correction and returns the finished
// profile document. The builder is closed afterwards: any further use
// panics.
func (b *ProfileBuilder) Build() *profile.Profile {
	b.mutable()
	b.built = true

	if rate := b.cfg.SamplingRate; rate > 1 {
		for _, sample := range b.profile.Sample {
			switch b.spec.correction {
			case correctExact:
				scaleValues(sample.Value, rate)
			case correctPoisson:
				unsampleValues(sample.Value, rate)
			}
		}
	}

	metrics.AddProfilesBuilt(b.spec.name)
	metrics.AddSamplesCreated(int64(len(b.profile.Sample)))
	metrics.AddSampleDedupHits(b.dedupHits)
	metrics.AddMethodResolutionFailures(b.methods.failures)
	log.Debugf("Built %s profile: %d samples, %d locations, %d functions",
		b.spec.name, len(b.profile.Sample), len(b.profile.Location),
		len(b.profile.Function))

	p := b.profile
	b.profile = nil
	b.locations = nil
	b.samples = nil
	b.methods = nil
	return p
}

// mutable panics when the builder was already closed by Build.
func (b *ProfileBuilder) mutable() {
	if b.built {
		panic("pprof: builder used after Build")
	}
}

func (b *ProfileBuilder) addTrace(trace *jvmpf.ProfileStackTrace, count int64) {
	tl := trace.TraceAndLabels
	if sample := b.samples.sampleFor(tl); sample != nil {
		// Dedup hit: only the numeric fields change, the location list and
		// labels were derived when the key was first seen.
		sample.Value[0] += count
		sample.Value[1] += trace.MetricValue
		b.dedupHits++
		return
	}

	sample := &profile.Sample{
		Value: []int64{count, trace.MetricValue},
	}
	frames := tl.Trace.Frames
	for _, frame := range frames[b.skipCount(frames):] {
		sample.Location = append(sample.Location, b.locationFor(frame))
	}
	b.applyLabels(sample, tl.Labels)

	b.profile.Sample = append(b.profile.Sample, sample)
	b.samples.add(tl, sample)
}

// skipCount returns how many frames to elide from the top of the stack: the
// leading run of native frames whose names match the configured skip list.
func (b *ProfileBuilder) skipCount(frames []jvmpf.CallFrame) int {
	if !b.cfg.SkipTopNativeFrames || b.cfg.FrameCache == nil {
		return 0
	}
	n := 0
	for ; n < len(frames); n++ {
		if !frames[n].IsNative() {
			break
		}
		if !b.matchesSkipList(b.cfg.FrameCache.FunctionName(frames[n])) {
			break
		}
	}
	return n
}

// matchesSkipList reports whether name contains any configured skip pattern.
func (b *ProfileBuilder) matchesSkipList(name string) bool {
	if name == "" {
		return false
	}
	for _, pattern := range b.cfg.SkipFrames {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// locationFor resolves one frame to its interned location, degrading to the
// shared unknown sentinels when symbol data is unavailable.
func (b *ProfileBuilder) locationFor(frame jvmpf.CallFrame) *profile.Location {
	if frame.IsNative() {
		if cache := b.cfg.FrameCache; cache != nil {
			if loc := cache.LocationFor(frame, b.locations); loc != nil {
				return loc
			}
		}
		return b.locations.LocationFor("", unknownNativeName, "", 0, 0, 0)
	}

	info, ok := b.methods.resolve(frame.Method)
	if !ok {
		return b.locations.LocationFor("", unknownMethodName, "", 0, 0, 0)
	}

	line := int64(frame.LineNo)
	if line < 0 || info.Native {
		line = 0
	}
	return b.locations.LocationFor(info.ClassName, info.MethodName,
		info.FileName, info.StartLine, line, 0)
}

// applyLabels attaches the labels to a newly created sample. Labels are part
// of the deduplication key, so this runs exactly once per unique sample.
func (b *ProfileBuilder) applyLabels(sample *profile.Sample, labels []jvmpf.Label) {
	if len(labels) == 0 {
		return
	}
	strLabels := make(map[string][]string)
	numLabels := make(map[string][]int64)
	numUnits := make(map[string][]string)
	for _, label := range labels {
		key := label.Key()
		if value, ok := label.StringValue(); ok {
			strLabels[key] = append(strLabels[key], value)
			continue
		}
		num, _ := label.NumericValue()
		numLabels[key] = append(numLabels[key], num.Value)
		numUnits[key] = append(numUnits[key], num.Unit)
	}
	if len(strLabels) > 0 {
		sample.Label = strLabels
	}
	if len(numLabels) > 0 {
		sample.NumLabel = numLabels
		sample.NumUnit = numUnits
	}
}
