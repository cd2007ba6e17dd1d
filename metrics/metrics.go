// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the profiler's operational counters through the
// global OpenTelemetry meter. Instrument creation failures are logged and
// degrade to no-ops so that metrics never get into the way of profiling.
package metrics // import "github.com/openprofiling/jvm-profiler/metrics"

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("github.com/openprofiling/jvm-profiler")

	profilesBuilt     metric.Int64Counter
	tracesIngested    metric.Int64Counter
	samplesCreated    metric.Int64Counter
	sampleDedupHits   metric.Int64Counter
	methodFailures    metric.Int64Counter
	nativeCacheHits   metric.Int64Counter
	nativeCacheMisses metric.Int64Counter
)

func init() {
	profilesBuilt = newCounter("jvm_profiler.profiles.built",
		"Number of profile documents finalized", "{profile}")
	tracesIngested = newCounter("jvm_profiler.traces.ingested",
		"Number of stack records submitted to builders", "{trace}")
	samplesCreated = newCounter("jvm_profiler.samples.created",
		"Number of unique samples created across builds", "{sample}")
	sampleDedupHits = newCounter("jvm_profiler.samples.dedup_hits",
		"Number of stack records merged into existing samples", "{trace}")
	methodFailures = newCounter("jvm_profiler.methods.resolution_failures",
		"Number of method handles that failed resolution", "{method}")
	nativeCacheHits = newCounter("jvm_profiler.native_cache.hits",
		"Native symbol lookups answered from the memoization cache", "{lookup}")
	nativeCacheMisses = newCounter("jvm_profiler.native_cache.misses",
		"Native symbol lookups requiring a range table walk", "{lookup}")
}

func newCounter(name, description, unit string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name,
		metric.WithDescription(description),
		metric.WithUnit(unit))
	if err != nil {
		log.Errorf("Creating Int64Counter %s: %v", name, err)
	}
	return counter
}

// AddProfilesBuilt counts one finalized profile of the given kind.
func AddProfilesBuilt(kind string) {
	if profilesBuilt == nil {
		return
	}
	profilesBuilt.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("profile.kind", kind)))
}

// AddTracesIngested counts stack records handed to a builder.
func AddTracesIngested(n int64) {
	if tracesIngested == nil || n == 0 {
		return
	}
	tracesIngested.Add(context.Background(), n)
}

// AddSamplesCreated counts unique samples created by a finished build.
func AddSamplesCreated(n int64) {
	if samplesCreated == nil || n == 0 {
		return
	}
	samplesCreated.Add(context.Background(), n)
}

// AddSampleDedupHits counts records that merged into existing samples.
func AddSampleDedupHits(n int64) {
	if sampleDedupHits == nil || n == 0 {
		return
	}
	sampleDedupHits.Add(context.Background(), n)
}

// AddMethodResolutionFailures counts method handles that stayed unresolved.
func AddMethodResolutionFailures(n int64) {
	if methodFailures == nil || n == 0 {
		return
	}
	methodFailures.Add(context.Background(), n)
}

// IncNativeCacheHit counts one native symbol lookup served from cache.
func IncNativeCacheHit() {
	if nativeCacheHits == nil {
		return
	}
	nativeCacheHits.Add(context.Background(), 1)
}

// IncNativeCacheMiss counts one native symbol lookup that walked the
// range table.
func IncNativeCacheMiss() {
	if nativeCacheMisses == nil {
		return
	}
	nativeCacheMisses.Add(context.Background(), 1)
}
