// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "github.com/openprofiling/jvm-profiler/pprof"

import "math"

// samplingRatio returns the Poisson correction factor for a sample observed
// count times with a value total of metric, under an average sampling
// interval of rate units.
//
// Size-triggered sampling captures a sample of average size S with
// probability 1 - exp(-S/rate); dividing the observation by that capture
// probability recovers the population estimate. A ratio of 1 means the
// sample must stay as observed: rates of one unit or less mean unsampled
// collection, and zero counts or zero totals would otherwise divide by zero.
func samplingRatio(rate, count, metric int64) float64 {
	if rate <= 1 || count == 0 || metric == 0 {
		return 1
	}
	avg := float64(metric) / float64(count)
	return 1 / (1 - math.Exp(-avg/float64(rate)))
}

// unsampleValues rescales a [count, metric] value pair in place using the
// Poisson correction. Both results are rounded half away from zero.
func unsampleValues(values []int64, rate int64) {
	count, metric := values[0], values[1]
	ratio := samplingRatio(rate, count, metric)
	if ratio == 1 {
		return
	}
	correctedCount := float64(count) * ratio
	avg := float64(metric) / float64(count)
	values[0] = int64(math.Round(correctedCount))
	values[1] = int64(math.Round(correctedCount * avg))
}

// scaleValues multiplies a [count, metric] value pair by the fixed sampling
// rate of constant-probability collection.
func scaleValues(values []int64, rate int64) {
	values[0] *= rate
	values[1] *= rate
}
