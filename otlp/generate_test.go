// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package otlp

import (
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pprofile"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

var testResource = Resource{
	ServiceName:    "checkout",
	ServiceVersion: "1.4.2",
	HostName:       "worker-7",
}

func stringAt(t *testing.T, dic pprofile.ProfilesDictionary, idx int32) string {
	t.Helper()
	require.Less(t, int(idx), dic.StringTable().Len())
	return dic.StringTable().At(int(idx))
}

// cpuDoc builds a two-sample CPU document with one managed and one
// address-only location.
func cpuDoc() *profile.Profile {
	fn := &profile.Function{
		ID: 1, Name: "com.example.Main.run", SystemName: "run",
		Filename: "Main.java", StartLine: 5,
	}
	managed := &profile.Location{
		ID:   1,
		Line: []profile.Line{{Function: fn, Line: 42}},
	}
	native := &profile.Location{ID: 2, Address: 0x7f42}

	return &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "cpu", Unit: "nanoseconds"},
		},
		PeriodType:    &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Period:        100,
		TimeNanos:     1724661000000000000,
		DurationNanos: 10_000_000_000,
		Function:      []*profile.Function{fn},
		Location:      []*profile.Location{managed, native},
		Sample: []*profile.Sample{
			{
				Location: []*profile.Location{managed, native},
				Value:    []int64{1000, 50000},
				Label:    map[string][]string{"thread": {"main"}},
				NumLabel: map[string][]int64{"bytes": {4096}},
			},
			{
				Location: []*profile.Location{managed},
				Value:    []int64{5, 25},
				Label:    map[string][]string{"thread": {"main"}},
				NumLabel: map[string][]int64{"bytes": {4096}},
			},
		},
	}
}

func TestGenerateResourceAndScope(t *testing.T) {
	profiles, err := Generate(testResource, "jvm-profiler", "0.9.0", cpuDoc())
	require.NoError(t, err)

	require.Equal(t, 1, profiles.ResourceProfiles().Len())
	rp := profiles.ResourceProfiles().At(0)
	assert.Equal(t, map[string]any{
		string(semconv.ServiceNameKey):    "checkout",
		string(semconv.ServiceVersionKey): "1.4.2",
		string(semconv.HostNameKey):       "worker-7",
	}, rp.Resource().Attributes().AsRaw())
	assert.Equal(t, semconv.SchemaURL, rp.SchemaUrl())

	require.Equal(t, 1, rp.ScopeProfiles().Len())
	sp := rp.ScopeProfiles().At(0)
	assert.Equal(t, "jvm-profiler", sp.Scope().Name())
	assert.Equal(t, "0.9.0", sp.Scope().Version())
	require.Equal(t, 1, sp.Profiles().Len())
}

func TestGenerateDictionary(t *testing.T) {
	profiles, err := Generate(testResource, "jvm-profiler", "0.9.0", cpuDoc())
	require.NoError(t, err)
	dic := profiles.ProfilesDictionary()

	// Zero entries of the string and mapping tables stay empty.
	require.Greater(t, dic.StringTable().Len(), 0)
	assert.Empty(t, dic.StringTable().At(0))
	require.Equal(t, 1, dic.MappingTable().Len())

	require.Equal(t, 1, dic.FunctionTable().Len())
	fn := dic.FunctionTable().At(0)
	assert.Equal(t, "com.example.Main.run", stringAt(t, dic, fn.NameStrindex()))
	assert.Equal(t, "run", stringAt(t, dic, fn.SystemNameStrindex()))
	assert.Equal(t, "Main.java", stringAt(t, dic, fn.FilenameStrindex()))
	assert.Equal(t, int64(5), fn.StartLine())

	require.Equal(t, 2, dic.LocationTable().Len())
	managed := dic.LocationTable().At(0)
	require.Equal(t, 1, managed.Line().Len())
	assert.Equal(t, int32(0), managed.Line().At(0).FunctionIndex())
	assert.Equal(t, int64(42), managed.Line().At(0).Line())

	native := dic.LocationTable().At(1)
	assert.Equal(t, uint64(0x7f42), native.Address())
	assert.Equal(t, 0, native.Line().Len())
	assert.Equal(t, int32(0), native.MappingIndex())
}

func TestGenerateSampleWindows(t *testing.T) {
	profiles, err := Generate(testResource, "jvm-profiler", "0.9.0", cpuDoc())
	require.NoError(t, err)

	prof := profiles.ResourceProfiles().At(0).ScopeProfiles().At(0).Profiles().At(0)
	require.Equal(t, 2, prof.Sample().Len())

	first := prof.Sample().At(0)
	assert.Equal(t, int32(0), first.LocationsStartIndex())
	assert.Equal(t, int32(2), first.LocationsLength())
	assert.Equal(t, []int64{1000, 50000}, first.Value().AsRaw())

	second := prof.Sample().At(1)
	assert.Equal(t, int32(2), second.LocationsStartIndex())
	assert.Equal(t, int32(1), second.LocationsLength())
	assert.Equal(t, []int64{5, 25}, second.Value().AsRaw())

	// The second sample's window references the same interned location as
	// the first frame of the first sample.
	indices := prof.LocationIndices().AsRaw()
	require.Len(t, indices, 3)
	assert.Equal(t, indices[0], indices[2])
}

func TestGenerateMetadata(t *testing.T) {
	profiles, err := Generate(testResource, "jvm-profiler", "0.9.0", cpuDoc())
	require.NoError(t, err)
	dic := profiles.ProfilesDictionary()

	prof := profiles.ResourceProfiles().At(0).ScopeProfiles().At(0).Profiles().At(0)
	require.Equal(t, 2, prof.SampleType().Len())
	assert.Equal(t, "samples", stringAt(t, dic, prof.SampleType().At(0).TypeStrindex()))
	assert.Equal(t, "count", stringAt(t, dic, prof.SampleType().At(0).UnitStrindex()))
	assert.Equal(t, "cpu", stringAt(t, dic, prof.SampleType().At(1).TypeStrindex()))
	assert.Equal(t, "nanoseconds", stringAt(t, dic, prof.SampleType().At(1).UnitStrindex()))

	assert.Equal(t, "cpu", stringAt(t, dic, prof.PeriodType().TypeStrindex()))
	assert.Equal(t, int64(100), prof.Period())
	assert.Equal(t, pcommon.Timestamp(1724661000000000000), prof.Time())
	assert.Equal(t, pcommon.Timestamp(10_000_000_000), prof.Duration())
}

func TestGenerateLabelAttributes(t *testing.T) {
	profiles, err := Generate(testResource, "jvm-profiler", "0.9.0", cpuDoc())
	require.NoError(t, err)
	dic := profiles.ProfilesDictionary()

	require.Equal(t, 2, dic.AttributeTable().Len())
	thread := dic.AttributeTable().At(0)
	assert.Equal(t, "jvm.label.thread", thread.Key())
	assert.Equal(t, "main", thread.Value().Str())
	bytesAttr := dic.AttributeTable().At(1)
	assert.Equal(t, "jvm.label.bytes", bytesAttr.Key())
	assert.Equal(t, int64(4096), bytesAttr.Value().Int())

	// Both samples carry the same labels and share the table entries.
	prof := profiles.ResourceProfiles().At(0).ScopeProfiles().At(0).Profiles().At(0)
	assert.Equal(t, []int32{0, 1}, prof.Sample().At(0).AttributeIndices().AsRaw())
	assert.Equal(t, []int32{0, 1}, prof.Sample().At(1).AttributeIndices().AsRaw())
}

func TestGenerateSharedDictionary(t *testing.T) {
	// Two documents referencing the same function identity through distinct
	// object graphs.
	profiles, err := Generate(testResource, "jvm-profiler", "0.9.0",
		cpuDoc(), cpuDoc())
	require.NoError(t, err)
	dic := profiles.ProfilesDictionary()

	sp := profiles.ResourceProfiles().At(0).ScopeProfiles().At(0)
	require.Equal(t, 2, sp.Profiles().Len())
	assert.Equal(t, 1, dic.FunctionTable().Len())
	assert.Equal(t, 2, dic.LocationTable().Len())
}

func TestGenerateValidation(t *testing.T) {
	_, err := Generate(testResource, "jvm-profiler", "0.9.0", nil)
	assert.ErrorContains(t, err, "nil")

	_, err = Generate(testResource, "jvm-profiler", "0.9.0", &profile.Profile{})
	assert.ErrorContains(t, err, "no sample types")

	broken := cpuDoc()
	broken.Sample[0].Value = []int64{1}
	_, err = Generate(testResource, "jvm-profiler", "0.9.0", broken)
	assert.ErrorContains(t, err, "values")
}

func TestGenerateEmptyPayload(t *testing.T) {
	profiles, err := Generate(Resource{}, "jvm-profiler", "0.9.0")
	require.NoError(t, err)

	rp := profiles.ResourceProfiles().At(0)
	assert.Equal(t, 0, rp.Resource().Attributes().Len())
	assert.Equal(t, 0, rp.ScopeProfiles().At(0).Profiles().Len())

	dic := profiles.ProfilesDictionary()
	assert.Equal(t, 1, dic.StringTable().Len())
	assert.Equal(t, 1, dic.MappingTable().Len())
}
