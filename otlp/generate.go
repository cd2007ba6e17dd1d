// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package otlp converts finished pprof documents into the OTLP profiles
// signal, so builder output can feed an OpenTelemetry collector without
// re-symbolization.
package otlp // import "github.com/openprofiling/jvm-profiler/otlp"

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/pprof/profile"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pprofile"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/openprofiling/jvm-profiler/otlp/internal/orderedset"
)

// labelKeyPrefix namespaces profile label keys in the attribute table,
// keeping agent-defined labels apart from semantic convention attributes.
const labelKeyPrefix = "jvm.label."

// Resource describes the entity the profiles were collected from.
type Resource struct {
	ServiceName    string
	ServiceVersion string
	HostName       string
}

// funcInfo keys one function table entry by its interned string indices.
type funcInfo struct {
	nameIdx       int32
	systemNameIdx int32
	fileNameIdx   int32
	startLine     int64
}

// locationInfo keys one location table entry. lineKey canonically encodes
// the location's line records, so locations sharing an address but differing
// in source attribution stay distinct.
type locationInfo struct {
	address uint64
	lineKey string
}

// lineRecord is one resolved line of a location, in dictionary indices.
type lineRecord struct {
	functionIndex int32
	line          int64
}

// Generate converts the given profile documents into one OTLP profiles
// payload: a single resource and scope carrying one OTLP profile per input
// document, all sharing one dictionary.
func Generate(res Resource, agentName, agentVersion string,
	profs ...*profile.Profile) (pprofile.Profiles, error) {
	profiles := pprofile.NewProfiles()
	dic := profiles.ProfilesDictionary()

	// Temporary helpers that build the dictionary tables.
	stringSet := make(orderedset.OrderedSet[string], 64)
	funcSet := make(orderedset.OrderedSet[funcInfo], 64)
	locationSet := make(orderedset.OrderedSet[locationInfo], 64)

	// By specification, the first string and mapping entries must be empty.
	stringSet.Add("")
	dic.MappingTable().AppendEmpty()

	attrMgr := NewAttrTableManager(dic.AttributeTable())

	rp := profiles.ResourceProfiles().AppendEmpty()
	rattrs := rp.Resource().Attributes()
	if res.ServiceName != "" {
		rattrs.PutStr(string(semconv.ServiceNameKey), res.ServiceName)
	}
	if res.ServiceVersion != "" {
		rattrs.PutStr(string(semconv.ServiceVersionKey), res.ServiceVersion)
	}
	if res.HostName != "" {
		rattrs.PutStr(string(semconv.HostNameKey), res.HostName)
	}
	rp.SetSchemaUrl(semconv.SchemaURL)

	sp := rp.ScopeProfiles().AppendEmpty()
	sp.Scope().SetName(agentName)
	sp.Scope().SetVersion(agentVersion)
	sp.SetSchemaUrl(semconv.SchemaURL)

	for i, src := range profs {
		if err := setProfile(dic, stringSet, funcSet, locationSet, attrMgr,
			src, sp.Profiles().AppendEmpty()); err != nil {
			return profiles, fmt.Errorf("profile %d: %w", i, err)
		}
	}

	// Populate the dictionary tables that are referenced by index.
	funcTable := dic.FunctionTable()
	funcTable.EnsureCapacity(len(funcSet))
	for range funcSet {
		funcTable.AppendEmpty()
	}
	for v, idx := range funcSet {
		f := funcTable.At(int(idx))
		f.SetNameStrindex(v.nameIdx)
		f.SetSystemNameStrindex(v.systemNameIdx)
		f.SetFilenameStrindex(v.fileNameIdx)
		f.SetStartLine(v.startLine)
	}

	stringTable := dic.StringTable()
	stringTable.EnsureCapacity(len(stringSet))
	for _, val := range stringSet.ToSlice() {
		stringTable.Append(val)
	}

	return profiles, nil
}

// setProfile fills one OTLP profile from a pprof document.
func setProfile(
	dic pprofile.ProfilesDictionary,
	stringSet orderedset.OrderedSet[string],
	funcSet orderedset.OrderedSet[funcInfo],
	locationSet orderedset.OrderedSet[locationInfo],
	attrMgr *AttrTableManager,
	src *profile.Profile,
	out pprofile.Profile,
) error {
	if src == nil {
		return errors.New("document is nil")
	}
	if len(src.SampleType) == 0 {
		return errors.New("document carries no sample types")
	}

	for _, st := range src.SampleType {
		vt := out.SampleType().AppendEmpty()
		vt.SetTypeStrindex(stringSet.Add(st.Type))
		vt.SetUnitStrindex(stringSet.Add(st.Unit))
	}
	if pt := src.PeriodType; pt != nil {
		out.PeriodType().SetTypeStrindex(stringSet.Add(pt.Type))
		out.PeriodType().SetUnitStrindex(stringSet.Add(pt.Unit))
		out.SetPeriod(src.Period)
	}
	out.SetTime(pcommon.Timestamp(src.TimeNanos))
	out.SetDuration(pcommon.Timestamp(src.DurationNanos))

	locationIndex := int32(out.LocationIndices().Len())
	for _, s := range src.Sample {
		if len(s.Value) != len(src.SampleType) {
			return fmt.Errorf("sample carries %d values for %d sample types",
				len(s.Value), len(src.SampleType))
		}

		sample := out.Sample().AppendEmpty()
		sample.SetLocationsStartIndex(locationIndex)
		sample.Value().Append(s.Value...)

		for _, loc := range s.Location {
			idx := locationFor(dic, stringSet, funcSet, locationSet, loc)
			out.LocationIndices().Append(idx)
		}

		appendLabels(attrMgr, sample, s)

		sample.SetLocationsLength(int32(len(s.Location)))
		locationIndex += sample.LocationsLength()
	}

	log.Debugf("Converted profile with %d samples to OTLP", out.Sample().Len())
	return nil
}

// locationFor interns one pprof location into the dictionary's location
// table and returns its index.
func locationFor(
	dic pprofile.ProfilesDictionary,
	stringSet orderedset.OrderedSet[string],
	funcSet orderedset.OrderedSet[funcInfo],
	locationSet orderedset.OrderedSet[locationInfo],
	loc *profile.Location,
) int32 {
	lines := make([]lineRecord, 0, len(loc.Line))
	var lineKey strings.Builder
	for _, ln := range loc.Line {
		fn := ln.Function
		if fn == nil {
			continue
		}
		rec := lineRecord{
			functionIndex: funcSet.Add(funcInfo{
				nameIdx:       stringSet.Add(fn.Name),
				systemNameIdx: stringSet.Add(fn.SystemName),
				fileNameIdx:   stringSet.Add(fn.Filename),
				startLine:     fn.StartLine,
			}),
			line: ln.Line,
		}
		lines = append(lines, rec)
		fmt.Fprintf(&lineKey, "%d@%d;", rec.functionIndex, rec.line)
	}

	idx, exists := locationSet.AddWithCheck(locationInfo{
		address: loc.Address,
		lineKey: lineKey.String(),
	})
	if !exists {
		ol := dic.LocationTable().AppendEmpty()
		ol.SetAddress(loc.Address)
		ol.SetMappingIndex(0)
		for _, rec := range lines {
			oline := ol.Line().AppendEmpty()
			oline.SetFunctionIndex(rec.functionIndex)
			oline.SetLine(rec.line)
		}
	}
	return idx
}

// appendLabels maps the sample's pprof labels to attribute table indices.
// Keys are walked in sorted order so repeated conversions of the same data
// produce identical payloads.
func appendLabels(attrMgr *AttrTableManager, sample pprofile.Sample,
	s *profile.Sample) {
	for _, key := range sortedKeys(s.Label) {
		for _, value := range s.Label[key] {
			attrMgr.AppendOptionalString(sample.AttributeIndices(),
				attribute.Key(labelKeyPrefix+key), value)
		}
	}
	for _, key := range sortedKeys(s.NumLabel) {
		for _, value := range s.NumLabel[key] {
			attrMgr.AppendInt(sample.AttributeIndices(),
				attribute.Key(labelKeyPrefix+key), value)
		}
	}
}

func sortedKeys[V any](m map[string][]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
