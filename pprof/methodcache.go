// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "github.com/openprofiling/jvm-profiler/pprof"

import (
	log "github.com/sirupsen/logrus"

	"github.com/openprofiling/jvm-profiler/jvmpf"
)

// methodCache memoizes method resolution for the lifetime of one build.
// Failures are remembered as well: a stale handle is never handed to the
// resolver twice. The cache dies with its builder because handles may go
// stale between collection windows.
type methodCache struct {
	resolver MethodResolver
	methods  map[jvmpf.MethodID]methodEntry

	// failures counts distinct handles that stayed unresolved.
	failures int64
}

type methodEntry struct {
	info jvmpf.MethodInfo
	ok   bool
}

func newMethodCache(resolver MethodResolver) *methodCache {
	return &methodCache{
		resolver: resolver,
		methods:  make(map[jvmpf.MethodID]methodEntry),
	}
}

// resolve returns the metadata for method. ok is false when the handle is
// unresolvable, in which case the caller degrades the frame.
func (mc *methodCache) resolve(method jvmpf.MethodID) (jvmpf.MethodInfo, bool) {
	if entry, found := mc.methods[method]; found {
		return entry.info, entry.ok
	}

	var entry methodEntry
	if mc.resolver != nil {
		info, err := mc.resolver.ResolveMethod(method)
		if err != nil {
			log.Debugf("Method %#x not resolvable: %v", uint64(method), err)
			mc.failures++
		} else {
			entry = methodEntry{info: info, ok: true}
		}
	}
	mc.methods[method] = entry
	return entry.info, entry.ok
}
