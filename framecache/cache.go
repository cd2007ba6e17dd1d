// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package framecache resolves native program counters against the code
// ranges registered by the host agent: JIT-compiled stubs, interpreter
// segments and loaded JNI libraries. It implements the frame symbolization
// capability of the profile construction engine.
package framecache // import "github.com/openprofiling/jvm-profiler/framecache"

import (
	"sort"
	"strings"

	lru "github.com/elastic/go-freelru"
	"github.com/google/pprof/profile"
	"github.com/ianlancetaylor/demangle"

	"github.com/openprofiling/jvm-profiler/jvmpf"
	"github.com/openprofiling/jvm-profiler/jvmpf/xsync"
	"github.com/openprofiling/jvm-profiler/metrics"
	"github.com/openprofiling/jvm-profiler/pprof"
)

// defaultCacheSize bounds the per-PC memoization. JIT code bodies are small
// and numerous; tens of thousands of hot PCs cover typical workloads.
const defaultCacheSize = 16384

// demangleOptions produces display names without parameter or template
// clutter, which is what flame graph consumers expect.
var demangleOptions = []demangle.Option{
	demangle.NoParams,
	demangle.NoEnclosingParams,
	demangle.NoTemplateParams,
}

// codeRange is one registered native code range, [start, end).
type codeRange struct {
	start jvmpf.Address
	end   jvmpf.Address
	name  string
	file  string
}

// funcInfo is the memoized resolution of one program counter.
type funcInfo struct {
	name string
	file string
	ok   bool
}

type config struct {
	cacheSize uint32
	demangle  bool
}

// Option adjusts cache construction.
type Option func(*config)

// WithCacheSize overrides the capacity of the per-PC memoization.
func WithCacheSize(n uint32) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithDemangling controls whether C++ mangled names are demangled on
// registration. Enabled by default.
func WithDemangling(enabled bool) Option {
	return func(c *config) { c.demangle = enabled }
}

// Cache maps program counters to the code ranges that contain them.
// Registration and lookups may run concurrently: the agent registers and
// unregisters ranges from JVMTI event callbacks while the engine symbolizes
// batches.
type Cache struct {
	policy   pprof.Symbolization
	demangle bool

	// ranges is sorted by descending start address so that a single
	// sort.Search locates the candidate range for a PC.
	ranges xsync.RWMutex[[]codeRange]

	// memo short-circuits repeated lookups of hot PCs. Registration changes
	// purge it wholesale: range turnover is rare next to lookups.
	memo *lru.SyncedLRU[jvmpf.Address, funcInfo]
}

var _ pprof.FrameCache = (*Cache)(nil)

// New returns an empty cache resolving with the given symbolization policy.
func New(policy pprof.Symbolization, opts ...Option) (*Cache, error) {
	cfg := config{
		cacheSize: defaultCacheSize,
		demangle:  true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	memo, err := lru.NewSynced[jvmpf.Address, funcInfo](cfg.cacheSize,
		jvmpf.Address.Hash32)
	if err != nil {
		return nil, err
	}

	return &Cache{
		policy:   policy,
		demangle: cfg.demangle,
		ranges:   xsync.NewRWMutex([]codeRange{}),
		memo:     memo,
	}, nil
}

// Register adds the code range [start, end) under the given function name
// and file. Mangled C++ names are demangled here, once per range, rather
// than on every lookup. Registering a range that starts at an existing start
// address replaces it.
func (c *Cache) Register(start, end jvmpf.Address, name, file string) {
	if c.demangle && strings.HasPrefix(name, "_Z") {
		name = demangle.Filter(name, demangleOptions...)
	}

	ranges := c.ranges.WLock()
	defer c.ranges.WUnlock(&ranges)

	rs := *ranges
	idx := sort.Search(len(rs), func(i int) bool {
		return start >= rs[i].start
	})
	cr := codeRange{start: start, end: end, name: name, file: file}
	if idx < len(rs) && rs[idx].start == start {
		rs[idx] = cr
	} else {
		rs = append(rs, codeRange{})
		copy(rs[idx+1:], rs[idx:])
		rs[idx] = cr
		*ranges = rs
	}
	c.memo.Purge()
}

// Unregister drops the range starting at start, if registered. The host
// agent calls this when JIT code is unloaded and its address space may be
// reused.
func (c *Cache) Unregister(start jvmpf.Address) {
	ranges := c.ranges.WLock()
	defer c.ranges.WUnlock(&ranges)

	rs := *ranges
	idx := sort.Search(len(rs), func(i int) bool {
		return start >= rs[i].start
	})
	if idx >= len(rs) || rs[idx].start != start {
		return
	}
	*ranges = append(rs[:idx], rs[idx+1:]...)
	c.memo.Purge()
}

// ProcessTraces pre-warms the memoization for every native frame in the
// batch, so the range table is walked once per distinct PC rather than once
// per frame occurrence.
func (c *Cache) ProcessTraces(traces []jvmpf.ProfileStackTrace) {
	for _, trace := range traces {
		if trace.TraceAndLabels == nil {
			continue
		}
		for _, frame := range trace.TraceAndLabels.Trace.Frames {
			if frame.IsNative() {
				c.lookup(frame.Address())
			}
		}
	}
}

// LocationFor returns the interned location for a native frame, or nil when
// its PC falls outside every registered range.
func (c *Cache) LocationFor(frame jvmpf.CallFrame,
	lb *pprof.LocationBuilder) *profile.Location {
	pc := frame.Address()
	if c.policy == pprof.NoSymbols {
		return lb.LocationFor("", "", "", 0, 0, uint64(pc))
	}
	info, ok := c.lookup(pc)
	if !ok {
		return nil
	}
	return lb.LocationFor("", info.name, info.file, 0, 0, uint64(pc))
}

// FunctionName returns the function name owning the frame's PC, or "" when
// unknown. Name resolution ignores the symbolization policy: the skip scan
// needs names even when locations are emitted address-only.
func (c *Cache) FunctionName(frame jvmpf.CallFrame) string {
	info, _ := c.lookup(frame.Address())
	return info.name
}

// lookup resolves one PC through the memoization, falling back to the range
// table on miss. Negative results are memoized as well: unknown PCs repeat
// just like known ones.
func (c *Cache) lookup(pc jvmpf.Address) (funcInfo, bool) {
	if info, hit := c.memo.Get(pc); hit {
		metrics.IncNativeCacheHit()
		return info, info.ok
	}
	metrics.IncNativeCacheMiss()

	var info funcInfo
	ranges := c.ranges.RLock()
	rs := *ranges
	idx := sort.Search(len(rs), func(i int) bool {
		return pc >= rs[i].start
	})
	if idx < len(rs) && pc < rs[idx].end {
		info = funcInfo{name: rs[idx].name, file: rs[idx].file, ok: true}
	}
	c.ranges.RUnlock(&ranges)

	c.memo.Add(pc, info)
	return info, info.ok
}
