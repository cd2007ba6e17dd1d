// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/openprofiling/jvm-profiler/framecache"
	"github.com/openprofiling/jvm-profiler/jvmpf"
)

const (
	// cpuPeriodNanos is the tick length of the synthetic stack sampler.
	cpuPeriodNanos = 10_000_000
	// cpuSamplingRate duty-cycles the sampler: one kept tick per ten.
	cpuSamplingRate = 10
	// heapSamplingRate is the average allocation sampling interval in
	// bytes, matching the HotSpot TLAB sampler default.
	heapSamplingRate = 524288
	// contentionSamplingRate keeps one in a hundred contention events.
	contentionSamplingRate = 100

	requestPoolSize = 8
	workerThreads   = 4

	// staleMethodHandle never resolves, standing in for a method that was
	// unloaded between capture and resolution.
	staleMethodHandle jvmpf.MethodID = 0x7fff

	// unknownCodeBase lies outside every registered stub range.
	unknownCodeBase jvmpf.Address = 0x7f6b50000000
)

// synthMethod is one row of the synthetic service's code base.
type synthMethod struct {
	class     string
	method    string
	signature string
	file      string
	startLine int64
	native    bool
}

// methodTable backs the workload's method resolver. Method handles are
// one-based indices into this table.
var methodTable = []synthMethod{
	{"java/lang/Thread", "run", "()V", "Thread.java", 832, false},
	{"java/util/concurrent/ThreadPoolExecutor$Worker", "run", "()V",
		"ThreadPoolExecutor.java", 628, false},
	{"com/example/store/http/Dispatcher", "dispatch",
		"(Lcom/example/store/http/Request;)V", "Dispatcher.java", 41, false},
	{"com/example/store/http/Dispatcher", "decode",
		"(Ljava/nio/ByteBuffer;)Lcom/example/store/http/Request;",
		"Dispatcher.java", 88, false},
	{"com/example/store/order/OrderService", "place",
		"(Lcom/example/store/order/Order;)V", "OrderService.java", 52, false},
	{"com/example/store/order/OrderService", "validate",
		"(Lcom/example/store/order/Order;)Z", "OrderService.java", 101, false},
	{"com/example/store/db/ConnectionPool", "acquire",
		"(J)Lcom/example/store/db/Connection;", "ConnectionPool.java", 63, false},
	{"com/example/store/db/Query", "execute",
		"(Ljava/lang/String;[Ljava/lang/Object;)Lcom/example/store/db/ResultSet;",
		"Query.java", 148, false},
	{"com/example/store/cache/ShardedCache", "get",
		"(Ljava/lang/String;)Ljava/lang/Object;", "ShardedCache.java", 77, false},
	{"com/example/store/cache/ShardedCache", "rebalance", "()V",
		"ShardedCache.java", 210, false},
	{"com/example/store/json/Codec", "encode", "(Ljava/lang/Object;)[B",
		"Codec.java", 33, false},
	{"java/lang/String", "intern", "()Ljava/lang/String;", "String.java", 0, true},
}

// callPaths enumerates the service's hot call chains as method handles, leaf
// frame first. Every chain bottoms out in the executor and thread runners so
// merged stacks share a common root.
var callPaths = [][]jvmpf.MethodID{
	{4, 3, 2, 1},
	{6, 5, 3, 2, 1},
	{8, 5, 3, 2, 1},
	{7, 8, 5, 3, 2, 1},
	{9, 5, 3, 2, 1},
	{11, 3, 2, 1},
	{10, 2, 1},
	{12, 11, 3, 2, 1},
}

var pathWeights = []int{4, 3, 3, 2, 3, 2, 1, 3}

// bucketSizes are the allocation size classes of the synthetic heap
// workload. The matching label and the record metric use the same value, so
// deduplicated heap samples keep an exact per-bucket average size.
var bucketSizes = []int64{16, 24, 32, 48, 64, 128, 256, 1024, 4096, 16384,
	65536, 1048576}

var bucketWeights = []int{5, 4, 4, 3, 3, 3, 2, 2, 2, 1, 1, 1}

// Indices into stubTable.
const (
	stubMachinery = iota
	stubCallStub
	stubInterpreter
	stubMonitorEnter
)

// synthStub is one native code range of the synthetic VM.
type synthStub struct {
	start, end jvmpf.Address
	name       string
	file       string
}

var stubTable = []synthStub{
	{0x7f6b40001000, 0x7f6b40002000, "AsyncGetCallTrace", "forte.cpp"},
	{0x7f6b40002000, 0x7f6b40003000, "_ZN12StubRoutines9call_stubEv",
		"stubGenerator_x86_64.cpp"},
	{0x7f6b40003000, 0x7f6b40004000, "Interpreter", ""},
	{0x7f6b40004000, 0x7f6b40005000, "_ZN18ObjectSynchronizer5enterEv",
		"synchronizer.cpp"},
}

// registerStubs loads the synthetic VM stub ranges into the cache.
func registerStubs(cache *framecache.Cache) {
	for _, s := range stubTable {
		cache.Register(s.start, s.end, s.name, s.file)
	}
}

// tableResolver resolves method handles against methodTable.
type tableResolver struct{}

func (tableResolver) ResolveMethod(id jvmpf.MethodID) (jvmpf.MethodInfo, error) {
	idx := int(id) - 1
	if idx < 0 || idx >= len(methodTable) {
		return jvmpf.MethodInfo{}, fmt.Errorf("unknown method handle %#x", uint64(id))
	}
	m := methodTable[idx]
	return jvmpf.MethodInfo{
		ClassName:  m.class,
		MethodName: jvmpf.FormatMethodSignature("", m.method, m.signature),
		FileName:   m.file,
		StartLine:  m.startLine,
		Native:     m.native,
	}, nil
}

// rngReader adapts the workload RNG to io.Reader so request IDs come from
// the same seeded stream as everything else.
type rngReader struct {
	rng *rand.Rand
}

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint64())
	}
	return len(p), nil
}

// workload synthesizes the stack records of one collection window. Each
// profile kind gets its own instance so generation stays deterministic for a
// given seed no matter which kinds run, or in what order.
type workload struct {
	rng *rand.Rand

	// ctxLabels pairs a request ID with the worker thread that served it.
	ctxLabels [][]jvmpf.Label
	// heapLabels carries one allocation size label per bucket.
	heapLabels [][]jvmpf.Label
}

func newWorkload(seed uint64, kind string) *workload {
	w := &workload{rng: rand.New(rand.NewPCG(seed, xxh3.HashString(kind)))}

	reader := rngReader{rng: w.rng}
	for i := range requestPoolSize {
		id := uuid.Must(uuid.NewRandomFromReader(reader)).String()
		thread := fmt.Sprintf("http-nio-8080-exec-%d", i%workerThreads+1)
		w.ctxLabels = append(w.ctxLabels, []jvmpf.Label{
			jvmpf.StringLabel("request", id),
			jvmpf.StringLabel("thread", thread),
		})
	}
	for _, size := range bucketSizes {
		w.heapLabels = append(w.heapLabels, []jvmpf.Label{
			jvmpf.NumericLabel("bytes", size, "bytes"),
		})
	}
	return w
}

// cpuRecords synthesizes one window of sampler ticks. Each record is one
// kept tick worth a fixed period of CPU time, topped by VM machinery or JIT
// stub frames often enough to exercise the skip scan and native
// symbolization.
func (w *workload) cpuRecords(n int) []jvmpf.ProfileStackTrace {
	records := make([]jvmpf.ProfileStackTrace, 0, n)
	for range n {
		frames := make([]jvmpf.CallFrame, 0, 8)
		if w.rng.IntN(8) == 0 {
			frames = append(frames, w.stubFrame(stubMachinery))
		}
		if w.rng.IntN(4) == 0 {
			frames = append(frames, w.stubFrame(stubCallStub+w.rng.IntN(2)))
		} else if w.rng.IntN(16) == 0 {
			// An unloaded code blob: forces the unknown-native sentinel.
			frames = append(frames, jvmpf.NativeFrame(w.unknownPC()))
		}
		frames = w.appendJavaFrames(frames)

		records = append(records, jvmpf.ProfileStackTrace{
			MetricValue: cpuPeriodNanos,
			TraceAndLabels: &jvmpf.TraceAndLabels{
				Trace:  jvmpf.CallTrace{Frames: frames},
				Labels: w.requestContext(),
			},
		})
	}
	return records
}

// heapRecords synthesizes one window of sampled live allocations. Records
// stay pure Java; the metric value is the allocation size class.
func (w *workload) heapRecords(n int) []jvmpf.ProfileStackTrace {
	records := make([]jvmpf.ProfileStackTrace, 0, n)
	for range n {
		bucket := w.pickWeighted(bucketWeights)
		frames := w.appendJavaFrames(make([]jvmpf.CallFrame, 0, 6))

		records = append(records, jvmpf.ProfileStackTrace{
			MetricValue: bucketSizes[bucket],
			TraceAndLabels: &jvmpf.TraceAndLabels{
				Trace:  jvmpf.CallTrace{Frames: frames},
				Labels: w.heapLabels[bucket],
			},
		})
	}
	return records
}

// contentionRecords synthesizes one window of monitor contention events with
// explicit occurrence counts. The metric value is the total blocked time in
// microseconds across the counted events.
func (w *workload) contentionRecords(n int) ([]jvmpf.ProfileStackTrace, []int32) {
	records := make([]jvmpf.ProfileStackTrace, 0, n)
	counts := make([]int32, 0, n)
	for range n {
		frames := make([]jvmpf.CallFrame, 0, 8)
		if w.rng.IntN(2) == 0 {
			frames = append(frames, w.stubFrame(stubMonitorEnter))
		}
		frames = w.appendJavaFrames(frames)

		count := int32(1 + w.rng.IntN(3))
		delay := int64(count) * (50 + w.rng.Int64N(4950))
		records = append(records, jvmpf.ProfileStackTrace{
			MetricValue: delay,
			TraceAndLabels: &jvmpf.TraceAndLabels{
				Trace:  jvmpf.CallTrace{Frames: frames},
				Labels: w.requestContext(),
			},
		})
		counts = append(counts, count)
	}
	return records, counts
}

// appendJavaFrames appends one weighted call chain, jittering the leaf line
// within a few statements so paths fan out into a handful of distinct
// samples.
func (w *workload) appendJavaFrames(frames []jvmpf.CallFrame) []jvmpf.CallFrame {
	if w.rng.IntN(64) == 0 {
		frames = append(frames, jvmpf.JavaFrame(staleMethodHandle, 1))
	}
	path := callPaths[w.pickWeighted(pathWeights)]
	for i, handle := range path {
		m := methodTable[handle-1]
		var line int64
		switch {
		case m.native:
			// AsyncGetCallTrace reports native methods without a line.
			line = -1
		case i == 0:
			line = m.startLine + int64(w.rng.IntN(4))*3
		default:
			line = m.startLine + int64(5+3*i)
		}
		frames = append(frames, jvmpf.JavaFrame(handle, jvmpf.LineNo(line)))
	}
	return frames
}

func (w *workload) requestContext() []jvmpf.Label {
	return w.ctxLabels[w.rng.IntN(len(w.ctxLabels))]
}

func (w *workload) stubFrame(i int) jvmpf.CallFrame {
	s := stubTable[i]
	return jvmpf.NativeFrame(s.start + jvmpf.Address(w.rng.Uint64N(uint64(s.end-s.start))))
}

func (w *workload) unknownPC() jvmpf.Address {
	return unknownCodeBase + jvmpf.Address(w.rng.Uint64N(0x10000))
}

// pickWeighted returns an index into weights, distributing picks
// proportionally.
func (w *workload) pickWeighted(weights []int) int {
	total := 0
	for _, wt := range weights {
		total += wt
	}
	n := w.rng.IntN(total)
	for i, wt := range weights {
		n -= wt
		if n < 0 {
			return i
		}
	}
	return len(weights) - 1
}
