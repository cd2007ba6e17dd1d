// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// profilegen fabricates a JVM-shaped service workload and runs it through
// the profile builders, producing pprof or OTLP profile documents. The
// output exercises the whole pipeline (deduplication, the skip scan, native
// symbolization, sampling corrections) and is handy for sizing collectors
// and feeding viewers without a live VM.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/pprof/profile"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/collector/pdata/pprofile/pprofileotlp"
	"golang.org/x/sync/errgroup"

	"github.com/openprofiling/jvm-profiler/framecache"
	"github.com/openprofiling/jvm-profiler/otlp"
	"github.com/openprofiling/jvm-profiler/pprof"
	"github.com/openprofiling/jvm-profiler/vc"
)

const (
	agentName = "jvm-profiler"

	// profileDuration is the collection window the synthetic workload
	// pretends to cover.
	profileDuration = 10 * time.Second
)

func main() {
	if err := tryMain(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func tryMain() error {
	args, err := parseArgs()
	if err != nil {
		return fmt.Errorf("failed to parse arguments: %v", err)
	}

	if args.version {
		fmt.Printf("%s (revision %s, build timestamp %s)\n",
			vc.Version(), vc.Revision(), vc.BuildTimestamp())
		return nil
	}

	if err = args.SanityCheck(); err != nil {
		return err
	}

	if err = os.MkdirAll(args.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	cache, err := framecache.New(pprof.Symbols)
	if err != nil {
		return err
	}
	registerStubs(cache)

	hostname, _ := os.Hostname()
	res := otlp.Resource{
		ServiceName:    agentName,
		ServiceVersion: vc.Version(),
		HostName:       hostname,
	}

	kinds := []string{args.kind}
	if args.kind == "all" {
		kinds = []string{"cpu", "heap", "contention"}
	}

	g := errgroup.Group{}
	for _, kind := range kinds {
		g.Go(func() error {
			return generateKind(args, kind, cache, res)
		})
	}
	return g.Wait()
}

// buildProfile synthesizes one collection window of the given kind and runs
// it through the matching builder.
func buildProfile(kind string, traces int, seed uint64,
	cache *framecache.Cache) (*profile.Profile, error) {
	w := newWorkload(seed, kind)

	cfg := pprof.Config{
		Duration:       profileDuration,
		MethodResolver: tableResolver{},
		FrameCache:     cache,
	}

	switch kind {
	case "cpu":
		cfg.SamplingRate = cpuSamplingRate
		cfg.SkipTopNativeFrames = true
		cfg.SkipFrames = []string{"AsyncGetCallTrace"}
		b, err := pprof.NewCPU(cfg)
		if err != nil {
			return nil, err
		}
		b.AddTraces(w.cpuRecords(traces))
		return b.Build(), nil

	case "heap":
		cfg.SamplingRate = heapSamplingRate
		b, err := pprof.NewHeap(cfg)
		if err != nil {
			return nil, err
		}
		b.AddTraces(w.heapRecords(traces))
		b.AddArtificialTrace("GC", int32(1+w.rng.IntN(4)), heapSamplingRate)
		return b.Build(), nil

	case "contention":
		cfg.SamplingRate = contentionSamplingRate
		cfg.SkipTopNativeFrames = true
		cfg.SkipFrames = []string{"AsyncGetCallTrace"}
		b, err := pprof.NewContention(cfg)
		if err != nil {
			return nil, err
		}
		records, counts := w.contentionRecords(traces)
		if err = b.AddTracesWithCounts(records, counts); err != nil {
			return nil, err
		}
		return b.Build(), nil
	}
	return nil, fmt.Errorf("unknown profile kind %q", kind)
}

func generateKind(args *arguments, kind string, cache *framecache.Cache,
	res otlp.Resource) error {
	p, err := buildProfile(kind, args.traces, args.seed, cache)
	if err != nil {
		return err
	}

	switch args.format {
	case "pprof":
		path := filepath.Join(args.outputDir, kind+".pb.gz")
		if err = writePprof(path, p); err != nil {
			return err
		}
		log.Infof("Wrote %s: %d samples, %d locations, %d functions",
			path, len(p.Sample), len(p.Location), len(p.Function))
		return nil

	case "otlp":
		profiles, err := otlp.Generate(res, agentName, vc.Version(), p)
		if err != nil {
			return err
		}
		data, err := pprofileotlp.NewExportRequestFromProfiles(profiles).MarshalProto()
		if err != nil {
			return fmt.Errorf("failed to marshal OTLP request: %w", err)
		}
		path := filepath.Join(args.outputDir,
			kind+".otlp.pb"+compressExt(args.compress))
		if err = writePayload(path, data, args.compress); err != nil {
			return err
		}
		log.Infof("Wrote %s: %d samples, %d bytes marshaled",
			path, len(p.Sample), len(data))
		return nil
	}
	return fmt.Errorf("unknown output format %q", args.format)
}

func writePprof(path string, p *profile.Profile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err = pprof.Encode(f, p); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// writePayload writes data to path, optionally wrapped in a compressor.
func writePayload(path string, data []byte, compression string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	switch compression {
	case "gzip":
		enc, err := gzip.NewWriterLevel(f, gzip.BestSpeed)
		if err != nil {
			return err
		}
		if _, err = enc.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return enc.Close()
	case "zstd":
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if _, err = enc.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return enc.Close()
	default:
		if _, err = f.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}
}

func compressExt(compression string) string {
	switch compression {
	case "gzip":
		return ".gz"
	case "zstd":
		return ".zst"
	}
	return ""
}
