// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3"
)

const (
	defaultArgOutputDir = ""
	defaultArgKind      = "all"
	defaultArgTraces    = 2048
	defaultArgSeed      = 1
	defaultArgFormat    = "pprof"
	defaultArgCompress  = ""
)

// Help strings for command line arguments
var (
	outputDirHelp = "Directory to write the generated profile documents to."
	kindHelp      = "Profile kind to generate (cpu, heap, contention or all)."
	tracesHelp    = "Number of stack records to synthesize per profile."
	seedHelp      = "Seed for the workload generator. The same seed reproduces " +
		"the same documents, request IDs included."
	formatHelp   = "Output format (pprof or otlp)."
	compressHelp = "Compression for OTLP payloads (gzip or zstd). " +
		"pprof output is always gzipped."
	versionHelp = "Show version."
)

type arguments struct {
	outputDir string
	kind      string
	traces    int
	seed      uint64
	format    string
	compress  string
	version   bool

	fs *flag.FlagSet
}

func (args *arguments) SanityCheck() error {
	if args.outputDir == "" {
		return errors.New("no output directory specified")
	}

	switch args.kind {
	case "cpu", "heap", "contention", "all":
	default:
		return fmt.Errorf("unknown profile kind %q", args.kind)
	}

	switch args.format {
	case "pprof", "otlp":
	default:
		return fmt.Errorf("unknown output format %q", args.format)
	}

	switch args.compress {
	case "", "gzip", "zstd":
	default:
		return fmt.Errorf("unknown compression %q", args.compress)
	}
	if args.compress != "" && args.format != "otlp" {
		return errors.New("compression applies to OTLP output only")
	}

	if args.traces <= 0 {
		return errors.New("trace count must be positive")
	}

	return nil
}

func parseArgs() (*arguments, error) {
	var args arguments

	fs := flag.NewFlagSet("profilegen", flag.ExitOnError)

	fs.StringVar(&args.compress, "compress", defaultArgCompress, compressHelp)
	fs.StringVar(&args.format, "format", defaultArgFormat, formatHelp)
	fs.StringVar(&args.kind, "kind", defaultArgKind, kindHelp)
	fs.StringVar(&args.outputDir, "output-dir", defaultArgOutputDir, outputDirHelp)
	fs.Uint64Var(&args.seed, "seed", defaultArgSeed, seedHelp)
	fs.IntVar(&args.traces, "traces", defaultArgTraces, tracesHelp)
	fs.BoolVar(&args.version, "version", false, versionHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}

	args.fs = fs

	return &args, ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PROFILEGEN"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
}
