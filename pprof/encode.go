// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "github.com/openprofiling/jvm-profiler/pprof"

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/pprof/profile"
	"github.com/klauspost/compress/gzip"
)

// gzipPool recycles compressors across Encode calls.
var gzipPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	},
}

// Encode writes p to w as gzip-compressed pprof bytes, the standard on-disk
// and on-wire representation of profiles.
func Encode(w io.Writer, p *profile.Profile) error {
	gz := gzipPool.Get().(*gzip.Writer)
	defer gzipPool.Put(gz)
	gz.Reset(w)

	if err := p.WriteUncompressed(gz); err != nil {
		return fmt.Errorf("serializing profile: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compressing profile: %w", err)
	}
	return nil
}
