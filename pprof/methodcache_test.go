// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodCacheMemoizesSuccess(t *testing.T) {
	resolver := newFakeResolver(testMethods())
	mc := newMethodCache(resolver)

	info, ok := mc.resolve(1)
	require.True(t, ok)
	assert.Equal(t, "com/example/Server", info.ClassName)

	_, ok = mc.resolve(1)
	require.True(t, ok)
	assert.Equal(t, 1, resolver.calls[1])
	assert.Zero(t, mc.failures)
}

func TestMethodCacheMemoizesFailure(t *testing.T) {
	resolver := newFakeResolver(nil)
	mc := newMethodCache(resolver)

	_, ok := mc.resolve(42)
	assert.False(t, ok)
	_, ok = mc.resolve(42)
	assert.False(t, ok)

	// The stale handle reached the resolver once and counts once.
	assert.Equal(t, 1, resolver.calls[42])
	assert.Equal(t, int64(1), mc.failures)
}

func TestMethodCacheNilResolver(t *testing.T) {
	mc := newMethodCache(nil)

	_, ok := mc.resolve(7)
	assert.False(t, ok)
	// Degrading without a resolver is expected operation, not a failure.
	assert.Zero(t, mc.failures)
}
