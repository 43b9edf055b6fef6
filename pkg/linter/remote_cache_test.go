package linter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xivanalysis/xivlint/pkg/jsast"
)

// setupRemoteCache starts a miniredis instance and connects a cache to it
func setupRemoteCache(t *testing.T, ttl time.Duration) (*RemoteCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache, err := NewRemoteCache(context.Background(), "redis://"+mr.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	return cache, mr
}

func TestNewRemoteCache_InvalidURL(t *testing.T) {
	_, err := NewRemoteCache(context.Background(), "invalid://url", 0)
	assert.ErrorContains(t, err, "invalid redis URL")
}

func TestNewRemoteCache_ConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRemoteCache(context.Background(), "redis://"+addr, 0)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestRemoteCache_GetSet(t *testing.T) {
	cache, mr := setupRemoteCache(t, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	want := LintResult{
		FilePath: "a.js",
		Violations: []Violation{{
			Rule:     "@xivanalysis/no-unused-dependencies",
			Severity: SeverityError,
			Category: CategoryDependencies,
			Message:  "Dependency 'foo' is unused",
			Position: jsast.Position{Line: 2, Column: 25, Offset: 34},
		}},
		ErrorCount: 1,
	}
	require.NoError(t, cache.Set(ctx, "k", want))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	assert.True(t, mr.Exists(remoteKeyPrefix+"k"))
	assert.Equal(t, time.Hour, mr.TTL(remoteKeyPrefix+"k"))
}

func TestRemoteCache_CorruptEntry(t *testing.T) {
	cache, mr := setupRemoteCache(t, 0)
	require.NoError(t, mr.Set(remoteKeyPrefix+"bad", "{not json"))

	_, ok, err := cache.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(remoteKeyPrefix+"bad"))
}

func TestLintEngine_RemoteCache(t *testing.T) {
	remote, _ := setupRemoteCache(t, 0)
	config := &Config{
		Plugins: []string{"test"},
		Rules:   map[string]interface{}{"test/no-this": "error"},
	}
	src := []byte("this.a\n")

	// First machine lints and shares
	first := newTestEngine(t, config, WithRemoteCache(remote))
	want, err := first.Lint(context.Background(), "a.js", src)
	require.NoError(t, err)
	require.Len(t, want.Violations, 1)

	// Second machine finds the result without linting
	second := NewLintEngine(config, WithRemoteCache(remote))
	second.Registry().Register(&panicRule{mockRule{name: "test/no-this"}})
	got, err := second.Lint(context.Background(), "a.js", src)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLintEngine_RemoteCacheUnavailable(t *testing.T) {
	remote, mr := setupRemoteCache(t, 0)
	mr.Close()

	engine := newTestEngine(t, &Config{
		Plugins: []string{"test"},
		Rules:   map[string]interface{}{"test/no-this": "error"},
	}, WithRemoteCache(remote))

	result, err := engine.Lint(context.Background(), "a.js", []byte("this.a\n"))
	require.NoError(t, err)
	assert.Len(t, result.Violations, 1)
}
