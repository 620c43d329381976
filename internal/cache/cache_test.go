package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/syllogos/internal/model"
)

func TestCacheKey(t *testing.T) {
	k := CacheKey("10.1000/xyz123")
	assert.True(t, strings.HasPrefix(k, KeyPrefix))
	assert.Len(t, k, len(KeyPrefix)+64)
	assert.Equal(t, k, CacheKey("10.1000/xyz123"))
	assert.NotEqual(t, k, CacheKey("10.1000/xyz124"))
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	for backend, want := range map[string]any{
		"memory":  &MemoryCache{},
		"disk":    &DiskCache{},
		"":        &LayeredCache{},
		"Layered": &LayeredCache{},
		"redis":   &RedisCache{},
	} {
		c, err := New(model.CacheConfig{Backend: backend, Dir: dir})
		require.NoError(t, err, backend)
		assert.IsType(t, want, c, backend)
	}

	_, err := New(model.CacheConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour, time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok, "entry should expire")

	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len())
}

func TestDiskCache(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	c := NewDiskCache(dir, time.Hour)

	require.NoError(t, c.Set(ctx, CacheKey("p"), []byte(`{"final":true}`), 0))
	v, ok := c.Get(ctx, CacheKey("p"))
	require.True(t, ok)
	assert.JSONEq(t, `{"final":true}`, string(v))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ":")
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".cache"))

	assert.Error(t, c.Set(ctx, "bad", []byte("not json"), 0))

	require.NoError(t, c.Delete(ctx, CacheKey("p")))
	require.NoError(t, c.Delete(ctx, CacheKey("p")), "deleting a missing entry is not an error")
	_, ok = c.Get(ctx, CacheKey("p"))
	assert.False(t, ok)
}

func TestDiskCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte(`1`), time.Minute))
	_, ok := c.Get(ctx, "k")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	_, err := os.Stat(c.path("k"))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed")
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewLayeredCache(time.Hour, dir, time.Hour)
	require.NoError(t, first.Set(ctx, "k", []byte(`"v"`), 0))

	// A fresh process only has the disk layer
	second := NewLayeredCache(time.Hour, dir, time.Hour)
	mem := second.memory.(*MemoryCache)
	assert.Zero(t, mem.Len())

	v, ok := second.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, `"v"`, string(v))
	assert.Equal(t, 1, mem.Len())

	require.NoError(t, second.Clear(ctx))
	_, ok = second.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "", 0, time.Hour)
	defer c.Close()

	require.NoError(t, c.Ping(ctx))

	key := CacheKey("p")
	require.NoError(t, c.Set(ctx, key, []byte(`{"final":true}`), 0))
	v, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, `{"final":true}`, string(v))
	assert.Equal(t, time.Hour, mr.TTL(key))

	require.NoError(t, mr.Set("unrelated", "x"))
	require.NoError(t, c.Set(ctx, CacheKey("q"), []byte(`2`), time.Minute))
	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists(key))
	assert.False(t, mr.Exists(CacheKey("q")))
	assert.True(t, mr.Exists("unrelated"), "Clear must only touch namespaced keys")

	require.NoError(t, c.Delete(ctx, key))

	mr.Close()
	_, ok = c.Get(ctx, CacheKey("q"))
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))
}
