package redis_a_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/finops-console/internal/adapters/redis_adapter"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/test/helpers"
)

func newTestCache(t *testing.T) (*redis_a.Cache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis_a.NewCache(client, 5*time.Minute, helpers.TestLogger()), mr, client
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t)

	type summary struct {
		Credits string `json:"credits"`
		Failed  int    `json:"failed"`
	}

	t.Run("string", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "test:string", "value"))
		var got string
		require.NoError(t, cache.Get(ctx, "test:string", &got))
		assert.Equal(t, "value", got)
	})

	t.Run("struct", func(t *testing.T) {
		want := summary{Credits: "412.5", Failed: 20}
		require.NoError(t, cache.Set(ctx, "test:struct", want))
		var got summary
		require.NoError(t, cache.Get(ctx, "test:struct", &got))
		assert.Equal(t, want, got)
	})

	t.Run("slice", func(t *testing.T) {
		want := []string{"ETL_WH", "BI_WH"}
		require.NoError(t, cache.Set(ctx, "test:slice", want))
		var got []string
		require.NoError(t, cache.Get(ctx, "test:slice", &got))
		assert.Equal(t, want, got)
	})

	t.Run("unmarshalable_value", func(t *testing.T) {
		err := cache.Set(ctx, "test:chan", make(chan int))
		var cacheErr *redis_a.CacheError
		require.ErrorAs(t, err, &cacheErr)
		assert.Equal(t, "set", cacheErr.Op)
	})

	stats := cache.Stats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(3), stats.Sets)
}

func TestCache_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := newTestCache(t)

	require.NoError(t, cache.SetWithTTL(ctx, "ttl:test", "value", 100*time.Millisecond))

	var result string
	require.NoError(t, cache.Get(ctx, "ttl:test", &result))

	ttl, err := cache.TTL(ctx, "ttl:test")
	require.NoError(t, err)
	assert.Positive(t, ttl)

	mr.FastForward(200 * time.Millisecond)

	err = cache.Get(ctx, "ttl:test", &result)
	assert.ErrorIs(t, err, redis_a.ErrCacheMiss)
}

func TestCache_DeleteAndExists(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t)

	keys := []string{"del:1", "del:2", "del:3"}
	for _, key := range keys {
		require.NoError(t, cache.Set(ctx, key, "value"))
	}

	ok, err := cache.Exists(ctx, keys...)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, cache.Delete(ctx, keys[0]))
	ok, err = cache.Exists(ctx, keys...)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Delete(ctx))
}

func TestCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t)

	keysToDelete := []string{"dash:summary", "dash:top"}
	keysToKeep := []string{"job:1", "prefs:default:last_open_submenu"}

	for _, key := range append(keysToDelete, keysToKeep...) {
		require.NoError(t, cache.Set(ctx, key, "value"))
	}

	require.NoError(t, cache.DeletePattern(ctx, "dash:*"))

	for _, key := range keysToDelete {
		var result string
		assert.ErrorIs(t, cache.Get(ctx, key, &result), redis_a.ErrCacheMiss)
	}
	for _, key := range keysToKeep {
		var result string
		require.NoError(t, cache.Get(ctx, key, &result))
	}

	// no matches is not an error
	require.NoError(t, cache.DeletePattern(ctx, "nothing:*"))
}

func TestCache_GetOrSet(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t)

	fetchCount := 0
	fetch := func() (interface{}, error) {
		fetchCount++
		return map[string]int{"failed": 20}, nil
	}

	var first map[string]int
	require.NoError(t, cache.GetOrSet(ctx, "getorset:test", &first, fetch, time.Minute))
	assert.Equal(t, 20, first["failed"])

	var second map[string]int
	require.NoError(t, cache.GetOrSet(ctx, "getorset:test", &second, fetch, time.Minute))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetchCount)

	boom := errors.New("boom")
	var third string
	err := cache.GetOrSet(ctx, "getorset:other", &third, func() (interface{}, error) { return nil, boom }, time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestCache_SetNX(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t)

	ok, err := cache.SetNX(ctx, "setnx:test", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.SetNX(ctx, "setnx:test", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	var result string
	require.NoError(t, cache.Get(ctx, "setnx:test", &result))
	assert.Equal(t, "first", result)
}

func TestCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := newTestCache(t)
	mr.Close()

	assert.Error(t, cache.Ping(ctx))

	var result string
	err := cache.Get(ctx, "any", &result)
	require.Error(t, err)
	assert.NotErrorIs(t, err, redis_a.ErrCacheMiss)
}

func TestCache_BuildKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   redis_a.CacheKeyPrefix
		parts    []string
		expected string
	}{
		{name: "dashboard_key", prefix: redis_a.PrefixDashboard, parts: []string{"summary"}, expected: "dash:summary"},
		{name: "job_key", prefix: redis_a.PrefixJob, parts: []string{"abc"}, expected: "job:abc"},
		{name: "multi_part", prefix: redis_a.PrefixPrefs, parts: []string{"default", "last_open_submenu"}, expected: "prefs:default:last_open_submenu"},
		{name: "no_parts", prefix: redis_a.PrefixExport, parts: []string{}, expected: "export"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redis_a.BuildKey(tt.prefix, tt.parts...))
		})
	}
}

func TestPreferenceStore(t *testing.T) {
	ctx := context.Background()
	_, mr, client := newTestCache(t)
	store := redis_a.NewPreferenceStore(client, "")

	_, err := store.Get(ctx, ports.PrefLastOpenSubmenu)
	assert.ErrorIs(t, err, ports.ErrPreferenceNotSet)

	require.NoError(t, store.Set(ctx, ports.PrefLastOpenSubmenu, "recommendations"))

	got, err := store.Get(ctx, ports.PrefLastOpenSubmenu)
	require.NoError(t, err)
	assert.Equal(t, "recommendations", got)

	raw, err := mr.Get("prefs:default:last_open_submenu")
	require.NoError(t, err)
	assert.Equal(t, "recommendations", raw)
	assert.Zero(t, mr.TTL("prefs:default:last_open_submenu"))
}

func TestJobStore(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := newTestCache(t)
	store := redis_a.NewJobStore(cache, time.Hour)

	job := &ports.ExportJob{
		ID:        uuid.New(),
		View:      domain.ViewWarehouses,
		Format:    ports.FormatCSV,
		Status:    ports.JobQueued,
		CreatedAt: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveJob(ctx, job))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.View, got.View)
	assert.Equal(t, ports.JobQueued, got.Status)
	assert.True(t, job.CreatedAt.Equal(got.CreatedAt))

	_, err = store.GetJob(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mr.FastForward(2 * time.Hour)
	_, err = store.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
