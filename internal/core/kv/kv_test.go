package kv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colonyops/tasksync/internal/core/kv"
	"github.com/colonyops/tasksync/internal/data/db"
	"github.com/colonyops/tasksync/internal/data/stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) kv.KV {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return stores.NewKVStore(database)
}

func TestBucket_SetAndGet(t *testing.T) {
	ctx := context.Background()
	b := kv.Scoped[string](newTestKV(t), "blob", 0)

	require.NoError(t, b.Set(ctx, "sha1", "hello"))

	got, err := b.Get(ctx, "sha1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestBucket_Miss(t *testing.T) {
	ctx := context.Background()
	b := kv.Scoped[string](newTestKV(t), "blob", 0)

	_, err := b.Get(ctx, "missing")
	require.ErrorIs(t, err, kv.ErrMiss)
}

func TestBucket_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTestKV(t)

	alpha := kv.Scoped[int](store, "alpha", 0)
	beta := kv.Scoped[int](store, "beta", 0)

	require.NoError(t, alpha.Set(ctx, "count", 10))
	require.NoError(t, beta.Set(ctx, "count", 20))

	a, err := alpha.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 10, a)

	b, err := beta.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 20, b)

	keys, err := alpha.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"count"}, keys)

	raw, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha:count", "beta:count"}, raw)
}

func TestBucket_Delete(t *testing.T) {
	ctx := context.Background()
	b := kv.Scoped[string](newTestKV(t), "ns", 0)

	require.NoError(t, b.Set(ctx, "key", "val"))
	require.NoError(t, b.Delete(ctx, "key"))

	_, err := b.Get(ctx, "key")
	require.ErrorIs(t, err, kv.ErrMiss)
}

func TestBucket_TTL(t *testing.T) {
	ctx := context.Background()
	b := kv.Scoped[string](newTestKV(t), "ttl", time.Millisecond)

	require.NoError(t, b.Set(ctx, "temp", "gone"))
	time.Sleep(5 * time.Millisecond)

	_, err := b.Get(ctx, "temp")
	require.ErrorIs(t, err, kv.ErrMiss)
}

func TestBucket_GetOrFetch(t *testing.T) {
	ctx := context.Background()
	b := kv.Scoped[string](newTestKV(t), "blob", time.Hour)

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "content", nil
	}

	got, err := b.GetOrFetch(ctx, "sha", fetch)
	require.NoError(t, err)
	assert.Equal(t, "content", got)

	got, err = b.GetOrFetch(ctx, "sha", fetch)
	require.NoError(t, err)
	assert.Equal(t, "content", got)
	assert.Equal(t, 1, calls)
}

func TestBucket_GetOrFetchErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	b := kv.Scoped[string](newTestKV(t), "blob", time.Hour)

	boom := errors.New("boom")
	_, err := b.GetOrFetch(ctx, "sha", func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	_, err = b.Get(ctx, "sha")
	require.ErrorIs(t, err, kv.ErrMiss)
}
