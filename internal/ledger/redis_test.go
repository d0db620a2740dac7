package ledger

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	db := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = db.Close() })

	return NewRedisStore(db, ""), mr
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, map[string]string{"a": "2025-06-15", "b": "2025-06-14"}))
	require.NoError(t, store.Save(ctx, map[string]string{"b": "2025-06-15"}))

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "2025-06-15", "b": "2025-06-15"}, entries)
	assert.Equal(t, "2025-06-15", mr.HGet(DefaultKey, "b"))
}

func TestRedisStore_LoadEmpty(t *testing.T) {
	store, _ := setupRedisStore(t)

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := setupRedisStore(t)
	mr.Close()

	_, err := store.Load(context.Background())
	assert.Error(t, err)

	l := New(store, newNoopLogger())
	l.Begin(context.Background())
	l.RecordAlert("a", "2025-06-15")
	assert.Error(t, l.Flush(context.Background()))
}
