package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/rentsoft/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "zero", []byte("v"), 0))
	assert.False(t, mr.Exists("zero"))
}

func TestRedisStoreLock(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	token, ok, err := store.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = store.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "lock", "other-token"))
	assert.True(t, mr.Exists("lock"))

	require.NoError(t, store.Release(ctx, "lock", token))
	assert.False(t, mr.Exists("lock"))

	_, _, err = store.TryLock(ctx, "", time.Minute)
	assert.ErrorIs(t, err, errLockKeyEmpty)
	_, _, err = store.TryLock(ctx, "lock", 0)
	assert.ErrorIs(t, err, errLockTTL)
}

func TestMemoryStoreLock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMemoryStore(func() time.Time { return now })

	token, ok, err := store.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, _ = store.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = store.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok, "expired lock can be taken again")

	require.NoError(t, store.Release(ctx, "lock", token))
	_, ok, _ = store.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok, "stale token does not release the new holder")
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(nil, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	mr := miniredis.RunT(t)
	store, err = NewStore(nil, config.Config{RedisAddr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)
}
