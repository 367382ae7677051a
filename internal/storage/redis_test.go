package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, opts...)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisGet_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set("cart-sync:myshop_cart", `[{"productId":"1"}]`))

	v, err := store.Get(context.Background(), "myshop_cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"productId":"1"}]`, string(v))
}

func TestRedisGet_Miss(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	v, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, v)
}

func TestRedisSet_NoTTLByDefault(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, store.Set(context.Background(), "k", []byte("[]")))

	got, err := mr.Get("cart-sync:k")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
	assert.Equal(t, time.Duration(0), mr.TTL("cart-sync:k"))
}

func TestRedisSet_TTLWithJitter(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, WithTTL(time.Hour))
	defer cleanup()

	require.NoError(t, store.Set(context.Background(), "k", []byte("[]")))

	ttl := mr.TTL("cart-sync:k")
	assert.GreaterOrEqual(t, ttl, time.Hour)
	assert.Less(t, ttl, time.Hour+5*time.Minute)
}

func TestRedisRemove(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, WithKeyPrefix(""))
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("[]")))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, store.Remove(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestRedis_ServerDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	mr.Close()

	ctx := context.Background()
	_, err := store.Get(ctx, "k")
	require.ErrorContains(t, err, "redis get failed")
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorContains(t, store.Set(ctx, "k", []byte("[]")), "redis set failed")
	assert.ErrorContains(t, store.Remove(ctx, "k"), "redis delete failed")
}

func TestRedis_SharedBetweenStores(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	b := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", []byte("first")))
	require.NoError(t, b.Set(ctx, "k", []byte("second")))

	v, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", string(v))
}
