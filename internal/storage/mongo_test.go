package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestMongo(t *testing.T) (*MongoStore, func()) {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoStore(db)
	require.NoError(t, store.CreateIndexes(ctx))

	cleanup := func() {
		if err := db.Client().Disconnect(ctx); err != nil {
			t.Logf("failed to disconnect: %s", err)
		}
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func TestMongoStore_GetMiss(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()

	v, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, v)
}

func TestMongoStore_SetOverwriteRemove(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "myshop_cart", []byte(`[]`)))
	require.NoError(t, store.Set(ctx, "myshop_cart", []byte(`[{"productId":"1"}]`)))

	v, err := store.Get(ctx, "myshop_cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"productId":"1"}]`, string(v))

	count, err := store.collection.CountDocuments(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.Remove(ctx, "myshop_cart"))
	_, err = store.Get(ctx, "myshop_cart")
	assert.ErrorIs(t, err, ErrNotFound)
}
