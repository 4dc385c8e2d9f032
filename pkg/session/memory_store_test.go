package session_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/directauth/pkg/session"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	t.Run("empty store reports absence", func(t *testing.T) {
		value, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "value-1"))
		value, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "value-1", value)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "value-2"))
		value, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "value-2", value)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx))
		value, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, value)

		// Deleting again is a no-op.
		require.NoError(t, store.Delete(ctx))
	})
}

func TestNewRedisStore(t *testing.T) {
	_, err := session.NewRedisStore(nil, "key")
	assert.ErrorIs(t, err, session.ErrNilRedisClient)

	_, err = session.NewRedisStore(redis.NewClient(&redis.Options{}), "")
	assert.ErrorIs(t, err, session.ErrEmptyStorageKey)
}
