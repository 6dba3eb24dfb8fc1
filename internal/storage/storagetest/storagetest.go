// Package storagetest holds the behavioural checks every storage.Storage
// backend must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/storage"
)

// Run exercises the storage contract against the store returned by newStore.
// advance moves the backend's clock forward; it is used for expiry checks.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage, advance func(d time.Duration)) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "auth", []byte(`{"token":"t"}`), 0))

		got, err := s.Get(ctx, "auth")
		require.NoError(t, err)
		assert.Equal(t, `{"token":"t"}`, string(got))
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "email", []byte("a@example.com"), 0))
		require.NoError(t, s.Set(ctx, "email", []byte("b@example.com"), 0))

		got, err := s.Get(ctx, "email")
		require.NoError(t, err)
		assert.Equal(t, "b@example.com", string(got))
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "auth", []byte("x"), 0))
		require.NoError(t, s.Delete(ctx, "auth"))

		_, err := s.Get(ctx, "auth")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, s.Delete(ctx, "auth"), "deleting an absent key is not an error")
	})

	t.Run("ttl expiry", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "auth", []byte("x"), time.Hour))

		_, err := s.Get(ctx, "auth")
		require.NoError(t, err)

		advance(2 * time.Hour)
		_, err = s.Get(ctx, "auth")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
