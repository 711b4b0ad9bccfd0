// Package storagetest holds behaviour checks shared by every tokenstore.Storage implementation.
package storagetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/tokenstore"
	"github.com/stretchr/testify/require"
)

// Run exercises s. s must start empty.
func Run(t *testing.T, s tokenstore.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty storage is anonymous", func(t *testing.T) {
		pair, err := tokenstore.LoadPair(ctx, s)
		require.NoError(t, err)
		require.True(t, pair.Empty())
	})

	t.Run("save and load pair", func(t *testing.T) {
		require.NoError(t, tokenstore.SavePair(ctx, s, token.Pair{AccessToken: "a1", RefreshToken: "r1"}))
		pair, err := tokenstore.LoadPair(ctx, s)
		require.NoError(t, err)
		require.Equal(t, token.Pair{AccessToken: "a1", RefreshToken: "r1"}, pair)
	})

	t.Run("empty refresh token keeps stored one", func(t *testing.T) {
		require.NoError(t, tokenstore.SavePair(ctx, s, token.Pair{AccessToken: "a2"}))
		pair, err := tokenstore.LoadPair(ctx, s)
		require.NoError(t, err)
		require.Equal(t, token.Pair{AccessToken: "a2", RefreshToken: "r1"}, pair)
	})

	t.Run("clear removes both", func(t *testing.T) {
		require.NoError(t, tokenstore.Clear(ctx, s))
		pair, err := tokenstore.LoadPair(ctx, s)
		require.NoError(t, err)
		require.True(t, pair.Empty())
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		require.NoError(t, tokenstore.Clear(ctx, s))
		require.NoError(t, tokenstore.Clear(ctx, s))
	})
}
