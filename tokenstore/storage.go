// Package tokenstore persists a session's access and refresh tokens under two string keys.
package tokenstore

import (
	"context"
	"fmt"

	"github.com/jrsteele09/elearn-web/token"
)

const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// Storage is a persistent string key-value store. Multi-key Set and Remove are atomic:
// a concurrent reader sees all of the change or none of it.
type Storage interface {
	// Get returns "" with a nil error when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}

// LoadPair reads both tokens. Both empty means anonymous.
func LoadPair(ctx context.Context, s Storage) (token.Pair, error) {
	access, err := s.Get(ctx, AccessTokenKey)
	if err != nil {
		return token.Pair{}, fmt.Errorf("failed to read access token: %w", err)
	}
	refresh, err := s.Get(ctx, RefreshTokenKey)
	if err != nil {
		return token.Pair{}, fmt.Errorf("failed to read refresh token: %w", err)
	}
	return token.Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// SavePair writes the access token and, when present, the refresh token.
// An empty refresh token leaves the stored one untouched.
func SavePair(ctx context.Context, s Storage, pair token.Pair) error {
	values := map[string]string{AccessTokenKey: pair.AccessToken}
	if pair.RefreshToken != "" {
		values[RefreshTokenKey] = pair.RefreshToken
	}
	if err := s.Set(ctx, values); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// Clear removes both tokens in one operation.
func Clear(ctx context.Context, s Storage) error {
	if err := s.Remove(ctx, AccessTokenKey, RefreshTokenKey); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}
