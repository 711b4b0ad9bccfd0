package refresh_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/token/refresh"
	refreshrepofake "github.com/jrsteele09/elearn-web/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateValidateRotate(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)

	tok, err := m.Create("user-1")
	require.NoError(t, err)
	require.Len(t, tok, 64)

	rt, err := m.Validate(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", rt.UserID)

	_, next, err := m.Rotate(tok)
	require.NoError(t, err)
	require.NotEqual(t, tok, next)

	_, err = m.Validate(tok)
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	_, err = m.Validate(next)
	require.NoError(t, err)
}

func TestManager_Expired(t *testing.T) {
	start := time.Now()
	refresh.NowTimeFunc = func() time.Time { return start }
	t.Cleanup(func() { refresh.NowTimeFunc = time.Now })

	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Minute)
	tok, err := m.Create("user-1")
	require.NoError(t, err)

	refresh.NowTimeFunc = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = m.Validate(tok)
	require.ErrorIs(t, err, errors.ErrTokenExpired)

	_, err = m.Validate(tok)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestFakeRepo_DeleteByUserID(t *testing.T) {
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	m := refresh.NewManager(repo, time.Hour)

	a, err := m.Create("user-1")
	require.NoError(t, err)
	b, err := m.Create("user-2")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByUserID("user-1"))
	_, err = repo.Get(a)
	require.Error(t, err)
	_, err = repo.Get(b)
	require.NoError(t, err)
}
