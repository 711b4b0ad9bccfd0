package main

import (
	"testing"

	"github.com/jrsteele09/elearn-web/internal/devapi"
	"github.com/jrsteele09/elearn-web/users"
	"github.com/stretchr/testify/require"
)

func TestSeedUser(t *testing.T) {
	api := devapi.New()
	t.Cleanup(api.Close)

	user, err := seedUser(api, "Ada:ada@example.com:Secret123!:ADMIN")
	require.NoError(t, err)
	require.Equal(t, users.RoleAdmin, user.Role)
	require.Equal(t, "ada@example.com", user.Email)

	user, err = seedUser(api, "Bob:bob@example.com:Secret123!")
	require.NoError(t, err)
	require.Equal(t, users.RoleStudent, user.Role)

	_, err = seedUser(api, "missing-fields")
	require.Error(t, err)

	_, err = seedUser(api, "Eve:eve@example.com:Secret123!:ROOT")
	require.Error(t, err)
}
