package navigation_test

import (
	"testing"

	"github.com/jrsteele09/elearn-web/navigation"
	"github.com/stretchr/testify/require"
)

func TestIsAuthPage(t *testing.T) {
	for _, p := range []string{
		"/login", "/login/", "/login?next=/courses", "/register", "/verify-otp",
		"/forgot-password", "/reset-password/abc123", "/admin/login", "/admin/forgot-password",
	} {
		require.True(t, navigation.IsAuthPage(p), p)
	}
	for _, p := range []string{
		"", "/", "/dashboard", "/courses/login-basics", "/admin", "/admin/users", "/loginx", "/blog/register-now",
	} {
		require.False(t, navigation.IsAuthPage(p), p)
	}
}

func TestLoginPathFor(t *testing.T) {
	require.Equal(t, "/admin/login", navigation.LoginPathFor("/admin"))
	require.Equal(t, "/admin/login", navigation.LoginPathFor("/admin/finance?tab=payouts"))
	require.Equal(t, "/login", navigation.LoginPathFor("/dashboard"))
	require.Equal(t, "/login", navigation.LoginPathFor("/administrator"))
	require.Equal(t, "/login", navigation.LoginPathFor(""))
}

func TestStatic(t *testing.T) {
	nav := navigation.NewStatic("/dashboard")
	require.Equal(t, "/dashboard", nav.CurrentPath())

	nav.Redirect("/login")
	require.Equal(t, "/login", nav.CurrentPath())
	require.Equal(t, []string{"/login"}, nav.Redirects())
}
