package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/elearn-web/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEnvVars_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "")
	t.Setenv("ENV", "")

	c := config.New()
	require.Equal(t, ":3000", c.GetPort())
	require.Equal(t, "http://localhost:4000", c.GetAPIURL())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, time.Minute, c.GetRenewInterval())
	require.Equal(t, 2*time.Minute, c.GetRefreshHorizon())
	require.Equal(t, config.StorageMemory, c.GetTokenStorage())
}

func TestEnvVars_Overrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://api.example.com/")
	t.Setenv("SESSION_RENEW_INTERVAL", "30s")
	t.Setenv("SESSION_REFRESH_HORIZON", "not-a-duration")
	t.Setenv("TOKEN_STORAGE", "redis")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	c := config.New()
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://api.example.com", c.GetAPIURL())
	require.Equal(t, 30*time.Second, c.GetRenewInterval())
	require.Equal(t, 2*time.Minute, c.GetRefreshHorizon())
	require.Equal(t, config.StorageRedis, c.GetTokenStorage())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://c.example.com"))
}
