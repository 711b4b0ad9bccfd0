package config

import "time"

type SessionConfig interface {
	GetRenewInterval() time.Duration
	GetRefreshHorizon() time.Duration
	GetSessionIdleTTL() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRenewInterval is how often an active session checks its access token.
func (Session) GetRenewInterval() time.Duration {
	return GetDuration("SESSION_RENEW_INTERVAL", time.Minute)
}

// GetRefreshHorizon is how close to expiry an access token must be before it is refreshed.
func (Session) GetRefreshHorizon() time.Duration {
	return GetDuration("SESSION_REFRESH_HORIZON", 2*time.Minute)
}

// GetSessionIdleTTL is how long a browser's session store is kept without requests.
func (Session) GetSessionIdleTTL() time.Duration {
	return GetDuration("SESSION_IDLE_TTL", 24*time.Hour)
}
