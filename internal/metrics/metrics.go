package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "elearn_web_logins_total",
		Help: "Login attempts by kind (user, admin, otp) and result.",
	}, []string{"kind", "result"})

	TokenRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "elearn_web_token_refreshes_total",
		Help: "Background access token refreshes by result.",
	}, []string{"result"})

	SessionsInvalidatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "elearn_web_sessions_invalidated_total",
		Help: "Sessions cleared by reason (logout, refresh_failed, identity_failed, access_denied).",
	}, []string{"reason"})

	ActiveSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "elearn_web_active_sessions",
		Help: "Browser session stores currently held by the server.",
	})

	ProxiedRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "elearn_web_proxied_requests_total",
		Help: "Requests relayed to the backend origin by status class.",
	}, []string{"class"})
)

// Register registers the collectors with reg. Call once at startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register metrics")
		return
	}
	for _, c := range []prometheus.Collector{
		LoginsTotal,
		TokenRefreshesTotal,
		SessionsInvalidatedTotal,
		ActiveSessionsGauge,
		ProxiedRequestsTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
}

// StatusClass buckets an HTTP status code as 2xx, 3xx, 4xx or 5xx.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
