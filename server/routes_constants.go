package server

// Route path constants
const (
	// Session endpoints used by the browser
	RouteAuthLogin       = "/auth/login"
	RouteAuthRegister    = "/auth/register"
	RouteAuthVerifyOTP   = "/auth/verify-otp"
	RouteAuthResendOTP   = "/auth/resend-otp"
	RouteAuthLogout      = "/auth/logout"
	RouteAuthRefreshUser = "/auth/refresh-user"
	RouteAuthSession     = "/auth/session"

	// Admin
	RouteAdminAuthLogin = "/admin/auth/login"

	// Pass-through to the backend origin
	RouteAPIPrefix = "/api/"

	// Operational
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

const (
	sessionCookieName = "elearn_sid"
	clientPathHeader  = "X-Client-Path"
	requestIDHeader   = "X-Request-ID"
)
