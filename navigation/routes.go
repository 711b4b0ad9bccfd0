// Package navigation classifies browser routes for the session layer.
package navigation

import (
	"strings"
)

// Route path constants
const (
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteVerifyOTP      = "/verify-otp"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteDashboard      = "/dashboard"

	RouteAdmin      = "/admin"
	RouteAdminLogin = RouteAdmin + RouteLogin
)

var authPages = []string{
	RouteLogin,
	RouteRegister,
	RouteVerifyOTP,
	RouteForgotPassword,
	RouteResetPassword,
}

// Navigator exposes the current route and lets the session layer send the browser elsewhere.
type Navigator interface {
	CurrentPath() string
	Redirect(path string)
}

// IsAuthPage reports whether path is a login, registration, OTP or password page,
// including the admin variants. Session validation never runs on these pages.
func IsAuthPage(path string) bool {
	p := cleanPath(path)
	p = strings.TrimPrefix(p, RouteAdmin)
	for _, page := range authPages {
		if p == page || strings.HasPrefix(p, page+"/") {
			return true
		}
	}
	return false
}

// IsAdminPath reports whether path is inside the admin section.
func IsAdminPath(path string) bool {
	p := cleanPath(path)
	return p == RouteAdmin || strings.HasPrefix(p, RouteAdmin+"/")
}

// LoginPathFor returns the login page for the section path belongs to.
func LoginPathFor(path string) string {
	if IsAdminPath(path) {
		return RouteAdminLogin
	}
	return RouteLogin
}

func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
