package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common error types for the session layer
var (
	// Authentication errors
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limited")
	ErrAccessDenied   = errors.New("access denied")

	// Session / token errors
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrNoAccessToken   = errors.New("no access token")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidOTP      = errors.New("invalid otp")
	ErrUserExists      = errors.New("user already exists")
	ErrUserNotVerified = errors.New("user is not verified")

	// General errors
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrInternal           = errors.New("internal error")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnexpectedResponse = errors.New("unexpected backend response")
)

// Structured error codes the backend may send alongside a message.
const (
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidOTP         = "INVALID_OTP"
	CodeUserExists         = "USER_EXISTS"
	CodeNotVerified        = "NOT_VERIFIED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeBadGateway         = "BAD_GATEWAY"
	CodeGatewayTimeout     = "GATEWAY_TIMEOUT"
)

// APIError is an error reported by the backend authentication API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Unwrap maps the backend error onto the local taxonomy so callers can use errors.Is.
func (e *APIError) Unwrap() []error {
	switch {
	case e.RateLimited():
		return []error{ErrRateLimited, ErrAuthentication}
	case e.Code == CodeInvalidOTP:
		return []error{ErrInvalidOTP, ErrAuthentication}
	case e.Code == CodeNotVerified:
		return []error{ErrUserNotVerified, ErrAuthentication}
	case e.Code == CodeUserExists || e.Status == http.StatusConflict:
		return []error{ErrUserExists}
	case e.Status == http.StatusUnauthorized:
		return []error{ErrAuthentication}
	case e.Status == http.StatusForbidden:
		return []error{ErrAccessDenied}
	case e.Status == http.StatusNotFound:
		return []error{ErrNotFound}
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return []error{ErrInvalidRequest}
	case e.Status >= http.StatusInternalServerError:
		return []error{ErrBackendUnavailable}
	}
	return nil
}

// RateLimited reports whether the backend rejected the call for rate limiting.
// The structured status and code are authoritative; the message match is a
// compatibility shim for backends that only send text and breaks if their
// wording changes.
func (e *APIError) RateLimited() bool {
	if e.Status == http.StatusTooManyRequests || e.Code == CodeRateLimited {
		return true
	}
	return IsRateLimitMessage(e.Message)
}

var rateLimitPhrases = []string{
	"too many",
	"rate limit",
	"try again later",
	"try again in",
}

// IsRateLimitMessage pattern matches backend message text for rate limiting.
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// FriendlyMessage returns the text to show a user for an auth failure.
func FriendlyMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrRateLimited):
		return "Too many attempts. Please wait a few minutes before trying again."
	case Is(err, ErrUserNotVerified):
		return "Please verify your email with the code we sent before logging in."
	case Is(err, ErrAccessDenied):
		return "Access denied. Administrator privileges are required."
	case Is(err, ErrInvalidOTP):
		return "The verification code is invalid or has expired."
	case Is(err, ErrAuthentication):
		var apiErr *APIError
		if As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "Invalid email or password."
	case Is(err, ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case Is(err, ErrBackendUnavailable):
		return "The service is temporarily unavailable."
	}
	var apiErr *APIError
	if As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Something went wrong."
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
