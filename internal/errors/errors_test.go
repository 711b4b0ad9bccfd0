package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Unwrap(t *testing.T) {
	tests := []struct {
		name  string
		err   *errors.APIError
		is    []error
		isNot []error
	}{
		{
			name: "429 status",
			err:  &errors.APIError{Status: http.StatusTooManyRequests, Message: "slow down"},
			is:   []error{errors.ErrRateLimited, errors.ErrAuthentication},
		},
		{
			name: "rate limit code on 400",
			err:  &errors.APIError{Status: http.StatusBadRequest, Code: errors.CodeRateLimited},
			is:   []error{errors.ErrRateLimited, errors.ErrAuthentication},
		},
		{
			name: "rate limit from message text only",
			err:  &errors.APIError{Status: http.StatusUnauthorized, Message: "Too many login attempts"},
			is:   []error{errors.ErrRateLimited},
		},
		{
			name:  "invalid credentials",
			err:   &errors.APIError{Status: http.StatusUnauthorized, Code: errors.CodeInvalidCredentials, Message: "Invalid email or password"},
			is:    []error{errors.ErrAuthentication},
			isNot: []error{errors.ErrRateLimited, errors.ErrAccessDenied},
		},
		{
			name:  "unverified account",
			err:   &errors.APIError{Status: http.StatusForbidden, Code: errors.CodeNotVerified, Message: "Please verify your email"},
			is:    []error{errors.ErrUserNotVerified, errors.ErrAuthentication},
			isNot: []error{errors.ErrAccessDenied},
		},
		{
			name: "invalid otp",
			err:  &errors.APIError{Status: http.StatusBadRequest, Code: errors.CodeInvalidOTP},
			is:   []error{errors.ErrInvalidOTP, errors.ErrAuthentication},
		},
		{
			name: "user exists by code",
			err:  &errors.APIError{Status: http.StatusBadRequest, Code: errors.CodeUserExists},
			is:   []error{errors.ErrUserExists},
		},
		{
			name: "user exists by status",
			err:  &errors.APIError{Status: http.StatusConflict},
			is:   []error{errors.ErrUserExists},
		},
		{
			name:  "forbidden",
			err:   &errors.APIError{Status: http.StatusForbidden},
			is:    []error{errors.ErrAccessDenied},
			isNot: []error{errors.ErrAuthentication},
		},
		{
			name: "not found",
			err:  &errors.APIError{Status: http.StatusNotFound},
			is:   []error{errors.ErrNotFound},
		},
		{
			name: "validation",
			err:  &errors.APIError{Status: http.StatusUnprocessableEntity},
			is:   []error{errors.ErrInvalidRequest},
		},
		{
			name:  "server error",
			err:   &errors.APIError{Status: http.StatusBadGateway},
			is:    []error{errors.ErrBackendUnavailable},
			isNot: []error{errors.ErrAuthentication},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("login failed: %w", tt.err)
			for _, target := range tt.is {
				require.ErrorIs(t, wrapped, target)
			}
			for _, target := range tt.isNot {
				require.NotErrorIs(t, wrapped, target)
			}
		})
	}
}

func TestIsRateLimitMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Too many login attempts. Please try again later.", true},
		{"TOO MANY REQUESTS", true},
		{"Rate limit exceeded", true},
		{"Please try again in 5 minutes", true},
		{"Invalid email or password", false},
		{"", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, errors.IsRateLimitMessage(tt.msg), tt.msg)
	}
}

func TestFriendlyMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"rate limited", &errors.APIError{Status: http.StatusTooManyRequests}, "Too many attempts. Please wait a few minutes before trying again."},
		{"unverified", &errors.APIError{Status: http.StatusForbidden, Code: errors.CodeNotVerified}, "Please verify your email with the code we sent before logging in."},
		{"admin denied", errors.ErrAccessDenied, "Access denied. Administrator privileges are required."},
		{"backend message", &errors.APIError{Status: http.StatusUnauthorized, Message: "Invalid email or password"}, "Invalid email or password"},
		{"authentication without message", errors.ErrAuthentication, "Invalid email or password."},
		{"session expired", errors.Wrapf(errors.ErrSessionExpired, "refresh"), "Your session has expired. Please log in again."},
		{"unknown", errors.New("boom"), "Something went wrong."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, errors.FriendlyMessage(tt.err))
		})
	}
}

func TestWrapf(t *testing.T) {
	require.NoError(t, errors.Wrapf(nil, "ignored"))

	err := errors.Wrapf(errors.ErrNotFound, "user %s", "u1")
	require.EqualError(t, err, "user u1: not found")
	require.ErrorIs(t, err, errors.ErrNotFound)
}
