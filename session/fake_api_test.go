package session_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/users"
)

// fakeAPI is an in-process backend with per-endpoint call counts and injectable failures.
type fakeAPI struct {
	mu     sync.Mutex
	issuer *token.Issuer

	user     users.User
	password string

	loginTTL   time.Duration
	refreshTTL time.Duration
	rotate     bool
	refreshSeq int

	loginErr   error
	refreshErr error
	meErr      error
	logoutErr  error

	// refreshGate, when set, blocks Refresh until it is closed.
	refreshGate chan struct{}

	calls map[string]int
}

func newFakeAPI(user users.User, password string) *fakeAPI {
	return &fakeAPI{
		issuer:     token.NewIssuer([]byte("session-test-secret")),
		user:       user,
		password:   password,
		loginTTL:   15 * time.Minute,
		refreshTTL: 15 * time.Minute,
		rotate:     true,
		calls:      make(map[string]int),
	}
}

func (f *fakeAPI) count(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
}

func (f *fakeAPI) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) accessToken(ttl time.Duration) string {
	tok, err := f.issuer.IssueWithExpiry(f.user.ID, f.user.Role, ttl)
	if err != nil {
		panic(err)
	}
	return tok
}

func (f *fakeAPI) Login(_ context.Context, creds authapi.Credentials) (*authapi.AuthResponse, error) {
	f.count(authapi.PathLogin)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if creds.Email != f.user.Email || creds.Password != f.password {
		return nil, &errors.APIError{Status: http.StatusUnauthorized, Code: errors.CodeInvalidCredentials, Message: "Invalid email or password"}
	}
	return &authapi.AuthResponse{
		AccessToken:  f.accessToken(f.loginTTL),
		RefreshToken: "rt-login",
		User:         f.user,
	}, nil
}

func (f *fakeAPI) Register(context.Context, authapi.Registration) error {
	f.count(authapi.PathRegister)
	return nil
}

func (f *fakeAPI) VerifyOTP(_ context.Context, v authapi.OTPVerification) (*authapi.AuthResponse, error) {
	f.count(authapi.PathVerifyOTP)
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.OTP != "000000" {
		return nil, &errors.APIError{Status: http.StatusBadRequest, Code: errors.CodeInvalidOTP, Message: "Invalid or expired verification code"}
	}
	return &authapi.AuthResponse{
		AccessToken:  f.accessToken(f.loginTTL),
		RefreshToken: "rt-otp",
		User:         f.user,
	}, nil
}

func (f *fakeAPI) ResendOTP(context.Context, string) error {
	f.count(authapi.PathResendOTP)
	return nil
}

func (f *fakeAPI) Logout(context.Context, token.Pair) error {
	f.count(authapi.PathLogout)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (*authapi.RefreshResponse, error) {
	f.count(authapi.PathRefresh)
	f.mu.Lock()
	gate := f.refreshGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	resp := &authapi.RefreshResponse{AccessToken: f.accessToken(f.refreshTTL)}
	if f.rotate {
		f.refreshSeq++
		resp.RefreshToken = fmt.Sprintf("rt-%d", f.refreshSeq)
	}
	return resp, nil
}

func (f *fakeAPI) Me(_ context.Context, accessToken string) (*users.User, error) {
	f.count(authapi.PathMe)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	if _, err := f.issuer.Verify(accessToken); err != nil {
		return nil, &errors.APIError{Status: http.StatusUnauthorized, Code: errors.CodeInvalidToken, Message: "Invalid or expired token"}
	}
	u := f.user
	return &u, nil
}
