package session

import (
	"context"

	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/internal/metrics"
	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/tokenstore"
	"github.com/jrsteele09/elearn-web/users"
)

const (
	loginKindUser  = "user"
	loginKindOTP   = "otp"
	loginKindAdmin = "admin"

	reasonLogout         = "logout"
	reasonRefreshFailed  = "refresh_failed"
	reasonIdentityFailed = "identity_failed"
	reasonAccessDenied   = "access_denied"
)

// Login authenticates with the backend, stores the token pair and starts the session.
// Rejected credentials satisfy errors.ErrAuthentication; rate limiting also satisfies errors.ErrRateLimited.
func (s *Store) Login(ctx context.Context, creds authapi.Credentials) (*users.User, error) {
	user, err := s.login(ctx, creds)
	loginResult(loginKindUser, err)
	return user, err
}

func (s *Store) login(ctx context.Context, creds authapi.Credentials) (*users.User, error) {
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, errors.Wrapf(err, "login failed")
	}
	if err := s.startFromAuthResponse(ctx, resp); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", resp.User.ID).Str("role", string(resp.User.Role)).Msg("User logged in")
	return resp.User.Clone(), nil
}

// Register creates an account. No session exists until the OTP is verified.
func (s *Store) Register(ctx context.Context, reg authapi.Registration) error {
	if err := s.api.Register(ctx, reg); err != nil {
		return errors.Wrapf(err, "registration failed")
	}
	return nil
}

// VerifyOTP confirms a registration and starts the session like Login.
func (s *Store) VerifyOTP(ctx context.Context, v authapi.OTPVerification) (*users.User, error) {
	resp, err := s.api.VerifyOTP(ctx, v)
	if err != nil {
		loginResult(loginKindOTP, err)
		return nil, errors.Wrapf(err, "otp verification failed")
	}
	if err := s.startFromAuthResponse(ctx, resp); err != nil {
		loginResult(loginKindOTP, err)
		return nil, err
	}
	loginResult(loginKindOTP, nil)
	s.logger.Info().Str("user_id", resp.User.ID).Msg("User verified")
	return resp.User.Clone(), nil
}

func (s *Store) ResendOTP(ctx context.Context, email string) error {
	if err := s.api.ResendOTP(ctx, email); err != nil {
		return errors.Wrapf(err, "failed to resend otp")
	}
	return nil
}

func (s *Store) startFromAuthResponse(ctx context.Context, resp *authapi.AuthResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return errors.Wrapf(errors.ErrInternal, "session store is torn down")
	}
	pair := token.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := s.beginSessionLocked(ctx, pair, resp.User); err != nil {
		return errors.Wrapf(err, "failed to start session")
	}
	return nil
}

// Logout revokes the session on the backend when it can and always clears local state.
// It is safe to call repeatedly.
func (s *Store) Logout(ctx context.Context) {
	s.logout(ctx, reasonLogout)
}

func (s *Store) logout(ctx context.Context, reason string) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.stopLoopLocked()
	s.mu.Unlock()

	pair, err := tokenstore.LoadPair(ctx, s.storage)
	if err != nil {
		s.logger.Err(err).Msg("Failed to read tokens for logout")
	}
	if !pair.Empty() {
		if err := s.api.Logout(ctx, pair); err != nil {
			s.logger.Warn().Err(err).Msg("Backend logout failed, clearing local session anyway")
		}
	}

	if !s.endSession(ctx, gen, reason) {
		s.logger.Debug().Msg("A new session started during logout, leaving it in place")
	}
}

// RefreshUser re-fetches the identity for the stored access token. On any failure the
// stored tokens and user are cleared and errors.ErrSessionExpired is returned. It never redirects.
func (s *Store) RefreshUser(ctx context.Context) (*users.User, error) {
	if !s.settlePendingClear(ctx) {
		return nil, errors.Wrapf(errors.ErrSessionExpired, "stale tokens could not be cleared")
	}
	gen := s.currentGeneration()

	access, err := s.storage.Get(ctx, tokenstore.AccessTokenKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read access token")
	}
	if access == "" {
		s.endSession(ctx, gen, reasonIdentityFailed)
		return nil, errors.Wrapf(errors.ErrSessionExpired, "no stored access token")
	}

	user, err := s.api.Me(ctx, access)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.endSession(ctx, gen, reasonIdentityFailed)
		return nil, errors.Join(errors.ErrSessionExpired, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// A login or logout happened while the identity call was in flight.
		if s.user == nil {
			return nil, errors.ErrSessionExpired
		}
		return s.user.Clone(), nil
	}
	wasActive := s.user != nil
	s.user = user.Clone()
	s.phase = PhaseAuthenticated
	if !wasActive {
		s.generation++
		s.startLoopLocked()
	}
	return user.Clone(), nil
}

func loginResult(kind string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrRateLimited):
		result = "rate_limited"
	case errors.Is(err, errors.ErrAccessDenied):
		result = "denied"
	default:
		result = "failure"
	}
	metrics.LoginsTotal.WithLabelValues(kind, result).Inc()
}

func sessionsInvalidated(reason string) {
	metrics.SessionsInvalidatedTotal.WithLabelValues(reason).Inc()
}
