package session

import (
	"context"

	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/users"
)

// AdminLogin logs in and then confirms the administrative role with an independent identity fetch.
// A non-admin account is logged out again so its tokens don't stay active, and
// errors.ErrAccessDenied is returned.
func AdminLogin(ctx context.Context, s *Store, creds authapi.Credentials) (*users.User, error) {
	user, err := adminLogin(ctx, s, creds)
	loginResult(loginKindAdmin, err)
	return user, err
}

func adminLogin(ctx context.Context, s *Store, creds authapi.Credentials) (*users.User, error) {
	if _, err := s.login(ctx, creds); err != nil {
		return nil, err
	}

	user, err := s.RefreshUser(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to confirm admin identity")
	}
	if !user.IsAdmin() {
		s.logger.Warn().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("Non-admin account attempted admin login")
		s.logout(ctx, reasonAccessDenied)
		return nil, errors.ErrAccessDenied
	}
	return user, nil
}
