package session

import (
	"context"
	"time"

	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/internal/metrics"
	"github.com/jrsteele09/elearn-web/navigation"
	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/tokenstore"
)

const renewKey = "renew"

// startLoopLocked replaces any running renewal loop with a new one. The caller holds s.mu.
func (s *Store) startLoopLocked() {
	s.stopLoopLocked()
	if s.tornDown {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.loopCancel = cancel
	s.loopDone = done
	go s.renewLoop(ctx, done)
}

// stopLoopLocked cancels the renewal loop and returns a channel closed when it exits.
// The caller holds s.mu and must not wait on the channel while holding it.
func (s *Store) stopLoopLocked() <-chan struct{} {
	if s.loopCancel == nil {
		return nil
	}
	s.loopCancel()
	done := s.loopDone
	s.loopCancel = nil
	s.loopDone = nil
	return done
}

func (s *Store) renewLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RenewOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("Session renewal failed")
			}
		}
	}
}

// RenewOnce runs one tick of the renewal loop: when the stored access token expires
// within the refresh horizon it is exchanged using the refresh token. It reports whether
// a refresh happened. A failed refresh ends the session and, unless the browser is on an
// auth page, redirects to the login page for the current section.
// Concurrent calls share one refresh.
func (s *Store) RenewOnce(ctx context.Context) (bool, error) {
	v, err, _ := s.renewals.Do(renewKey, func() (interface{}, error) {
		return s.renew(ctx)
	})
	refreshed, _ := v.(bool)
	return refreshed, err
}

func (s *Store) renew(ctx context.Context) (bool, error) {
	s.mu.Lock()
	active := s.user != nil
	gen := s.generation
	s.mu.Unlock()
	if !active {
		return false, nil
	}

	pair, err := tokenstore.LoadPair(ctx, s.storage)
	if err != nil {
		return false, err
	}
	if !token.ShouldRefresh(pair.AccessToken, s.nowFunc(), s.refreshHorizon) {
		return false, nil
	}

	if pair.RefreshToken == "" {
		s.failRenewal(ctx, gen, errors.ErrNoRefreshToken)
		return false, errors.Wrapf(errors.ErrSessionExpired, "no refresh token")
	}

	resp, err := s.api.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		s.failRenewal(ctx, gen, err)
		return false, errors.Join(errors.ErrSessionExpired, err)
	}

	if !s.applyRefresh(ctx, gen, token.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}) {
		s.logger.Debug().Msg("Discarding refresh result for a session that has ended")
		return false, nil
	}
	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()

	user, err := s.api.Me(ctx, resp.AccessToken)
	switch {
	case err == nil:
		s.mu.Lock()
		if gen == s.generation && s.user != nil {
			s.user = user.Clone()
		}
		s.mu.Unlock()
	case errors.Is(err, errors.ErrAuthentication):
		s.failRenewal(ctx, gen, err)
		return true, errors.Join(errors.ErrSessionExpired, err)
	default:
		s.logger.Warn().Err(err).Msg("Could not re-fetch identity after refresh")
	}
	return true, nil
}

// applyRefresh stores a refreshed pair if the session is still the one the refresh started from.
func (s *Store) applyRefresh(ctx context.Context, gen uint64, pair token.Pair) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.user == nil {
		return false
	}
	if err := tokenstore.SavePair(ctx, s.storage, pair); err != nil {
		s.logger.Err(err).Msg("Failed to store refreshed tokens")
		return false
	}
	return true
}

func (s *Store) failRenewal(ctx context.Context, gen uint64, cause error) {
	if !s.endSession(ctx, gen, reasonRefreshFailed) {
		return
	}
	metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
	s.logger.Info().Err(cause).Msg("Session ended after failed token refresh")

	path := s.currentPath()
	if s.navigator == nil || navigation.IsAuthPage(path) {
		return
	}
	s.navigator.Redirect(navigation.LoginPathFor(path))
}
