// Package session holds the client side authentication state of one browser:
// the current user, the token pair in persistent storage, and the background
// loop that keeps the access token fresh.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/navigation"
	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/tokenstore"
	"github.com/jrsteele09/elearn-web/users"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRenewInterval  = time.Minute
	DefaultRefreshHorizon = 2 * time.Minute
)

// API is the backend authentication API. *authapi.Client implements it.
type API interface {
	Login(ctx context.Context, creds authapi.Credentials) (*authapi.AuthResponse, error)
	Register(ctx context.Context, reg authapi.Registration) error
	VerifyOTP(ctx context.Context, v authapi.OTPVerification) (*authapi.AuthResponse, error)
	ResendOTP(ctx context.Context, email string) error
	Logout(ctx context.Context, pair token.Pair) error
	Refresh(ctx context.Context, refreshToken string) (*authapi.RefreshResponse, error)
	Me(ctx context.Context, accessToken string) (*users.User, error)
}

var _ API = (*authapi.Client)(nil)

type Deps struct {
	API       API
	Storage   tokenstore.Storage
	Navigator navigation.Navigator
}

type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseHydrating
	PhaseAuthenticated
	PhaseAnonymous
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseHydrating:
		return "hydrating"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// State is a snapshot of the session. Loading means the session is not yet known,
// which is different from anonymous.
type State struct {
	User            *users.User `json:"user"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	Loading         bool        `json:"loading"`
	Phase           Phase       `json:"-"`
}

type Option func(*Store)

func WithRenewInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.renewInterval = d
		}
	}
}

// WithRefreshHorizon sets how close to expiry an access token must be before it is refreshed.
func WithRefreshHorizon(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.refreshHorizon = d
		}
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is the session manager for one browser. All methods are safe for concurrent use.
type Store struct {
	api       API
	storage   tokenstore.Storage
	navigator navigation.Navigator
	logger    zerolog.Logger

	renewInterval  time.Duration
	refreshHorizon time.Duration
	nowFunc        func() time.Time

	renewals singleflight.Group

	mu         sync.Mutex
	phase      Phase
	user       *users.User
	generation uint64
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	tornDown   bool

	// clearPending is set when stored tokens outlived their session because Remove failed.
	clearPending bool
}

var _ oauth2.TokenSource = (*Store)(nil)

func New(deps Deps, options ...Option) *Store {
	s := &Store{
		api:            deps.API,
		storage:        deps.Storage,
		navigator:      deps.Navigator,
		logger:         zerolog.Nop(),
		renewInterval:  DefaultRenewInterval,
		refreshHorizon: DefaultRefreshHorizon,
		nowFunc:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// State returns a snapshot of the session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		User:            s.user.Clone(),
		IsAuthenticated: s.user != nil,
		Loading:         s.phase == PhaseUninitialized || s.phase == PhaseHydrating,
		Phase:           s.phase,
	}
}

// User returns the current user or nil.
func (s *Store) User() *users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

// Init hydrates the session from persistent storage. Only the first call does any work.
// On an auth-only page the session goes straight to anonymous without reading storage.
func (s *Store) Init(ctx context.Context) State {
	s.mu.Lock()
	if s.phase != PhaseUninitialized || s.tornDown {
		s.mu.Unlock()
		return s.State()
	}
	s.phase = PhaseHydrating
	s.mu.Unlock()

	path := s.currentPath()
	if navigation.IsAuthPage(path) {
		s.logger.Debug().Str("path", path).Msg("Skipping session hydration on auth page")
		s.finishHydration()
		return s.State()
	}

	if !s.settlePendingClear(ctx) {
		s.finishHydration()
		return s.State()
	}

	access, err := s.storage.Get(ctx, tokenstore.AccessTokenKey)
	if err != nil {
		s.logger.Err(err).Msg("Failed to read access token during hydration")
	}
	if err != nil || access == "" {
		s.finishHydration()
		return s.State()
	}

	if _, err := s.RefreshUser(ctx); err != nil {
		s.logger.Info().Err(err).Msg("Stored session could not be restored")
	}
	s.finishHydration()
	return s.State()
}

// finishHydration resolves a still hydrating session to anonymous.
func (s *Store) finishHydration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseHydrating {
		s.phase = PhaseAnonymous
	}
}

// Teardown stops the renewal loop. Stored tokens are left in place.
func (s *Store) Teardown() {
	s.mu.Lock()
	s.tornDown = true
	s.generation++
	done := s.stopLoopLocked()
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Token returns the stored access token so the store can back an oauth2 client.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	stale := s.clearPending
	s.mu.Unlock()
	if stale {
		return nil, errors.ErrNoAccessToken
	}

	access, err := s.storage.Get(context.Background(), tokenstore.AccessTokenKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read access token")
	}
	if access == "" {
		return nil, errors.ErrNoAccessToken
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if exp, err := token.ExpiresAt(access); err == nil {
		tok.Expiry = exp
	}
	return tok, nil
}

func (s *Store) currentPath() string {
	if s.navigator == nil {
		return ""
	}
	return s.navigator.CurrentPath()
}

// beginSessionLocked stores the pair and user and restarts the renewal loop.
// The caller holds s.mu.
func (s *Store) beginSessionLocked(ctx context.Context, pair token.Pair, user users.User) error {
	if err := tokenstore.SavePair(ctx, s.storage, pair); err != nil {
		return err
	}
	if pair.RefreshToken != "" {
		s.clearPending = false
	}
	s.generation++
	s.user = user.Clone()
	s.phase = PhaseAuthenticated
	s.startLoopLocked()
	return nil
}

// endSession clears storage and then in-memory state, unless gen is stale.
// It reports whether the session was cleared.
func (s *Store) endSession(ctx context.Context, gen uint64, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.endSessionLocked(ctx, reason)
	return true
}

func (s *Store) endSessionLocked(ctx context.Context, reason string) {
	s.generation++
	s.stopLoopLocked()
	s.clearStorageLocked(ctx, reason)
	if s.user != nil {
		sessionsInvalidated(reason)
	}
	s.user = nil
	if s.phase != PhaseHydrating {
		s.phase = PhaseAnonymous
	}
}

// clearStorageLocked removes the stored tokens, retrying once. When both attempts fail
// the store marks the tokens stale and clears again before they are next read.
func (s *Store) clearStorageLocked(ctx context.Context, reason string) {
	ctx = context.WithoutCancel(ctx)
	err := tokenstore.Clear(ctx, s.storage)
	if err != nil {
		s.logger.Warn().Err(err).Str("reason", reason).Msg("Failed to clear stored tokens, retrying")
		err = tokenstore.Clear(ctx, s.storage)
	}
	s.clearPending = err != nil
	if err != nil {
		s.logger.Err(err).Str("reason", reason).Msg("Stored tokens left behind, will clear before next use")
	}
}

// settlePendingClear retries a failed clear. It reports false while stale tokens remain.
func (s *Store) settlePendingClear(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.clearPending {
		return true
	}
	s.clearStorageLocked(ctx, "pending")
	return !s.clearPending
}

func (s *Store) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
