// Package devapi is a local stand-in for the backend authentication API.
// It implements the contract the session layer expects so it can run end to end without the real backend.
package devapi

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/token/refresh"
	refreshrepofake "github.com/jrsteele09/elearn-web/token/refresh/repofake"
	"github.com/jrsteele09/elearn-web/users"
	fakeuserrepo "github.com/jrsteele09/elearn-web/users/repofake"
	"github.com/rs/zerolog"
)

type Server struct {
	mux      *http.ServeMux
	accounts users.AccountRepo
	refresh  *refresh.Manager
	issuer   *token.Issuer
	attempts *ttlcache.Cache[string, int]
	// attemptsLock serialises the read-modify-write of attempt counts.
	attemptsLock sync.Mutex
	logger       zerolog.Logger

	rotateRefreshTokens bool
	maxLoginAttempts    int
	fixedOTP            string
	otpTTL              time.Duration
	nowFunc             func() time.Time

	callsLock sync.Mutex
	calls     map[string]int
}

type Option func(*Server)

// WithRefreshRotation controls whether /auth/refresh returns a new refresh token.
func WithRefreshRotation(rotate bool) Option {
	return func(s *Server) {
		s.rotateRefreshTokens = rotate
	}
}

func WithAccessTokenExpiry(ttl time.Duration) Option {
	return func(s *Server) {
		s.issuer = token.NewIssuer(s.secret(), token.WithAccessTokenExpiry(ttl), token.WithNowFunc(s.now))
	}
}

// WithMaxLoginAttempts sets how many failed logins per email are allowed in the window before 429.
func WithMaxLoginAttempts(n int) Option {
	return func(s *Server) {
		s.maxLoginAttempts = n
	}
}

// WithFixedOTP makes every issued OTP equal code. Empty generates random codes.
func WithFixedOTP(code string) Option {
	return func(s *Server) {
		s.fixedOTP = code
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

var devSecret = []byte("devapi-signing-secret")

func (s *Server) secret() []byte { return devSecret }

func (s *Server) now() time.Time { return s.nowFunc() }

func New(options ...Option) *Server {
	s := &Server{
		mux:                 http.NewServeMux(),
		accounts:            fakeuserrepo.NewFakeAccountRepo(),
		refresh:             refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), 7*24*time.Hour),
		logger:              zerolog.Nop(),
		rotateRefreshTokens: true,
		maxLoginAttempts:    5,
		otpTTL:              10 * time.Minute,
		nowFunc:             time.Now,
		calls:               make(map[string]int),
	}
	s.issuer = token.NewIssuer(s.secret(), token.WithNowFunc(s.now))
	for _, opt := range options {
		opt(s)
	}

	s.attempts = ttlcache.New(
		ttlcache.WithTTL[string, int](15*time.Minute),
		ttlcache.WithDisableTouchOnHit[string, int](),
	)
	go s.attempts.Start()

	s.initRoutes()
	return s
}

// Close stops background cleanup.
func (s *Server) Close() {
	s.attempts.Stop()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.countCall(r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	s.mux.HandleFunc("POST "+authapi.PathLogin, s.LoginHandler())
	s.mux.HandleFunc("POST "+authapi.PathRegister, s.RegisterHandler())
	s.mux.HandleFunc("POST "+authapi.PathVerifyOTP, s.VerifyOTPHandler())
	s.mux.HandleFunc("POST "+authapi.PathResendOTP, s.ResendOTPHandler())
	s.mux.HandleFunc("POST "+authapi.PathRefresh, s.RefreshHandler())
	s.mux.HandleFunc("POST "+authapi.PathLogout, s.LogoutHandler())
	s.mux.HandleFunc("GET "+authapi.PathMe, s.MeHandler())
	s.mux.HandleFunc("GET /courses", s.CoursesHandler())
}

// AddUser seeds a verified account and returns its user record.
func (s *Server) AddUser(name, email, password string, role users.RoleType) (*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account := &users.Account{
		User:         users.User{Name: name, Email: strings.ToLower(email), Role: role},
		PasswordHash: hash,
		Verified:     true,
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Upsert(account); err != nil {
		return nil, err
	}
	u := account.User
	return &u, nil
}

// PendingOTP returns the outstanding OTP for email, for tests and local use.
func (s *Server) PendingOTP(email string) string {
	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		return ""
	}
	return account.OTP
}

// IssueAccessToken signs a token for userID with an explicit lifetime.
func (s *Server) IssueAccessToken(userID string, role users.RoleType, ttl time.Duration) (string, error) {
	return s.issuer.IssueWithExpiry(userID, role, ttl)
}

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int {
	s.callsLock.Lock()
	defer s.callsLock.Unlock()
	return s.calls[path]
}

// TotalCalls returns how many requests the server handled.
func (s *Server) TotalCalls() int {
	s.callsLock.Lock()
	defer s.callsLock.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) countCall(path string) {
	s.callsLock.Lock()
	defer s.callsLock.Unlock()
	s.calls[path]++
}

func (s *Server) newOTP() (string, error) {
	if s.fixedOTP != "" {
		return s.fixedOTP, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *Server) issuePair(user users.User) (*authapi.AuthResponse, error) {
	access, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.refresh.Create(user.ID)
	if err != nil {
		return nil, err
	}
	return &authapi.AuthResponse{AccessToken: access, RefreshToken: refreshToken, User: user}, nil
}
