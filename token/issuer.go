package token

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/users"
)

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	nowFunc   func() time.Time
}

type IssuerOption func(*Issuer)

func WithAccessTokenExpiry(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTTL = ttl
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(secret []byte, options ...IssuerOption) *Issuer {
	i := &Issuer{
		secret:    secret,
		accessTTL: 15 * time.Minute,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Issue creates an access token for the user.
func (i *Issuer) Issue(userID string, role users.RoleType) (string, error) {
	return i.IssueWithExpiry(userID, role, i.accessTTL)
}

// IssueWithExpiry creates an access token expiring ttl from now.
func (i *Issuer) IssueWithExpiry(userID string, role users.RoleType, ttl time.Duration) (string, error) {
	now := i.nowFunc()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of rawToken and returns its claims.
func (i *Issuer) Verify(rawToken string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(rawToken, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwtlib.WithTimeFunc(i.nowFunc), jwtlib.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	return claims, nil
}
