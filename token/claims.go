package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/users"
)

// Claims are the access token claims the session layer relies on.
type Claims struct {
	UserID string         `json:"userId"`
	Role   users.RoleType `json:"role,omitempty"`
	jwtlib.RegisteredClaims
}

// Pair is the credential pair persisted for a session.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Decode reads the claims of rawToken without verifying the signature.
// The browser side never holds the signing key; the backend verifies on every call.
func Decode(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.ErrInvalidToken
	}
	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", errors.ErrInvalidToken)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of rawToken.
func ExpiresAt(rawToken string) (time.Time, error) {
	claims, err := Decode(rawToken)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

// ShouldRefresh reports whether rawToken expires at or before now+horizon.
// Undecodable tokens report true.
func ShouldRefresh(rawToken string, now time.Time, horizon time.Duration) bool {
	exp, err := ExpiresAt(rawToken)
	if err != nil {
		return true
	}
	return !exp.After(now.Add(horizon))
}

// IsExpired reports whether rawToken's exp is at or before now. Undecodable tokens report true.
func IsExpired(rawToken string, now time.Time) bool {
	return ShouldRefresh(rawToken, now, 0)
}
