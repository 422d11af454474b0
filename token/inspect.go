package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the backend puts into the access tokens it issues.
type Claims struct {
	UserID string `json:"user_id"`
	jwtlib.RegisteredClaims
}

// Introspection is what can be learned about a bearer token without the
// backend's signing key. Opaque (non-JWT) tokens report IsJWT false.
type Introspection struct {
	IsJWT     bool
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp claim that is not after now.
// Tokens without an expiry never report as expired.
func (i Introspection) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Inspect reads the claims of rawToken without verifying its signature.
// The result is only a hint for avoiding doomed requests; the backend
// remains the authority on whether a token is valid.
func Inspect(rawToken string) Introspection {
	rawToken = strings.TrimSpace(rawToken)
	if strings.Count(rawToken, ".") != 2 {
		return Introspection{}
	}

	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return Introspection{}
	}

	i := Introspection{IsJWT: true, UserID: claims.UserID}
	if claims.IssuedAt != nil {
		i.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		i.ExpiresAt = claims.ExpiresAt.Time
	}
	return i
}
