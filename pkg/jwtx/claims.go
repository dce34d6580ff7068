package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Access tokens stay short so a revoked
// principal's epoch check is the only window that matters, refresh tokens
// live long enough for a working week.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token types carried in the "typ" claim. A refresh token must never be
// accepted as a bearer credential and the other way round.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the shared claim set for both token types. Access tokens leave
// RID empty; refresh tokens leave Role empty.
type Claims struct {
	jwt.RegisteredClaims

	// Role of the principal at issuance, one of the closed role set.
	Role string `json:"role,omitempty"`

	// TokenVersion is the principal's revocation epoch at issuance.
	TokenVersion int64 `json:"tv"`

	// Session ID, stable across refresh rotations of one login.
	SID string `json:"sid"`

	// RID is the single-use rotation id of a refresh token.
	RID string `json:"rid,omitempty"`

	// Verified reports whether the principal had verified their email when
	// the access token was issued.
	Verified bool `json:"vrf,omitempty"`

	Type string `json:"typ"`
}

// NewAccessClaims builds the claims of a bearer access token.
func NewAccessClaims(
	subject, role, sid string,
	tokenVersion int64,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		Role:             role,
		TokenVersion:     tokenVersion,
		SID:              sid,
		Type:             TypeAccess,
	}
}

// NewRefreshClaims builds the claims of a refresh token carrying rotation id rid.
func NewRefreshClaims(
	subject, sid, rid string,
	tokenVersion int64,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		TokenVersion:     tokenVersion,
		SID:              sid,
		RID:              rid,
		Type:             TypeRefresh,
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ExpiresAtTime returns exp as a time.Time, zero if absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ValidateType checks the "typ" claim.
func (c *Claims) ValidateType(expected string) error {
	if c.Type != expected {
		return ErrWrongType
	}
	return nil
}
