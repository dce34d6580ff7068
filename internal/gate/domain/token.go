package domain

import "time"

// TokenPair is what a login or refresh hands back to the caller.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	SessionID        string
	ExpiresIn        time.Duration // access token lifetime
	RefreshExpiresAt time.Time
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	PrincipalID  string
	Role         Role
	TokenVersion int64
	SessionID    string
	Verified     bool
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Rotation is the stored state of one refresh chain. Only the fingerprint of
// the current rotation id is kept, never the id itself.
type Rotation struct {
	SessionID    string
	PrincipalID  string
	RotationHash string // base64url SHA-256 of the rotation id
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
