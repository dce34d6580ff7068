package domain

import "time"

// Principal is an authenticated identity. TokenVersion is the revocation
// epoch: every token carries the version it was minted under and stops
// verifying once the stored version moves past it.
type Principal struct {
	ID           string
	Email        string
	PasswordHash string // argon2 encoded
	Role         Role
	TokenVersion int64
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Principal) IsVerified() bool {
	return p.VerifiedAt != nil
}
