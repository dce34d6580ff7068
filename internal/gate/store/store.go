package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrRotationMismatch is returned by a compare-and-swap on a rotation
	// whose stored fingerprint differs from the expected one.
	ErrRotationMismatch = errors.New("store: rotation mismatch")
)

// Store is the root data access interface of the relational backend. It
// exposes sub-repositories to keep concerns tidy and testable and to stop
// transactions being opened inside transactions.
type Store interface {
	Principals() Principals
	Tokens() TokenStore
	RateLimits() RateLimitStore

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Pinger is implemented by every backend that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Principals interface {
	// GetPrincipalByID returns a principal by id.
	GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error)

	// GetPrincipalByEmail is used during login. Emails are stored lowercased.
	GetPrincipalByEmail(ctx context.Context, email string) (domain.Principal, error)

	// CreatePrincipal inserts a new principal (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreatePrincipal(ctx context.Context, p domain.Principal) error

	// IsEmpty returns true if there are no principals.
	IsEmpty(ctx context.Context) (bool, error)
}

// TokenStore holds the revocation epoch of every principal and the rotation
// state of every refresh chain. Implementations must be safe for concurrent
// use from many service instances.
type TokenStore interface {
	// TokenVersion returns the current revocation epoch of a principal.
	TokenVersion(ctx context.Context, principalID string) (int64, error)

	// IncrementTokenVersion atomically bumps the epoch at now and returns the
	// new value.
	IncrementTokenVersion(ctx context.Context, principalID string, now time.Time) (int64, error)

	// CreateRotation stores the first rotation of a new session.
	CreateRotation(ctx context.Context, r domain.Rotation) error

	// SwapRotation replaces the stored fingerprint of sessionID with next iff it
	// still equals expected. Returns ErrNotFound when the session is gone or
	// expired and ErrRotationMismatch when another rotation already happened.
	SwapRotation(ctx context.Context, sessionID, expected, next string, expiresAt, now time.Time) error

	// DeleteRotation removes sessionID iff its fingerprint equals expected.
	// Same errors as SwapRotation.
	DeleteRotation(ctx context.Context, sessionID, expected string) error

	// DeleteExpiredRotations is housekeeping; returns the number removed.
	DeleteExpiredRotations(ctx context.Context, now time.Time) (int64, error)
}

// RateLimitStore holds fixed-window counters.
type RateLimitStore interface {
	// Increment atomically adds cost to the window at key, first starting a
	// fresh window at now when none exists or the current one has ended.
	// It returns the window after the increment.
	Increment(ctx context.Context, key string, cost int64, window time.Duration, now time.Time) (domain.Window, error)

	// DeleteExpiredWindows is housekeeping; returns the number removed.
	DeleteExpiredWindows(ctx context.Context, now time.Time) (int64, error)
}
