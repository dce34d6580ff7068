package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/store"
)

// DefaultStoreTimeout bounds every TokenStore and RateLimitStore call.
const DefaultStoreTimeout = 500 * time.Millisecond

var (
	ErrExpiredToken     = errors.New("expired_token")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrRevokedToken     = errors.New("revoked_token")
	ErrReplayDetected   = errors.New("replay_detected")
	ErrStoreUnavailable = errors.New("store_unavailable")

	ErrUnknownPrincipal    = errors.New("unknown_principal")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrEmailTaken          = errors.New("email_taken")
	ErrRoleNotSelfAssigned = errors.New("role_not_self_assignable")
	ErrInvalidQuota        = errors.New("invalid_quota")
)

// withStoreTimeout runs fn under a deadline so a hung store never leaves a
// request pending. Store errors other than the domain sentinels come back
// wrapped in ErrStoreUnavailable.
func withStoreTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		return v, classifyStoreError(err)
	}
	return v, nil
}

func classifyStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrRotationMismatch):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}
