package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/store"
	"github.com/aussiebroadwan/agency/internal/gate/store/drivers/sqlite/gen"
)

// tokensRepo keeps the token version on the principals row and one sessions
// row per refresh chain.
type tokensRepo struct {
	q *gen.Queries
}

func (r *tokensRepo) TokenVersion(ctx context.Context, principalID string) (int64, error) {
	v, err := r.q.GetTokenVersion(ctx, principalID)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return v, nil
}

func (r *tokensRepo) IncrementTokenVersion(ctx context.Context, principalID string, now time.Time) (int64, error) {
	v, err := r.q.IncrementTokenVersion(ctx, gen.IncrementTokenVersionParams{
		UpdatedAt: toMillis(now),
		ID:        principalID,
	})
	if err != nil {
		return 0, mapNotFound(err)
	}
	return v, nil
}

func (r *tokensRepo) CreateRotation(ctx context.Context, rot domain.Rotation) error {
	err := r.q.CreateSession(ctx, gen.CreateSessionParams{
		ID:           rot.SessionID,
		PrincipalID:  rot.PrincipalID,
		RotationHash: rot.RotationHash,
		ExpiresAt:    toMillis(rot.ExpiresAt),
		CreatedAt:    toMillis(rot.CreatedAt),
		UpdatedAt:    toMillis(rot.CreatedAt),
	})
	return mapConstraint(err)
}

// SwapRotation is a single conditional UPDATE. When it touches no row the
// session is read back only to pick the error; the swap already lost.
func (r *tokensRepo) SwapRotation(
	ctx context.Context,
	sessionID, expected, next string,
	expiresAt, now time.Time,
) error {
	n, err := r.q.SwapSessionRotation(ctx, gen.SwapSessionRotationParams{
		NextHash:     next,
		ExpiresAt:    toMillis(expiresAt),
		Now:          toMillis(now),
		ID:           sessionID,
		ExpectedHash: expected,
	})
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	return r.missReason(ctx, sessionID, now)
}

func (r *tokensRepo) DeleteRotation(ctx context.Context, sessionID, expected string) error {
	n, err := r.q.DeleteSessionIfHash(ctx, gen.DeleteSessionIfHashParams{
		ID:           sessionID,
		RotationHash: expected,
	})
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	return r.missReason(ctx, sessionID, time.Time{})
}

func (r *tokensRepo) missReason(ctx context.Context, sessionID string, now time.Time) error {
	row, err := r.q.GetSession(ctx, sessionID)
	if err != nil {
		return mapNotFound(err)
	}
	if !now.IsZero() && row.ExpiresAt <= toMillis(now) {
		return store.ErrNotFound
	}
	return store.ErrRotationMismatch
}

func (r *tokensRepo) DeleteExpiredRotations(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredSessions(ctx, toMillis(now))
}
