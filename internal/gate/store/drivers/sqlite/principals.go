package sqlite

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/store/drivers/sqlite/gen"
)

type principalsRepo struct {
	q *gen.Queries
}

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	row, err := r.q.GetPrincipalByID(ctx, id)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	return mapPrincipal(row), nil
}

func (r *principalsRepo) GetPrincipalByEmail(ctx context.Context, email string) (domain.Principal, error) {
	row, err := r.q.GetPrincipalByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	return mapPrincipal(row), nil
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	err := r.q.CreatePrincipal(ctx, gen.CreatePrincipalParams{
		ID:           p.ID,
		Email:        strings.ToLower(p.Email),
		PasswordHash: p.PasswordHash,
		Role:         string(p.Role),
		VerifiedAt:   mapOptionalMillis(p.VerifiedAt),
		CreatedAt:    toMillis(p.CreatedAt),
		UpdatedAt:    toMillis(p.UpdatedAt),
	})
	return mapConstraint(err)
}

func (r *principalsRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountPrincipals(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
