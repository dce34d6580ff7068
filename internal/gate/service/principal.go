package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/store"
	"github.com/aussiebroadwan/agency/pkg/clockx"
	"github.com/aussiebroadwan/agency/pkg/cryptox"
	"github.com/aussiebroadwan/agency/pkg/idx"
	"github.com/aussiebroadwan/agency/pkg/slogx"
)

// PrincipalService handles registration and password login.
type PrincipalService struct {
	Principals   store.Principals
	StoreTimeout time.Duration
	Clock        clockx.Clock
	IDs          idx.Generator
}

func (s *PrincipalService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *PrincipalService) newID() string {
	if s.IDs == nil {
		return idx.New().String()
	}
	return s.IDs.New().String()
}

// Register creates a CLIENT or FREELANCER principal at token version 0.
// Privileged roles are never self-assigned.
func (s *PrincipalService) Register(ctx context.Context, email, password string, role domain.Role) (domain.Principal, error) {
	if role != domain.RoleClient && role != domain.RoleFreelancer {
		return domain.Principal{}, ErrRoleNotSelfAssigned
	}
	return s.create(ctx, email, password, role, nil)
}

// Login checks a password. Unknown emails still pay for a hash so response
// time does not reveal which emails are registered.
func (s *PrincipalService) Login(ctx context.Context, email, password string) (domain.Principal, error) {
	p, err := withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (domain.Principal, error) {
		return s.Principals.GetPrincipalByEmail(ctx, normalizeEmail(email))
	})
	if errors.Is(err, store.ErrNotFound) {
		cryptox.DummyVerify(password)
		return domain.Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("login: %w", err)
	}

	if err := cryptox.VerifyPassword(password, p.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("login failed", slog.String("principal_id", p.ID))
		return domain.Principal{}, ErrInvalidCredentials
	}
	return p, nil
}

// Get returns a principal by id.
func (s *PrincipalService) Get(ctx context.Context, id string) (domain.Principal, error) {
	p, err := withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (domain.Principal, error) {
		return s.Principals.GetPrincipalByID(ctx, id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, ErrUnknownPrincipal
	}
	return p, err
}

// EnsureAdmin creates a verified ADMIN principal when no principal exists
// yet. It reports whether one was created.
func (s *PrincipalService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	empty, err := withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (bool, error) {
		return s.Principals.IsEmpty(ctx)
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}
	if !empty {
		return false, nil
	}

	now := s.now()
	p, err := s.create(ctx, email, password, domain.RoleAdmin, &now)
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}

	slogx.Security(ctx, "bootstrap admin created", slog.String("principal_id", p.ID))
	return true, nil
}

func (s *PrincipalService) create(ctx context.Context, email, password string, role domain.Role, verifiedAt *time.Time) (domain.Principal, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	p := domain.Principal{
		ID:           s.newID(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		VerifiedAt:   verifiedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Principals.CreatePrincipal(ctx, p)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.Principal{}, ErrEmailTaken
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("create principal: %w", err)
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
