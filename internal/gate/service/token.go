package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/store"
	"github.com/aussiebroadwan/agency/pkg/clockx"
	"github.com/aussiebroadwan/agency/pkg/cryptox"
	"github.com/aussiebroadwan/agency/pkg/idx"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
	"github.com/aussiebroadwan/agency/pkg/slogx"
)

// TokenService mints and checks access and refresh tokens. Rotation state is
// keyed per session, so independent logins of one principal each hold their
// own refresh chain and survive each other's logout.
type TokenService struct {
	KeyManager   *jwtx.KeyManager
	Tokens       store.TokenStore
	Principals   store.Principals
	Issuer       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	StoreTimeout time.Duration
	Clock        clockx.Clock
	IDs          idx.Generator
	Metrics      *Metrics
}

func (s *TokenService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.RefreshTTL
}

func (s *TokenService) newSessionID(now time.Time) string {
	if s.IDs == nil {
		return idx.NewAt(now).String()
	}
	return s.IDs.New().String()
}

// Issue starts a new session for p and returns its first token pair.
func (s *TokenService) Issue(ctx context.Context, p domain.Principal) (*domain.TokenPair, error) {
	now := s.now()

	version, err := withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (int64, error) {
		return s.Tokens.TokenVersion(ctx, p.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("issue: token version: %w", err)
	}

	rid, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("issue: rotation id: %w", err)
	}

	sid := s.newSessionID(now)
	refreshExp := now.Add(s.refreshTTL())

	_, err = withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Tokens.CreateRotation(ctx, domain.Rotation{
			SessionID:    sid,
			PrincipalID:  p.ID,
			RotationHash: cryptox.FingerprintToken(rid),
			ExpiresAt:    refreshExp,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("issue: create rotation: %w", err)
	}

	slogx.FromContext(ctx).Debug("session issued",
		slog.String("principal_id", p.ID),
		slog.String("session_id", sid),
	)

	return s.sign(p, sid, rid, version, now)
}

// VerifyAccess checks an access token's signature, expiry and token version.
// It never writes to the store.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (domain.AccessClaims, error) {
	claims, err := s.KeyManager.Verifier.Verify(token)
	if err != nil {
		return domain.AccessClaims{}, mapVerifyError(err)
	}
	if err := claims.ValidateType(jwtx.TypeAccess); err != nil {
		return domain.AccessClaims{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.AccessClaims{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if err := s.checkVersion(ctx, claims); err != nil {
		return domain.AccessClaims{}, err
	}

	out := domain.AccessClaims{
		PrincipalID:  claims.Subject,
		Role:         role,
		TokenVersion: claims.TokenVersion,
		SessionID:    claims.SID,
		Verified:     claims.Verified,
		ExpiresAt:    claims.ExpiresAtTime().UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.UTC()
	}
	return out, nil
}

// Refresh consumes the rotation id carried by refreshToken and returns a new
// pair. Presenting a rotation id that was already consumed revokes every
// token of the principal and fails with ErrReplayDetected.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.checkVersion(ctx, claims); err != nil {
		return nil, err
	}

	// The role is re-read so a promotion or demotion lands on the next refresh.
	p, err := withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (domain.Principal, error) {
		return s.Principals.GetPrincipalByID(ctx, claims.Subject)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRevokedToken
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: principal: %w", err)
	}

	now := s.now()
	next, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("refresh: rotation id: %w", err)
	}

	_, err = withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Tokens.SwapRotation(ctx,
			claims.SID,
			cryptox.FingerprintToken(claims.RID),
			cryptox.FingerprintToken(next),
			now.Add(s.refreshTTL()),
			now,
		)
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrRotationMismatch):
		return nil, s.replayDetected(ctx, claims)
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrRevokedToken
	default:
		return nil, fmt.Errorf("refresh: swap rotation: %w", err)
	}

	return s.sign(p, claims.SID, next, claims.TokenVersion, now)
}

// RevokeAll bumps the principal's token version, invalidating every access
// and refresh token issued before the call. Returns the new version.
func (s *TokenService) RevokeAll(ctx context.Context, principalID string) (int64, error) {
	if s.Principals != nil {
		_, err := withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (domain.Principal, error) {
			return s.Principals.GetPrincipalByID(ctx, principalID)
		})
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUnknownPrincipal
		}
		if err != nil {
			return 0, fmt.Errorf("revoke: principal: %w", err)
		}
	}

	version, err := withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (int64, error) {
		return s.Tokens.IncrementTokenVersion(ctx, principalID, s.now())
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrUnknownPrincipal
	}
	if err != nil {
		return 0, fmt.Errorf("revoke: increment version: %w", err)
	}

	slogx.Security(ctx, "all sessions revoked",
		slog.String("principal_id", principalID),
		slog.Int64("token_version", version),
	)
	return version, nil
}

// LogoutCurrent ends the session of refreshToken only. Logging out a session
// that is already gone succeeds.
func (s *TokenService) LogoutCurrent(ctx context.Context, refreshToken string) error {
	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return err
	}

	_, err = withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Tokens.DeleteRotation(ctx, claims.SID, cryptox.FingerprintToken(claims.RID))
	})
	switch {
	case err == nil, errors.Is(err, store.ErrNotFound):
		return nil
	case errors.Is(err, store.ErrRotationMismatch):
		return ErrRevokedToken
	default:
		return fmt.Errorf("logout: delete rotation: %w", err)
	}
}

func (s *TokenService) verifyRefresh(token string) (jwtx.Claims, error) {
	claims, err := s.KeyManager.Verifier.Verify(token)
	if err != nil {
		return jwtx.Claims{}, mapVerifyError(err)
	}
	if err := claims.ValidateType(jwtx.TypeRefresh); err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if claims.SID == "" || claims.RID == "" || claims.Subject == "" {
		return jwtx.Claims{}, fmt.Errorf("%w: missing session claims", ErrInvalidSignature)
	}
	return claims, nil
}

func (s *TokenService) checkVersion(ctx context.Context, claims jwtx.Claims) error {
	current, err := withStoreTimeout(ctx, s.StoreTimeout, func(ctx context.Context) (int64, error) {
		return s.Tokens.TokenVersion(ctx, claims.Subject)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrRevokedToken
	}
	if err != nil {
		return fmt.Errorf("token version: %w", err)
	}
	if claims.TokenVersion != current {
		return ErrRevokedToken
	}
	return nil
}

// replayDetected revokes the principal. The bump runs detached from the
// caller's cancellation so a client hanging up cannot skip it.
func (s *TokenService) replayDetected(ctx context.Context, claims jwtx.Claims) error {
	s.Metrics.replay()

	version, err := withStoreTimeout(context.WithoutCancel(ctx), s.StoreTimeout, func(ctx context.Context) (int64, error) {
		return s.Tokens.IncrementTokenVersion(ctx, claims.Subject, s.now())
	})
	if err != nil {
		slogx.Security(ctx, "refresh token replay detected, revocation failed",
			slog.String("principal_id", claims.Subject),
			slog.String("session_id", claims.SID),
			slog.Any("error", err),
		)
		return ErrReplayDetected
	}

	slogx.Security(ctx, "refresh token replay detected",
		slog.String("principal_id", claims.Subject),
		slog.String("session_id", claims.SID),
		slog.Int64("token_version", version),
	)
	return ErrReplayDetected
}

func (s *TokenService) sign(p domain.Principal, sid, rid string, version int64, now time.Time) (*domain.TokenPair, error) {
	signer := s.KeyManager.GetSigner()
	if signer == nil {
		return nil, errors.New("no signing key available")
	}

	ac := jwtx.NewAccessClaims(p.ID, p.Role.String(), sid, version, s.accessTTL(), s.Issuer, now)
	ac.Verified = p.IsVerified()
	access, err := signer.Sign(ac)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	rc := jwtx.NewRefreshClaims(p.ID, sid, rid, version, s.refreshTTL(), s.Issuer, now)
	refresh, err := signer.Sign(rc)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		SessionID:        sid,
		ExpiresIn:        s.accessTTL(),
		RefreshExpiresAt: now.Add(s.refreshTTL()),
	}, nil
}

// mapVerifyError folds codec errors into the two caller-facing outcomes.
func mapVerifyError(err error) error {
	if errors.Is(err, jwtx.ErrExpired) {
		return ErrExpiredToken
	}
	return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
}
