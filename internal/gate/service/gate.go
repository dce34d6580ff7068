package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/pkg/slogx"
)

// Throttle is the quota of one route. Cost defaults to 1.
type Throttle struct {
	Action   string
	MaxCount int64
	Window   time.Duration
	Cost     int64
}

// RoutePolicy declares what a route requires before its handler runs.
type RoutePolicy struct {
	Name string

	// Throttle is nil for unthrottled routes.
	Throttle *Throttle

	// RequireIdentity rejects callers without a valid bearer token. A
	// non-empty Roles implies it.
	RequireIdentity bool

	// Roles admitted to the route; empty admits every role.
	Roles []domain.Role
}

func (p RoutePolicy) needsIdentity() bool {
	return p.RequireIdentity || len(p.Roles) > 0
}

// Inbound is the part of a request the gate looks at.
type Inbound struct {
	BearerToken string
	ClientIP    string
}

type RejectionKind string

const (
	Throttled       RejectionKind = "throttled"
	Unauthenticated RejectionKind = "unauthenticated"
	Forbidden       RejectionKind = "forbidden"
	Unavailable     RejectionKind = "unavailable"
)

// Rejection is the error Admit returns when a request is turned away.
type Rejection struct {
	Kind       RejectionKind
	RetryAfter time.Duration // set for Throttled
	Reason     string        // safe to show to the caller
	Err        error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Kind, r.Reason, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Err }

// AccessVerifier is the slice of TokenService the gate needs.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, token string) (domain.AccessClaims, error)
}

// Gate admits or rejects requests. Checks run in a fixed order: rate limit,
// then bearer verification, then the role predicate. A throttled request
// never reaches the token store, and every admitted or forbidden request has
// been counted exactly once.
type Gate struct {
	Tokens  AccessVerifier
	Limiter *RateLimiter
	Metrics *Metrics
}

func (g *Gate) Admit(ctx context.Context, in Inbound, p RoutePolicy) (domain.AuthorizedRequest, error) {
	req, err := g.admit(ctx, in, p)

	outcome := "admitted"
	var rej *Rejection
	if errors.As(err, &rej) {
		outcome = string(rej.Kind)
	}
	g.Metrics.decision(p.Name, outcome)

	if rej != nil {
		slogx.FromContext(ctx).Info("request rejected",
			slog.String("route", p.Name),
			slog.String("kind", string(rej.Kind)),
			slog.String("reason", rej.Reason),
		)
	}
	return req, err
}

func (g *Gate) admit(ctx context.Context, in Inbound, p RoutePolicy) (domain.AuthorizedRequest, error) {
	req := domain.AuthorizedRequest{Route: p.Name, ClientIP: in.ClientIP}

	if t := p.Throttle; t != nil {
		cost := t.Cost
		if cost <= 0 {
			cost = 1
		}
		d, err := g.Limiter.Check(ctx, t.Action, in.ClientIP, cost, t.MaxCount, t.Window)
		if err != nil {
			return req, &Rejection{Kind: Unavailable, Reason: "rate limit misconfigured", Err: err}
		}
		if !d.Allowed {
			return req, &Rejection{Kind: Throttled, RetryAfter: d.RetryAfter, Reason: "rate limit exceeded"}
		}
	}

	if in.BearerToken == "" {
		if p.needsIdentity() {
			return req, &Rejection{Kind: Unauthenticated, Reason: "missing bearer token"}
		}
		return req, nil
	}

	// A bearer that was sent but fails verification is rejected even on
	// routes that admit anonymous callers.
	claims, err := g.Tokens.VerifyAccess(ctx, in.BearerToken)
	if err != nil {
		return req, verifyRejection(err)
	}

	if !domain.Allowed(claims.Role, p.Roles) {
		return req, &Rejection{Kind: Forbidden, Reason: "role not permitted"}
	}

	req.Authenticated = true
	req.PrincipalID = claims.PrincipalID
	req.Role = claims.Role
	req.Scopes = domain.ScopesFor(claims.Role)
	req.SessionID = claims.SessionID
	req.Verified = claims.Verified
	return req, nil
}

func verifyRejection(err error) *Rejection {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return &Rejection{Kind: Unauthenticated, Reason: "token expired", Err: err}
	case errors.Is(err, ErrRevokedToken):
		return &Rejection{Kind: Unauthenticated, Reason: "token revoked", Err: err}
	case errors.Is(err, ErrInvalidSignature):
		return &Rejection{Kind: Unauthenticated, Reason: "invalid token", Err: err}
	default:
		return &Rejection{Kind: Unavailable, Reason: "authentication temporarily unavailable", Err: err}
	}
}
