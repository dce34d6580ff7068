package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/store"
	"github.com/aussiebroadwan/agency/pkg/clockx"
	"github.com/aussiebroadwan/agency/pkg/cryptox"
	"github.com/aussiebroadwan/agency/pkg/slogx"
)

// FailurePolicy decides what a check does when the shared store is down.
type FailurePolicy int

const (
	// FailOpen falls back to a per-instance token bucket. Limits hold per
	// instance instead of globally until the store is back.
	FailOpen FailurePolicy = iota

	// FailClosed rejects every check until the store is back.
	FailClosed
)

// DefaultFailClosedRetryAfter is the Retry-After sent while failing closed.
const DefaultFailClosedRetryAfter = 30 * time.Second

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("unknown rate limit failure policy %q", s)
	}
}

func (p FailurePolicy) String() string {
	if p == FailClosed {
		return "closed"
	}
	return "open"
}

type RateLimiterOptions struct {
	Policy FailurePolicy

	// FailClosedRetryAfter is reported on rejections caused by an
	// unreachable store. Defaults to DefaultFailClosedRetryAfter.
	FailClosedRetryAfter time.Duration

	StoreTimeout time.Duration
	Clock        clockx.Clock
	Metrics      *Metrics
}

// RateLimiter enforces fixed-window quotas against a shared RateLimitStore.
// Every call counts against the window, rejected ones included.
type RateLimiter struct {
	store store.RateLimitStore
	opts  RateLimiterOptions
	local *localLimiter
}

func NewRateLimiter(s store.RateLimitStore, opts RateLimiterOptions) *RateLimiter {
	if opts.Clock == nil {
		opts.Clock = clockx.Real()
	}
	if opts.FailClosedRetryAfter <= 0 {
		opts.FailClosedRetryAfter = DefaultFailClosedRetryAfter
	}
	return &RateLimiter{
		store: s,
		opts:  opts,
		local: newLocalLimiter(),
	}
}

// Policy reports what Check does while the store is unreachable.
func (rl *RateLimiter) Policy() FailurePolicy { return rl.opts.Policy }

// RateLimitKey is the store key of one (action, identity) pair. The identity
// is hashed so client addresses never land in the store verbatim.
func RateLimitKey(action, identity string) string {
	return "rl:" + action + ":" + cryptox.FingerprintParts(action, identity)
}

// Check adds cost to the current window of (action, identity) and reports
// whether the caller is still within maxCount. A rejected call reports how
// long until its window ends.
func (rl *RateLimiter) Check(
	ctx context.Context,
	action, identity string,
	cost, maxCount int64,
	window time.Duration,
) (domain.Decision, error) {
	if cost <= 0 || maxCount <= 0 || window <= 0 {
		return domain.Decision{}, fmt.Errorf("%w: cost=%d max=%d window=%s", ErrInvalidQuota, cost, maxCount, window)
	}

	now := rl.opts.Clock.Now()
	key := RateLimitKey(action, identity)

	w, err := withStoreTimeout(ctx, rl.opts.StoreTimeout, func(ctx context.Context) (domain.Window, error) {
		return rl.store.Increment(ctx, key, cost, window, now)
	})
	if err != nil {
		rl.opts.Metrics.storeFailure(action)
		slogx.FromContext(ctx).Warn("rate limit store unavailable",
			slog.String("action", action),
			slog.String("policy", rl.opts.Policy.String()),
			slog.Any("error", err),
		)
		if rl.opts.Policy == FailClosed {
			return domain.Decision{
				Allowed:    false,
				Limit:      maxCount,
				RetryAfter: rl.opts.FailClosedRetryAfter,
				ResetAt:    now.Add(rl.opts.FailClosedRetryAfter),
				Degraded:   true,
			}, nil
		}
		return rl.local.check(key, cost, maxCount, window, now), nil
	}

	return decide(w, maxCount, now), nil
}

func decide(w domain.Window, maxCount int64, now time.Time) domain.Decision {
	d := domain.Decision{
		Allowed:   w.Count <= maxCount,
		Count:     w.Count,
		Limit:     maxCount,
		Remaining: max(maxCount-w.Count, 0),
		ResetAt:   w.End(),
	}
	if !d.Allowed {
		d.RetryAfter = max(w.End().Sub(now), 0)
	}
	return d
}
