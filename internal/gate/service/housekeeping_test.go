package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/stretchr/testify/require"
)

func TestHousekeeping_Cleanup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seed(t, "client@example.com", domain.RoleClient)

	_, err := env.tokens.Issue(ctx, p)
	require.NoError(t, err)
	_, err = env.limiter.Check(ctx, "login", "192.0.2.1", 1, 10, time.Minute)
	require.NoError(t, err)

	hk := NewHousekeepingService(env.store.Tokens(), env.store.RateLimits(), slog.New(slog.DiscardHandler), time.Hour)
	hk.Clock = env.clock

	require.Equal(t, int64(0), hk.cleanup(ctx))

	env.clock.Advance(25 * time.Hour)
	require.Equal(t, int64(2), hk.cleanup(ctx))
}

func TestHousekeeping_StartStop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	hk := NewHousekeepingService(env.store.Tokens(), env.store.RateLimits(), slog.New(slog.DiscardHandler), 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
}

func TestHousekeeping_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seed(t, "client@example.com", domain.RoleClient)
	_, err := env.tokens.Issue(ctx, p)
	require.NoError(t, err)

	hk := NewHousekeepingService(env.store.Tokens(), brokenWindows{}, slog.New(slog.DiscardHandler), time.Hour)
	hk.Clock = env.clock
	env.clock.Advance(25 * time.Hour)

	require.Equal(t, int64(1), hk.cleanup(ctx))
}
