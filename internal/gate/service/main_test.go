package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/store"
	"github.com/aussiebroadwan/agency/internal/gate/store/drivers/sqlite"
	"github.com/aussiebroadwan/agency/pkg/clockx"
	"github.com/aussiebroadwan/agency/pkg/cryptox"
	"github.com/aussiebroadwan/agency/pkg/idx"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "agency-service-test")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

var testEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store      *sqlite.Store
	clock      *clockx.FakeClock
	metrics    *Metrics
	tokens     *TokenService
	limiter    *RateLimiter
	gate       *Gate
	principals *PrincipalService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	clk := clockx.Fake(testEpoch)
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer: "agency",
		Now:    clk.Now,
	})
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	ids := idx.NewGenerator(clk)

	tokens := &TokenService{
		KeyManager: km,
		Tokens:     s.Tokens(),
		Principals: s.Principals(),
		Issuer:     "agency",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Clock:      clk,
		IDs:        ids,
		Metrics:    metrics,
	}
	limiter := NewRateLimiter(s.RateLimits(), RateLimiterOptions{Clock: clk, Metrics: metrics})

	return &testEnv{
		store:   s,
		clock:   clk,
		metrics: metrics,
		tokens:  tokens,
		limiter: limiter,
		gate: &Gate{
			Tokens:  tokens,
			Limiter: limiter,
			Metrics: metrics,
		},
		principals: &PrincipalService{
			Principals: s.Principals(),
			Clock:      clk,
			IDs:        ids,
		},
	}
}

// seed inserts a principal without paying for a password hash.
func (e *testEnv) seed(t *testing.T, email string, role domain.Role) domain.Principal {
	t.Helper()

	now := e.clock.Now()
	p := domain.Principal{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		PasswordHash: "unused",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.Principals().CreatePrincipal(context.Background(), p))
	return p
}

func (e *testEnv) version(t *testing.T, principalID string) int64 {
	t.Helper()

	v, err := e.store.Tokens().TokenVersion(context.Background(), principalID)
	require.NoError(t, err)
	return v
}

var errConnRefused = errors.New("dial tcp 10.0.0.9:6379: connect: connection refused")

// brokenTokens fails every call the way an unreachable backend does.
type brokenTokens struct{ store.TokenStore }

func (brokenTokens) TokenVersion(context.Context, string) (int64, error) { return 0, errConnRefused }

// hangingTokens blocks until the caller's deadline.
type hangingTokens struct{ store.TokenStore }

func (hangingTokens) TokenVersion(ctx context.Context, _ string) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

type brokenWindows struct{}

func (brokenWindows) Increment(context.Context, string, int64, time.Duration, time.Time) (domain.Window, error) {
	return domain.Window{}, errConnRefused
}

func (brokenWindows) DeleteExpiredWindows(context.Context, time.Time) (int64, error) {
	return 0, errConnRefused
}
