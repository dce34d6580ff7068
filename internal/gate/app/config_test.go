package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"GATE_ISSUER", "GATE_SIGNING_ALGORITHM", "GATE_STATE_BACKEND",
		"GATE_RATELIMIT_FAILURE_POLICY", "GATE_COOKIE_SECURE", "GATE_MAILER",
		"GATE_ACCESS_TTL", "GATE_STORE_TIMEOUT", "PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "agency-gate", cfg.Issuer)
	require.Equal(t, jwtx.AlgorithmEdDSA, cfg.Algorithm)
	require.Equal(t, StateBackendSQLite, cfg.StateBackend)
	require.Equal(t, service.FailOpen, cfg.FailurePolicy)
	require.True(t, cfg.CookieSecure)
	require.Equal(t, MailerLog, cfg.Mailer)
	require.Equal(t, jwtx.DefaultAccessTokenTTL, cfg.AccessTTL)
	require.Equal(t, service.DefaultStoreTimeout, cfg.StoreTimeout)
	require.Equal(t, 8080, cfg.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("GATE_STATE_BACKEND", "Redis")
	t.Setenv("GATE_RATELIMIT_FAILURE_POLICY", "closed")
	t.Setenv("GATE_COOKIE_SECURE", "false")
	t.Setenv("GATE_ACCESS_TTL", "5m")
	t.Setenv("GATE_REFRESH_TTL", "90")
	t.Setenv("GATE_STORE_TIMEOUT", "250ms")
	t.Setenv("GATE_REDIS_DB", "3")
	t.Setenv("PORT", "not-a-port")
	t.Setenv("GATE_TRUSTED_PROXIES", "10.0.0.0/8")

	cfg := LoadConfig()
	require.Equal(t, StateBackendRedis, cfg.StateBackend)
	require.Equal(t, service.FailClosed, cfg.FailurePolicy)
	require.False(t, cfg.CookieSecure)
	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, 90*time.Minute, cfg.RefreshTTL)
	require.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "10.0.0.0/8", cfg.TrustedProxies)
}

func TestLoadConfig_UnknownFailurePolicy(t *testing.T) {
	t.Setenv("GATE_RATELIMIT_FAILURE_POLICY", "sometimes")

	cfg := LoadConfig()
	require.Equal(t, service.FailOpen, cfg.FailurePolicy)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Algorithm:    jwtx.AlgorithmEdDSA,
		StateBackend: StateBackendSQLite,
		Mailer:       MailerLog,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown algorithm", func(c *Config) { c.Algorithm = "RS256" }},
		{"short hs256 secret", func(c *Config) {
			c.Algorithm = jwtx.AlgorithmHS256
			c.SigningSecret = "too-short"
		}},
		{"unknown state backend", func(c *Config) { c.StateBackend = "memcached" }},
		{"unknown mailer", func(c *Config) { c.Mailer = "smtp" }},
		{"malformed trusted proxy", func(c *Config) { c.TrustedProxies = "10.0.0.0/8, proxy.internal" }},
		{"admin email without password", func(c *Config) { c.AdminEmail = "root@example.com" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
