package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/agency/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestClientIP_NoTrustedProxies(t *testing.T) {
	clientIP := httpx.ClientIP(nil)

	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "192.168.1.1", clientIP(req))
	})

	t.Run("ignores spoofed forwarding headers", func(t *testing.T) {
		for _, spoofed := range []string{"203.0.113.1", "203.0.113.2, 10.0.0.1", "garbage"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			req.Header.Set("X-Forwarded-For", spoofed)
			req.Header.Set("X-Real-IP", "203.0.113.9")

			require.Equal(t, "192.168.1.1", clientIP(req), spoofed)
		}
	})

	t.Run("RemoteAddr without port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.7"

		require.Equal(t, "10.0.0.7", clientIP(req))
	})
}

func TestClientIP_TrustedProxies(t *testing.T) {
	trusted, err := httpx.ParseTrustedProxies("10.0.0.0/8, 192.168.1.1")
	require.NoError(t, err)
	clientIP := httpx.ClientIP(trusted)

	tests := []struct {
		name   string
		remote string
		xff    []string
		realIP string
		want   string
	}{
		{
			name:   "right-most untrusted hop",
			remote: "192.168.1.1:443",
			xff:    []string{"198.51.100.7, 203.0.113.1, 10.1.2.3"},
			want:   "203.0.113.1",
		},
		{
			name:   "multiple header lines",
			remote: "10.0.0.2:443",
			xff:    []string{"198.51.100.7", "203.0.113.1"},
			want:   "203.0.113.1",
		},
		{
			name:   "all hops trusted",
			remote: "10.0.0.2:443",
			xff:    []string{"10.9.9.9, 10.0.0.3"},
			want:   "10.9.9.9",
		},
		{
			name:   "unparseable hop stops the walk",
			remote: "10.0.0.2:443",
			xff:    []string{"203.0.113.1, not-an-ip, 10.0.0.3"},
			want:   "10.0.0.3",
		},
		{
			name:   "X-Real-IP from trusted peer",
			remote: "10.0.0.2:443",
			realIP: "203.0.113.2",
			want:   "203.0.113.2",
		},
		{
			name:   "untrusted peer keeps its own address",
			remote: "198.51.100.9:443",
			xff:    []string{"203.0.113.1"},
			want:   "198.51.100.9",
		},
		{
			name:   "IPv4-mapped peer",
			remote: "[::ffff:10.0.0.2]:443",
			xff:    []string{"203.0.113.4"},
			want:   "203.0.113.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			require.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := httpx.ParseTrustedProxies("")
	require.NoError(t, err)
	require.Empty(t, prefixes)

	prefixes, err = httpx.ParseTrustedProxies("10.1.2.3/8,::1")
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	require.Equal(t, "10.0.0.0/8", prefixes[0].String())
	require.Equal(t, "::1/128", prefixes[1].String())

	_, err = httpx.ParseTrustedProxies("10.0.0.0/8, example.com")
	require.Error(t, err)
}

func TestParseQuotaFromEnv(t *testing.T) {
	defaultConfig := httpx.QuotaConfig{
		Requests: 5,
		Window:   5 * time.Minute,
		Cost:     1,
	}

	t.Run("NoEnvVarsUsesDefaults", func(t *testing.T) {
		config := httpx.ParseQuotaFromEnv("TEST", defaultConfig)
		require.Equal(t, defaultConfig, config)
	})

	t.Run("OverrideRequests", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "50")

		config := httpx.ParseQuotaFromEnv("TEST", defaultConfig)
		require.Equal(t, int64(50), config.Requests)
		require.Equal(t, defaultConfig.Window, config.Window)
		require.Equal(t, defaultConfig.Cost, config.Cost)
	})

	t.Run("OverrideWindowDuration", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "120")

		config := httpx.ParseQuotaFromEnv("TEST", defaultConfig)
		require.Equal(t, 120*time.Second, config.Window)
	})

	t.Run("OverrideAllParameters", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "200")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_TEST_COST", "3")

		config := httpx.ParseQuotaFromEnv("TEST", defaultConfig)
		require.Equal(t, httpx.QuotaConfig{Requests: 200, Window: 30 * time.Second, Cost: 3}, config)
	})

	t.Run("InvalidValuesUseDefaults", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "invalid")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "-10")
		t.Setenv("RATELIMIT_TEST_COST", "0")

		config := httpx.ParseQuotaFromEnv("TEST", defaultConfig)
		require.Equal(t, defaultConfig, config)
	})
}
