package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/agency/pkg/authsdk"
)

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_Livez(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	health, err := authsdk.NewSDKClient(ts.URL).GetLiveness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "test", health.Version)
	require.Equal(t, "open", health.FailurePolicy)
	require.Nil(t, health.Checks)
}

func TestHealth_Readyz(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t)
		health, err := authsdk.NewSDKClient(ts.URL).GetReadiness(context.Background())
		require.NoError(t, err)
		require.Equal(t, "ok", health.Status)
		require.Equal(t, &authsdk.HealthChecks{Database: "ok", State: "ok", Signer: "ok"}, health.Checks)
	})

	t.Run("state store down", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, func(r *Router) { r.state = downPinger{} })
		resp := ts.do(t, request{method: http.MethodGet, path: "/readyz"})
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		health := decodeBody[authsdk.HealthResponse](t, resp)
		require.Equal(t, "degraded", health.Status)
		require.Equal(t, "ok", health.Checks.Database)
		require.Equal(t, "error", health.Checks.State)
	})
}

func TestHealth_Metrics(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	resp := ts.do(t, request{method: http.MethodGet, path: "/v1/me"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, request{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(raw)
	require.Contains(t, body, `gate_decisions_total{outcome="unauthenticated",route="me"} 1`)
	require.Contains(t, body, `http_requests_total{method="GET",path="GET /v1/me",status="401"} 1`)
}

func TestHealth_Swagger(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	resp := ts.do(t, request{method: http.MethodGet, path: "/swagger/doc.json"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "/v1/auth/refresh")
}
