package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	return Config{
		Issuer:               "agency-gate",
		Algorithm:            jwtx.AlgorithmEdDSA,
		SigningKeyFile:       filepath.Join(dir, "signing.pem"),
		AccessTTL:            jwtx.DefaultAccessTokenTTL,
		RefreshTTL:           jwtx.DefaultRefreshTokenTTL,
		DatabaseFile:         filepath.Join(dir, "gate.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		StateBackend:         StateBackendSQLite,
		Mailer:               MailerLog,
		AdminEmail:           "root@example.com",
		AdminPassword:        "correct horse battery staple",
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
}

// serve starts the application's router without the listener or background
// workers that Run would start.
func serve(t *testing.T, application *Application) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		application.Close()
	})
	return srv
}

func TestNew_BootstrapAdmin(t *testing.T) {
	cfg := testConfig(t)

	application, err := New(cfg)
	require.NoError(t, err)
	srv := serve(t, application)

	ctx := context.Background()
	session, err := authsdk.NewSDKClient(srv.URL).Login(ctx, cfg.AdminEmail, cfg.AdminPassword)
	require.NoError(t, err)

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "ADMIN", me.Role)
	require.True(t, me.Verified)

	resp, err := srv.Client().Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metrics, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	require.Equal(t, http.StatusOK, metrics.StatusCode)
}

func TestNew_SigningKeySurvivesRestart(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(cfg)
	require.NoError(t, err)
	firstSrv := httptest.NewServer(first.Handler())

	session, err := authsdk.NewSDKClient(firstSrv.URL).Login(context.Background(), cfg.AdminEmail, cfg.AdminPassword)
	require.NoError(t, err)
	token := session.AccessToken()
	firstSrv.Close()
	first.Close()

	second, err := New(cfg)
	require.NoError(t, err)
	srv := serve(t, second)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.StateBackend = "memcached"

	_, err := New(cfg)
	require.Error(t, err)
}
