package gate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/agency/internal/gate/app"
	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
)

/*
 * End-to-end tests run several gate instances in-process against one redis
 * container, the way a horizontally scaled deployment shares its state.
 * Principals live in one sqlite file shared by every instance.
 */

const (
	adminEmail    = "root@example.com"
	adminPassword = "correct horse battery staple"
	userPassword  = "another horse battery staple"
)

var contactForm = authsdk.SubmissionRequest{
	Name:    "Ada Lovelace",
	Email:   "ada@example.com",
	Subject: "Analytical engine",
	Message: "We would like a quote.",
}

// setupRedis starts a throwaway redis container and returns its address.
func setupRedis(t *testing.T) (string, testcontainers.Container) {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e tests skipped in -short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mappedPort.Port()), container
}

// startCluster starts n gate instances sharing redisAddr, one database file
// and one signing key. It returns their base URLs.
func startCluster(t *testing.T, redisAddr string, n int) []string {
	t.Helper()

	dir := t.TempDir()
	cfg := app.Config{
		Issuer:               "agency-gate",
		Algorithm:            jwtx.AlgorithmEdDSA,
		SigningKeyFile:       filepath.Join(dir, "signing.pem"),
		AccessTTL:            jwtx.DefaultAccessTokenTTL,
		RefreshTTL:           jwtx.DefaultRefreshTokenTTL,
		DatabaseFile:         filepath.Join(dir, "gate.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		StateBackend:         app.StateBackendRedis,
		RedisAddr:            redisAddr,
		StoreTimeout:         service.DefaultStoreTimeout,
		FailurePolicy:        service.FailOpen,
		CookieSecure:         false,
		Mailer:               app.MailerLog,
		AdminEmail:           adminEmail,
		AdminPassword:        adminPassword,
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "json",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}

	urls := make([]string, 0, n)
	for range n {
		instance, err := app.New(cfg)
		require.NoError(t, err)

		srv := httptest.NewServer(instance.Handler())
		t.Cleanup(func() {
			srv.Close()
			instance.Close()
		})
		urls = append(urls, srv.URL)
	}
	return urls
}

// registerAndLogin creates a CLIENT principal through baseURL and logs it in.
func registerAndLogin(t *testing.T, baseURL, email string) (*authsdk.RegisterResponse, *authsdk.Session) {
	t.Helper()
	ctx := context.Background()
	client := authsdk.NewSDKClient(baseURL)

	reg, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:    email,
		Password: userPassword,
		Role:     "CLIENT",
	})
	require.NoError(t, err)

	session, err := client.Login(ctx, email, userPassword)
	require.NoError(t, err)
	return reg, session
}

// postJSON sends body to baseURL+path with the given cookies attached.
func postJSON(t *testing.T, baseURL, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var raw string
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		raw = string(b)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, strings.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range resp.Cookies() {
		if c.Name == "agency_refresh" {
			return c
		}
	}
	t.Fatalf("response carries no refresh cookie")
	return nil
}

// getWithBearer sends a GET to baseURL+path carrying token.
func getWithBearer(t *testing.T, baseURL, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
