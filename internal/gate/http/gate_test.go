package http

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/httpx"
)

var contactForm = authsdk.SubmissionRequest{
	Name:    "Ada Lovelace",
	Email:   "Ada@Example.com",
	Subject: "Analytical engine",
	Message: "We would like a quote.",
}

func TestGate_FreelancerOnAdminRoute(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	freelancer := ts.seed(t, "fran@example.com", domain.RoleFreelancer)
	client := ts.seed(t, "cli@example.com", domain.RoleClient)
	token := ts.accessToken(t, freelancer)

	resp := ts.do(t, request{
		method: http.MethodPost,
		path:   "/v1/admin/principals/" + client.ID + "/revoke",
		bearer: token,
		ip:     "198.51.100.4",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody[authsdk.ErrorResponse](t, resp)
	require.Equal(t, "forbidden", body.Error)

	// The target was not revoked.
	v, err := ts.store.Tokens().TokenVersion(context.Background(), client.ID)
	require.NoError(t, err)
	require.Zero(t, v)

	require.InDelta(t, 1, testutil.ToFloat64(
		ts.metrics.Decisions.WithLabelValues("admin.revoke", "forbidden")), 0)

	// The forbidden request was counted exactly once.
	w, err := ts.store.RateLimits().Increment(context.Background(),
		service.RateLimitKey(ActionAPI, "198.51.100.4"), 1, time.Minute, ts.clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 2, w.Count)
}

func TestGate_Unauthenticated(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	t.Run("missing bearer", func(t *testing.T) {
		resp := ts.do(t, request{method: http.MethodGet, path: "/v1/me"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, `Bearer realm="agency"`, resp.Header.Get("WWW-Authenticate"))

		body := decodeBody[authsdk.ErrorResponse](t, resp)
		require.Equal(t, "unauthenticated", body.Error)
		require.Equal(t, "missing bearer token", body.ErrorDescription)
	})

	t.Run("garbage bearer", func(t *testing.T) {
		resp := ts.do(t, request{method: http.MethodGet, path: "/v1/me", bearer: "not-a-jwt"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("garbage bearer on anonymous route", func(t *testing.T) {
		resp := ts.do(t, request{
			method: http.MethodPost,
			path:   "/v1/contact-us",
			body:   contactForm,
			bearer: "not-a-jwt",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Zero(t, ts.mailer.count())
	})

	t.Run("expired bearer", func(t *testing.T) {
		p := ts.seed(t, "late@example.com", domain.RoleClient)
		token := ts.accessToken(t, p)
		ts.clock.Advance(16 * time.Minute)

		resp := ts.do(t, request{method: http.MethodGet, path: "/v1/me", bearer: token})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeBody[authsdk.ErrorResponse](t, resp)
		require.Equal(t, "token expired", body.ErrorDescription)
	})
}

func TestGate_ContactUsThrottled(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	const ip = "203.0.113.7"

	for range 5 {
		resp := ts.do(t, request{method: http.MethodPost, path: "/v1/contact-us", body: contactForm, ip: ip})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	ts.clock.Advance(120 * time.Second)

	resp := ts.do(t, request{method: http.MethodPost, path: "/v1/contact-us", body: contactForm, ip: ip})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "180", resp.Header.Get("Retry-After"))
	body := decodeBody[authsdk.ErrorResponse](t, resp)
	require.Equal(t, "throttled", body.Error)

	// Another caller has its own window.
	resp = ts.do(t, request{method: http.MethodPost, path: "/v1/contact-us", body: contactForm, ip: "203.0.113.8"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Throttling one action leaves the others alone.
	resp = ts.do(t, request{method: http.MethodPost, path: "/v1/hire-us", body: contactForm, ip: ip})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	ts.clock.Advance(180 * time.Second)
	resp = ts.do(t, request{method: http.MethodPost, path: "/v1/contact-us", body: contactForm, ip: ip})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Equal(t, 8, ts.mailer.count())
	require.InDelta(t, 1, testutil.ToFloat64(
		ts.metrics.Decisions.WithLabelValues("contact_us", "throttled")), 0)
}

func TestGate_ForwardedForFromUntrustedPeer(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(r *Router) { r.ClientIP = httpx.ClientIP(nil) })

	admitted := 0
	for i := range 20 {
		resp := ts.do(t, request{
			method: http.MethodPost,
			path:   "/v1/contact-us",
			body:   contactForm,
			ip:     fmt.Sprintf("203.0.113.%d", i+1),
		})
		if resp.StatusCode == http.StatusAccepted {
			admitted++
		}
	}
	require.Equal(t, 5, admitted)
	require.Equal(t, 5, ts.mailer.count())

	// The window is keyed by the connection peer.
	w, err := ts.store.RateLimits().Increment(context.Background(),
		service.RateLimitKey(ActionContactUs, "127.0.0.1"), 0, 5*time.Minute, ts.clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 20, w.Count)
}

func TestGate_ConsultationRoles(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	client := ts.seed(t, "cli@example.com", domain.RoleClient)
	freelancer := ts.seed(t, "fran@example.com", domain.RoleFreelancer)

	resp := ts.do(t, request{
		method: http.MethodPost,
		path:   "/v1/consultations",
		body:   contactForm,
		bearer: ts.accessToken(t, client),
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	out := decodeBody[authsdk.SubmissionResponse](t, resp)
	require.Equal(t, "consultation", out.Kind)
	require.NotEmpty(t, out.ID)

	ts.mailer.mu.Lock()
	sent := ts.mailer.sent[0]
	ts.mailer.mu.Unlock()
	require.Equal(t, client.ID, sent.PrincipalID)
	require.Equal(t, "ada@example.com", sent.Email)

	resp = ts.do(t, request{
		method: http.MethodPost,
		path:   "/v1/consultations",
		body:   contactForm,
		bearer: ts.accessToken(t, freelancer),
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, request{method: http.MethodPost, path: "/v1/consultations", body: contactForm})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, 1, ts.mailer.count())
}

func TestGate_AdminRevoke(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	admin := ts.seed(t, "root@example.com", domain.RoleAdmin)
	victim := ts.seed(t, "fran@example.com", domain.RoleFreelancer)
	victimToken := ts.accessToken(t, victim)
	adminToken := ts.accessToken(t, admin)

	resp := ts.do(t, request{method: http.MethodGet, path: "/v1/me", bearer: victimToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, request{
		method: http.MethodPost,
		path:   "/v1/admin/principals/" + victim.ID + "/revoke",
		bearer: adminToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[authsdk.RevokeResponse](t, resp)
	require.Equal(t, victim.ID, out.PrincipalID)
	require.EqualValues(t, 1, out.TokenVersion)

	resp = ts.do(t, request{method: http.MethodGet, path: "/v1/me", bearer: victimToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[authsdk.ErrorResponse](t, resp)
	require.Equal(t, "token revoked", body.ErrorDescription)

	resp = ts.do(t, request{
		method: http.MethodPost,
		path:   "/v1/admin/principals/01J0000000000000000000NOPE/revoke",
		bearer: adminToken,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGate_StateStoreDown(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(r *Router) {
		r.Gate.Limiter = service.NewRateLimiter(brokenWindows{}, service.RateLimiterOptions{
			Policy:  service.FailClosed,
			Metrics: r.Metrics,
		})
	})

	resp := ts.do(t, request{method: http.MethodPost, path: "/v1/contact-us", body: contactForm})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "30", resp.Header.Get("Retry-After"))
	require.Zero(t, ts.mailer.count())
}
