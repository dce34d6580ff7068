package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/httpx"
	"github.com/aussiebroadwan/agency/pkg/slogx"
)

type ctxKeyAuthorized struct{}

// WithAuthorized stores the admitted request in ctx.
func WithAuthorized(ctx context.Context, ar domain.AuthorizedRequest) context.Context {
	return context.WithValue(ctx, ctxKeyAuthorized{}, ar)
}

// Authorized returns what the gate admitted for this request.
func Authorized(ctx context.Context) (domain.AuthorizedRequest, bool) {
	ar, ok := ctx.Value(ctxKeyAuthorized{}).(domain.AuthorizedRequest)
	return ar, ok
}

// GateMiddleware runs every request through the gate under policy p, keyed
// by the caller identity clientIP resolves. Admitted requests reach next
// with a domain.AuthorizedRequest in their context; the raw bearer token is
// not passed on.
func GateMiddleware(g *service.Gate, p service.RoutePolicy, clientIP httpx.KeyExtractor) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, _ := httpx.BearerToken(r)

			ar, err := g.Admit(r.Context(), service.Inbound{
				BearerToken: bearer,
				ClientIP:    clientIP(r),
			}, p)
			if err != nil {
				writeRejection(w, r, err, bearer != "")
				return
			}

			r.Header.Del("Authorization")
			ctx := WithAuthorized(r.Context(), ar)
			if ar.Authenticated {
				ctx = slogx.With(ctx, "principal_id", ar.PrincipalID, "session_id", ar.SessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeRejection(w http.ResponseWriter, r *http.Request, err error, sentBearer bool) {
	var rej *service.Rejection
	if !errors.As(err, &rej) {
		slogx.FromContext(r.Context()).Error("gate failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	switch rej.Kind {
	case service.Throttled:
		apiErr := *authsdk.ErrThrottled
		apiErr.RetryAfter = rej.RetryAfter
		apiErr.WriteError(w)

	case service.Unauthenticated:
		if sentBearer {
			httpx.SetBearerChallenge(w, "invalid_token", rej.Reason)
		} else {
			httpx.SetBearerChallenge(w, "", "")
		}
		authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeUnauthenticated, rej.Reason).WriteError(w)

	case service.Forbidden:
		authsdk.ErrForbidden.WriteError(w)

	default:
		if rej.Err != nil {
			slogx.FromContext(r.Context()).Error("gate unavailable", "error", rej.Err)
		}
		authsdk.NewAPIError(http.StatusServiceUnavailable, authsdk.ErrorCodeUnavailable, rej.Reason).WriteError(w)
	}
}

// MetricsMiddleware records request count and latency per route pattern.
// It must sit between the logging middleware and the mux so that the
// pattern the mux matched is visible once the handler returns.
func MetricsMiddleware(m *service.Metrics) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			path := r.Pattern
			if path == "" {
				path = "unmatched"
			}
			m.ObserveHTTP(path, r.Method, strconv.Itoa(sw.status), time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}
