package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/internal/gate/store"
	"github.com/aussiebroadwan/agency/pkg/httpx"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
	"github.com/aussiebroadwan/agency/pkg/slogx"

	_ "github.com/aussiebroadwan/agency/api/gate" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	db    store.Pinger
	state store.Pinger

	Gate              *service.Gate
	TokenService      *service.TokenService
	PrincipalService  *service.PrincipalService
	SubmissionService *service.SubmissionService
	Metrics           *service.Metrics

	// Gatherer backs /metrics. Nil leaves the endpoint unregistered.
	Gatherer prometheus.Gatherer

	Policies     Policies
	CookieSecure bool

	// ClientIP resolves the rate limit identity of a request. The default
	// trusts no proxy and uses the connection peer.
	ClientIP httpx.KeyExtractor
}

// NewRouter wires the logging and metrics middleware. Services and policies
// are assigned to the exported fields before ApplyRoutes is called.
func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	db, state store.Pinger,
	logger *slog.Logger,
	metrics *service.Metrics,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		db:           db,
		state:        state,
		Metrics:      metrics,
		Policies:     DefaultPolicies(),
		CookieSecure: true,
		ClientIP:     httpx.ClientIP(nil),
	}

	// The metrics middleware sits innermost so it sees the pattern the mux
	// matched once the handler returns.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, func(req *http.Request) string { return r.ClientIP(req) }),
		MetricsMiddleware(metrics),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdmin()
	r.registerSubmissions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Agency Gate API
//	@version		0.1.0
//	@description	Request gatekeeping for the agency platform: per-route rate limits, JWT bearer verification and role checks in front of every handler.
//	@description
//	@description				Access tokens are EdDSA (or HS256) signed JWTs. Refresh tokens travel in an HttpOnly cookie scoped to /v1/auth and rotate on every use.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/agency
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// gated puts h behind the gate under policy p.
func (r *Router) gated(p service.RoutePolicy, h http.HandlerFunc) http.Handler {
	return httpx.Chain(h, GateMiddleware(r.Gate, p, r.ClientIP))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		TokenService:     r.TokenService,
		PrincipalService: r.PrincipalService,
		CookieSecure:     r.CookieSecure,
	}

	r.Mux.Handle("POST /v1/auth/login", r.gated(r.Policies.Login, h.HandleLogin))
	r.Mux.Handle("POST /v1/auth/register", r.gated(r.Policies.Register, h.HandleRegister))
	r.Mux.Handle("POST /v1/auth/refresh", r.gated(r.Policies.Refresh, h.HandleRefresh))
	r.Mux.Handle("POST /v1/auth/logout", r.gated(r.Policies.Logout, h.HandleLogout))
	r.Mux.Handle("POST /v1/auth/logout-all", r.gated(r.Policies.LogoutAll, h.HandleLogoutAll))
	r.Mux.Handle("GET /v1/me", r.gated(r.Policies.Me, HandleMe))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{TokenService: r.TokenService}

	r.Mux.Handle("POST /v1/admin/principals/{id}/revoke", r.gated(r.Policies.AdminRevoke, h.HandleRevoke))
}

func (r *Router) registerSubmissions() {
	h := &SubmissionHandler{SubmissionService: r.SubmissionService}

	r.Mux.Handle("POST /v1/contact-us", r.gated(r.Policies.ContactUs, h.HandleContactUs))
	r.Mux.Handle("POST /v1/consultations", r.gated(r.Policies.Consultation, h.HandleConsultation))
	r.Mux.Handle("POST /v1/hire-us", r.gated(r.Policies.HireUs, h.HandleHireUs))
}

func (r *Router) registerSystem() {
	// Probes are not gated so orchestrators polling often are never throttled.
	var limiter *service.RateLimiter
	if r.Gate != nil {
		limiter = r.Gate.Limiter
	}
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion, limiter))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.db, r.state, r.keys))

	if r.Gatherer != nil {
		r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{}))
	}
}
