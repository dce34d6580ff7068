package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/aussiebroadwan/agency/internal/gate/http"
	"github.com/aussiebroadwan/agency/internal/gate/notify"
	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/internal/gate/store"
	"github.com/aussiebroadwan/agency/internal/gate/store/drivers/redis"
	"github.com/aussiebroadwan/agency/internal/gate/store/drivers/sqlite"
	"github.com/aussiebroadwan/agency/pkg/clockx"
	"github.com/aussiebroadwan/agency/pkg/cryptox"
	"github.com/aussiebroadwan/agency/pkg/httpx"
	"github.com/aussiebroadwan/agency/pkg/idx"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
	"github.com/aussiebroadwan/agency/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// stateStore is the backend holding token versions, rotations and rate
// windows.
type stateStore interface {
	store.Pinger
	Tokens() store.TokenStore
	RateLimits() store.RateLimitStore
	Close() error
}

// redisState adapts the redis store, which implements both repositories on
// one type, to stateStore.
type redisState struct{ *redis.Store }

func (s redisState) Tokens() store.TokenStore         { return s.Store }
func (s redisState) RateLimits() store.RateLimitStore { return s.Store }

// sqliteState shares the principal database. Close is a no-op because the
// database is closed on its own.
type sqliteState struct{ *sqlite.Store }

func (sqliteState) Close() error { return nil }

// Application encapsulates the gate service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         *sqlite.Store
	state      stateStore
	keyManager *jwtx.KeyManager
	mailer     notify.Mailer
	registry   *prometheus.Registry
	metrics    *service.Metrics

	// Services
	tokenService        *service.TokenService
	principalService    *service.PrincipalService
	submissionService   *service.SubmissionService
	rateLimiter         *service.RateLimiter
	gate                *service.Gate
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service:  "agency-gate",
			Version:  BuildVersion,
			Env:      cfg.Env,
			Instance: cfg.Instance,
			Level:    cfg.LogLevel,
			Format:   cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initState(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	keyManager, err := InitKeys(app.cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	app.initMetrics()
	app.initMailer()
	app.initServices()

	if err := app.bootstrapAdmin(); err != nil {
		app.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gate service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"state_backend", app.cfg.StateBackend,
		"failure_policy", app.cfg.FailurePolicy.String(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gate service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// In-flight submissions are done once the server has drained, so the
	// mailer can flush.
	if err := app.mailer.Close(); err != nil {
		app.logger.Error("error closing mailer", "error", err)
	}

	if err := app.state.Close(); err != nil {
		app.logger.Error("error closing state store", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gate service stopped")
	return nil
}

// Handler returns the fully wired router. Tests and embedders serve it
// without the listener and signal handling of Run.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Close releases the mailer and stores of an application that was never
// Run. Use Shutdown for one that was.
func (app *Application) Close() {
	_ = app.mailer.Close()
	app.closeStores()
}

func (app *Application) closeStores() {
	_ = app.state.Close()
	_ = app.db.Close()
}

// initDatabase opens the principal database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		_ = db.Close()
		return fmt.Errorf("database schema %d is dirty, fix it by hand before starting", version)
	}

	app.logger.Info("database migrations applied", "path", app.cfg.DatabaseFile, "schema_version", version)
	return nil
}

// initState selects where token versions, rotations and rate windows live.
// Redis lets several gate instances share one view of both.
func (app *Application) initState() error {
	if app.cfg.StateBackend != StateBackendRedis {
		app.state = sqliteState{app.db}
		return nil
	}

	client := redis.NewClient(redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	rs := redis.NewStore(client, redis.DefaultPrefix).WithVersionLedger(app.db.Tokens())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		// Startup continues: the rate limiter's failure policy covers an
		// unreachable store and /readyz reports it.
		app.logger.Warn("redis state store unreachable at startup", "addr", app.cfg.RedisAddr, "error", err)
	}

	app.state = redisState{rs}
	app.logger.Info("redis state store configured", "addr", app.cfg.RedisAddr, "db", app.cfg.RedisDB)
	return nil
}

func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = service.NewMetrics(app.registry)
}

func (app *Application) initMailer() {
	switch app.cfg.Mailer {
	case MailerKafka:
		app.mailer = notify.NewKafkaMailer(app.cfg.KafkaBroker, app.cfg.KafkaTopic)
		app.logger.Info("submissions published to kafka", "brokers", app.cfg.KafkaBroker, "topic", app.cfg.KafkaTopic)
	default:
		app.mailer = notify.NewLogMailer(app.logger)
	}
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	clock := clockx.Real()
	ids := idx.NewGenerator(clock)

	app.tokenService = &service.TokenService{
		KeyManager:   app.keyManager,
		Tokens:       app.state.Tokens(),
		Principals:   app.db.Principals(),
		Issuer:       app.cfg.Issuer,
		AccessTTL:    app.cfg.AccessTTL,
		RefreshTTL:   app.cfg.RefreshTTL,
		StoreTimeout: app.cfg.StoreTimeout,
		Clock:        clock,
		IDs:          ids,
		Metrics:      app.metrics,
	}

	app.principalService = &service.PrincipalService{
		Principals:   app.db.Principals(),
		StoreTimeout: app.cfg.StoreTimeout,
		Clock:        clock,
		IDs:          ids,
	}

	app.submissionService = &service.SubmissionService{
		Mailer: app.mailer,
		Clock:  clock,
		IDs:    ids,
	}

	app.rateLimiter = service.NewRateLimiter(app.state.RateLimits(), service.RateLimiterOptions{
		Policy:       app.cfg.FailurePolicy,
		StoreTimeout: app.cfg.StoreTimeout,
		Clock:        clock,
		Metrics:      app.metrics,
	})

	app.gate = &service.Gate{
		Tokens:  app.tokenService,
		Limiter: app.rateLimiter,
		Metrics: app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.state.Tokens(),
		app.state.RateLimits(),
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// bootstrapAdmin creates the configured admin when the database has no
// principals yet.
func (app *Application) bootstrapAdmin() error {
	if app.cfg.AdminEmail == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, err := app.principalService.EnsureAdmin(ctx, app.cfg.AdminEmail, app.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		app.logger.Info("bootstrap admin created", "email", app.cfg.AdminEmail)
	}
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		BuildVersion,
		app.db,
		app.state,
		app.logger,
		app.metrics,
	)

	router.Gate = app.gate
	router.TokenService = app.tokenService
	router.PrincipalService = app.principalService
	router.SubmissionService = app.submissionService
	router.Gatherer = app.registry
	router.Policies = httpapi.PoliciesFromEnv()
	router.CookieSecure = app.cfg.CookieSecure

	// Validate already rejected a malformed list.
	trusted, _ := httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
	router.ClientIP = httpx.ClientIP(trusted)
	if len(trusted) > 0 {
		app.logger.Info("honouring forwarding headers", "trusted_proxies", app.cfg.TrustedProxies)
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
