package app

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/httpx"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
)

// State store backends.
const (
	StateBackendSQLite = "sqlite"
	StateBackendRedis  = "redis"
)

// Mailer backends.
const (
	MailerLog   = "log"
	MailerKafka = "kafka"
)

type Config struct {
	Issuer string // Optional: issuer claim for tokens (default: agency-gate)

	Algorithm      string        // Optional: JWT signing algorithm (EdDSA, HS256) (default: EdDSA)
	SigningKeyFile string        // Optional: Ed25519 PKCS8 PEM file, created if missing; empty means ephemeral keys
	SigningSecret  string        // Required for HS256: shared HMAC secret
	AccessTTL      time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL     time.Duration // Optional: refresh token lifetime (default: 7 days)

	DatabaseFile string // Optional: path to SQLite database file (default: ./gate.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	StateBackend  string // Optional: token and rate limit store (sqlite, redis) (default: sqlite)
	RedisAddr     string // Optional: redis address (default: localhost:6379)
	RedisPassword string // Optional: redis password
	RedisDB       int    // Optional: redis database number (default: 0)

	StoreTimeout  time.Duration         // Optional: deadline of every state store call (default: 500ms)
	FailurePolicy service.FailurePolicy // Optional: rate limiting while the state store is down (open, closed) (default: open)
	CookieSecure  bool                  // Optional: Secure flag on the refresh cookie (default: true)

	TrustedProxies string // Optional: comma separated CIDRs whose X-Forwarded-For is honoured (default: none)

	Mailer      string // Optional: submission hand-off (log, kafka) (default: log)
	KafkaBroker string // Optional: comma separated kafka brokers (default: localhost:9092)
	KafkaTopic  string // Optional: kafka topic for submissions (default: agency.submissions)

	AdminEmail    string // Optional: bootstrap admin created when no principal exists
	AdminPassword string // Optional: password of the bootstrap admin

	Instance             string        // Replica name on every log line (default: hostname)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first when present; variables already set
// in the environment win.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg := Config{
		Issuer:         getEnvOrDefault("GATE_ISSUER", "agency-gate"),
		Algorithm:      getEnvOrDefault("GATE_SIGNING_ALGORITHM", jwtx.AlgorithmEdDSA),
		SigningKeyFile: os.Getenv("GATE_SIGNING_KEY_FILE"),
		SigningSecret:  os.Getenv("GATE_SIGNING_SECRET"),
		AccessTTL:      getEnvDurationOrDefault("GATE_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:     getEnvDurationOrDefault("GATE_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		DatabaseFile: getEnvOrDefault("GATE_DATABASE_FILE", "gate.db"),
		PepperFile:   getEnvOrDefault("GATE_PEPPER_FILE", "pepper"),

		StateBackend:  strings.ToLower(getEnvOrDefault("GATE_STATE_BACKEND", StateBackendSQLite)),
		RedisAddr:     getEnvOrDefault("GATE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("GATE_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("GATE_REDIS_DB", 0),

		StoreTimeout: getEnvDurationOrDefault("GATE_STORE_TIMEOUT", service.DefaultStoreTimeout),
		CookieSecure: getEnvBoolOrDefault("GATE_COOKIE_SECURE", true),

		TrustedProxies: os.Getenv("GATE_TRUSTED_PROXIES"),

		Mailer:      strings.ToLower(getEnvOrDefault("GATE_MAILER", MailerLog)),
		KafkaBroker: getEnvOrDefault("GATE_KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:  getEnvOrDefault("GATE_KAFKA_TOPIC", "agency.submissions"),

		AdminEmail:    os.Getenv("GATE_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("GATE_ADMIN_PASSWORD"),

		Instance:             os.Getenv("GATE_INSTANCE"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// An unparseable policy keeps the default rather than failing startup.
	if policy, err := service.ParseFailurePolicy(os.Getenv("GATE_RATELIMIT_FAILURE_POLICY")); err == nil {
		cfg.FailurePolicy = policy
	} else {
		slog.Warn("ignoring GATE_RATELIMIT_FAILURE_POLICY", "error", err)
	}

	return cfg
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Algorithm {
	case jwtx.AlgorithmEdDSA:
	case jwtx.AlgorithmHS256:
		if len(c.SigningSecret) < 32 {
			return fmt.Errorf("config: GATE_SIGNING_SECRET must be at least 32 bytes for %s", jwtx.AlgorithmHS256)
		}
	default:
		return fmt.Errorf("config: unsupported GATE_SIGNING_ALGORITHM %q", c.Algorithm)
	}

	switch c.StateBackend {
	case StateBackendSQLite, StateBackendRedis:
	default:
		return fmt.Errorf("config: unsupported GATE_STATE_BACKEND %q", c.StateBackend)
	}

	switch c.Mailer {
	case MailerLog, MailerKafka:
	default:
		return fmt.Errorf("config: unsupported GATE_MAILER %q", c.Mailer)
	}

	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("config: GATE_TRUSTED_PROXIES: %w", err)
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("config: GATE_ADMIN_EMAIL and GATE_ADMIN_PASSWORD must be set together")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
