package authsdk

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a machine readable code (e.g., "throttled", "invalid_request")
	Error string `json:"error" example:"throttled"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description" example:"rate limit exceeded"`

	// Details carries per-field validation failures (field name: reason)
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Auth Types
// ============================================================================

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254" example:"ada@example.com"`
	Password string `json:"password" validate:"required,max=128" example:"correct horse battery staple"`
}

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254" example:"ada@example.com"`
	Password string `json:"password" validate:"required,min=10,max=128" example:"correct horse battery staple"`

	// Role is CLIENT or FREELANCER
	Role string `json:"role" validate:"required,oneof=CLIENT FREELANCER" example:"CLIENT"`
}

// RegisterResponse describes the created principal.
type RegisterResponse struct {
	PrincipalID string `json:"principal_id" example:"01J9Z3N8W2F6Q4X1T7C5B0M2KD"`
	Email       string `json:"email" example:"ada@example.com"`
	Role        string `json:"role" example:"CLIENT"`
}

// TokenResponse is returned by login and refresh. The refresh token travels
// in an HttpOnly cookie and never appears in the body.
type TokenResponse struct {
	// AccessToken is the JWT bearer token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in" example:"900"`

	// SessionID identifies the refresh chain this token belongs to
	SessionID string `json:"session_id" example:"01J9Z3N8W2F6Q4X1T7C5B0M2KE"`
}

// MeResponse describes the caller as the gate admitted them.
type MeResponse struct {
	PrincipalID string   `json:"principal_id"`
	Role        string   `json:"role" example:"CLIENT"`
	Scopes      []string `json:"scopes"`
	SessionID   string   `json:"session_id"`
	Verified    bool     `json:"verified"`
}

// RevokeResponse reports the token version after a revocation.
type RevokeResponse struct {
	PrincipalID  string `json:"principal_id"`
	TokenVersion int64  `json:"token_version" example:"3"`
}

// ============================================================================
// Submission Types
// ============================================================================

// SubmissionRequest is the body of the contact-us, consultation and hire-us
// forms.
type SubmissionRequest struct {
	Name    string `json:"name" validate:"required,max=120" example:"Ada Lovelace"`
	Email   string `json:"email" validate:"required,email,max=254" example:"ada@example.com"`
	Subject string `json:"subject,omitempty" validate:"max=200" example:"Analytical engine"`
	Message string `json:"message" validate:"required,max=5000" example:"We would like a quote."`
}

// SubmissionResponse acknowledges an accepted submission.
type SubmissionResponse struct {
	ID         string `json:"id" example:"01J9Z3N8W2F6Q4X1T7C5B0M2KF"`
	Kind       string `json:"kind" example:"contact_us"`
	ReceivedAt string `json:"received_at" example:"2026-03-02T09:00:00Z"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// FailurePolicy is how the rate limiter behaves while its store is
	// unreachable: "open" or "closed" (only for /livez)
	FailurePolicy string `json:"ratelimit_failure_policy,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the principal database status
	Database string `json:"database"`

	// State indicates the token and rate limit store status
	State string `json:"state"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`
}
