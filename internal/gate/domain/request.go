package domain

// AuthorizedRequest is what the gate hands to a route handler once a request
// is admitted. Handlers never see raw tokens.
type AuthorizedRequest struct {
	// Route is the policy name the request was admitted under.
	Route string

	// ClientIP is the identity the request was throttled under.
	ClientIP string

	// Authenticated is false on routes that admit anonymous callers and no
	// valid bearer token was presented. The fields below are empty then.
	Authenticated bool

	PrincipalID string
	Role        Role
	Scopes      []string
	SessionID   string
	Verified    bool
}
