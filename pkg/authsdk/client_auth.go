package authsdk

import (
	"context"
	"net/http"
)

// Register creates a CLIENT or FREELANCER account.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/register", "", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates with email and password and returns a Session. The
// refresh cookie is stored in the client's jar.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var tok TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", "",
		LoginRequest{Email: email, Password: password}, &tok, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, &tok), nil
}

// Refresh rotates the refresh cookie and returns a new access token.
func (c *SDKClient) Refresh(ctx context.Context) (*TokenResponse, error) {
	var tok TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/refresh", "", nil, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Logout ends the session held in the refresh cookie. Other sessions of the
// same principal are unaffected.
func (c *SDKClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/logout", "", nil, nil, http.StatusNoContent)
}
