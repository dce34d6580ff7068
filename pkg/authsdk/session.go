package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Session is a logged in client. Access tokens are refreshed through the
// refresh cookie shortly before they expire.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	sessionID   string
	expiresAt   time.Time
}

func newSession(client *SDKClient, tok *TokenResponse) *Session {
	s := &Session{client: client}
	s.update(tok)
	return s
}

func (s *Session) update(tok *TokenResponse) {
	s.accessToken = tok.AccessToken
	s.sessionID = tok.SessionID
	// refresh 30 seconds before actual expiry
	s.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 30*time.Second)
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	tok, err := s.client.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.update(tok)
	return s.accessToken, nil
}

// Refresh forces a rotation regardless of expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.client.Refresh(ctx)
	if err != nil {
		return err
	}
	s.update(tok)
	return nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// SessionID returns the id of the refresh chain.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *Session) do(ctx context.Context, method, path string, in, out any, expectedStatus int) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	return s.client.doJSON(ctx, method, path, token, in, out, expectedStatus)
}

// Me returns the caller's identity as the gate sees it.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	var out MeResponse
	if err := s.do(ctx, http.MethodGet, "/v1/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Consultation books a consultation. Requires CLIENT or ADMIN.
func (s *Session) Consultation(ctx context.Context, req SubmissionRequest) (*SubmissionResponse, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.submit(ctx, "/v1/consultations", token, req)
}

// LogoutAll revokes every session of the caller, this one included.
func (s *Session) LogoutAll(ctx context.Context) (*RevokeResponse, error) {
	var out RevokeResponse
	if err := s.do(ctx, http.MethodPost, "/v1/auth/logout-all", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokePrincipal force-logs-out another principal. Requires ADMIN.
func (s *Session) RevokePrincipal(ctx context.Context, principalID string) (*RevokeResponse, error) {
	var out RevokeResponse
	path := "/v1/admin/principals/" + url.PathEscape(principalID) + "/revoke"
	if err := s.do(ctx, http.MethodPost, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends this session only.
func (s *Session) Logout(ctx context.Context) error {
	return s.client.Logout(ctx)
}
