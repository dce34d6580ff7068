package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/httpx"
	"github.com/aussiebroadwan/agency/pkg/slogx"
)

const refreshCookiePath = "/v1/auth"

// AuthHandler serves the /v1/auth endpoints.
type AuthHandler struct {
	TokenService     *service.TokenService
	PrincipalService *service.PrincipalService

	// CookieSecure marks the refresh cookie Secure. Only disabled for local
	// plain HTTP development.
	CookieSecure bool
}

// HandleLogin godoc
//
//	@Summary		Password login
//	@Description	Verifies email and password and starts a new session. The access token is returned in the body; the refresh token is set as an HttpOnly cookie scoped to /v1/auth.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Failure		503		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.PrincipalService.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		authsdk.ErrInvalidCredentials.WriteError(w)
		return
	}
	if err != nil {
		writeServiceError(w, r, "login failed", err)
		return
	}

	pair, err := h.TokenService.Issue(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, "issue tokens failed", err)
		return
	}

	h.writeTokenPair(w, pair)
}

// HandleRegister godoc
//
//	@Summary		Register an account
//	@Description	Creates a CLIENT or FREELANCER principal. Privileged roles cannot be self-assigned.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"Account"
//	@Success		201		{object}	authsdk.RegisterResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "unknown role").WriteError(w)
		return
	}

	p, err := h.PrincipalService.Register(r.Context(), req.Email, req.Password, role)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		authsdk.ErrEmailTaken.WriteError(w)
		return
	case errors.Is(err, service.ErrRoleNotSelfAssigned):
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "role cannot be self-assigned").WriteError(w)
		return
	case err != nil:
		writeServiceError(w, r, "register failed", err)
		return
	}

	slogx.FromContext(r.Context()).Info("principal registered",
		"principal_id", p.ID,
		"role", p.Role.String(),
	)

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		PrincipalID: p.ID,
		Email:       p.Email,
		Role:        p.Role.String(),
	})
}

// HandleRefresh godoc
//
//	@Summary		Rotate the refresh cookie
//	@Description	Consumes the refresh cookie and returns a new access token with a rotated cookie. Presenting an already consumed cookie revokes every session of the principal.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.TokenResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		429	{object}	authsdk.ErrorResponse
//	@Failure		503	{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(authsdk.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		h.clearRefreshCookie(w)
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if isTokenError(err) {
			h.clearRefreshCookie(w)
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		writeServiceError(w, r, "refresh failed", err)
		return
	}

	h.writeTokenPair(w, pair)
}

// HandleLogout godoc
//
//	@Summary		Log out this session
//	@Description	Ends the session held in the refresh cookie and clears the cookie. Other sessions are unaffected.
//	@Tags			Auth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		429	{object}	authsdk.ErrorResponse
//	@Failure		503	{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(authsdk.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		h.clearRefreshCookie(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	err = h.TokenService.LogoutCurrent(r.Context(), cookie.Value)
	switch {
	case err == nil, errors.Is(err, service.ErrExpiredToken):
		h.clearRefreshCookie(w)
		w.WriteHeader(http.StatusNoContent)
	case isTokenError(err):
		h.clearRefreshCookie(w)
		authsdk.ErrInvalidToken.WriteError(w)
	default:
		writeServiceError(w, r, "logout failed", err)
	}
}

// HandleLogoutAll godoc
//
//	@Summary		Log out everywhere
//	@Description	Revokes every access and refresh token of the caller, this session included.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.RevokeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		429	{object}	authsdk.ErrorResponse
//	@Failure		503	{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/logout-all [post].
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ar, _ := Authorized(r.Context())

	version, err := h.TokenService.RevokeAll(r.Context(), ar.PrincipalID)
	if err != nil {
		writeServiceError(w, r, "logout all failed", err)
		return
	}

	h.clearRefreshCookie(w)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeResponse{
		PrincipalID:  ar.PrincipalID,
		TokenVersion: version,
	})
}

func (h *AuthHandler) writeTokenPair(w http.ResponseWriter, pair *domain.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(pair.ExpiresIn.Seconds()),
		SessionID:   pair.SessionID,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func isTokenError(err error) bool {
	return errors.Is(err, service.ErrExpiredToken) ||
		errors.Is(err, service.ErrInvalidSignature) ||
		errors.Is(err, service.ErrRevokedToken) ||
		errors.Is(err, service.ErrReplayDetected)
}

// writeServiceError maps an unexpected service error to 503 when a store
// could not be reached and 500 otherwise. Internals are logged, not returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log := slogx.FromContext(r.Context())
	switch {
	case errors.Is(err, service.ErrUnknownPrincipal):
		authsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrStoreUnavailable):
		log.Warn(msg, "error", err)
		authsdk.ErrUnavailable.WriteError(w)
	default:
		log.Error(msg, "error", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
