package http

import (
	"net/http"

	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/httpx"
	"github.com/aussiebroadwan/agency/pkg/slogx"
)

// AdminHandler serves the /v1/admin endpoints.
type AdminHandler struct {
	TokenService *service.TokenService
}

// HandleRevoke godoc
//
//	@Summary		Force logout a principal
//	@Description	Bumps the principal's token version so every token they hold stops verifying.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Principal id"
//	@Success		200	{object}	authsdk.RevokeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Failure		429	{object}	authsdk.ErrorResponse
//	@Failure		503	{object}	authsdk.ErrorResponse
//	@Router			/v1/admin/principals/{id}/revoke [post].
func (h *AdminHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	version, err := h.TokenService.RevokeAll(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "revoke failed", err)
		return
	}

	ar, _ := Authorized(r.Context())
	slogx.Security(r.Context(), "principal revoked by admin",
		"principal_id", id,
		"admin_id", ar.PrincipalID,
	)

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeResponse{
		PrincipalID:  id,
		TokenVersion: version,
	})
}
