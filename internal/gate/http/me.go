package http

import (
	"net/http"

	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/httpx"
)

// HandleMe godoc
//
//	@Summary		Who am I
//	@Description	Returns the caller's identity as the gate admitted it.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		429	{object}	authsdk.ErrorResponse
//	@Router			/v1/me [get].
func HandleMe(w http.ResponseWriter, r *http.Request) {
	ar, _ := Authorized(r.Context())

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		PrincipalID: ar.PrincipalID,
		Role:        ar.Role.String(),
		Scopes:      ar.Scopes,
		SessionID:   ar.SessionID,
		Verified:    ar.Verified,
	})
}
