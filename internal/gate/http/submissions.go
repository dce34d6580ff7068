package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/httpx"
)

// SubmissionHandler serves the public form endpoints.
type SubmissionHandler struct {
	SubmissionService *service.SubmissionService
}

// HandleContactUs godoc
//
//	@Summary		Contact us
//	@Tags			Submissions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.SubmissionRequest	true	"Message"
//	@Success		202		{object}	authsdk.SubmissionResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Header			429		{integer}	Retry-After	"seconds until the window resets"
//	@Router			/v1/contact-us [post].
func (h *SubmissionHandler) HandleContactUs(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.SubmissionContactUs)
}

// HandleConsultation godoc
//
//	@Summary		Book a consultation
//	@Description	Requires a CLIENT or ADMIN access token.
//	@Tags			Submissions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.SubmissionRequest	true	"Request"
//	@Success		202		{object}	authsdk.SubmissionResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/consultations [post].
func (h *SubmissionHandler) HandleConsultation(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.SubmissionConsultation)
}

// HandleHireUs godoc
//
//	@Summary		Hire us
//	@Tags			Submissions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.SubmissionRequest	true	"Brief"
//	@Success		202		{object}	authsdk.SubmissionResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/hire-us [post].
func (h *SubmissionHandler) HandleHireUs(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.SubmissionHireUs)
}

func (h *SubmissionHandler) handle(w http.ResponseWriter, r *http.Request, kind domain.SubmissionKind) {
	var req authsdk.SubmissionRequest
	if !decode(w, r, &req) {
		return
	}

	ar, _ := Authorized(r.Context())
	sub, err := h.SubmissionService.Submit(r.Context(), domain.Submission{
		Kind:        kind,
		Name:        req.Name,
		Email:       req.Email,
		Subject:     req.Subject,
		Message:     req.Message,
		PrincipalID: ar.PrincipalID,
	})
	if err != nil {
		writeServiceError(w, r, "submission failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, authsdk.SubmissionResponse{
		ID:         sub.ID,
		Kind:       string(sub.Kind),
		ReceivedAt: sub.ReceivedAt.Format(time.RFC3339),
	})
}
