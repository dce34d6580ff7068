package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/authsdk"
	"github.com/aussiebroadwan/agency/pkg/httpx"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Reports that the gate process is serving, with uptime, version and the rate limiter's store failure policy
//	@Description	It checks no dependency and answers 200 whenever the process can respond
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, ratelimit_failure_policy"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string, limiter *service.RateLimiter) http.HandlerFunc {
	var policy string
	if limiter != nil {
		policy = limiter.Policy().String()
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:        "ok",
			Uptime:        time.Since(startTime).Truncate(time.Second).String(),
			Version:       version,
			FailurePolicy: policy,
		})
	}
}
