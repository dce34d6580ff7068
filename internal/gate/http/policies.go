package http

import (
	"strings"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/service"
	"github.com/aussiebroadwan/agency/pkg/httpx"
)

// Throttled actions. Each one is its own counter namespace, so a caller who
// used up contact_us can still log in.
const (
	ActionLogin        = "login"
	ActionRegister     = "register"
	ActionRefresh      = "refresh"
	ActionContactUs    = "contact_us"
	ActionConsultation = "consultation"
	ActionHireUs       = "hire_us"
	ActionAPI          = "api"
)

// Default quotas per action. Each can be overridden with
// RATELIMIT_<ACTION>_REQUESTS, RATELIMIT_<ACTION>_WINDOW_SEC and
// RATELIMIT_<ACTION>_COST.
var defaultQuotas = map[string]httpx.QuotaConfig{
	ActionLogin:        {Requests: 10, Window: 300 * time.Second, Cost: 1},
	ActionRegister:     {Requests: 5, Window: time.Hour, Cost: 1},
	ActionRefresh:      {Requests: 30, Window: time.Minute, Cost: 1},
	ActionContactUs:    {Requests: 5, Window: 300 * time.Second, Cost: 1},
	ActionConsultation: {Requests: 10, Window: 8 * time.Hour, Cost: 1},
	ActionHireUs:       {Requests: 1, Window: 5 * time.Second, Cost: 1},
	ActionAPI:          {Requests: 120, Window: time.Minute, Cost: 1},
}

// Policies is the route table of the gate.
type Policies struct {
	Login        service.RoutePolicy
	Register     service.RoutePolicy
	Refresh      service.RoutePolicy
	Logout       service.RoutePolicy
	LogoutAll    service.RoutePolicy
	Me           service.RoutePolicy
	AdminRevoke  service.RoutePolicy
	ContactUs    service.RoutePolicy
	Consultation service.RoutePolicy
	HireUs       service.RoutePolicy
}

// DefaultPolicies returns the built-in route table.
func DefaultPolicies() Policies {
	return buildPolicies(func(action string) httpx.QuotaConfig {
		return defaultQuotas[action]
	})
}

// PoliciesFromEnv returns the route table with quota overrides applied from
// the environment.
func PoliciesFromEnv() Policies {
	return buildPolicies(func(action string) httpx.QuotaConfig {
		return httpx.ParseQuotaFromEnv(strings.ToUpper(action), defaultQuotas[action])
	})
}

func buildPolicies(quota func(action string) httpx.QuotaConfig) Policies {
	throttle := func(action string) *service.Throttle {
		q := quota(action)
		return &service.Throttle{
			Action:   action,
			MaxCount: q.Requests,
			Window:   q.Window,
			Cost:     q.Cost,
		}
	}

	// Refresh and logout share one counter since both spend a refresh cookie.
	refresh := throttle(ActionRefresh)
	api := throttle(ActionAPI)

	return Policies{
		Login:    service.RoutePolicy{Name: "auth.login", Throttle: throttle(ActionLogin)},
		Register: service.RoutePolicy{Name: "auth.register", Throttle: throttle(ActionRegister)},
		Refresh:  service.RoutePolicy{Name: "auth.refresh", Throttle: refresh},
		Logout:   service.RoutePolicy{Name: "auth.logout", Throttle: refresh},
		LogoutAll: service.RoutePolicy{
			Name:            "auth.logout_all",
			Throttle:        api,
			RequireIdentity: true,
		},
		Me: service.RoutePolicy{
			Name:            "me",
			Throttle:        api,
			RequireIdentity: true,
		},
		AdminRevoke: service.RoutePolicy{
			Name:     "admin.revoke",
			Throttle: api,
			Roles:    []domain.Role{domain.RoleAdmin},
		},
		ContactUs: service.RoutePolicy{Name: "contact_us", Throttle: throttle(ActionContactUs)},
		Consultation: service.RoutePolicy{
			Name:     "consultation",
			Throttle: throttle(ActionConsultation),
			Roles:    []domain.Role{domain.RoleClient, domain.RoleAdmin},
		},
		HireUs: service.RoutePolicy{Name: "hire_us", Throttle: throttle(ActionHireUs)},
	}
}
