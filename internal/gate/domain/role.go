package domain

import (
	"errors"
	"slices"
	"strings"
)

// Role is the closed set of principal roles.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleFreelancer Role = "FREELANCER"
	RoleModerator  Role = "MODERATOR"
	RoleAdmin      Role = "ADMIN"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Roles lists every valid role.
var Roles = []Role{RoleClient, RoleFreelancer, RoleModerator, RoleAdmin}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

func (r Role) String() string { return string(r) }

// Allowed reports whether role satisfies a route's role requirement. An empty
// requirement admits every role; otherwise the role must be listed. There is
// no inheritance: ADMIN only passes where ADMIN is named.
func Allowed(role Role, required []Role) bool {
	if len(required) == 0 {
		return true
	}
	return slices.Contains(required, role)
}

// Capability scopes granted per role. Handlers that want finer grained checks
// than a role list read these from the AuthorizedRequest.
const (
	ScopeProfileRead       = "profile:read"
	ScopeConsultationWrite = "consultation:write"
	ScopeProjectsRead      = "projects:read"
	ScopeProjectsWrite     = "projects:write"
	ScopeContentModerate   = "content:moderate"
	ScopePrincipalsRevoke  = "principals:revoke"
)

var roleScopes = map[Role][]string{
	RoleClient:     {ScopeProfileRead, ScopeConsultationWrite, ScopeProjectsRead},
	RoleFreelancer: {ScopeProfileRead, ScopeProjectsRead, ScopeProjectsWrite},
	RoleModerator:  {ScopeProfileRead, ScopeProjectsRead, ScopeContentModerate},
	RoleAdmin: {
		ScopeProfileRead, ScopeConsultationWrite, ScopeProjectsRead, ScopeProjectsWrite,
		ScopeContentModerate, ScopePrincipalsRevoke,
	},
}

// ScopesFor returns a copy of the capability set of role.
func ScopesFor(role Role) []string {
	return slices.Clone(roleScopes[role])
}
