package httpx

import (
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively per RFC 6750.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(authz[len("Bearer "):])
	if raw == "" {
		return "", false
	}
	return raw, true
}

// SetBearerChallenge sets an RFC 6750 WWW-Authenticate challenge. An empty
// errCode produces the bare challenge used when no credentials were sent.
func SetBearerChallenge(w http.ResponseWriter, errCode, desc string) {
	if errCode == "" {
		w.Header().Set("WWW-Authenticate", `Bearer realm="agency"`)
		return
	}
	w.Header().Set("WWW-Authenticate",
		`Bearer realm="agency", error="`+errCode+`", error_description="`+desc+`"`)
}
