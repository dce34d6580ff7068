package httpx

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// QuotaConfig defines a fixed window quota for one throttled action.
type QuotaConfig struct {
	// Requests is the number of cost units allowed per window
	Requests int64
	// Window is the length of one fixed window
	Window time.Duration
	// Cost is charged against the quota for each request
	Cost int64
}

// ParseQuotaFromEnv reads quota overrides from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_CONTACT_US_REQUESTS, RATELIMIT_CONTACT_US_WINDOW_SEC,
// RATELIMIT_CONTACT_US_COST. Invalid or non-positive values keep the default.
func ParseQuotaFromEnv(prefix string, defaultConfig QuotaConfig) QuotaConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.ParseInt(val, 10, 64); err == nil && requests > 0 {
			config.Requests = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_COST"); val != "" {
		if cost, err := strconv.ParseInt(val, 10, 64); err == nil && cost > 0 {
			config.Cost = cost
		}
	}

	return config
}

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address)
type KeyExtractor func(*http.Request) string

// ParseTrustedProxies parses a comma separated list of CIDRs or bare
// addresses. A bare address is taken as a single host prefix.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// ClientIP returns a KeyExtractor that identifies the caller by the
// connection peer. Forwarding headers are only read when the peer falls in
// one of the trusted prefixes; the client is then the right-most
// X-Forwarded-For hop that is not itself trusted. With no trusted prefixes
// the headers are ignored entirely.
func ClientIP(trusted []netip.Prefix) KeyExtractor {
	isTrusted := func(a netip.Addr) bool {
		for _, p := range trusted {
			if p.Contains(a) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		peer, err := netip.ParseAddr(host)
		if err != nil || !isTrusted(peer.Unmap()) {
			return host
		}

		if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
			hops := strings.Split(strings.Join(xff, ","), ",")
			client := peer.Unmap()
			for i := len(hops) - 1; i >= 0; i-- {
				hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					break
				}
				client = hop.Unmap()
				if !isTrusted(client) {
					break
				}
			}
			return client.String()
		}

		if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return xri.Unmap().String()
		}
		return host
	}
}
