package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller's address as used for rate-limit keys and
// webhook logs. The first parseable entry of X-Forwarded-For wins, then
// X-Real-IP, then the connection's remote address. Entries that are not IP
// addresses are skipped so a garbage header cannot mint fresh rate-limit keys.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip, ok := parseIP(candidate); ok {
			return ip
		}
	}
	if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	if ip, ok := parseIP(r.RemoteAddr); ok {
		return ip
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// parseIP accepts a bare address or host:port, returning the canonical form
// with IPv4-mapped IPv6 addresses unmapped.
func parseIP(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	if addr, err := netip.ParseAddr(value); err == nil {
		return addr.Unmap().String(), true
	}
	host, _, err := net.SplitHostPort(value)
	if err != nil {
		return "", false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
