// Package httputil holds request helpers shared by the API and video handlers.
package httputil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the address used to key per-client limits and logs.
// Forwarding headers are read only when trustProxy is set: the leftmost
// parseable X-Forwarded-For hop wins, then X-Real-IP. Unparseable header
// values are ignored and RemoteAddr is used instead.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
			if addr, ok := parseAddr(hop); ok {
				return addr
			}
		}
		if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
			return addr
		}
	}
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr
	}
	return r.RemoteAddr
}

// parseAddr accepts a bare IP or an ip:port pair and returns the IP.
func parseAddr(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return "", false
	}
	return ip.Unmap().String(), true
}
