package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const ctxClientIP contextKey = "client_ip"

// TrustedProxies are the networks allowed to report the client address
// through X-Forwarded-For.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts CIDRs or bare addresses.
func ParseTrustedProxies(values []string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", raw)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		out = append(out, network)
	}
	return out, nil
}

func (t TrustedProxies) trusts(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range t {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolve returns the peer address unless the peer is a trusted proxy. Then
// X-Forwarded-For is read right to left and the first untrusted hop wins.
func (t TrustedProxies) Resolve(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !t.trusts(peer) {
		return peer
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !t.trusts(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}

// ClientIP stores the resolved client address for the logging and rate
// limit middleware.
func ClientIP(trusted TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ctxClientIP, trusted.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFromRequest returns the address stored by ClientIP, or the request
// peer when the middleware has not run.
func ClientIPFromRequest(r *http.Request) string {
	if v, ok := r.Context().Value(ctxClientIP).(string); ok && v != "" {
		return v
	}
	return TrustedProxies(nil).Resolve(r)
}
