package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrustedProxiesResolve(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 ", ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"direct client", "203.0.113.4:5555", "", "203.0.113.4"},
		{"untrusted peer header ignored", "203.0.113.4:5555", "198.51.100.9", "203.0.113.4"},
		{"single trusted hop", "10.0.0.2:80", "198.51.100.9", "198.51.100.9"},
		{"chain of trusted hops", "192.168.1.10:80", "198.51.100.9, 10.3.3.3", "198.51.100.9"},
		{"left-most spoof skipped", "10.0.0.2:80", "1.1.1.1, 198.51.100.9", "198.51.100.9"},
		{"only trusted hops", "10.0.0.2:80", "10.0.0.3", "10.0.0.3"},
		{"trusted peer without header", "10.0.0.2:80", "", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := trusted.Resolve(req); got != tt.want {
				t.Fatalf("expected %s got %s", tt.want, got)
			}
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"not-an-ip", "10.0.0.0/99"} {
		if _, err := ParseTrustedProxies([]string{raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestClientIPMiddlewareStoresAddress(t *testing.T) {
	var seen string
	h := ClientIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIPFromRequest(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.8:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "203.0.113.8" {
		t.Fatalf("expected peer address without trusted proxies, got %s", seen)
	}
}
