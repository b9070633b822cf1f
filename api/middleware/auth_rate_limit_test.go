package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type attemptLog struct {
	mu          sync.Mutex
	counts      map[string]int64
	left        time.Duration
	attemptsErr error
}

func newAttemptLog() *attemptLog {
	return &attemptLog{counts: map[string]int64{}, left: 42 * time.Second}
}

func (a *attemptLog) RateLimitKey(parts ...string) string {
	return "test:" + strings.Join(parts, ":")
}

func (a *attemptLog) Attempts(_ context.Context, key string) (int64, time.Duration, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.attemptsErr != nil {
		return 0, 0, a.attemptsErr
	}
	return a.counts[key], a.left, nil
}

func (a *attemptLog) RecordAttempt(_ context.Context, key string, _ time.Duration) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[key]++
	return a.counts[key], nil
}

func (a *attemptLog) total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for _, c := range a.counts {
		n += c
	}
	return n
}

var limitsForTest = config.AuthRateLimitConfig{
	LoginWindow:      time.Minute,
	LoginEmailLimit:  3,
	LoginIPLimit:     10,
	SignupWindow:     5 * time.Minute,
	SignupEmailLimit: 2,
	SignupIPLimit:    10,
}

// loginHandler accepts "correct-horse" and rejects every other password.
func loginHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("handler could not read the rewound body: %v", err)
		}
		if body.Password != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func postLogin(h http.Handler, remote, email, password string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"`+password+`"}`))
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginLimitCountsOnlyRejectedCredentials(t *testing.T) {
	store := newAttemptLog()
	h := AuthRateLimit(LoginRateLimit(limitsForTest), store, nil)(loginHandler(t))

	for i := 0; i < 5; i++ {
		if rec := postLogin(h, "203.0.113.9:4000", "ada@example.com", "correct-horse"); rec.Code != http.StatusOK {
			t.Fatalf("successful login %d was throttled: %d", i, rec.Code)
		}
	}
	if store.total() != 0 {
		t.Fatalf("successful logins must not be recorded, got %d", store.total())
	}

	for i := 0; i < 3; i++ {
		if rec := postLogin(h, "203.0.113.9:4000", "ada@example.com", "guess"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 before the limit, got %d", rec.Code)
		}
	}

	rec := postLogin(h, "203.0.113.9:4000", "ada@example.com", "correct-horse")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after three failures, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("expected Retry-After from the open window, got %q", got)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected code: %s", payload.Error.Code)
	}

	if rec := postLogin(h, "198.51.100.7:4000", "grace@example.com", "correct-horse"); rec.Code != http.StatusOK {
		t.Fatalf("another customer should not share the window, got %d", rec.Code)
	}
}

func TestLoginLimitSharesWindowAcrossEmailSpellings(t *testing.T) {
	store := newAttemptLog()
	h := AuthRateLimit(LoginRateLimit(limitsForTest), store, nil)(loginHandler(t))

	for i, email := range []string{"Ada@Example.com", " ada@example.COM ", "ADA@example.com"} {
		remote := "192.0.2." + string(rune('1'+i)) + ":1000"
		postLogin(h, remote, email, "guess")
	}
	if rec := postLogin(h, "192.0.2.99:1000", "ada@example.com", "guess"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("normalized email should be throttled, got %d", rec.Code)
	}
}

func TestSignupLimitSkipsRejectedBodies(t *testing.T) {
	store := newAttemptLog()
	status := http.StatusBadRequest
	h := AuthRateLimit(SignupRateLimit(limitsForTest), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(status)
	}))
	signup := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(`{"email":"`+email+`","password":"correct-horse"}`))
		req.RemoteAddr = "203.0.113.20:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 4; i++ {
		signup("not-an-email")
	}
	if store.total() != 0 {
		t.Fatalf("validation failures must not be recorded, got %d", store.total())
	}

	status = http.StatusCreated
	if code := signup("new@example.com"); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	status = http.StatusConflict
	if code := signup("new@example.com"); code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	if code := signup("NEW@example.com"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on the third signup for one email, got %d", code)
	}
	if got := store.counts["test:signup:email:"+hashValue("new@example.com")]; got != 2 {
		t.Fatalf("expected two recorded signups for the email, got %d", got)
	}
}

func TestLoginLimitKeysOnTrustedClientAddress(t *testing.T) {
	store := newAttemptLog()
	limits := limitsForTest
	limits.LoginEmailLimit = 0
	limits.LoginIPLimit = 1
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}
	h := ClientIP(trusted)(AuthRateLimit(LoginRateLimit(limits), store, nil)(loginHandler(t)))

	send := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"guess"}`))
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	send("203.0.113.5:1000", "")
	if code := send("203.0.113.5:1000", "198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("a forged header from an untrusted peer must not open a new window, got %d", code)
	}

	send("10.1.2.3:1000", "198.51.100.50")
	if code := send("10.9.9.9:1000", "198.51.100.50, 10.1.2.3"); code != http.StatusTooManyRequests {
		t.Fatalf("client behind trusted proxies should be throttled by its own address, got %d", code)
	}
	if code := send("10.1.2.3:1000", "198.51.100.51"); code != http.StatusUnauthorized {
		t.Fatalf("a different client behind the proxy has its own window, got %d", code)
	}
}

func TestAuthRateLimitStoreFailure(t *testing.T) {
	store := newAttemptLog()
	store.attemptsErr = errors.New("redis timeout")
	h := AuthRateLimit(LoginRateLimit(limitsForTest), store, nil)(loginHandler(t))

	if rec := postLogin(h, "203.0.113.9:4000", "ada@example.com", "guess"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the counters are unreachable, got %d", rec.Code)
	}
}

func TestAuthRateLimitDisabledWithoutStore(t *testing.T) {
	called := 0
	h := AuthRateLimit(LoginRateLimit(limitsForTest), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	for i := 0; i < 5; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`)))
	}
	if called != 5 {
		t.Fatalf("expected passthrough, handler ran %d times", called)
	}
}
