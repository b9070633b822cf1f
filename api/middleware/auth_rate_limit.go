package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type attemptStore interface {
	RateLimitKey(parts ...string) string
	Attempts(ctx context.Context, key string) (int64, time.Duration, error)
	RecordAttempt(ctx context.Context, key string, window time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles one auth endpoint by client address and by
// the normalized email of the request body. Only responses that counts
// accepts are recorded against either window.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
	counts     func(status int) bool
}

// LoginRateLimit records rejected credentials only.
func LoginRateLimit(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		name:       "login",
		window:     cfg.LoginWindow,
		ipLimit:    cfg.LoginIPLimit,
		emailLimit: cfg.LoginEmailLimit,
		counts:     func(status int) bool { return status == http.StatusUnauthorized },
	}
}

// SignupRateLimit records signups whose body passed validation: new
// accounts and attempts on an email that is already registered.
func SignupRateLimit(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		name:       "signup",
		window:     cfg.SignupWindow,
		ipLimit:    cfg.SignupIPLimit,
		emailLimit: cfg.SignupEmailLimit,
		counts: func(status int) bool {
			return status == http.StatusCreated || status == http.StatusConflict
		},
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

type attemptWindow struct {
	scope string
	key   string
	limit int
}

// AuthRateLimit rejects a request with 429 once a window is full, then
// records the outcome after the handler ran. A nil store disables it.
func AuthRateLimit(policy AuthRateLimitPolicy, store attemptStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			windows := make([]attemptWindow, 0, 2)
			if ip := ClientIPFromRequest(r); policy.ipLimit > 0 && ip != "" {
				windows = append(windows, attemptWindow{scope: "ip", key: store.RateLimitKey(policy.name, "ip", ip), limit: policy.ipLimit})
			}
			if policy.emailLimit > 0 {
				body, err := bufferBody(w, r)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				if email := emailFromBody(body); email != "" {
					windows = append(windows, attemptWindow{scope: "email", key: store.RateLimitKey(policy.name, "email", hashValue(email)), limit: policy.emailLimit})
				}
			}

			for _, win := range windows {
				count, left, err := store.Attempts(ctx, win.key)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count >= int64(win.limit) {
					respondRateLimited(ctx, logg, w, policy, win, count, left)
					return
				}
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if !policy.counts(status) {
				return
			}
			for _, win := range windows {
				if _, err := store.RecordAttempt(context.WithoutCancel(ctx), win.key, policy.window); err != nil {
					logError(ctx, logg, "record auth attempt", err)
				}
			}
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, win attemptWindow, count int64, left time.Duration) {
	if left <= 0 || left > policy.window {
		left = policy.window
	}
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"policy":   policy.name,
			"scope":    win.scope,
			"attempts": count,
			"limit":    win.limit,
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int((left+time.Second-1)/time.Second)))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// emailFromBody returns the normalized email only when it would pass the
// request validation; anything else is left to the handler's 400.
func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	email := customers.NormalizeEmail(body.Email)
	if !validators.ValidEmail(email) {
		return ""
	}
	return email
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
