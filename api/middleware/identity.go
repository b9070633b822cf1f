package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) identity.Identity
}

type guestSessionCreator interface {
	Create(ctx context.Context, kind enums.SessionKind) (*models.Session, error)
}

type guestTokenIssuer interface {
	Issue(customerID int64, sessionID string, expiresAt time.Time) (string, error)
}

// Identity resolves the caller from the token cookie (or bearer header) and
// stores it in the request context. It never rejects a request.
func Identity(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			ctx := r.Context()
			id := resolver.Resolve(ctx, token)

			ctx = WithIdentity(ctx, id)
			if logg != nil {
				if id.IsAuthenticated() {
					ctx = logg.WithCustomerID(ctx, id.CustomerID)
				}
				if id.HasSession() {
					ctx = logg.WithSessionID(ctx, id.SessionID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GuestSession gives sessionless callers a guest session and token cookie
// before cart and checkout handlers run.
func GuestSession(sessions guestSessionCreator, tokens guestTokenIssuer, cookies CookieConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := IdentityFromContext(ctx)
			if id.HasSession() {
				next.ServeHTTP(w, r)
				return
			}

			session, err := sessions.Create(ctx, enums.SessionKindGuest)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create guest session"))
				return
			}
			token, err := tokens.Issue(0, session.ID, session.ExpiresAt)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue guest token"))
				return
			}
			SetTokenCookie(w, cookies, token, session.ExpiresAt)

			ctx = WithIdentity(ctx, identity.Guest(session.ID))
			if logg != nil {
				ctx = logg.WithSessionID(ctx, session.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCustomer rejects guests with 401.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IdentityFromContext(r.Context()).IsAuthenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects guests with 401 and non-admin customers with 403.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if !id.IsAuthenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !id.IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
