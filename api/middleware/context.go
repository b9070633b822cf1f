package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/identity"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityFromContext returns the resolved caller, or an anonymous guest when
// the identity middleware has not run.
func IdentityFromContext(ctx context.Context) identity.Identity {
	if ctx == nil {
		return identity.Guest("")
	}
	if v, ok := ctx.Value(ctxIdentity).(identity.Identity); ok {
		return v
	}
	return identity.Guest("")
}

// WithIdentity injects the caller identity into the context.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, id)
}
