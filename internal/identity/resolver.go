package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Fallback reasons reported when resolution degrades to guest on failure.
const (
	ReasonSessionLookup  = "session_lookup"
	ReasonCustomerLookup = "customer_lookup"
	ReasonPanic          = "panic"
)

type tokenVerifier interface {
	Verify(token string) (auth.Subject, bool)
}

type sessionChecker interface {
	IsValid(ctx context.Context, sessionID string) (bool, error)
}

type customerLoader interface {
	FindRegisteredByID(ctx context.Context, id int64) (*models.Customer, error)
}

type fallbackRecorder interface {
	IdentityFallback(reason string)
}

// Resolver turns a request token into an Identity. It never fails: invalid
// tokens, dead sessions and storage errors all yield a guest.
type Resolver struct {
	tokens    tokenVerifier
	sessions  sessionChecker
	customers customerLoader
	metrics   fallbackRecorder
	logg      *logger.Logger
}

// NewResolver wires the resolver. metrics may be nil.
func NewResolver(tokens tokenVerifier, sessions sessionChecker, customers customerLoader, metrics fallbackRecorder, logg *logger.Logger) (*Resolver, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token verifier required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session checker required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{tokens: tokens, sessions: sessions, customers: customers, metrics: metrics, logg: logg}, nil
}

// Resolve maps a raw token (possibly empty) to the caller's identity.
func (r *Resolver) Resolve(ctx context.Context, token string) (id Identity) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fallback(ctx, ReasonPanic, fmt.Errorf("panic during identity resolution: %v", rec))
			id = Guest("")
		}
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return Guest("")
	}

	subject, ok := r.tokens.Verify(token)
	if !ok {
		return Guest("")
	}

	valid, err := r.sessions.IsValid(ctx, subject.SessionID)
	if err != nil {
		r.fallback(ctx, ReasonSessionLookup, err)
		return Guest("")
	}
	if !valid {
		return Guest("")
	}

	if subject.IsGuest() {
		return Guest(subject.SessionID)
	}

	customer, err := r.customers.FindRegisteredByID(ctx, subject.CustomerID)
	if err != nil {
		if !db.IsNotFound(err) {
			r.fallback(ctx, ReasonCustomerLookup, err)
		}
		return Guest(subject.SessionID)
	}

	return Identity{
		Kind:       KindAuthenticated,
		CustomerID: customer.ID,
		SessionID:  subject.SessionID,
		Role:       customer.Role,
	}
}

func (r *Resolver) fallback(ctx context.Context, reason string, err error) {
	if r.metrics != nil {
		r.metrics.IdentityFallback(reason)
	}
	r.logg.WarnErr(r.logg.WithField(ctx, "reason", reason), "identity resolution failed, treating caller as guest", err)
}
