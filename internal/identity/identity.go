package identity

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Kind separates anonymous callers from signed-in customers.
type Kind string

const (
	KindGuest         Kind = "guest"
	KindAuthenticated Kind = "authenticated"
)

// Identity is the normalized caller attached to every request.
type Identity struct {
	Kind       Kind
	CustomerID int64
	// SessionID is set only when the token's session is still valid.
	SessionID string
	Role      enums.CustomerRole
}

// Guest returns an anonymous identity, optionally bound to a valid session.
func Guest(sessionID string) Identity {
	return Identity{Kind: KindGuest, SessionID: sessionID}
}

func (i Identity) IsGuest() bool {
	return i.Kind != KindAuthenticated
}

func (i Identity) IsAuthenticated() bool {
	return i.Kind == KindAuthenticated && i.CustomerID > 0
}

// IsAdmin is a role check on the customer, never an email comparison.
func (i Identity) IsAdmin() bool {
	return i.IsAuthenticated() && i.Role == enums.CustomerRoleAdmin
}

// HasSession reports whether the caller carries a live session.
func (i Identity) HasSession() bool {
	return i.SessionID != ""
}
