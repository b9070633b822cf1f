package auth

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Subject is what a verified token asserts about its bearer.
type Subject struct {
	// CustomerID is zero for guest tokens.
	CustomerID int64
	SessionID  string
}

// IsGuest reports whether the token names no customer.
func (s Subject) IsGuest() bool {
	return s.CustomerID == 0
}

// TokenClaims is the JWT body sent to clients. The customer id travels in sub.
type TokenClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func subjectFor(customerID int64) string {
	if customerID <= 0 {
		return ""
	}
	return strconv.FormatInt(customerID, 10)
}

func parseSubject(sub string) (int64, bool) {
	if sub == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
