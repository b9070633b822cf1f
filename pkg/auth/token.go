package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrMissingSecret is returned when tokens are issued without a signing key.
var ErrMissingSecret = errors.New("jwt secret is required")

// ErrMissingSession is returned when a token would not reference a session.
var ErrMissingSession = errors.New("session id is required")

// Issuer mints and verifies session tokens.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewIssuer builds an issuer from configuration. A blank secret is fatal.
func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Issuer{secret: []byte(secret), issuer: cfg.Issuer, now: time.Now}, nil
}

// Issue signs a token binding customerID (zero for guests) to sessionID.
func (i *Issuer) Issue(customerID int64, sessionID string, expiresAt time.Time) (string, error) {
	if i == nil || len(i.secret) == 0 {
		return "", ErrMissingSecret
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrMissingSession
	}

	claims := TokenClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectFor(customerID),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(i.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(i.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry. Any failure yields ok=false and
// callers treat that exactly like a missing token.
func (i *Issuer) Verify(token string) (Subject, bool) {
	if i == nil || len(i.secret) == 0 || strings.TrimSpace(token) == "" {
		return Subject{}, false
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return Subject{}, false
	}
	if strings.TrimSpace(claims.SessionID) == "" {
		return Subject{}, false
	}

	customerID, ok := parseSubject(claims.Subject)
	if !ok {
		return Subject{}, false
	}
	return Subject{CustomerID: customerID, SessionID: claims.SessionID}, true
}
