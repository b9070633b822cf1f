package auth

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// SignupRequest is the payload for creating a registered account.
type SignupRequest struct {
	Email     string         `json:"email" validate:"required,email,max=255"`
	Password  string         `json:"password" validate:"required,min=8,max=72"`
	FirstName string         `json:"first_name" validate:"required,max=100"`
	LastName  string         `json:"last_name" validate:"required,max=100"`
	Phone     *string        `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address   *types.Address `json:"address,omitempty" validate:"omitempty"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Result is returned by signup and login. The token is also set as a cookie.
type Result struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expires_at"`
	SessionID string                 `json:"-"`
	Customer  *customers.CustomerDTO `json:"customer"`
}

func (r SignupRequest) profile() customers.Profile {
	return customers.Profile{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Address:   r.Address,
	}
}
