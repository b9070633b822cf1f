package customers

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CustomerDTO is the outward shape of a customer. It never carries the hash.
type CustomerDTO struct {
	ID        int64              `json:"id"`
	Email     string             `json:"email"`
	IsGuest   bool               `json:"is_guest"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	Phone     *string            `json:"phone,omitempty"`
	Address   *types.Address     `json:"address,omitempty"`
	Role      enums.CustomerRole `json:"role"`
	CreatedAt time.Time          `json:"created_at"`
}

// Profile carries the contact fields written for new or claimed customers.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
	Phone     *string
	Address   *types.Address
}

// NormalizeEmail is the canonical comparison form for customer emails.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func FromModel(c *models.Customer) *CustomerDTO {
	if c == nil {
		return nil
	}
	dto := &CustomerDTO{
		ID:        c.ID,
		Email:     c.Email,
		IsGuest:   c.IsGuest,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
		Role:      c.Role,
		CreatedAt: c.CreatedAt,
	}
	if c.AddressLine1 != nil {
		dto.Address = &types.Address{
			Line1:      *c.AddressLine1,
			Line2:      c.AddressLine2,
			City:       deref(c.City),
			State:      deref(c.State),
			PostalCode: deref(c.PostalCode),
			Country:    deref(c.Country),
		}
	}
	return dto
}

// Apply copies the profile onto the model, leaving credentials untouched.
func (p Profile) Apply(c *models.Customer) {
	c.Email = NormalizeEmail(p.Email)
	c.FirstName = strings.TrimSpace(p.FirstName)
	c.LastName = strings.TrimSpace(p.LastName)
	if p.Phone != nil {
		phone := strings.TrimSpace(*p.Phone)
		c.Phone = &phone
	}
	if p.Address != nil {
		addr := p.Address.Normalize()
		c.AddressLine1 = &addr.Line1
		c.AddressLine2 = addr.Line2
		c.City = &addr.City
		c.State = &addr.State
		c.PostalCode = &addr.PostalCode
		c.Country = &addr.Country
	}
	if c.Role == "" {
		c.Role = enums.CustomerRoleCustomer
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
