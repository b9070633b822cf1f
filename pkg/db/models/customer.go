package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Customer is either a registered account or a guest created at checkout.
type Customer struct {
	ID           int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string             `gorm:"column:email;not null;uniqueIndex"`
	IsGuest      bool               `gorm:"column:is_guest;not null;default:false"`
	PasswordHash *string            `gorm:"column:password_hash"`
	FirstName    string             `gorm:"column:first_name;not null"`
	LastName     string             `gorm:"column:last_name;not null"`
	Phone        *string            `gorm:"column:phone"`
	AddressLine1 *string            `gorm:"column:address_line1"`
	AddressLine2 *string            `gorm:"column:address_line2"`
	City         *string            `gorm:"column:city"`
	State        *string            `gorm:"column:state"`
	PostalCode   *string            `gorm:"column:postal_code"`
	Country      *string            `gorm:"column:country"`
	Role         enums.CustomerRole `gorm:"column:role;not null;default:'customer'"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Customer) TableName() string { return "customers" }
