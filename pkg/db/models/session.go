package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Session is a server-side record that keeps a token honorable. It carries no
// owner reference; the customer link lives only inside the signed token.
type Session struct {
	ID        string            `gorm:"column:id;primaryKey"`
	Kind      enums.SessionKind `gorm:"column:kind;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;not null"`
	ExpiresAt time.Time         `gorm:"column:expires_at;not null"`
}

func (Session) TableName() string { return "sessions" }
