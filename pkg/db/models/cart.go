package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is reachable by session id for guests and by customer id once bound.
// A promoted cart may carry both.
type Cart struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID  *string   `gorm:"column:session_id;uniqueIndex"`
	CustomerID *int64    `gorm:"column:customer_id;uniqueIndex"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Cart) TableName() string { return "carts" }

// CartItem stores the line total (quantity x unit price), not the unit price.
type CartItem struct {
	CartID   int64           `gorm:"column:cart_id;primaryKey"`
	ItemID   int64           `gorm:"column:item_id;primaryKey"`
	Quantity int             `gorm:"column:quantity;not null"`
	Price    decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
}

func (CartItem) TableName() string { return "cart_items" }
