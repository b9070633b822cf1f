package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog entry shown to shoppers.
type Product struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string    `gorm:"column:title;not null"`
	Description *string   `gorm:"column:description"`
	ImageURL    *string   `gorm:"column:image_url"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Product) TableName() string { return "products" }

// Item is a purchasable variant of a product with its own price and stock.
type Item struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64           `gorm:"column:product_id;not null"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
	Stock     int             `gorm:"column:stock;not null;default:0"`
}

func (Item) TableName() string { return "items" }
