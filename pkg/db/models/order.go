package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Payment records the payment tag and total. CardID is never populated.
type Payment struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	TypeID    int             `gorm:"column:type_id;not null"`
	CardID    *int64          `gorm:"column:card_id"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }

type Delivery struct {
	ID           int64                `gorm:"column:id;primaryKey;autoIncrement"`
	DeliveryType enums.DeliveryType   `gorm:"column:delivery_type;not null"`
	Status       enums.DeliveryStatus `gorm:"column:status;not null"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Delivery) TableName() string { return "deliveries" }

// Order is written together with exactly one Payment and one Delivery.
type Order struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID   int64     `gorm:"column:customer_id;not null"`
	Date         time.Time `gorm:"column:date;not null"`
	PaymentID    int64     `gorm:"column:payment_id;not null;uniqueIndex"`
	DeliveryID   int64     `gorm:"column:delivery_id;not null;uniqueIndex"`
	FirstName    string    `gorm:"column:first_name;not null"`
	LastName     string    `gorm:"column:last_name;not null"`
	Email        string    `gorm:"column:email;not null"`
	Phone        string    `gorm:"column:phone;not null"`
	AddressLine1 string    `gorm:"column:address_line1;not null"`
	AddressLine2 *string   `gorm:"column:address_line2"`
	City         string    `gorm:"column:city;not null"`
	State        string    `gorm:"column:state;not null"`
	PostalCode   string    `gorm:"column:postal_code;not null"`
	Country      string    `gorm:"column:country;not null"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	OrderID  int64           `gorm:"column:order_id;primaryKey"`
	ItemID   int64           `gorm:"column:item_id;primaryKey"`
	Quantity int             `gorm:"column:quantity;not null"`
	Price    decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }
