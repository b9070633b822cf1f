package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderPlaced is published after an order transaction commits.
type OrderPlaced struct {
	OrderID       int64           `json:"order_id"`
	CustomerID    int64           `json:"customer_id"`
	GuestCheckout bool            `json:"guest_checkout"`
	Total         decimal.Decimal `json:"total"`
	PaymentType   string          `json:"payment_type"`
	DeliveryType  string          `json:"delivery_type"`
	Lines         []OrderLine     `json:"lines"`
	PlacedAt      time.Time       `json:"placed_at"`
}

type OrderLine struct {
	ItemID   int64           `json:"item_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Publisher delivers order events. Publishing is best effort.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
	Close() error
}

// NopPublisher drops every event; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }

func (NopPublisher) Close() error { return nil }
