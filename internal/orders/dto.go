package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// OrderRow is an order joined with its payment and delivery.
type OrderRow struct {
	ID             int64
	CustomerID     int64
	Date           time.Time
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	AddressLine1   string
	AddressLine2   *string
	City           string
	State          string
	PostalCode     string
	Country        string
	PaymentTypeID  int
	Total          decimal.Decimal
	DeliveryType   enums.DeliveryType
	DeliveryStatus enums.DeliveryStatus
}

// SaleRow is the minimal projection used by the sales report.
type SaleRow struct {
	OrderID int64
	Date    time.Time
	Total   decimal.Decimal
}

type OrderItemDTO struct {
	OrderID  int64           `json:"-"`
	ItemID   int64           `json:"item_id"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderDTO is one entry of a customer's order history.
type OrderDTO struct {
	ID             int64                `json:"id"`
	Date           time.Time            `json:"date"`
	Total          decimal.Decimal      `json:"total"`
	PaymentType    enums.PaymentType    `json:"payment_type"`
	DeliveryType   enums.DeliveryType   `json:"delivery_type"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	Email          string               `json:"email"`
	Phone          string               `json:"phone"`
	Address        types.Address        `json:"address"`
	Items          []OrderItemDTO       `json:"items"`
}

// DailySales is the revenue of one UTC calendar day.
type DailySales struct {
	Day     string          `json:"day"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// SalesSummary aggregates orders placed in [From, To).
type SalesSummary struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
	ByDay      []DailySales    `json:"by_day"`
}

func orderFromRow(row OrderRow, items []OrderItemDTO) OrderDTO {
	paymentType, _ := enums.PaymentTypeFromID(row.PaymentTypeID)
	if items == nil {
		items = []OrderItemDTO{}
	}
	return OrderDTO{
		ID:             row.ID,
		Date:           row.Date,
		Total:          row.Total,
		PaymentType:    paymentType,
		DeliveryType:   row.DeliveryType,
		DeliveryStatus: row.DeliveryStatus,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Email:          row.Email,
		Phone:          row.Phone,
		Address: types.Address{
			Line1:      row.AddressLine1,
			Line2:      row.AddressLine2,
			City:       row.City,
			State:      row.State,
			PostalCode: row.PostalCode,
			Country:    row.Country,
		},
		Items: items,
	}
}
