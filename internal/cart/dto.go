package cart

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// LineDTO is one cart line as shown to the shopper. Price is the line total.
type LineDTO struct {
	ItemID    int64           `json:"item_id"`
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  *string         `json:"image_url,omitempty"`
	Stock     int             `json:"stock"`
}

// View is the cart with its lines and the sum of line totals.
type View struct {
	CartID   int64           `json:"cart_id"`
	Items    []LineDTO       `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Resolution is the result of resolving a caller to a cart. Session is set
// only when a guest session had to be created.
type Resolution struct {
	Cart    models.Cart
	Session *models.Session
}

// LineTotal is quantity x unit price rounded to cents.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

func newView(cartID int64, lines []LineDTO) View {
	if lines == nil {
		lines = []LineDTO{}
	}
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Price)
	}
	return View{CartID: cartID, Items: lines, Subtotal: subtotal}
}
