package cart

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByID(ctx context.Context, id int64) (*models.Cart, error)
	FindBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	FindByCustomer(ctx context.Context, customerID int64) (*models.Cart, error)
	LockByID(ctx context.Context, id int64) (*models.Cart, error)
	LockBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	LockByCustomer(ctx context.Context, customerID int64) (*models.Cart, error)
	CreateIgnore(ctx context.Context, cart *models.Cart) error
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, id int64) error

	FindLine(ctx context.Context, cartID, itemID int64) (*models.CartItem, error)
	InsertLine(ctx context.Context, line *models.CartItem) error
	UpdateLine(ctx context.Context, line *models.CartItem) error
	DeleteLine(ctx context.Context, cartID, itemID int64) error
	Lines(ctx context.Context, cartID int64) ([]models.CartItem, error)
	ListItems(ctx context.Context, cartID int64) ([]LineDTO, error)
	ClearLines(ctx context.Context, cartID int64) (int64, error)
	UnitPrice(ctx context.Context, itemID int64) (decimal.Decimal, error)
}
