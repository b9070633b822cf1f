package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID int64) (*models.Order, error)
	LockDelivery(ctx context.Context, deliveryID int64) (*models.Delivery, error)
	UpdateDeliveryStatus(ctx context.Context, deliveryID int64, status enums.DeliveryStatus) error
	ListForCustomer(ctx context.Context, customerID, beforeID int64, limit int) ([]OrderRow, error)
	ItemsForOrders(ctx context.Context, orderIDs []int64) (map[int64][]OrderItemDTO, error)
	PaidBetween(ctx context.Context, from, to time.Time) ([]SaleRow, error)
}
