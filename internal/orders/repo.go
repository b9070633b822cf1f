package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const orderRowColumns = "o.id, o.customer_id, o.date, o.first_name, o.last_name, o.email, o.phone, " +
	"o.address_line1, o.address_line2, o.city, o.state, o.postal_code, o.country, " +
	"p.type_id AS payment_type_id, p.price AS total, d.delivery_type, d.status AS delivery_status"

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Take(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockDelivery(ctx context.Context, deliveryID int64) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&delivery, "id = ?", deliveryID).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) UpdateDeliveryStatus(ctx context.Context, deliveryID int64, status enums.DeliveryStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Delivery{ID: deliveryID}).
		Update("status", status).Error
}

// ListForCustomer returns orders newest first, starting below beforeID when set.
func (r *repository) ListForCustomer(ctx context.Context, customerID, beforeID int64, limit int) ([]OrderRow, error) {
	query := r.db.WithContext(ctx).
		Table("orders AS o").
		Select(orderRowColumns).
		Joins("JOIN payments AS p ON p.id = o.payment_id").
		Joins("JOIN deliveries AS d ON d.id = o.delivery_id").
		Where("o.customer_id = ?", customerID).
		Order("o.id DESC").
		Limit(limit)
	if beforeID > 0 {
		query = query.Where("o.id < ?", beforeID)
	}
	var rows []OrderRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ItemsForOrders(ctx context.Context, orderIDs []int64) (map[int64][]OrderItemDTO, error) {
	grouped := make(map[int64][]OrderItemDTO, len(orderIDs))
	if len(orderIDs) == 0 {
		return grouped, nil
	}
	var items []OrderItemDTO
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.order_id, oi.item_id, pr.title, oi.quantity, oi.price").
		Joins("JOIN items AS i ON i.id = oi.item_id").
		Joins("JOIN products AS pr ON pr.id = i.product_id").
		Where("oi.order_id IN ?", orderIDs).
		Order("oi.order_id, oi.item_id").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		grouped[item.OrderID] = append(grouped[item.OrderID], item)
	}
	return grouped, nil
}

// PaidBetween lists order totals with from <= date < to.
func (r *repository) PaidBetween(ctx context.Context, from, to time.Time) ([]SaleRow, error) {
	var rows []SaleRow
	err := r.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.id AS order_id, o.date, p.price AS total").
		Joins("JOIN payments AS p ON p.id = o.payment_id").
		Where("o.date >= ? AND o.date < ?", from.UTC(), to.UTC()).
		Order("o.date ASC").
		Scan(&rows).Error
	return rows, err
}
