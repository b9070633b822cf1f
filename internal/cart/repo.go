package cart

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Cart, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *Repository) FindBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	return r.first(r.db.WithContext(ctx), "session_id = ?", sessionID)
}

func (r *Repository) FindByCustomer(ctx context.Context, customerID int64) (*models.Cart, error) {
	return r.first(r.db.WithContext(ctx), "customer_id = ?", customerID)
}

// LockByID reads the cart row FOR UPDATE, serializing mutations of its lines.
func (r *Repository) LockByID(ctx context.Context, id int64) (*models.Cart, error) {
	return r.first(r.locked(ctx), "id = ?", id)
}

func (r *Repository) LockBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	return r.first(r.locked(ctx), "session_id = ?", sessionID)
}

func (r *Repository) LockByCustomer(ctx context.Context, customerID int64) (*models.Cart, error) {
	return r.first(r.locked(ctx), "customer_id = ?", customerID)
}

// CreateIgnore inserts the cart unless a row with the same session or
// customer already exists; callers re-read to pick up the winner.
func (r *Repository) CreateIgnore(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(cart).Error
}

func (r *Repository) Save(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Save(cart).Error
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Cart{}).Error
}

func (r *Repository) FindLine(ctx context.Context, cartID, itemID int64) (*models.CartItem, error) {
	var line models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND item_id = ?", cartID, itemID).
		Take(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *Repository) InsertLine(ctx context.Context, line *models.CartItem) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *Repository) UpdateLine(ctx context.Context, line *models.CartItem) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND item_id = ?", line.CartID, line.ItemID).
		Updates(map[string]any{"quantity": line.Quantity, "price": line.Price}).Error
}

// DeleteLine removes one line; a missing line is not an error.
func (r *Repository) DeleteLine(ctx context.Context, cartID, itemID int64) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND item_id = ?", cartID, itemID).
		Delete(&models.CartItem{}).Error
}

func (r *Repository) Lines(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	var lines []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("item_id ASC").
		Find(&lines).Error
	return lines, err
}

// ListItems joins cart lines with their item and product rows.
func (r *Repository) ListItems(ctx context.Context, cartID int64) ([]LineDTO, error) {
	var lines []LineDTO
	err := r.db.WithContext(ctx).
		Table("cart_items AS ci").
		Select("ci.item_id, i.product_id, p.title, ci.quantity, ci.price, p.image_url, i.stock").
		Joins("JOIN items AS i ON i.id = ci.item_id").
		Joins("JOIN products AS p ON p.id = i.product_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.item_id ASC").
		Scan(&lines).Error
	return lines, err
}

// ClearLines deletes every line of the cart. The cart row is kept.
func (r *Repository) ClearLines(ctx context.Context, cartID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// UnitPrice returns the current catalog price of an item.
func (r *Repository) UnitPrice(ctx context.Context, itemID int64) (decimal.Decimal, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Select("id", "price").Take(&item, "id = ?", itemID).Error; err != nil {
		return decimal.Zero, err
	}
	return item.Price, nil
}

func (r *Repository) locked(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *Repository) first(query *gorm.DB, cond string, arg any) (*models.Cart, error) {
	var cart models.Cart
	if err := query.Where(cond, arg).Take(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}
