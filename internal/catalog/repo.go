package catalog

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads products and items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindItem loads an item with its product title and image.
func (r *Repository) FindItem(ctx context.Context, itemID int64) (*ItemDetail, error) {
	var detail ItemDetail
	err := r.db.WithContext(ctx).
		Table("items AS i").
		Select("i.id AS item_id, i.product_id, p.title, i.sku, i.price, i.stock, p.image_url").
		Joins("JOIN products AS p ON p.id = i.product_id").
		Where("i.id = ?", itemID).
		Take(&detail).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListProducts returns up to limit products with id > afterID, ordered by id.
func (r *Repository) ListProducts(ctx context.Context, afterID int64, limit int) ([]models.Product, error) {
	var products []models.Product
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ItemsForProducts returns the items of the given products grouped by product id.
func (r *Repository) ItemsForProducts(ctx context.Context, productIDs []int64) (map[int64][]models.Item, error) {
	grouped := make(map[int64][]models.Item, len(productIDs))
	if len(productIDs) == 0 {
		return grouped, nil
	}
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		grouped[item.ProductID] = append(grouped[item.ProductID], item)
	}
	return grouped, nil
}
