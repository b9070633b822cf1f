package catalog

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ItemDetail is one purchasable item joined with its product.
type ItemDetail struct {
	ItemID    int64           `json:"item_id"`
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	ImageURL  *string         `json:"image_url,omitempty"`
}

type ItemDTO struct {
	ID    int64           `json:"id"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// ProductDTO is the storefront listing shape.
type ProductDTO struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Items       []ItemDTO `json:"items"`
}

func productFromModel(p models.Product, items []models.Item) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Items:       make([]ItemDTO, 0, len(items)),
	}
	for _, item := range items {
		dto.Items = append(dto.Items, ItemDTO{ID: item.ID, SKU: item.SKU, Price: item.Price, Stock: item.Stock})
	}
	return dto
}
