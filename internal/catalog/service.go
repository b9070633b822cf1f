package catalog

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type catalogRepository interface {
	FindItem(ctx context.Context, itemID int64) (*ItemDetail, error)
	ListProducts(ctx context.Context, afterID int64, limit int) ([]models.Product, error)
	ItemsForProducts(ctx context.Context, productIDs []int64) (map[int64][]models.Item, error)
}

// Service exposes read-only catalog lookups.
type Service interface {
	GetItem(ctx context.Context, itemID int64) (*ItemDetail, error)
	ListProducts(ctx context.Context, params pagination.Params) (*types.Page[ProductDTO], error)
}

type service struct {
	repo catalogRepository
}

// NewService builds a catalog service.
func NewService(repo catalogRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetItem(ctx context.Context, itemID int64) (*ItemDetail, error) {
	if itemID <= 0 {
		return nil, pkgerrors.Validation(map[string]string{"item_id": "must be a positive integer"})
	}
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("item")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params) (*types.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(map[string]string{"cursor": err.Error()})
	}
	var afterID int64
	if cursor != nil {
		afterID = cursor.ID
	}

	limit := pagination.NormalizeLimit(params.Limit)
	products, err := s.repo.ListProducts(ctx, afterID, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page := &types.Page[ProductDTO]{Items: []ProductDTO{}}
	if len(products) > limit {
		products = products[:limit]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{ID: products[len(products)-1].ID})
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	items, err := s.repo.ItemsForProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product items")
	}
	for _, p := range products {
		page.Items = append(page.Items, productFromModel(p, items[p.ID]))
	}
	return page, nil
}
