// Package reservation decrements item stock for the lines of an order.
package reservation

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"gorm.io/gorm"
)

// Request asks for qty units of an item.
type Request struct {
	ItemID int64
	Qty    int
}

// Result reports the outcome for one request, in request order.
type Result struct {
	ItemID   int64
	Reserved bool
	Reason   string
}

// ReserveStock decrements stock with a conditional update per request so
// concurrent checkouts never drive stock negative. It must run in tx.
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []Request) ([]Result, error) {
	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
		res := tx.WithContext(ctx).
			Model(&models.Item{}).
			Where("id = ? AND stock >= ?", req.ItemID, req.Qty).
			Update("stock", gorm.Expr("stock - ?", req.Qty))
		if res.Error != nil {
			return nil, fmt.Errorf("reserve item %d: %w", req.ItemID, res.Error)
		}
		result := Result{ItemID: req.ItemID, Reserved: res.RowsAffected == 1}
		if !result.Reserved {
			result.Reason = "insufficient stock"
		}
		results = append(results, result)
	}
	return results, nil
}

// Shortages maps "item_<id>" to the reason for every failed reservation.
func Shortages(results []Result) map[string]string {
	out := map[string]string{}
	for _, r := range results {
		if !r.Reserved {
			out[fmt.Sprintf("item_%d", r.ItemID)] = r.Reason
		}
	}
	return out
}
