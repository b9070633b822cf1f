package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxReportRange = 366 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order history and the admin report.
type Service interface {
	ListForCustomer(ctx context.Context, customerID int64, params pagination.Params) (*types.Page[OrderDTO], error)
	SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error)
	UpdateDeliveryStatus(ctx context.Context, orderID int64, status enums.DeliveryStatus) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the orders service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID int64, params pagination.Params) (*types.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(map[string]string{"cursor": err.Error()})
	}
	var beforeID int64
	if cursor != nil {
		beforeID = cursor.ID
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListForCustomer(ctx, customerID, beforeID, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := &types.Page[OrderDTO]{Items: []OrderDTO{}}
	if len(rows) > limit {
		rows = rows[:limit]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{ID: rows[len(rows)-1].ID})
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	items, err := s.repo.ItemsForOrders(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	for _, row := range rows {
		page.Items = append(page.Items, orderFromRow(row, items[row.ID]))
	}
	return page, nil
}

// SalesSummary totals payments of orders placed in [from, to), bucketed by
// UTC day.
func (s *service) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	from, to = from.UTC(), to.UTC()
	if !to.After(from) {
		return nil, pkgerrors.Validation(map[string]string{"to": "must be after from"})
	}
	if to.Sub(from) > maxReportRange {
		return nil, pkgerrors.Validation(map[string]string{"to": "range must not exceed 366 days"})
	}

	rows, err := s.repo.PaidBetween(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales")
	}

	summary := &SalesSummary{From: from, To: to, Revenue: decimal.Zero, ByDay: []DailySales{}}
	index := map[string]int{}
	for _, row := range rows {
		summary.OrderCount++
		summary.Revenue = summary.Revenue.Add(row.Total)

		day := row.Date.UTC().Format(time.DateOnly)
		i, ok := index[day]
		if !ok {
			i = len(summary.ByDay)
			index[day] = i
			summary.ByDay = append(summary.ByDay, DailySales{Day: day, Revenue: decimal.Zero})
		}
		summary.ByDay[i].Orders++
		summary.ByDay[i].Revenue = summary.ByDay[i].Revenue.Add(row.Total)
	}
	return summary, nil
}

// UpdateDeliveryStatus moves the order's delivery one step forward:
// Processing -> Shipped -> Delivered.
func (s *service) UpdateDeliveryStatus(ctx context.Context, orderID int64, status enums.DeliveryStatus) error {
	if !status.IsValid() {
		return pkgerrors.Validation(map[string]string{"status": "must be one of Processing, Shipped, Delivered"})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.NotFound("order")
			}
			return err
		}
		delivery, err := repo.LockDelivery(ctx, order.DeliveryID)
		if err != nil {
			return err
		}
		if !delivery.Status.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery status transition not allowed").
				WithDetails(map[string]string{"from": delivery.Status.String(), "to": status.String()})
		}
		return repo.UpdateDeliveryStatus(ctx, delivery.ID, status)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery status")
	}
	return nil
}
