package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/events"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	callerGuest    = "guest"
	callerCustomer = "customer"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type guestPromoter interface {
	PromoteOrMerge(ctx context.Context, tx *gorm.DB, guestSessionID string, profile customers.Profile) (*models.Customer, error)
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.Request) ([]reservation.Result, error)
}

type placementRecorder interface {
	OrderPlaced(caller string)
	EventPublished(err error)
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.Request) ([]reservation.Result, error) {
	return reservation.ReserveStock(ctx, tx, requests)
}

// Service places orders from the caller's cart.
type Service interface {
	PlaceOrder(ctx context.Context, caller identity.Identity, form ShippingForm) (*Placement, error)
}

// Placement describes a committed order.
type Placement struct {
	OrderID        int64                `json:"order_id"`
	CustomerID     int64                `json:"customer_id"`
	PaymentID      int64                `json:"payment_id"`
	DeliveryID     int64                `json:"delivery_id"`
	Total          decimal.Decimal      `json:"total"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
	Date           time.Time            `json:"date"`
	Lines          []events.OrderLine   `json:"lines"`
}

// ServiceParams bundles the checkout dependencies. Metrics and Publisher
// may be nil.
type ServiceParams struct {
	DB        txRunner
	Carts     cart.CartRepository
	Orders    orders.Repository
	Promoter  guestPromoter
	Stock     stockReserver
	Publisher events.Publisher
	Metrics   placementRecorder
	Logger    *logger.Logger
}

type service struct {
	tx        txRunner
	carts     cart.CartRepository
	orders    orders.Repository
	promoter  guestPromoter
	stock     stockReserver
	publisher events.Publisher
	metrics   placementRecorder
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Promoter == nil {
		return nil, fmt.Errorf("guest promoter required")
	}
	stock := params.Stock
	if stock == nil {
		stock = reservationEngine{}
	}
	publisher := params.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:        params.DB,
		carts:     params.Carts,
		orders:    params.Orders,
		promoter:  params.Promoter,
		stock:     stock,
		publisher: publisher,
		metrics:   params.Metrics,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// PlaceOrder writes payment, delivery, order and order items and clears the
// cart in a single transaction. Nothing is written when any step fails.
func (s *service) PlaceOrder(ctx context.Context, caller identity.Identity, form ShippingForm) (*Placement, error) {
	normalized, fields := form.normalize()
	if len(fields) > 0 {
		return nil, pkgerrors.Validation(fields)
	}
	if !caller.IsAuthenticated() && !caller.HasSession() {
		return nil, pkgerrors.Validation(map[string]string{"cart": "is empty"})
	}

	var placement *Placement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		source, err := s.lockCart(ctx, carts, caller)
		if err != nil {
			return err
		}
		lines, err := carts.Lines(ctx, source.ID)
		if err != nil {
			return fmt.Errorf("load cart lines: %w", err)
		}
		if len(lines) == 0 {
			return pkgerrors.Validation(map[string]string{"cart": "is empty"})
		}

		requests := make([]reservation.Request, 0, len(lines))
		total := decimal.Zero
		for _, line := range lines {
			requests = append(requests, reservation.Request{ItemID: line.ItemID, Qty: line.Quantity})
			total = total.Add(line.Price)
		}
		results, err := s.stock.Reserve(ctx, tx, requests)
		if err != nil {
			return err
		}
		if shortages := reservation.Shortages(results); len(shortages) > 0 {
			return pkgerrors.InsufficientStock(shortages)
		}

		customerID := caller.CustomerID
		if !caller.IsAuthenticated() {
			customer, err := s.promoter.PromoteOrMerge(ctx, tx, caller.SessionID, normalized.profile())
			if err != nil {
				return err
			}
			customerID = customer.ID
		}

		payment := &models.Payment{
			TypeID: normalized.paymentType.TypeID(),
			Price:  total,
		}
		if err := orderRepo.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}

		delivery := &models.Delivery{
			DeliveryType: normalized.deliveryType,
			Status:       enums.DeliveryStatusProcessing,
		}
		if err := orderRepo.CreateDelivery(ctx, delivery); err != nil {
			return fmt.Errorf("record delivery: %w", err)
		}

		order := &models.Order{
			CustomerID:   customerID,
			Date:         s.now(),
			PaymentID:    payment.ID,
			DeliveryID:   delivery.ID,
			FirstName:    normalized.FirstName,
			LastName:     normalized.LastName,
			Email:        normalized.Email,
			Phone:        normalized.Phone,
			AddressLine1: normalized.Address.Line1,
			AddressLine2: normalized.Address.Line2,
			City:         normalized.Address.City,
			State:        normalized.Address.State,
			PostalCode:   normalized.Address.PostalCode,
			Country:      normalized.Address.Country,
		}
		if err := orderRepo.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("record order: %w", err)
		}

		items := make([]models.OrderItem, 0, len(lines))
		eventLines := make([]events.OrderLine, 0, len(lines))
		for _, line := range lines {
			items = append(items, models.OrderItem{
				OrderID:  order.ID,
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Price:    line.Price,
			})
			eventLines = append(eventLines, events.OrderLine{ItemID: line.ItemID, Quantity: line.Quantity, Price: line.Price})
		}
		if err := orderRepo.CreateOrderItems(ctx, items); err != nil {
			return fmt.Errorf("record order items: %w", err)
		}
		if _, err := carts.ClearLines(ctx, source.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		placement = &Placement{
			OrderID:        order.ID,
			CustomerID:     customerID,
			PaymentID:      payment.ID,
			DeliveryID:     delivery.ID,
			Total:          total,
			DeliveryStatus: delivery.Status,
			Date:           order.Date,
			Lines:          eventLines,
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}

	s.afterCommit(ctx, caller, normalized, placement)
	return placement, nil
}

func (s *service) lockCart(ctx context.Context, carts cart.CartRepository, caller identity.Identity) (*models.Cart, error) {
	var (
		found *models.Cart
		err   error
	)
	if caller.IsAuthenticated() {
		found, err = carts.LockByCustomer(ctx, caller.CustomerID)
	} else {
		found, err = carts.LockBySession(ctx, caller.SessionID)
	}
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Validation(map[string]string{"cart": "is empty"})
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	return found, nil
}

// afterCommit reports the order. Failures here never undo the order.
func (s *service) afterCommit(ctx context.Context, caller identity.Identity, form normalizedForm, placement *Placement) {
	kind := callerCustomer
	if !caller.IsAuthenticated() {
		kind = callerGuest
	}
	if s.metrics != nil {
		s.metrics.OrderPlaced(kind)
	}

	err := s.publisher.PublishOrderPlaced(ctx, events.OrderPlaced{
		OrderID:       placement.OrderID,
		CustomerID:    placement.CustomerID,
		GuestCheckout: kind == callerGuest,
		Total:         placement.Total,
		PaymentType:   form.paymentType.String(),
		DeliveryType:  form.deliveryType.String(),
		Lines:         placement.Lines,
		PlacedAt:      placement.Date,
	})
	if s.metrics != nil {
		s.metrics.EventPublished(err)
	}
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": placement.OrderID})
		s.logg.WarnErr(logCtx, "publish order placed event failed", err)
	}
}
