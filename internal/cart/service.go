package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	opAdd    = "add"
	opSet    = "set"
	opRemove = "remove"
	opClear  = "clear"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionCreator interface {
	Create(ctx context.Context, kind enums.SessionKind) (*models.Session, error)
}

type mutationRecorder interface {
	CartMutation(op string, err error)
}

// Service resolves carts for callers and mutates their lines.
type Service interface {
	GetOrCreateCart(ctx context.Context, id identity.Identity) (*Resolution, error)
	AddItem(ctx context.Context, cartID, itemID int64, quantity int, unitPrice decimal.Decimal) (*models.CartItem, error)
	SetQuantity(ctx context.Context, cartID, itemID int64, quantity int, unitPrice decimal.Decimal) (*models.CartItem, error)
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	ListItems(ctx context.Context, cartID int64) ([]LineDTO, error)
	View(ctx context.Context, cartID int64) (*View, error)
	Clear(ctx context.Context, cartID int64) error
	BindSessionCartTx(ctx context.Context, tx *gorm.DB, sessionID string, customerID int64) (*models.Cart, error)
	AttachGuestCartTx(ctx context.Context, tx *gorm.DB, sessionID string, customerID int64) (*models.Cart, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	sessions sessionCreator
	metrics  mutationRecorder
}

// NewService builds a cart service. metrics may be nil.
func NewService(repo CartRepository, tx txRunner, sessions sessionCreator, metrics mutationRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session creator required")
	}
	return &service{repo: repo, tx: tx, sessions: sessions, metrics: metrics}, nil
}

// GetOrCreateCart always returns a usable cart: by customer id for
// authenticated callers, by session id for guests. A guest without a session
// gets one first.
func (s *service) GetOrCreateCart(ctx context.Context, id identity.Identity) (*Resolution, error) {
	res := &Resolution{}

	var (
		lookup func(repo CartRepository) (*models.Cart, error)
		fresh  models.Cart
	)
	if id.IsAuthenticated() {
		customerID := id.CustomerID
		lookup = func(repo CartRepository) (*models.Cart, error) { return repo.FindByCustomer(ctx, customerID) }
		fresh.CustomerID = &customerID
	} else {
		sessionID := id.SessionID
		if !id.HasSession() {
			session, err := s.sessions.Create(ctx, enums.SessionKindGuest)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create guest session")
			}
			res.Session = session
			sessionID = session.ID
		}
		lookup = func(repo CartRepository) (*models.Cart, error) { return repo.FindBySession(ctx, sessionID) }
		fresh.SessionID = &sessionID
	}

	cart, err := lookup(s.repo)
	if err == nil {
		res.Cart = *cart
		return res, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateIgnore(ctx, &fresh); err != nil {
			return err
		}
		created, err := lookup(repo)
		if err != nil {
			return err
		}
		res.Cart = *created
		return nil
	})
	if err != nil {
		return nil, storageError(err, "create cart")
	}
	return res, nil
}

// AddItem adds quantity (which may be negative) to the line and recomputes
// its total from unitPrice. A resulting quantity of zero removes the line.
func (s *service) AddItem(ctx context.Context, cartID, itemID int64, quantity int, unitPrice decimal.Decimal) (line *models.CartItem, err error) {
	defer func() { s.record(opAdd, err) }()
	return s.mutate(ctx, cartID, itemID, unitPrice, func(current int) int { return current + quantity })
}

// SetQuantity replaces the line quantity. Zero removes the line.
func (s *service) SetQuantity(ctx context.Context, cartID, itemID int64, quantity int, unitPrice decimal.Decimal) (line *models.CartItem, err error) {
	defer func() { s.record(opSet, err) }()
	return s.mutate(ctx, cartID, itemID, unitPrice, func(int) int { return quantity })
}

func (s *service) mutate(ctx context.Context, cartID, itemID int64, unitPrice decimal.Decimal, next func(current int) int) (*models.CartItem, error) {
	if itemID <= 0 {
		return nil, pkgerrors.Validation(map[string]string{"item_id": "must be a positive integer"})
	}
	if unitPrice.IsNegative() {
		return nil, pkgerrors.Validation(map[string]string{"unit_price": "must not be negative"})
	}

	var result *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockByID(ctx, cartID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.NotFound("cart")
			}
			return err
		}

		existing, err := repo.FindLine(ctx, cartID, itemID)
		if err != nil && !db.IsNotFound(err) {
			return err
		}
		current := 0
		if existing != nil {
			current = existing.Quantity
		}

		quantity := next(current)
		if quantity < 0 {
			return pkgerrors.Validation(map[string]string{"quantity": "resulting quantity must not be negative"})
		}
		if quantity == 0 {
			if existing == nil {
				return nil
			}
			return repo.DeleteLine(ctx, cartID, itemID)
		}

		line := &models.CartItem{
			CartID:   cartID,
			ItemID:   itemID,
			Quantity: quantity,
			Price:    LineTotal(quantity, unitPrice),
		}
		if existing == nil {
			err = repo.InsertLine(ctx, line)
		} else {
			err = repo.UpdateLine(ctx, line)
		}
		if err != nil {
			return err
		}
		result = line
		return nil
	})
	if err != nil {
		return nil, storageError(err, "update cart line")
	}
	return result, nil
}

// RemoveItem deletes the line. Removing an absent line is not an error.
func (s *service) RemoveItem(ctx context.Context, cartID, itemID int64) (err error) {
	defer func() { s.record(opRemove, err) }()
	if err := s.repo.DeleteLine(ctx, cartID, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	return nil
}

func (s *service) ListItems(ctx context.Context, cartID int64) ([]LineDTO, error) {
	lines, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return lines, nil
}

func (s *service) View(ctx context.Context, cartID int64) (*View, error) {
	lines, err := s.ListItems(ctx, cartID)
	if err != nil {
		return nil, err
	}
	view := newView(cartID, lines)
	return &view, nil
}

// Clear empties the cart but keeps the cart row.
func (s *service) Clear(ctx context.Context, cartID int64) (err error) {
	defer func() { s.record(opClear, err) }()
	if _, err := s.repo.ClearLines(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) record(op string, err error) {
	if s.metrics != nil {
		s.metrics.CartMutation(op, err)
	}
}

// storageError passes typed errors through and marks the rest retryable.
func storageError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
