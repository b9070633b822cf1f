package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// BindSessionCartTx makes the cart reachable from both the session and the
// customer. It must run inside the caller's transaction.
//
//   - no cart for either: one is created carrying both keys
//   - only a guest cart: it gains the customer id
//   - only a customer cart: it gains the session id
//   - both: guest lines are merged into the customer cart, quantities summed
//     and totals recomputed at the current price, then the guest cart is
//     removed and the customer cart takes over the session
func (s *service) BindSessionCartTx(ctx context.Context, tx *gorm.DB, sessionID string, customerID int64) (*models.Cart, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	sessionID = strings.TrimSpace(sessionID)
	repo := s.repo.WithTx(tx)

	owned, err := lockOptional(repo.LockByCustomer(ctx, customerID))
	if err != nil {
		return nil, fmt.Errorf("lock customer cart: %w", err)
	}
	if sessionID == "" {
		return owned, nil
	}
	guest, err := lockOptional(repo.LockBySession(ctx, sessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session cart: %w", err)
	}
	if guest != nil && guest.CustomerID != nil && *guest.CustomerID != customerID {
		// the session's cart already belongs to someone else; leave it alone
		if owned != nil {
			return owned, nil
		}
		if err := repo.CreateIgnore(ctx, &models.Cart{CustomerID: &customerID}); err != nil {
			return nil, fmt.Errorf("create customer cart: %w", err)
		}
		return repo.FindByCustomer(ctx, customerID)
	}

	switch {
	case guest == nil && owned == nil:
		fresh := &models.Cart{SessionID: &sessionID, CustomerID: &customerID}
		if err := repo.CreateIgnore(ctx, fresh); err != nil {
			return nil, fmt.Errorf("create bound cart: %w", err)
		}
		return repo.FindByCustomer(ctx, customerID)

	case owned == nil:
		guest.CustomerID = &customerID
		if err := repo.Save(ctx, guest); err != nil {
			return nil, fmt.Errorf("bind guest cart: %w", err)
		}
		return guest, nil

	case guest == nil || guest.ID == owned.ID:
		owned.SessionID = &sessionID
		if err := repo.Save(ctx, owned); err != nil {
			return nil, fmt.Errorf("bind customer cart: %w", err)
		}
		return owned, nil
	}

	if err := mergeLines(ctx, repo, guest.ID, owned.ID); err != nil {
		return nil, err
	}
	if _, err := repo.ClearLines(ctx, guest.ID); err != nil {
		return nil, fmt.Errorf("clear guest cart: %w", err)
	}
	if err := repo.Delete(ctx, guest.ID); err != nil {
		return nil, fmt.Errorf("delete guest cart: %w", err)
	}
	owned.SessionID = &sessionID
	if err := repo.Save(ctx, owned); err != nil {
		return nil, fmt.Errorf("bind customer cart: %w", err)
	}
	return owned, nil
}

// AttachGuestCartTx records the customer on the session's own cart after an
// unauthenticated checkout. The cart keeps its session key and is never
// merged or removed. When the session cart already belongs to a customer,
// or the customer already owns another cart, nothing changes: a guest
// session never gains access to a cart it did not create.
func (s *service) AttachGuestCartTx(ctx context.Context, tx *gorm.DB, sessionID string, customerID int64) (*models.Cart, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil
	}
	repo := s.repo.WithTx(tx)

	guest, err := lockOptional(repo.LockBySession(ctx, sessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session cart: %w", err)
	}
	if guest == nil || guest.CustomerID != nil {
		return guest, nil
	}
	owned, err := lockOptional(repo.LockByCustomer(ctx, customerID))
	if err != nil {
		return nil, fmt.Errorf("lock customer cart: %w", err)
	}
	if owned != nil {
		return guest, nil
	}

	guest.CustomerID = &customerID
	if err := repo.Save(ctx, guest); err != nil {
		return nil, fmt.Errorf("attach guest cart: %w", err)
	}
	return guest, nil
}

func mergeLines(ctx context.Context, repo CartRepository, fromCartID, intoCartID int64) error {
	lines, err := repo.Lines(ctx, fromCartID)
	if err != nil {
		return fmt.Errorf("load guest lines: %w", err)
	}
	for _, line := range lines {
		unitPrice, err := repo.UnitPrice(ctx, line.ItemID)
		if err != nil {
			return fmt.Errorf("price item %d: %w", line.ItemID, err)
		}
		existing, err := repo.FindLine(ctx, intoCartID, line.ItemID)
		if err != nil && !db.IsNotFound(err) {
			return fmt.Errorf("load customer line: %w", err)
		}

		merged := &models.CartItem{CartID: intoCartID, ItemID: line.ItemID, Quantity: line.Quantity}
		if existing != nil {
			merged.Quantity += existing.Quantity
		}
		merged.Price = LineTotal(merged.Quantity, unitPrice)

		if existing == nil {
			err = repo.InsertLine(ctx, merged)
		} else {
			err = repo.UpdateLine(ctx, merged)
		}
		if err != nil {
			return fmt.Errorf("merge line %d: %w", line.ItemID, err)
		}
	}
	return nil
}

func lockOptional(cart *models.Cart, err error) (*models.Cart, error) {
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return cart, nil
}
