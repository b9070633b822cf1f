package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

type cartBinder interface {
	BindSessionCartTx(ctx context.Context, tx *gorm.DB, sessionID string, customerID int64) (*models.Cart, error)
	AttachGuestCartTx(ctx context.Context, tx *gorm.DB, sessionID string, customerID int64) (*models.Cart, error)
}

// Promoter binds a guest session's cart to a customer row.
type Promoter struct {
	carts cartBinder
}

// NewPromoter builds a promoter backed by the cart binder.
func NewPromoter(carts cartBinder) (*Promoter, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart binder required")
	}
	return &Promoter{carts: carts}, nil
}

// PromoteOrMerge reuses the customer that owns the profile email or creates
// a guest customer from the profile, then records that customer on the
// session's own cart. The caller is unauthenticated, so no existing customer
// cart is merged or handed to the session. It must run inside the caller's
// transaction.
func (p *Promoter) PromoteOrMerge(ctx context.Context, tx *gorm.DB, guestSessionID string, profile customers.Profile) (*models.Customer, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := customers.NewRepository(tx)

	customer, _, err := ClaimOrCreate(ctx, repo, profile, true)
	if err != nil {
		return nil, err
	}
	if _, err := p.carts.AttachGuestCartTx(ctx, tx, guestSessionID, customer.ID); err != nil {
		return nil, fmt.Errorf("attach session cart: %w", err)
	}
	return customer, nil
}

// BindCart attaches the session's cart to an authenticated customer, merging
// it into the customer's cart when both exist. An empty session is a no-op.
func (p *Promoter) BindCart(ctx context.Context, tx *gorm.DB, guestSessionID string, customerID int64) (*models.Cart, error) {
	if strings.TrimSpace(guestSessionID) == "" {
		return nil, nil
	}
	cart, err := p.carts.BindSessionCartTx(ctx, tx, guestSessionID, customerID)
	if err != nil {
		return nil, fmt.Errorf("bind session cart: %w", err)
	}
	return cart, nil
}

// ClaimOrCreate locks the customer with the profile email, inserting one
// when absent. Concurrent inserts of the same email collapse onto a single
// row through the unique constraint. asGuest marks newly inserted rows;
// created reports whether this call wrote the row.
func ClaimOrCreate(ctx context.Context, repo *customers.Repository, profile customers.Profile, asGuest bool) (customer *models.Customer, created bool, err error) {
	email := customers.NormalizeEmail(profile.Email)

	existing, err := repo.LockByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !db.IsNotFound(err) {
		return nil, false, fmt.Errorf("lock customer: %w", err)
	}

	fresh := &models.Customer{IsGuest: asGuest}
	profile.Apply(fresh)
	created, err = repo.CreateIgnore(ctx, fresh)
	if err != nil {
		return nil, false, fmt.Errorf("create customer: %w", err)
	}
	if created {
		return fresh, true, nil
	}

	winner, err := repo.LockByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("reload customer: %w", err)
	}
	return winner, false, nil
}
