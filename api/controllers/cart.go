package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type cartService interface {
	GetOrCreateCart(ctx context.Context, id identity.Identity) (*cart.Resolution, error)
	AddItem(ctx context.Context, cartID, itemID int64, quantity int, unitPrice decimal.Decimal) (*models.CartItem, error)
	SetQuantity(ctx context.Context, cartID, itemID int64, quantity int, unitPrice decimal.Decimal) (*models.CartItem, error)
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	ListItems(ctx context.Context, cartID int64) ([]cart.LineDTO, error)
	View(ctx context.Context, cartID int64) (*cart.View, error)
}

type itemLookup interface {
	GetItem(ctx context.Context, itemID int64) (*catalog.ItemDetail, error)
}

type addCartItemRequest struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gte=1,max=999"`
}

type setCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,max=999"`
}

// CartGet returns the caller's cart, creating an empty one on first access.
func CartGet(carts cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, ok := resolveCart(w, r, carts, logg)
		if !ok {
			return
		}
		writeCartView(w, r, carts, cartID, http.StatusOK, logg)
	}
}

// CartAddItem adds quantity of an item at the current catalog price.
func CartAddItem(carts cartService, items itemLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addCartItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID, ok := resolveCart(w, r, carts, logg)
		if !ok {
			return
		}

		item, err := items.GetItem(r.Context(), body.ItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := lineQuantity(r.Context(), carts, cartID, body.ItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := checkStock(item, current+body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := carts.AddItem(r.Context(), cartID, body.ItemID, body.Quantity, item.Price); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, r, carts, cartID, http.StatusCreated, logg)
	}
}

// CartUpdateItem sets the absolute quantity of a line; zero removes it.
func CartUpdateItem(carts cartService, items itemLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setCartItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID, ok := resolveCart(w, r, carts, logg)
		if !ok {
			return
		}

		item, err := items.GetItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := checkStock(item, *body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := carts.SetQuantity(r.Context(), cartID, itemID, *body.Quantity, item.Price); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, r, carts, cartID, http.StatusOK, logg)
	}
}

// CartRemoveItem drops a line; removing an absent line is not an error.
func CartRemoveItem(carts cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID, ok := resolveCart(w, r, carts, logg)
		if !ok {
			return
		}

		if err := carts.RemoveItem(r.Context(), cartID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, r, carts, cartID, http.StatusOK, logg)
	}
}

func resolveCart(w http.ResponseWriter, r *http.Request, carts cartService, logg *logger.Logger) (int64, bool) {
	if carts == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return 0, false
	}
	res, err := carts.GetOrCreateCart(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return 0, false
	}
	return res.Cart.ID, true
}

func writeCartView(w http.ResponseWriter, r *http.Request, carts cartService, cartID int64, status int, logg *logger.Logger) {
	view, err := carts.View(r.Context(), cartID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, view)
}

func lineQuantity(ctx context.Context, carts cartService, cartID, itemID int64) (int, error) {
	lines, err := carts.ListItems(ctx, cartID)
	if err != nil {
		return 0, err
	}
	for _, line := range lines {
		if line.ItemID == itemID {
			return line.Quantity, nil
		}
	}
	return 0, nil
}

func checkStock(item *catalog.ItemDetail, quantity int) error {
	if quantity > item.Stock {
		return pkgerrors.InsufficientStock(map[string]any{"item_id": item.ItemID, "requested": quantity, "available": item.Stock})
	}
	return nil
}
