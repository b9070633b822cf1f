package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type orderPlacer interface {
	PlaceOrder(ctx context.Context, caller identity.Identity, form checkout.ShippingForm) (*checkout.Placement, error)
}

// Checkout places an order from the caller's cart.
func Checkout(svc orderPlacer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var form checkout.ShippingForm
		if err := validators.DecodeJSONBody(w, r, &form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		placement, err := svc.PlaceOrder(r.Context(), middleware.IdentityFromContext(r.Context()), form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "order_id", placement.OrderID), "checkout.order_placed")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, placement)
	}
}
