package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) identity.Identity
}

type sessionCreator interface {
	Create(ctx context.Context, kind enums.SessionKind) (*models.Session, error)
}

type tokenIssuer interface {
	Issue(customerID int64, sessionID string, expiresAt time.Time) (string, error)
}

// RedisStore is the Redis surface used by the idempotency and rate limit
// middleware. Leave it nil to run without either.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
}

// Params wires the router. Redis, Metrics and Readiness are optional.
type Params struct {
	Config    *config.Config
	Logger    *logger.Logger
	Metrics   *metrics.Storefront
	Readiness []controllers.ReadinessCheck
	Redis     RedisStore

	Resolver identityResolver
	Sessions sessionCreator
	Tokens   tokenIssuer

	Auth     auth.Service
	Catalog  catalog.Service
	Carts    cart.Service
	Checkout checkout.Service
	Orders   orders.Service
}

func (p Params) validate() error {
	switch {
	case p.Config == nil:
		return fmt.Errorf("config required")
	case p.Resolver == nil:
		return fmt.Errorf("identity resolver required")
	case p.Sessions == nil:
		return fmt.Errorf("session store required")
	case p.Tokens == nil:
		return fmt.Errorf("token issuer required")
	}
	return nil
}

func NewRouter(p Params) (http.Handler, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	cfg, logg := p.Config, p.Logger

	var (
		idempotencyStore pkgredis.IdempotencyStore
		rateLimitStore   pkgredis.RateLimiter
	)
	if p.Redis != nil {
		idempotencyStore = p.Redis
		rateLimitStore = p.Redis
	}

	cookies := middleware.NewCookieConfig(cfg.App, cfg.Session)
	guestSession := middleware.GuestSession(p.Sessions, p.Tokens, cookies, logg)
	// attached per route: chi only knows the full pattern once the leaf is matched
	idempotent := middleware.Idempotency(idempotencyStore, logg)

	trusted, err := middleware.ParseTrustedProxies(cfg.App.TrustedProxies)
	if err != nil {
		return nil, err
	}
	loginLimit := middleware.AuthRateLimit(middleware.LoginRateLimit(cfg.AuthRateLimit), rateLimitStore, logg)
	signupLimit := middleware.AuthRateLimit(middleware.SignupRateLimit(cfg.AuthRateLimit), rateLimitStore, logg)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.ClientIP(trusted),
		middleware.Logging(logg, p.Metrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, p.Readiness, logg))
	})
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(p.Resolver, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(signupLimit, idempotent).Post("/signup", controllers.AuthSignup(p.Auth, cookies, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(p.Auth, cookies, logg))
			r.Post("/logout", controllers.AuthLogout(p.Auth, cookies, logg))
			r.With(middleware.RequireCustomer(logg)).Get("/me", controllers.AuthMe(p.Auth, logg))
		})

		r.Get("/products", controllers.ProductsList(p.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(guestSession)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(p.Carts, logg))
				r.With(idempotent).Post("/items", controllers.CartAddItem(p.Carts, p.Catalog, logg))
				r.Put("/items/{itemId}", controllers.CartUpdateItem(p.Carts, p.Catalog, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.Carts, logg))
			})
			r.With(idempotent).Post("/checkout", controllers.Checkout(p.Checkout, logg))
		})

		r.With(middleware.RequireCustomer(logg)).Get("/orders", controllers.OrdersList(p.Orders, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(p.Resolver, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Get("/sales", controllers.AdminSalesSummary(p.Orders, logg))
		r.With(idempotent).Post("/orders/{orderId}/delivery", controllers.AdminUpdateDelivery(p.Orders, logg))
	})

	return r, nil
}
