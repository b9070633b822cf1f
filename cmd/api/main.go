package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/sessions"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/events"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers := []func() error{dbClient.Close}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	readiness := []controllers.ReadinessCheck{{Name: "db", Ping: dbClient.Ping}}

	var redisStore routes.RedisStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient.Close)
		redisStore = redisClient
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Ping: redisClient.Ping})
	} else {
		logg.Warn(ctx, "redis not configured; idempotency and auth rate limits disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQP.Enabled() {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQP)
		if err != nil {
			return err
		}
		publisher = amqpPublisher
	}
	closers = append(closers, publisher.Close)

	var storefrontMetrics *metrics.Storefront
	if cfg.Metrics.Enabled {
		storefrontMetrics = metrics.New()
	}

	conn := dbClient.DB()

	tokens, err := pkgauth.NewIssuer(cfg.JWT)
	if err != nil {
		return err
	}
	sessionStore, err := sessions.NewStore(sessions.NewRepository(conn), cfg.Session)
	if err != nil {
		return err
	}
	customerRepo := customers.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	cartService, err := cart.NewService(cartRepo, dbClient, sessionStore, storefrontMetrics)
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient)
	if err != nil {
		return err
	}
	promoter, err := auth.NewPromoter(cartService)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		Customers:      customerRepo,
		Sessions:       sessionStore,
		Tokens:         tokens,
		Promoter:       promoter,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:        dbClient,
		Carts:     cartRepo,
		Orders:    ordersRepo,
		Promoter:  promoter,
		Publisher: publisher,
		Metrics:   storefrontMetrics,
		Logger:    logg,
	})
	if err != nil {
		return err
	}
	resolver, err := identity.NewResolver(tokens, sessionStore, customerRepo, storefrontMetrics, logg)
	if err != nil {
		return err
	}

	handler, err := routes.NewRouter(routes.Params{
		Config:    cfg,
		Logger:    logg,
		Metrics:   storefrontMetrics,
		Readiness: readiness,
		Redis:     redisStore,
		Resolver:  resolver,
		Sessions:  sessionStore,
		Tokens:    tokens,
		Auth:      authService,
		Catalog:   catalogService,
		Carts:     cartService,
		Checkout:  checkoutService,
		Orders:    ordersService,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{Addr: addr, Handler: handler}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
