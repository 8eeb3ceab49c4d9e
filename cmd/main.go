package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/api"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/cart"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/config"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/consumer"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/events"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/idempotency"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/pricing"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/repository"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/service"
	"github.com/Bahrichadha23/Pneushopp-sub000/migrations"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func connectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < cfg.ConnectRetries; i++ {
		db, err = sql.Open("mysql", cfg.DSN())
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Info().Str("db", cfg.Name).Msg("Connected to DB")
				return db, nil
			}
		}
		log.Warn().Err(err).Int("attempt", i+1).Str("db", cfg.Name).Msgf("Failed to connect to DB (%s:%s)", cfg.Host, cfg.Port)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %v", cfg.Name, cfg.Host, cfg.Port, err)
}

func openStore(cfg config.DatabaseConfig) (repository.Store, error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("Using the in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil
	}

	db, err := connectDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrations.AutoMigrate(3, db); err != nil {
		db.Close()
		return nil, err
	}
	return repository.NewMySQLStore(db), nil
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	deps := service.Dependencies{
		Store:   store,
		Pricing: pricing.NewCalculator(cfg.Pricing.VATRate),
		Retry:   cfg.Retry.RetryPolicy(),
	}

	if cfg.App.Env == "test" {
		deps.Carts = cart.NewLocalStore()
		deps.Keys = idempotency.NewMemoryStore(cfg.Redis.IdempotencyTTL())
	} else {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
		})
		defer rdb.Close()

		deps.Carts = cart.NewSyncedStore(cart.NewRedisStore(rdb, cfg.Redis.CartTTL()), cart.NewLocalStore())
		deps.Keys = idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL())
		deps.StockCache = service.NewRedisStockCache(rdb, cfg.Redis.StockCacheTTL())
	}

	if cfg.Kafka.Enabled {
		publisher := events.NewKafkaPublisher(config.NewKafkaWriter(cfg.Kafka))
		defer publisher.Close()
		deps.Publisher = publisher
	}

	productService := service.NewProductService(deps)
	ledgerService := service.NewLedgerService(deps)
	orderService := service.NewOrderService(deps)
	purchaseOrderService := service.NewPurchaseOrderService(deps)
	supplierService := service.NewSupplierService(deps)

	if cfg.Kafka.Enabled {
		c := consumer.NewConsumer(productService, config.NewKafkaReader(cfg.Kafka))
		go c.StartKafkaConsumer(ctx)
	}

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.Server.RateLimit),
				Burst:     cfg.Server.RateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.Request().RemoteAddr, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	api.RegisterRoutes(e, api.Handlers{
		Orders:         api.NewOrderHandler(orderService),
		PurchaseOrders: api.NewPurchaseOrderHandler(purchaseOrderService),
		Carts:          api.NewCartHandler(deps.Carts, orderService),
		Products:       api.NewProductHandler(productService, ledgerService),
		Suppliers:      api.NewSupplierHandler(supplierService),
	}, cfg.Auth.JWTSecret)

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down server")
	}
}
