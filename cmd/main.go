package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"marketplace/internal/api"
	"marketplace/internal/config"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/storage"
	"marketplace/migrations"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	db, err := repository.Connect(cfg.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer db.Close()

	if err := migrations.AutoMigrate(cfg.DB.Retries, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.NewBlobStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up blob storage")
	}

	var notifier service.Notifier = service.LogNotifier{}
	kafkaWriter := config.NewKafkaWriter(cfg.Kafka)
	if kafkaWriter != nil {
		defer kafkaWriter.Close()
		notifier = service.NewKafkaNotifier(kafkaWriter)
	}

	store := repository.NewMySQLStore(db)
	repos := store.Repositories()

	catalogService := service.NewCatalogService(repos, storage.NewUploader(blobs, nil), rdb, cfg.Redis.ProductCacheTTL)
	orderService, err := service.NewOrderService(service.OrderServiceDeps{
		UoW:                 store,
		Fees:                service.NewRuleFeePolicy(rdb, cfg.Redis.FeeRulesCacheTTL, cfg.Checkout.DefaultShipping, cfg.Checkout.DefaultTaxRate),
		Notifier:            notifier,
		Idempotency:         service.NewRedisIdempotency(rdb, cfg.Redis.IdempotencyTTL),
		Products:            catalogService,
		NewOrderNumber:      service.OrderNumberGenerator(cfg.Checkout.OrderNumberPrefix),
		NotificationTimeout: cfg.Checkout.NotificationTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create order service")
	}
	userService := service.NewUserService(store, rdb, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	cartService := service.NewCartService(store, cfg.Checkout.CartTTL, nil)

	e := echo.New()
	e.HideBanner = true

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.HTTP.RateLimit),
				Burst:     cfg.HTTP.RateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"error": "rate limit identifier missing"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	api.RegisterRoutes(e, api.Handlers{
		Orders:  api.NewOrderHandler(orderService),
		Users:   api.NewUserHandler(userService),
		Catalog: api.NewCatalogHandler(catalogService, cartService),
	}, api.NewAuthenticator(cfg.Auth.JWTSecret, userService))

	go func() {
		if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down HTTP server")
	}
	orderService.Wait()
}
