package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fitwear/storefront/internal/cache"
	"github.com/fitwear/storefront/internal/config"
	h "github.com/fitwear/storefront/internal/http"
	"github.com/fitwear/storefront/internal/repository"
	"github.com/fitwear/storefront/internal/service"
	"github.com/fitwear/storefront/internal/telemetry"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	cfg := config.Load()
	telemetry.InitLogger(cfg.LogLevel)

	ctx := context.Background()

	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.SetupTracer(ctx, "storefront", cfg.OTLPEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", "error", err)
			os.Exit(1)
		}
		defer shutdownTracer(context.Background())
	}

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		slog.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer mongoDB.Client().Disconnect(ctx)
	slog.Info("connected to MongoDB", "uri", cfg.MongoURI)

	if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
		slog.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("Redis connection failed", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis", "addr", cfg.RedisAddr)

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	productRepo := repository.NewMongoProductRepository(mongoDB)
	orderRepo := repository.NewMongoOrderRepository(mongoDB)
	userRepo := repository.NewMongoUserRepository(mongoDB)

	cartCache := cache.NewRedisCache(redisClient, cfg.CartCacheTTL)

	cartService := service.NewCartService(cartRepo, productRepo, cartCache)
	orderService := service.NewOrderService(orderRepo, productRepo, cartService)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)

	router := h.NewRouter(
		h.NewAuthHandler(authService),
		h.NewProductsHandler(productRepo),
		h.NewCartHandler(cartService),
		h.NewOrdersHandler(orderService),
		authService,
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("storefront API starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}
