package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetria só é exportada quando há um endpoint OTLP configurado
	if cfg.OTLPEndpoint != "" {
		tp, err := initTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
		if err != nil {
			logger.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", zap.Error(err))
			}
		}()

		mp, err := initMetrics(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
		if err != nil {
			logger.Fatal("failed to initialize metrics", zap.Error(err))
		}
		defer func() {
			if err := mp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down meter provider", zap.Error(err))
			}
		}()
	}

	metrics, err := newInventoryMetrics(otel.Meter(instrumentationName))
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}
	tracer := otel.Tracer(instrumentationName)

	var repository ProductRepository
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		pool, err := initDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err))
		}
		defer pool.Close()

		pgRepository := NewPostgresProductRepository(pool)
		if err := pgRepository.EnsureSchema(ctx, seedProducts()); err != nil {
			logger.Fatal("failed to prepare database schema", zap.Error(err))
		}
		repository = pgRepository
		logger.Info("✅ Connected to inventory database")
	default:
		repository = NewMemoryProductRepository(seedProducts())
	}

	var limiter RateLimiter
	if cfg.RedisAddr != "" {
		client, err := initRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warn("redis unavailable, login rate limiting disabled", zap.Error(err))
		} else {
			defer client.Close()
			limiter = NewRedisRateLimiter(client, "rate_limit:login:", cfg.LoginRateLimit, cfg.LoginRateWindow)
		}
	}

	auth := NewAuthService(cfg.Users, cfg.JWTSecret, cfg.TokenTTL, metrics)
	useCase := NewInventoryUseCase(repository, tracer, metrics, logger)
	handler := NewInventoryHandler(useCase, auth, logger)

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(cfg, handler, auth, limiter, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		logger.Info("🚀 Inventory Service listening",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
}
