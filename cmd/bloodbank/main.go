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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bloodbank/pkg/api"
	"bloodbank/pkg/auth"
	"bloodbank/pkg/circuitbreaker"
	"bloodbank/pkg/config"
	"bloodbank/pkg/database"
	"bloodbank/pkg/documents"
	"bloodbank/pkg/logger"
	"bloodbank/pkg/metrics"
	"bloodbank/pkg/ratelimit"
	"bloodbank/pkg/service"
	"bloodbank/pkg/store"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	handler http.Handler
	store   *store.Fallback
	db      *gorm.DB
	redis   *redis.Client
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		database.Close(a.db)
	}
}

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "bloodbank")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to start", zap.Error(err))
	}
	defer a.close()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr), zap.String("backend", a.store.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newApp wires the stores, service and router. A database that cannot be
// reached at startup stays behind the breaker, and the mock store serves until
// it answers.
func newApp(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*app, error) {
	m := metrics.New()
	a := &app{}

	var primary store.Store
	db, err := database.Open(cfg.Database, zlog, store.Models()...)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		zlog.Info("no database configured")
	case err != nil:
		zlog.Error("database unavailable, serving from mock store until it answers", zap.Error(err))
		if db, err = database.OpenDeferred(cfg.Database); err != nil {
			zlog.Error("database settings unusable", zap.Error(err))
			break
		}
		a.db = db
		primary = store.NewPendingSQL(db)
	default:
		a.db = db
		primary = store.NewSQL(db)
	}

	breaker := circuitbreaker.NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerCooldown)
	a.store = store.NewFallback(primary, store.NewMemory(), breaker, zlog, m)

	svc := service.New(a.store, zlog, service.WithAdminIDs(cfg.AdminIDs))
	if n, err := svc.SeedInventory(ctx); err != nil {
		zlog.Warn("inventory seeding failed", zap.Error(err))
	} else if n > 0 {
		zlog.Info("inventory seeded", zap.Int("records", n))
	}

	docStore, err := documents.Open(ctx, cfg.S3, zlog)
	if err != nil {
		a.close()
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			zlog.Warn("redis unreachable, rate limiting fails open", zap.Error(err))
		}
		limiter = ratelimit.New(a.redis, cfg.RateLimitPerMinute, time.Minute, zlog, m)
	}

	a.handler = api.NewRouter(api.Deps{
		Service:   svc,
		Health:    a.store,
		Documents: documents.NewService(docStore, zlog),
		Tokens:    auth.NewTokens(cfg.JWTSecretKey, cfg.JWTTTL),
		Limiter:   limiter,
		Metrics:   m,
		Log:       zlog,
	})
	return a, nil
}
