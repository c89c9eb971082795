// Package main запускает HTTP-сервер маркетплейса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/nearbymart/internal/config"
	"github.com/mmeshcher/nearbymart/internal/events"
	"github.com/mmeshcher/nearbymart/internal/expiry"
	"github.com/mmeshcher/nearbymart/internal/handler"
	"github.com/mmeshcher/nearbymart/internal/metrics"
	"github.com/mmeshcher/nearbymart/internal/middleware"
	"github.com/mmeshcher/nearbymart/internal/ratings"
	"github.com/mmeshcher/nearbymart/internal/repository"
	"github.com/mmeshcher/nearbymart/internal/service"
)

const storeCacheTTL = 5 * time.Minute

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := cfg.Location()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Warn("DATABASE_URI is empty, using in-memory storage")
		repo = repository.NewMemoryRepository()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	policy := expiry.Default().InLocation(loc)
	opts := service.Options{
		Metrics: m,
		Expiry:  &policy,
		Logger:  logger,
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Warnw("redis is unavailable, store cache and rate limit disabled", "error", err.Error())
			_ = rdb.Close()
			rdb = nil
		}
	}
	if rdb != nil {
		defer rdb.Close()
		opts.Stores = repository.NewCachedStoreRepository(repo, rdb, storeCacheTTL)
	}

	if len(cfg.KafkaBrokers) > 0 {
		opts.Publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}

	if cfg.RatingSystemAddress != "" {
		opts.Ratings = ratings.NewClient(cfg.RatingSystemAddress)
	}

	svc := service.NewService(repo, opts)
	defer svc.Close()

	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is empty, tokens issued by other services will be rejected")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)

	h := handler.NewHandler(svc, logger, authMiddleware, handler.Options{
		Gatherer:      reg,
		SearchLimiter: middleware.RateLimit(rdb, cfg.RateLimit, time.Minute, logger),
	})

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновые процессы: истечение заказов и синхронизация рейтингов
	g.Go(func() error {
		svc.StartExpirySweep(ctx, cfg.ExpirySweepInterval)
		svc.StartRatingSync(ctx, cfg.RatingSyncInterval)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting nearbymart server", "addr", cfg.RunAddress, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
