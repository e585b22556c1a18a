package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/librisys/librisys/internal/app"
	"github.com/librisys/librisys/internal/catalog"
	"github.com/librisys/librisys/internal/circulation"
	"github.com/librisys/librisys/internal/fines"
	"github.com/librisys/librisys/internal/platform/cache"
	"github.com/librisys/librisys/internal/platform/db"
	"github.com/librisys/librisys/internal/reservation"
	"github.com/librisys/librisys/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, logger, cfg.StoreTimeout)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	finesRepo := fines.NewRepository(pool)
	finesCache := fines.NewCache(redisClient, cfg.FineCacheTTL)
	finesService := fines.NewService(finesRepo, finesCache, logger, cfg.StoreTimeout)
	finesHandler := fines.NewHandler(logger, finesService)

	circulationRepo := circulation.NewRepository(pool, catalogRepo)
	circulationService := circulation.NewService(circulationRepo, finesService, logger, circulation.ServiceConfig{
		LoanPeriod:   cfg.LoanPeriod(),
		StoreTimeout: cfg.StoreTimeout,
	})
	circulationHandler := circulation.NewHandler(logger, circulationService)

	reservationRepo := reservation.NewRepository(pool, catalogRepo, circulationRepo)
	reservationService := reservation.NewService(reservationRepo, catalogService, logger, reservation.ServiceConfig{
		LoanPeriod:   cfg.LoanPeriod(),
		StoreTimeout: cfg.StoreTimeout,
	})
	reservationHandler := reservation.NewHandler(logger, reservationService)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(jobClient, inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CatalogHandler:     catalogHandler,
		ReservationHandler: reservationHandler,
		CirculationHandler: circulationHandler,
		FinesHandler:       finesHandler,
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
