package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerpos/internal/config"
	"ledgerpos/internal/infra"
	"ledgerpos/internal/router"
	"ledgerpos/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogger(cfg)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	// Redis only backs the statistics cache and ledger events; the ledger
	// keeps serving without it.
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without cache and ledger events")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	if rdb != nil {
		statsCache := infra.NewStatsCache(rdb, cb)
		ledgerWorker := worker.NewLedgerEventWorker(statsCache)
		worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, ledgerWorker.Handlers())
		worker.StartDLQReplayCron(ctx, worker.ReplayCronConfig{
			RDB:      rdb,
			CB:       cb,
			Interval: cfg.DLQReplayInterval,
			Queues:   []string{worker.QueueLedgerEvents},
		})
	}

	r := router.New(ctx, cfg, db, rdb, cb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("ledger engine listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
