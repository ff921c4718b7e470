package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadscore_backend/internal/events"
	"leadscore_backend/internal/scoring"
	"leadscore_backend/internal/scoring/engine"
	"leadscore_backend/internal/worker"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/db"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scoring worker", "env", cfg.Env, "queue", cfg.QueueName, "concurrency", cfg.Concurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid redis url", "error", err)
		panic("invalid redis url: " + err.Error())
	}
	redisClient := redis.NewClient(redisOpt)
	defer func() { _ = redisClient.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := engine.NewMetrics(registry)

	eventBus := events.NewInMemoryBus(log)
	eventBus.Subscribe("lead.scored", events.HandlerFunc(func(_ context.Context, event events.Event) error {
		scored, ok := event.(events.LeadScored)
		if !ok {
			return nil
		}
		log.WithTenant(scored.OrganizationID).Info("lead scored",
			"leadId", scored.LeadID.String(),
			"score", scored.Score,
			"confidence", scored.Confidence,
		)
		return nil
	}))

	queueClient, err := worker.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		panic("failed to initialize queue client: " + err.Error())
	}
	defer func() { _ = queueClient.Close() }()

	scoringModule := scoring.NewModule(scoring.Deps{
		Pool:      pool,
		Redis:     redisClient,
		Bus:       eventBus,
		Logger:    log,
		Validator: validator.New(),
		Metrics:   metrics,
		Enqueuer:  queueClient,
		LockTTL:   cfg.LeadLockTTL,
		LockWait:  cfg.LeadLockWait,
	})

	w, err := worker.NewWorker(cfg, scoringModule.Engine(), scoringModule.Repository(), eventBus, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	dispatcher := worker.NewOutboxDispatcher(scoringModule.Repository(), queueClient, log, metrics)
	go dispatcher.Run(ctx)

	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		log.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	w.Run(ctx)
	log.Info("scoring worker stopped")
}
