package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attaboy/lifestats/internal/app"
	"github.com/attaboy/lifestats/internal/auth"
	"github.com/attaboy/lifestats/internal/guard"
	"github.com/attaboy/lifestats/internal/infra"
	"github.com/attaboy/lifestats/internal/projection"
	"github.com/attaboy/lifestats/internal/repository"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/attaboy/lifestats/internal/stats"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Record stores
	set := source.NewSet()
	var (
		stores source.Stores
		db     infra.Pinger
	)
	switch cfg.StoreBackend {
	case infra.BackendPostgres:
		if err := infra.RunMigrations(cfg.DSN(), cfg.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		pool, err := infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to postgres")

		stores = repository.NewStores(pool, set, nil)
		db = pool

		listener := infra.NewChangeListener(pool, cfg.NotifyChannel, infra.DispatchSink{Dispatcher: set}, logger)
		go listener.Run(ctx)
	default:
		stores = source.NewMemoryStores(set, nil)
		logger.Info("using in-memory record stores")
	}

	// Stats engine
	engine := stats.NewEngine(logger,
		stats.WithWindow(cfg.StatsDebounce),
		stats.WithCurve(cfg.Curve()),
		stats.WithWealthScale(cfg.WealthMinorPerMajor),
	)
	defer engine.Close()

	// Subscribers are registered before Configure so they see the initial
	// profile.
	profileCache := projection.NewInMemoryStore()
	recorder := projection.NewProfileRecorder(profileCache, logger)
	engine.Subscribe(recorder.Record)

	// Kafka
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	if producer.Enabled() {
		publisher := infra.NewProfilePublisher(producer, cfg.KafkaProfileTopic, guard.NewCircuitBreaker(5, 30*time.Second), logger)
		engine.Subscribe(publisher.Offer)
		go publisher.Run(ctx)
	}

	if err := engine.Configure(ctx, stores.Sources()); err != nil {
		return fmt.Errorf("configure stats engine: %w", err)
	}

	feed := infra.NewChangeFeed(cfg.KafkaBrokers, cfg.KafkaChangesTopic, cfg.KafkaGroupID, cfg.KafkaEnabled,
		infra.DispatchSink{Dispatcher: set}, logger)
	feed.Start(ctx)
	defer feed.Close()

	// Guards
	rateLimiter := guard.NewRateLimiter(cfg.WriteRateLimit, time.Minute)
	idempotency := guard.NewIdempotencyGuard(cfg.IdempotencyTTL)
	go guard.RunSweeper(ctx, time.Minute, rateLimiter, idempotency)

	var jwtMgr *auth.JWTManager
	if cfg.AuthEnabled {
		jwtMgr = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)
	}

	r := app.NewRouter(app.RouterDeps{
		Engine:             engine,
		ProfileCache:       profileCache,
		Stores:             stores,
		Backend:            cfg.StoreBackend,
		DB:                 db,
		Logger:             logger,
		JWTMgr:             jwtMgr,
		AuthEnabled:        cfg.AuthEnabled,
		RateLimiter:        rateLimiter,
		Idempotency:        idempotency,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
