package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/relense/influencer-markt-sub003/internal/auth"
	"github.com/relense/influencer-markt-sub003/internal/config"
	"github.com/relense/influencer-markt-sub003/internal/credits"
	"github.com/relense/influencer-markt-sub003/internal/eligibility"
	"github.com/relense/influencer-markt-sub003/internal/events"
	"github.com/relense/influencer-markt-sub003/internal/ledger"
	"github.com/relense/influencer-markt-sub003/internal/listings"
	"github.com/relense/influencer-markt-sub003/internal/profiles"
	"github.com/relense/influencer-markt-sub003/internal/rabbitmq"
	"github.com/relense/influencer-markt-sub003/internal/reconcile"
	"github.com/relense/influencer-markt-sub003/internal/repository"
	"github.com/relense/influencer-markt-sub003/internal/router"
	"github.com/relense/influencer-markt-sub003/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and DATABASE_URL is correct", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := migrations.Apply(ctx, pool, logger); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Ledger events: RabbitMQ publisher, or a logging fallback when unreachable.
	publisher := rabbitmq.Connect(cfg.RabbitMQURL, logger)
	defer publisher.Close()

	// The enqueue func is set after the River client is created (breaks init cycle).
	var insertMu sync.Mutex
	var insertFn ledger.EnqueueEventTxFunc
	enqueueEvent := func(ctx context.Context, tx pgx.Tx, args events.LedgerEventArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			return errors.New("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, events.NewLedgerEventWorker(publisher, cfg.LedgerEventsExchange, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.RiverMaxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args events.LedgerEventArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Eligibility cache: Redis when configured, reachable and the TTL is positive;
	// direct computation otherwise.
	var cacheClient redis.UniversalClient
	if cfg.RedisURL != "" && cfg.EligibilityCacheTTL() > 0 {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unavailable; eligibility caching disabled", "error", err)
			_ = rdb.Close()
		} else {
			cacheClient = rdb
			defer rdb.Close()
			slog.Info("Connected to Redis")
		}
	}
	matcher := eligibility.NewCachedMatcher(cacheClient, cfg.EligibilityCacheTTL(), logger)

	// Repositories
	creditRepo := repository.NewCreditRepo(pool)
	orderRepo := repository.NewOrderRepo(pool)
	refundRepo := repository.NewRefundRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	listingRepo := repository.NewListingRepo(pool)

	// Services
	ledgerSvc := ledger.NewService(pool, creditRepo, orderRepo, refundRepo, enqueueEvent, logger)
	authSvc := auth.NewService(auth.NewRepository(pool), profileRepo, creditRepo, ledgerSvc, auth.Options{
		Secret:           []byte(cfg.JWTSecret),
		SignupBonusCents: cfg.SignupBonusCents,
	}, logger)
	profileSvc := profiles.NewService(profileRepo, logger)
	listingSvc := listings.NewService(listingRepo, profileRepo, matcher, logger)

	validator, err := listings.NewValidator()
	if err != nil {
		slog.Error("Listing schema failed to compile", "error", err)
		os.Exit(1)
	}

	api := router.New(router.Handlers{
		Auth:     auth.NewHandler(authSvc, logger),
		Profiles: profiles.NewHandler(profileSvc, logger),
		Listings: listings.NewHandler(listingSvc, validator, logger),
		Credits:  credits.NewHandler(ledgerSvc, logger),
	}, authSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(api)

	// Start River client (publishes ledger events)
	if err := riverClient.Start(ctx); err != nil {
		slog.Error("Failed to start River client", "error", err)
		os.Exit(1)
	}

	scheduler := reconcile.NewScheduler(reconcile.NewJobs(orderRepo, logger), cfg.ReconcileSchedule, logger)
	if err := scheduler.Start(); err != nil {
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	<-scheduler.Stop().Done()
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River client stop failed", "error", err)
	}
}
