package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/catalogbrowser/api/routes"
	"github.com/angelmondragon/catalogbrowser/internal/catalog"
	"github.com/angelmondragon/catalogbrowser/internal/ledger"
	"github.com/angelmondragon/catalogbrowser/internal/session"
	"github.com/angelmondragon/catalogbrowser/internal/shop"
	"github.com/angelmondragon/catalogbrowser/pkg/config"
	"github.com/angelmondragon/catalogbrowser/pkg/db"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
	"github.com/angelmondragon/catalogbrowser/pkg/metrics"
	"github.com/angelmondragon/catalogbrowser/pkg/migrate"
	"github.com/angelmondragon/catalogbrowser/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	products, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"path": cfg.Catalog.Path, "rows": products.Len()}), "catalog loaded")

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	} else {
		logg.Warn(ctx, "redis not configured, idempotency and rate limiting disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sessionMetrics := metrics.NewSessionMetrics(reg)

	registry := session.NewRegistry(session.WithMetrics(sessionMetrics))

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return err
	}

	shopService, err := shop.NewService(shop.ServiceParams{
		Catalog:  products,
		Sessions: registry,
		Ledger:   ledgerService,
		Metrics:  metrics.NewShopMetrics(reg),
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	if cfg.Session.IdleTTL > 0 {
		sweeper, err := session.NewSweeper(session.SweeperParams{
			Logger:   logg,
			Registry: registry,
			Metrics:  sessionMetrics,
			IdleTTL:  cfg.Session.IdleTTL,
			Interval: cfg.Session.SweepInterval,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "session sweeper stopped", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, reg, metrics.NewHTTPMetrics(reg), shopService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", addr), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
