package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/shopforge/commerce-api/internal/config"
	"github.com/shopforge/commerce-api/internal/handlers"
	"github.com/shopforge/commerce-api/internal/pricing"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/repository/mysqlstore"
	"github.com/shopforge/commerce-api/internal/seed"
	"github.com/shopforge/commerce-api/internal/service"
	"github.com/shopforge/commerce-api/internal/telemetry"
	"github.com/shopforge/commerce-api/pkg/logger"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "commerce-api",
		Usage:   "catalog, coupon and order pricing service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back the MySQL schema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply all pending migrations", Action: migrate(true)},
					{Name: "down", Usage: "roll back all migrations", Action: migrate(false)},
				},
			},
		},
		DefaultCommand: "serve",
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("commerce-api exited")
	}
}

// storage is the store plus the health probe the router reports on.
type storage struct {
	repository.Store
	ping handlers.Pinger
}

type memoryPinger struct{}

func (memoryPinger) Ping() error { return nil }

func openStore(cfg *config.Config, log logrus.FieldLogger) (*storage, error) {
	if cfg.DB.Driver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return &storage{Store: repository.NewInMemoryStore(), ping: memoryPinger{}}, nil
	}

	store, err := mysqlstore.Open(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.MigrateUp(); err != nil {
		store.Close()
		return nil, errors.Wrap(err, "apply migrations")
	}
	return &storage{Store: store, ping: store}, nil
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"addr":      cfg.Server.Addr(),
		"driver":    cfg.DB.Driver,
		"log_level": cfg.LogLevel,
		"version":   version,
	}).Info("starting commerce api server")

	store, err := openStore(cfg, log)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer store.Close()

	audit := telemetry.NewAuditLogger(store, log)
	tracker := telemetry.NewTracker(store, log)

	opts := pricing.DefaultOptions()
	opts.TaxRate = cfg.Pricing.TaxRate
	opts.FlatShipping = cfg.Pricing.FlatShipping
	opts.Currency = cfg.Pricing.Currency
	engine := pricing.NewEngine(store, opts, log)

	catalog := service.NewCatalogService(store, audit, log)
	coupons := service.NewCouponService(store, audit, log)
	orders := service.NewOrderService(engine, store, audit, tracker, log)

	if cfg.SeedFile != "" {
		if _, err := seed.NewLoader(catalog, coupons, log).LoadFile(c.Context, cfg.SeedFile); err != nil {
			return errors.Wrap(err, "seed catalog")
		}
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Catalog:        catalog,
		Coupons:        coupons,
		Orders:         orders,
		Tracker:        tracker,
		Audit:          audit,
		Health:         store.ping,
		APIKeys:        cfg.Auth.Roles(),
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Version:        version,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

func migrate(up bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DB.Driver != "mysql" {
			return errors.Errorf("migrate needs DB_DRIVER=mysql, got %s", cfg.DB.Driver)
		}
		log := logger.New(cfg.LogLevel)

		store, err := mysqlstore.Open(cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		if up {
			err = store.MigrateUp()
		} else {
			err = store.MigrateDown()
		}
		if err != nil {
			return err
		}
		log.WithField("up", up).Info("migrations applied")
		return nil
	}
}
