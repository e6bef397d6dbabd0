package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/jeffsasaki/regression-lab/api"
	"github.com/jeffsasaki/regression-lab/clients"
	"github.com/jeffsasaki/regression-lab/config"
	"github.com/jeffsasaki/regression-lab/health"
	"github.com/jeffsasaki/regression-lab/logging"
	"github.com/jeffsasaki/regression-lab/orders"
	"github.com/jeffsasaki/regression-lab/seed"
	"github.com/jeffsasaki/regression-lab/store"
	"github.com/jeffsasaki/regression-lab/telemetry"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("order-service failed")
	}
}

func newApp() *cli.App {
	defaults := seed.DefaultParams()
	return &cli.App{
		Name:  "order-service",
		Usage: "order regression lab backend",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrateDB,
			},
			{
				Name:  "seed",
				Usage: "generate a synthetic dataset in one transaction",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "customers", Value: defaults.Customers},
					&cli.IntFlag{Name: "orders-per-customer", Value: defaults.OrdersPerCustomer},
					&cli.IntFlag{Name: "items-per-order", Value: defaults.ItemsPerOrder},
				},
				Action: seedDB,
			},
		},
	}
}

// env is what every command needs: configuration, a logger and an open store.
type env struct {
	cfg   *config.Config
	log   *logrus.Logger
	store *store.Store
}

func setup(ctx context.Context, migrate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	var opts []store.Option
	if cfg.LogSQL {
		opts = append(opts, store.WithStatementHook(logging.SQLHook(log)))
	}
	st, err := store.Open(ctx, cfg.DatabaseURL, opts...)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := st.Migrate(); err != nil {
			st.Close()
			return nil, err
		}
		log.WithField("dialect", st.Dialect().Name).Info("schema up to date")
	}
	return &env{cfg: cfg, log: log, store: st}, nil
}

func (e *env) service(extra ...orders.Option) *orders.Service {
	opts := []orders.Option{
		orders.WithLogger(e.log),
		orders.WithGenerator(seed.New(seed.WithSeed(e.cfg.SeedRandomSeed), seed.WithLogger(e.log))),
	}
	return orders.NewService(e.store, append(opts, extra...)...)
}

func migrateDB(c *cli.Context) error {
	e, err := setup(c.Context, true)
	if err != nil {
		return err
	}
	return e.store.Close()
}

func seedDB(c *cli.Context) error {
	e, err := setup(c.Context, true)
	if err != nil {
		return err
	}
	defer e.store.Close()

	res, err := e.service().Seed(c.Context, seed.Params{
		Customers:         c.Int("customers"),
		OrdersPerCustomer: c.Int("orders-per-customer"),
		ItemsPerOrder:     c.Int("items-per-order"),
	})
	if err != nil {
		return err
	}
	return json.NewEncoder(c.App.Writer).Encode(res)
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.store.Close()
	cfg, log := e.cfg, e.log

	if cfg.AutoMigrate {
		if err := e.store.Migrate(); err != nil {
			return err
		}
	}

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.WithError(err).Warn("tracer shutdown")
		}
	}()

	var events clients.AmqpClient = clients.NoopAmqpClient{}
	if cfg.AMQPURL != "" {
		events, err = clients.Dial(cfg.AMQPURL)
		if err != nil {
			return errors.Wrap(err, "connect to RabbitMQ")
		}
		defer events.Close()
		if err := events.DeclareQueue(cfg.EventsQueue); err != nil {
			return errors.Wrapf(err, "declare queue %s", cfg.EventsQueue)
		}
	}

	var cache clients.Cache
	if cfg.RedisAddr != "" {
		cache = clients.NewRedisCache(cfg.RedisAddr, "order")
	}

	svc := e.service(
		orders.WithEvents(events, cfg.EventsQueue),
		orders.WithCache(cache, cfg.SummaryCacheTTL),
	)

	checker := health.NewChecker(e.store, cfg.ServiceName)
	if cfg.GRPCHealthAddr != "" {
		go func() {
			if err := checker.Serve(ctx, cfg.GRPCHealthAddr, 10*time.Second, log); err != nil {
				log.WithError(err).Error("grpc health server stopped")
			}
		}()
	}

	h := api.NewHandler(svc, checker, log, api.Options{
		PageSize:          cfg.PageSize,
		MaxPageSize:       cfg.MaxPageSize,
		SeedRatePerMinute: cfg.SeedRatePerMinute,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(h, log, cfg.DevEndpoints),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
