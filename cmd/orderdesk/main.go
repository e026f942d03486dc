package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/orderdesk/internal/admin"
	"github.com/nikolayk812/orderdesk/internal/analytics"
	"github.com/nikolayk812/orderdesk/internal/cache"
	"github.com/nikolayk812/orderdesk/internal/config"
	"github.com/nikolayk812/orderdesk/internal/db"
	"github.com/nikolayk812/orderdesk/internal/httpapi"
	"github.com/nikolayk812/orderdesk/internal/logging"
	"github.com/nikolayk812/orderdesk/internal/port"
	"github.com/nikolayk812/orderdesk/internal/repository"
	"github.com/nikolayk812/orderdesk/internal/repository/inmem"
	"github.com/nikolayk812/orderdesk/internal/service"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding base.yaml and <env>.yaml")
	envName := flag.String("env", os.Getenv("ORDERDESK_ENV"), "environment overlay name")
	flag.Parse()

	if err := run(*configDir, *envName); err != nil {
		slog.Error("orderdesk stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configDir, envName string) error {
	cfg, err := config.Load(configDir, envName)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Component: cfg.App.Name,
		Level:     cfg.App.LogLevel,
		FilePath:  cfg.App.LogFile,
	})
	if err != nil {
		return fmt.Errorf("logging.New: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, health, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	var statsCache port.StatsCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			// stats fall back to the store on every request
			logger.WarnContext(ctx, "redis unreachable, stats cache disabled", slog.Any("error", err))
		} else {
			statsCache = cache.NewStatsCache(rdb, cfg.Redis.Prefix, cfg.Redis.StatsTTL)
		}
	}

	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	sink := analytics.NewAsyncSink(publisher, logger,
		analytics.WithBufferSize(cfg.Analytics.BufferSize),
		analytics.WithPublishTimeout(cfg.Analytics.PublishTimeout))

	svcCfg := service.Config{
		Currency:             cfg.Orders.Unit,
		Location:             cfg.Orders.Location,
		OperationTimeout:     cfg.Postgres.OperationTimeout,
		ExportTimeout:        cfg.Export.Timeout,
		DefaultPageSize:      cfg.Orders.DefaultPageSize,
		MaxPageSize:          cfg.Orders.MaxPageSize,
		AllowPaidAfterCancel: cfg.Orders.AllowPaidAfterCancel,
	}

	store := service.NewOrderStore(repo, svcCfg, logger)

	ctrl, err := admin.NewController(admin.Deps{
		Store:      store,
		Query:      service.NewQueryEngine(repo, svcCfg),
		Stats:      service.NewStatsAggregator(repo, statsCache, svcCfg, logger),
		Tracking:   service.NewTrackingUpdater(store),
		Exporter:   service.NewExporter(repo, svcCfg, logger),
		Events:     sink,
		StatsCache: statsCache,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      httpapi.NewRouter(httpapi.NewHandler(ctrl, health, logger), httpapi.HeaderAuthenticator{}, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening",
			slog.String("addr", cfg.App.HTTPAddr),
			slog.String("env", cfg.App.Env),
			slog.String("storage", cfg.Storage.Driver))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("srv.Shutdown: %w", err))
		}
		// drain analytics only after in-flight requests stopped emitting
		if err := sink.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("sink.Close: %w", err))
		}

		if dropped := sink.Dropped(); dropped > 0 {
			logger.Warn("analytics events dropped", slog.Int64("count", dropped))
		}
		logger.Info("shutdown complete")

		return errors.Join(errs...)
	})

	return g.Wait()
}

func openRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (port.OrderRepository, httpapi.HealthCheck, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		logger.Warn("using in-memory order store, data is lost on restart")
		return inmem.NewOrder(), nil, func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("pool.Ping: %w", err)
	}

	if cfg.Postgres.Migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("db.Migrate: %w", err)
		}
	}

	return repository.NewOrder(pool), pool.Ping, pool.Close, nil
}

func openPublisher(cfg config.Config, logger *slog.Logger) (port.EventPublisher, func(), error) {
	if cfg.Analytics.Publisher != config.PublisherAMQP {
		return analytics.NewLogPublisher(logger), func() {}, nil
	}

	publisher, err := analytics.NewAMQPPublisher(cfg.Analytics.AMQPURL, cfg.Analytics.Exchange)
	if err != nil {
		return nil, nil, fmt.Errorf("analytics.NewAMQPPublisher: %w", err)
	}

	return publisher, closeLogged(publisher, logger, "amqp publisher"), nil
}

func closeLogged(c io.Closer, logger *slog.Logger, name string) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("close failed", slog.String("resource", name), slog.Any("error", err))
		}
	}
}
