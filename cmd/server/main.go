package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/example/ride-dashboards/internal/catalog"
	"github.com/example/ride-dashboards/internal/config"
	"github.com/example/ride-dashboards/internal/dispatch"
	httpapi "github.com/example/ride-dashboards/internal/http"
	"github.com/example/ride-dashboards/internal/ingest"
	"github.com/example/ride-dashboards/internal/logging"
	"github.com/example/ride-dashboards/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("ride-dashboards", pflag.ContinueOnError)
	flags.String("addr", "", "listen address (overrides HTTP_ADDR)")
	flags.String("fixtures", "", "YAML fixture file (overrides FIXTURES_FILE)")
	flags.String("log-level", "", "log level (overrides LOG_LEVEL)")
	flags.Bool("migrate", false, "apply SQL migrations before serving")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	v, err := config.New()
	if err != nil {
		return err
	}
	for key, flag := range map[string]string{"HTTP_ADDR": "addr", "FIXTURES_FILE": "fixtures", "LOG_LEVEL": "log-level"} {
		if f := flags.Lookup(flag); f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	if f := flags.Lookup("migrate"); f.Changed {
		v.Set("MIGRATE", f.Value.String())
	}
	cfg, err := config.LoadServerConfig(v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	var publisher ingest.Publisher = ingest.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		logger.Info("publishing events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEventsTopic)
	}
	defer publisher.Close()

	hub := dispatch.NewWSRegistry(logger)
	svc := service.New(provider,
		service.WithPublisher(publisher),
		service.WithNotifier(hub),
		service.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(svc, hub, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ride-dashboards listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// buildProvider layers the data sources: fixtures at the bottom, postgres
// for offers and requests when PG_DSN is set, and the redis cache on top
// when REDIS_ADDR is set.
func buildProvider(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (catalog.Provider, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var base catalog.Provider
	var err error
	if cfg.FixturesFile != "" {
		base, err = catalog.LoadFile(cfg.FixturesFile)
	} else {
		base, err = catalog.Default()
	}
	if err != nil {
		return nil, closeAll, err
	}
	provider := base

	if cfg.PGDSN != "" {
		pg, err := catalog.NewPostgres(ctx, cfg.PGDSN, base)
		if err != nil {
			return nil, closeAll, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, func() { _ = pg.Close() })
		if cfg.RunMigrations {
			if err := migrate(ctx, pg.DB(), cfg.MigrationsDir, logger); err != nil {
				closeAll()
				return nil, func() {}, err
			}
		}
		provider = pg
	}

	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		closers = append(closers, func() { _ = rc.Close() })
		provider = catalog.NewRedis(catalog.NewRedisKV(rc), provider, catalog.RedisOptions{
			OffersKey:  cfg.RedisOffersKey,
			PendingKey: cfg.RedisPendingKey,
			TTL:        cfg.RedisCacheTTL,
		})
	}
	return provider, closeAll, nil
}

func migrate(ctx context.Context, db *sql.DB, dir string, logger *slog.Logger) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", filepath.Base(f), err)
		}
		logger.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
