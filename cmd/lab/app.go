package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"strategy-lab/internal/config"
	"strategy-lab/internal/logging"
	"strategy-lab/internal/marketdata"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/storage"
	chstore "strategy-lab/internal/storage/clickhouse"
	"strategy-lab/internal/storage/memory"
	"strategy-lab/internal/storage/migrations"
	pgstore "strategy-lab/internal/storage/postgres"
	redisstore "strategy-lab/internal/storage/redis"
)

// app holds the wired dependencies shared by all commands.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *observability.Metrics
	repo    *storage.Repository
	bars    storage.BarStore
	loader  *marketdata.Loader

	// barsInMemory is true when no ClickHouse DSN is configured; commands
	// then generate synthetic bars for the requested symbols.
	barsInMemory bool

	closers []func()
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if pretty, _ := cmd.Flags().GetBool("log-pretty"); pretty {
		cfg.Log.Pretty = true
	}

	a := &app{cfg: cfg}
	a.logger = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = observability.NewMetrics(cfg.Metrics.Namespace, reg)

	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		a.serveMetrics(addr, reg)
	}

	if err := a.openRecords(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openBars(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.loader = marketdata.NewLoader(a.bars, marketdata.Options{
		RequestsPerSecond: cfg.MarketData.RequestsPerSecond,
		Burst:             cfg.MarketData.Burst,
		BreakerFailures:   cfg.MarketData.BreakerFailures,
		BreakerTimeout:    cfg.MarketData.BreakerTimeout,
		Logger:            &a.logger,
		Metrics:           a.metrics,
	})
	return a, nil
}

func (a *app) openRecords(ctx context.Context) error {
	var store storage.RecordStore
	switch a.cfg.Storage.Backend {
	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:     a.cfg.Storage.RedisAddr,
			Password: a.cfg.Storage.RedisPassword,
			DB:       a.cfg.Storage.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		store = redisstore.NewRecordStore(client, a.cfg.Storage.RedisNamespace)

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		store = pgstore.NewRecordStore(pool)

	default:
		store = memory.NewRecordStore()
	}

	a.repo = storage.NewRepository(store, a.cfg.Storage.Backend, a.metrics)
	a.logger.Debug().Str("backend", a.cfg.Storage.Backend).Msg("record store ready")
	return nil
}

func (a *app) openBars(ctx context.Context) error {
	if a.cfg.Storage.ClickhouseDSN == "" {
		a.bars = memory.NewBarStore()
		a.barsInMemory = true
		return nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.Storage.ClickhouseDSN)
	if err != nil {
		return fmt.Errorf("prepare clickhouse: %w", err)
	}
	a.closers = append(a.closers, func() { conn.Close() })
	a.bars = chstore.NewBarStore(conn)
	a.logger.Debug().Msg("clickhouse bar store ready")
	return nil
}

func (a *app) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
