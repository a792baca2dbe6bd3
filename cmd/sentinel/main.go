package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pump-sentinel/internal/config"
	"pump-sentinel/internal/detector"
	"pump-sentinel/internal/feed"
	"pump-sentinel/internal/ingestion"
	"pump-sentinel/internal/notify"
	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/storage"
	"pump-sentinel/internal/storage/cache"
	chstore "pump-sentinel/internal/storage/clickhouse"
	"pump-sentinel/internal/storage/memory"
	"pump-sentinel/internal/storage/migrations"
	pgstore "pump-sentinel/internal/storage/postgres"
	"pump-sentinel/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	hub := stream.NewHub(100, logger)
	startHTTPServer(cfg.ListenAddr, hub, logger)

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Error().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, logger, cfg, hub)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("pipeline failed")
	}

	logger.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// startHTTPServer exposes metrics, health, and the alert stream.
func startHTTPServer(addr string, hub *stream.Hub, logger zerolog.Logger) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		mux.HandleFunc("/ws/alerts", hub.ServeWS())
		logger.Info().Str("addr", addr).Msg("starting http server")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()
}

// run wires the pipeline and blocks until the context is cancelled.
func run(ctx context.Context, logger zerolog.Logger, cfg *config.Config, hub *stream.Hub) error {
	snapshots, pumps, prices, cleanup, err := buildStores(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.CacheTTL > 0 {
		snapshots = cache.NewSnapshotStore(snapshots, cfg.CacheTTL)
	}

	notifiers := notify.Multi{hub}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramMaxRetries, cfg.TelegramRetryDelay)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		notifiers = append(notifiers, tg)
		logger.Info().Msg("telegram notifier enabled")
	}

	feedCfg := feed.DefaultConfig()
	feedCfg.BaseURL = cfg.FeedBaseURL
	feedCfg.Timeout = cfg.FeedTimeout
	feedCfg.RequestsPerSecond = cfg.FeedRequestsPerSecond
	var source ingestion.SnapshotSource = feed.NewCachedSource(
		feed.NewIndodaxClient(feedCfg, logger), cfg.TickInterval)

	det := detector.New(detector.Config{
		Window:               cfg.WindowSize,
		MinConsecutiveUp:     cfg.MinConsecutiveUp,
		PriceThresholdPct:    cfg.PriceThresholdPct,
		VolumeThresholdPct:   cfg.VolumeThresholdPct,
		PriceDeltaPct:        cfg.PriceDeltaPct,
		VolumeSpikePct:       cfg.VolumeSpikePct,
		SoftMinConsecutiveUp: cfg.SoftMinConsecutiveUp,
		SoftPricePct:         cfg.SoftPricePct,
		SoftVolumePct:        cfg.SoftVolumePct,
	}, snapshots, pumps, prices, logger)

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:        source,
		SnapshotStore: snapshots,
		Detector:      det,
		Notifier:      notifiers,
		TickInterval:  cfg.TickInterval,
		Workers:       cfg.Workers,
		Logger:        logger,
	})

	return runner.Run(ctx)
}

// buildStores creates the configured storage backend, with an optional
// ClickHouse archive mirroring detected events.
func buildStores(ctx context.Context, logger zerolog.Logger, cfg *config.Config) (
	snapshots storage.SnapshotStore,
	pumps storage.PumpEventStore,
	prices storage.PriceEventStore,
	cleanup func(),
	err error,
) {
	cleanup = func() {}

	switch cfg.StorageBackend {
	case "memory":
		snapshots = memory.NewSnapshotStore()
		pumps = memory.NewPumpEventStore()
		prices = memory.NewPriceEventStore()
		logger.Info().Msg("using in-memory storage")

	case "postgres":
		if cfg.DatabaseDSN == "" {
			return nil, nil, nil, nil, fmt.Errorf("DATABASE_DSN is required for postgres storage (set STORAGE_BACKEND=memory for in-memory)")
		}

		poolCfg := pgstore.DefaultConfig(cfg.DatabaseDSN)
		poolCfg.MinConns = cfg.PoolMinConns
		poolCfg.MaxConns = cfg.PoolMaxConns
		poolCfg.ConnectTimeout = cfg.ConnectTimeout
		poolCfg.MaxRetries = cfg.MaxRetries
		poolCfg.RetryBackoff = cfg.RetryBackoff
		if cfg.AcquirePolicy == "fallback" {
			poolCfg.Policy = pgstore.AcquireFallback
		}

		pool, perr := pgstore.NewPool(ctx, poolCfg)
		if perr != nil {
			return nil, nil, nil, nil, fmt.Errorf("create postgres pool: %w", perr)
		}
		if merr := migrations.RunPostgresMigrations(ctx, pool); merr != nil {
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("run postgres migrations: %w", merr)
		}

		snapshots = pgstore.NewSnapshotStore(pool)
		pumps = pgstore.NewPumpEventStore(pool)
		prices = pgstore.NewPriceEventStore(pool)
		cleanup = pool.Close
		logger.Info().Msg("using postgres storage")

	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.ClickhouseDSN != "" {
		conn, cherr := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if cherr != nil {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", cherr)
		}

		pumps = storage.NewMirroredPumpEventStore(pumps, chstore.NewPumpEventArchive(conn), logger)
		prices = storage.NewMirroredPriceEventStore(prices, chstore.NewPriceEventArchive(conn), logger)

		prev := cleanup
		cleanup = func() {
			conn.Close()
			prev()
		}
		logger.Info().Msg("clickhouse event archive enabled")
	}

	return snapshots, pumps, prices, cleanup, nil
}
