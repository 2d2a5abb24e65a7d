// Command lbridge is the Discord voice bridge: it captures speech from
// voice channels, submits it to a linguabridge gateway, and posts the
// translations back to the guild.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/linguabridge/linguabridge/internal/bridge"
	"github.com/linguabridge/linguabridge/internal/config"
	"github.com/linguabridge/linguabridge/internal/prefs"
	"github.com/linguabridge/linguabridge/pkg/client"
)

const version = "0.3.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("lbridge", version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lbridge: %v\n", err)
		return 1
	}
	if cfg.Bridge.Token == "" {
		fmt.Fprintln(os.Stderr, "lbridge: bridge.token is not configured")
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lbridge starting",
		"version", version,
		"config", *configPath,
		"gateway_url", cfg.Bridge.GatewayURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg.Prefs, logger)
	if err != nil {
		slog.Error("failed to open preference store", "err", err)
		return 1
	}
	defer cleanup()

	var clientOpts []client.Option
	clientOpts = append(clientOpts, client.WithLogger(logger))
	if cfg.Bridge.QueueSize > 0 {
		clientOpts = append(clientOpts, client.WithQueueSize(cfg.Bridge.QueueSize))
	}
	cl, err := client.New(cfg.Bridge.GatewayURL, clientOpts...)
	if err != nil {
		slog.Error("failed to create gateway client", "err", err)
		return 1
	}
	defer cl.Close()

	b, err := bridge.New(cfg.Bridge.Token, store, cl, bridge.WithLogger(logger))
	if err != nil {
		slog.Error("failed to connect to Discord", "err", err)
		return 1
	}
	defer b.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cl.Run(gctx) })
	g.Go(func() error { return b.Run(gctx) })

	slog.Info("bridge ready, press Ctrl+C to shut down")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// openStore builds the preference store: Postgres when a DSN is set,
// otherwise in-memory. The cleanup func closes the pool, if any.
func openStore(ctx context.Context, cfg config.PrefsConfig, logger *slog.Logger) (prefs.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		logger.Warn("no postgres_dsn configured, preferences will not survive restarts")
		return prefs.NewMemStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	store := prefs.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate preference schema: %w", err)
	}
	logger.Info("preference store ready", "backend", "postgres")
	return store, pool.Close, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
