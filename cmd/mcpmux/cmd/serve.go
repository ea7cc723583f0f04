package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/mcpmux/mcpmux/internal/adapter/inbound/http"
	"github.com/mcpmux/mcpmux/internal/adapter/outbound/memory"
	"github.com/mcpmux/mcpmux/internal/adapter/outbound/sqlite"
	"github.com/mcpmux/mcpmux/internal/config"
	"github.com/mcpmux/mcpmux/internal/domain/app"
	"github.com/mcpmux/mcpmux/internal/service"
)

var devMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy server",
	Long:  `Start mcpmux: bring up every registered app's upstreams and serve their aggregated MCP endpoints plus the admin API.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "run with permissive dev defaults (in-memory store, debug logging)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
		cfg.SetDevDefaults()
	}

	logger := newLogger(cfg.Server.LogLevel, cfg.DevMode)
	slog.SetDefault(logger)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	lifecycle := service.NewLifecycle(store, logger)

	var srv *httpadapter.Server
	onAppAdded := func(a *app.App) {
		aggregator := lifecycle.OnAppAdded(context.Background(), a)
		downstream := httpadapter.NewDownstream(a.Name, "", aggregator, logger)
		srv.MountApp(downstream)
	}

	srv = httpadapter.NewServer(store, onAppAdded,
		httpadapter.WithAddr(cfg.Server.HTTPAddr),
		httpadapter.WithLogger(logger),
		httpadapter.WithMetricsEnabled(cfg.Metrics.Enabled),
	)

	ctx := context.Background()
	apps, aggregators, err := lifecycle.StartAll(ctx)
	if err != nil {
		return fmt.Errorf("start apps: %w", err)
	}
	for i, a := range apps {
		downstream := httpadapter.NewDownstream(a.Name, "", aggregators[i], logger)
		srv.MountApp(downstream)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownTimeout, parseErr := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if parseErr != nil {
		shutdownTimeout = 10 * time.Second
	}

	lifecycle.Shutdown()
	if err := srv.Shutdown(shutdownTimeout); err != nil {
		return err
	}

	return <-errCh
}

func openStore(cfg *config.Config) (app.Store, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		return memory.NewAppStore(), func() {}, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newLogger(level string, devMode bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if devMode {
		lvl = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if devMode {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
