package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mcpmux/mcpmux/internal/config"
	"github.com/mcpmux/mcpmux/internal/domain/app"
	"github.com/mcpmux/mcpmux/internal/service"
)

var listToolsCmd = &cobra.Command{
	Use:   "list-tools <app-name>",
	Short: "Connect to an app's upstreams and print its merged tool catalog",
	Long: `Connect to every upstream of a named app, perform the same
tools/list aggregation pass the running proxy does, print the merged
catalog with its aliases, and exit. Does not start an HTTP server and does
not touch a running instance's live aggregator.`,
	Args: cobra.ExactArgs(1),
	RunE: runListTools,
}

func init() {
	rootCmd.AddCommand(listToolsCmd)
}

func runListTools(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Server.LogLevel, cfg.DevMode)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	ctx := context.Background()
	target, err := store.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("app %q: %w", name, err)
	}

	return printToolCatalog(ctx, cmd.OutOrStdout(), target, logger)
}

func printToolCatalog(ctx context.Context, out io.Writer, target *app.App, logger *slog.Logger) error {
	supervisor := service.NewSupervisor(logger)
	aggregator, err := supervisor.Start(ctx, target)
	if err != nil {
		return fmt.Errorf("connect upstreams: %w", err)
	}
	defer supervisor.Stop()

	for upstreamName, state := range aggregator.Statuses() {
		if state.Status != "ready" {
			fmt.Fprintf(out, "upstream %q: %s (%s)\n", upstreamName, state.Status, state.LastError)
		}
	}

	catalog := aggregator.ToolsList()

	var pretty map[string]any
	if err := json.Unmarshal(catalog, &pretty); err != nil {
		return fmt.Errorf("decode tool catalog: %w", err)
	}
	encoded, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tool catalog: %w", err)
	}
	fmt.Fprintln(out, string(encoded))
	return nil
}
