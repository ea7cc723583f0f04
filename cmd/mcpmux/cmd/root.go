// Package cmd provides the CLI commands for mcpmux.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpmux/mcpmux/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcpmux",
	Short: "mcpmux - MCP aggregating proxy",
	Long: `mcpmux bundles multiple upstream MCP servers behind one downstream
MCP endpoint per app, merging their tools under collision-free aliases and
routing tool calls back to the upstream that owns them.

Quick start:
  1. Start the server: mcpmux serve
  2. Register an app with its upstreams: mcpmux apps add myapp --file upstreams.yaml
  3. Point an MCP client at http://127.0.0.1:8080/myapp/sse

Configuration:
  Config is loaded from mcpmux.yaml in the current directory, $HOME/.mcpmux/,
  or /etc/mcpmux/.

  Environment variables can override config values with the MCPMUX_ prefix.
  Example: MCPMUX_SERVER_HTTP_ADDR=:9090

Commands:
  serve       Start the proxy server
  apps        Manage the app registry (add, list, remove)
  list-tools  Connect to an app's upstreams and print its merged tool catalog
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mcpmux.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
