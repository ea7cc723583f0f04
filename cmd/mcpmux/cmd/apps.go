package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	mcpmuxsdk "github.com/mcpmux/sdk-go"
)

var appsServerAddr string

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Manage registered apps via the admin API",
	Long:  `Manage the app registry of a running mcpmux server: list, inspect, create, and remove apps.`,
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered apps",
	RunE:  runAppsList,
}

var appsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show one app's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppsGet,
}

var appsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a registered app",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppsRemove,
}

var appsAddFile string

var appsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a new app",
	Long: `Register a new app from a YAML file describing its upstreams, e.g.:

  upstreams:
    - name: fs
      kind: stdio
      command: mcp-server-filesystem
      args: ["--root", "/tmp"]
    - name: search
      kind: sse
      url: http://localhost:9000/sse`,
	Args: cobra.ExactArgs(1),
	RunE: runAppsAdd,
}

func init() {
	appsCmd.PersistentFlags().StringVar(&appsServerAddr, "server", "", "mcpmux server address (default: MCPMUX_SERVER_ADDR env var or http://127.0.0.1:8080)")
	appsAddCmd.Flags().StringVar(&appsAddFile, "file", "", "YAML file describing the app's upstreams (required)")
	_ = appsAddCmd.MarkFlagRequired("file")

	appsCmd.AddCommand(appsListCmd, appsGetCmd, appsAddCmd, appsRemoveCmd)
	rootCmd.AddCommand(appsCmd)
}

func newAppsClient() *mcpmuxsdk.Client {
	opts := []mcpmuxsdk.Option{}
	if appsServerAddr != "" {
		opts = append(opts, mcpmuxsdk.WithServerAddr(appsServerAddr))
	}
	return mcpmuxsdk.NewClient(opts...)
}

func runAppsList(cmd *cobra.Command, args []string) error {
	client := newAppsClient()
	apps, err := client.ListApps(context.Background())
	if err != nil {
		return fmt.Errorf("list apps: %w", err)
	}
	if len(apps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no apps registered")
		return nil
	}
	for _, a := range apps {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d upstream(s)\t/%s/sse\n", a.Name, len(a.Upstreams), a.Name)
	}
	return nil
}

func runAppsGet(cmd *cobra.Command, args []string) error {
	client := newAppsClient()
	a, err := client.GetApp(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get app %q: %w", args[0], err)
	}
	encoded, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode app: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(encoded))
	return nil
}

func runAppsRemove(cmd *cobra.Command, args []string) error {
	client := newAppsClient()
	if err := client.DeleteApp(context.Background(), args[0]); err != nil {
		return fmt.Errorf("remove app %q: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed app %q\n", args[0])
	return nil
}

// appsAddSpec is the on-disk shape of the --file argument to "apps add".
type appsAddSpec struct {
	Upstreams []mcpmuxsdk.UpstreamSpec `yaml:"upstreams"`
}

func runAppsAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	data, err := os.ReadFile(appsAddFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", appsAddFile, err)
	}

	var spec appsAddSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("parse %s: %w", appsAddFile, err)
	}

	client := newAppsClient()
	a, err := client.CreateApp(context.Background(), mcpmuxsdk.CreateAppRequest{
		Name:      name,
		Upstreams: spec.Upstreams,
	})
	if err != nil {
		return fmt.Errorf("create app %q: %w", name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "registered app %q with %d upstream(s)\n", a.Name, len(a.Upstreams))
	return nil
}
