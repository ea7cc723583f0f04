package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpmux/mcpmux/internal/config"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the app registry store, clearing every registered app",
	Long: `Reset removes the on-disk app registry (the sqlite store configured
under store.path). This clears every registered app and its upstreams.

On next "mcpmux serve", the registry starts empty, the same as a fresh
install. Has no effect when the configured store driver is "memory",
since there is nothing on disk to remove.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Store.Driver != "sqlite" {
		fmt.Fprintf(cmd.OutOrStdout(), "store driver is %q, nothing on disk to reset\n", cfg.Store.Driver)
		return nil
	}

	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to reset — no store file found at", cfg.Store.Path)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "This will remove %s, clearing every registered app.\n", cfg.Store.Path)
	if !resetForce {
		fmt.Fprint(cmd.OutOrStdout(), "Proceed? [y/N] ")
		var answer string
		fmt.Scanln(&answer) //nolint:errcheck // interactive prompt, error irrelevant
		if answer != "y" && answer != "Y" {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
	}

	if err := os.Remove(cfg.Store.Path); err != nil {
		return fmt.Errorf("remove %s: %w", cfg.Store.Path, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "reset complete")
	return nil
}
