// Package cmd defines and implements the CLI commands for the
// provider-harvest executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider-harvest",
		Short: "Harvests structured provider records from an online directory.",
		Long: `provider-harvest walks a paginated provider directory, renders each
profile page, enriches records against the national NPI registry and writes
one deduplicated JSON record per provider.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newHarvestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
