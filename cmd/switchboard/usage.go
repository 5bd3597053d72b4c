package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/pkg/cli"
	"github.com/switchboard-ai/switchboard/pkg/config"
	"github.com/switchboard-ai/switchboard/pkg/store"
)

var usageFlags struct {
	window time.Duration
	format string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Report aggregated usage from the store",
	Long: `Aggregate persisted usage records by provider and model and print
the totals.

Examples:
  # Totals for the last 24 hours
  switchboard usage

  # Last week, as CSV
  switchboard usage --window 168h --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnvOverrides(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Store.Backend != "sqlite" {
			return fmt.Errorf("usage reporting requires the sqlite store backend (configured: %q)", cfg.Store.Backend)
		}

		format, err := cli.ParseFormat(usageFlags.format)
		if err != nil {
			return err
		}

		backend, err := store.NewSQLiteBackend(cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open usage store: %w", err)
		}
		defer backend.Close()

		totals, err := backend.Totals(cmd.Context(), time.Now().Add(-usageFlags.window))
		if err != nil {
			return fmt.Errorf("failed to aggregate usage: %w", err)
		}
		return cli.WriteTotals(cmd.OutOrStdout(), format, totals)
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().DurationVar(&usageFlags.window, "window", 24*time.Hour, "aggregation window")
	usageCmd.Flags().StringVarP(&usageFlags.format, "format", "f", "text", "output format (text, json, csv)")
}
