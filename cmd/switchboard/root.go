package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard - multi-provider LLM gateway",
	Long: `Switchboard is an OpenAI-compatible gateway that routes LLM requests
across multiple upstream providers.

It resolves model aliases against a hot-reloadable catalog, scores
candidate providers on quality, quota headroom, health and latency,
prefers free tiers when policy allows, and falls back across providers
when an upstream is rate limited or degraded.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
