package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Verify a configuration file without serving",
	Long: `Load, default, and validate the configuration file, then print a
summary of the catalog it describes.

Examples:
  switchboard validate --config config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnvOverrides(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}

		bindings := 0
		for _, m := range cfg.Models {
			bindings += len(m.Bindings)
		}
		fmt.Printf("configuration valid: %d providers, %d models, %d bindings, %d aliases\n",
			len(cfg.Providers), len(cfg.Models), bindings, len(cfg.Aliases))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
