package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/favalepink/traincrm/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "traincrm",
	Short: "Lead import engine for the personal-training CRM",
	Long:  "Imports externally-sourced lead batches, deduplicates by normalized phone, merges tags non-destructively, and records an audit trail.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
