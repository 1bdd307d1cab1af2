package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yourusername/trade-invoices/config"
	"github.com/yourusername/trade-invoices/lock"
	"github.com/yourusername/trade-invoices/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "trade-invoices",
	Short: "Trade finance invoice service",
	Long: `trade-invoices runs the Invoice API, reconciles settlement payments
against issued invoices and checks invoice drafts offline.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// newActionLock uses Redis when REDIS_URL is set so several API instances
// share one lock.
func newActionLock(ctx context.Context, cfg *config.Config) (lock.ActionLock, error) {
	if cfg.RedisURL == "" {
		log := logger.WithComponent("lock")
		log.Warn().Msg("REDIS_URL not set, using in-process action lock")
		return lock.NewMemoryLock(), nil
	}
	return lock.NewRedisLockFromURL(ctx, cfg.RedisURL)
}
