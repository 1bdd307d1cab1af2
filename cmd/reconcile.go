package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yourusername/trade-invoices/config"
	"github.com/yourusername/trade-invoices/logger"
	"github.com/yourusername/trade-invoices/repository"
	"github.com/yourusername/trade-invoices/settlement"
	"github.com/yourusername/trade-invoices/utils"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Apply settlement payments to issued invoices",
	Long: `Poll the settlement account on Stellar Horizon and apply incoming payments
to issued invoices. A payment is matched by its text memo, which must be the
invoice number, and its asset code must equal the invoice currency.

Required environment variables:
  DATABASE_URL       - Postgres connection string
  SETTLEMENT_ACCOUNT - Stellar account receiving invoice payments

Optional:
  HORIZON_URL, RECONCILE_INTERVAL, REDIS_URL, ACTION_LOCK_TTL`,
	Example: `  # Run continuously
  trade-invoices reconcile

  # Single pass starting after a known paging token
  trade-invoices reconcile --once --cursor 123456789`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().Bool("once", false, "Run a single pass and exit")
	reconcileCmd.Flags().String("cursor", "", "Horizon paging token to start after (\"now\" skips history)")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")

	once, _ := cmd.Flags().GetBool("once")
	cursor, _ := cmd.Flags().GetString("cursor")

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if err := cfg.ValidateSettlement(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	locks, err := newActionLock(ctx, cfg)
	if err != nil {
		return err
	}

	reconciler := settlement.NewReconciler(
		utils.NewHorizonFeed(cfg.HorizonURL),
		repository.NewInvoiceRepository(db),
		locks,
		cfg,
	)
	reconciler.SetCursor(cursor)

	log.Info().
		Str("account", cfg.SettlementAccount).
		Str("horizon", cfg.HorizonURL).
		Bool("once", once).
		Msg("Starting reconciliation")

	if !once {
		return reconciler.Run(ctx)
	}

	res, err := reconciler.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d, skipped %d, cursor %s\n", res.Applied, res.Skipped, reconciler.Cursor())
	return nil
}
