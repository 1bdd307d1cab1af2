package settlement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/trade-invoices/config"
	"github.com/yourusername/trade-invoices/invoicing"
	"github.com/yourusername/trade-invoices/lock"
	"github.com/yourusername/trade-invoices/logger"
	"github.com/yourusername/trade-invoices/models"
	"github.com/yourusername/trade-invoices/repository"
	"github.com/yourusername/trade-invoices/utils"
)

const (
	SourceStellar   = "stellar"
	reconcilerActor = "reconciler"
)

// Result counts what one pass did.
type Result struct {
	Applied int
	Skipped int
}

// Reconciler matches payments received by the settlement account to issued
// invoices by memo (the invoice number) and applies them.
type Reconciler struct {
	feed     utils.PaymentFeed
	store    Store
	locks    lock.ActionLock
	account  string
	interval time.Duration
	lockTTL  time.Duration
	cursor   string
	log      zerolog.Logger
}

func NewReconciler(feed utils.PaymentFeed, store Store, locks lock.ActionLock, cfg *config.Config) *Reconciler {
	return &Reconciler{
		feed:     feed,
		store:    store,
		locks:    locks,
		account:  cfg.SettlementAccount,
		interval: cfg.ReconcileInterval,
		lockTTL:  cfg.ActionLockTTL,
		log:      logger.WithComponent("reconciler"),
	}
}

// Cursor is the paging token after the last payment handled.
func (r *Reconciler) Cursor() string {
	return r.cursor
}

// SetCursor makes the next pass start after cursor.
func (r *Reconciler) SetCursor(cursor string) {
	r.cursor = cursor
}

// Run polls until ctx is cancelled. Failed passes are logged and retried on
// the next tick from the last handled payment.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if res, err := r.RunOnce(ctx); err != nil {
			r.log.Error().Err(err).Str("cursor", r.cursor).Msg("reconcile pass failed")
		} else if res.Applied > 0 || res.Skipped > 0 {
			r.log.Info().Int("applied", res.Applied).Int("skipped", res.Skipped).Msg("reconcile pass finished")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce reads one page of payments and applies them in order. It stops at
// the first error that could succeed on retry, leaving the cursor before the
// failing payment.
func (r *Reconciler) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	payments, next, err := r.feed.Payments(ctx, r.account, r.cursor)
	if err != nil {
		return res, err
	}

	for _, p := range payments {
		applied, err := r.handle(ctx, p)
		if err != nil {
			return res, err
		}
		if applied {
			res.Applied++
		} else {
			res.Skipped++
		}
		r.cursor = p.PagingToken
	}
	r.cursor = next
	return res, nil
}

func (r *Reconciler) handle(ctx context.Context, p utils.IncomingPayment) (bool, error) {
	log := r.log.With().Str("reference", p.Reference).Str("memo", p.Memo).Logger()

	number := strings.TrimSpace(p.Memo)
	if number == "" {
		log.Debug().Msg("payment has no invoice memo")
		return false, nil
	}

	recorded, err := r.store.PaymentRecorded(ctx, p.Reference)
	if err != nil {
		return false, err
	}
	if recorded {
		return false, nil
	}

	inv, err := r.store.FindByNumber(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn().Msg("payment memo does not match an invoice")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	payment := &models.InvoicePayment{
		Amount:     p.Amount,
		Currency:   p.AssetCode,
		Reference:  p.Reference,
		Source:     SourceStellar,
		ReceivedAt: p.ReceivedAt,
		RecordedBy: reconcilerActor,
	}
	updated, err := Apply(ctx, r.store, r.locks, r.lockTTL, inv.ID, payment)
	switch {
	case err == nil:
		log.Info().
			Str("invoice", updated.InvoiceNumber).
			Str("amount", payment.Amount.StringFixed(2)).
			Str("status", string(updated.Status)).
			Msg("payment applied")
		return true, nil
	case errors.Is(err, invoicing.ErrIllegalTransition),
		errors.Is(err, invoicing.ErrInvalidPayment),
		errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, repository.ErrDuplicatePayment):
		log.Warn().Err(err).Str("invoice", inv.InvoiceNumber).Msg("payment not applied")
		return false, nil
	default:
		return false, err
	}
}
