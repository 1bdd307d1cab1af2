// Package settlement applies observed payments to issued invoices.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/trade-invoices/invoicing"
	"github.com/yourusername/trade-invoices/lock"
	"github.com/yourusername/trade-invoices/models"
)

var ErrCurrencyMismatch = errors.New("payment currency does not match invoice currency")

// Store is the part of the invoice repository settlement needs.
type Store interface {
	Get(ctx context.Context, id uint) (*models.Invoice, error)
	FindByNumber(ctx context.Context, number string) (*models.Invoice, error)
	PaymentRecorded(ctx context.Context, reference string) (bool, error)
	RecordPayment(ctx context.Context, inv *models.Invoice, from models.InvoiceStatus, payment *models.InvoicePayment) error
}

// Apply records payment against the invoice while holding its action lock.
// The invoice is reloaded under the lock so the payment is checked against
// the stored outstanding amount. A blank payment currency means the invoice
// currency.
func Apply(ctx context.Context, store Store, locks lock.ActionLock, ttl time.Duration, invoiceID uint, payment *models.InvoicePayment) (*models.Invoice, error) {
	key := lock.InvoiceKey(invoiceID)
	token, err := locks.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	defer locks.Release(context.WithoutCancel(ctx), key, token)

	inv, err := store.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	payment.Currency = strings.ToUpper(strings.TrimSpace(payment.Currency))
	if payment.Currency == "" {
		payment.Currency = inv.Currency
	}
	if payment.Currency != inv.Currency {
		return nil, fmt.Errorf("%w: got %s, invoice %s is in %s", ErrCurrencyMismatch, payment.Currency, inv.InvoiceNumber, inv.Currency)
	}

	from := inv.Status
	if err := invoicing.ApplyPayment(inv, payment.Amount); err != nil {
		return nil, err
	}
	payment.Amount = invoicing.Round2(payment.Amount)

	if err := store.RecordPayment(ctx, inv, from, payment); err != nil {
		return nil, err
	}
	return inv, nil
}
