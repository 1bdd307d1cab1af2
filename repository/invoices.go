package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yourusername/trade-invoices/invoicing"
	"github.com/yourusername/trade-invoices/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("invoice not found")
	ErrDuplicatePayment = errors.New("payment already recorded")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter narrows an invoice listing. Zero values are ignored.
type ListFilter struct {
	Status   models.InvoiceStatus
	TradeID  string
	PartyID  string
	Currency string
	Search   string
	Page     int
	Limit    int
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts a draft and assigns its invoice number.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	inv.Status = models.InvoiceStatusDraft
	invoicing.Recalculate(inv)
	inv.InvoiceNumber = "PENDING-" + uuid.NewString()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		number := fmt.Sprintf("INV-%d-%06d", inv.InvoiceDate.Year(), inv.ID)
		if err := tx.Model(inv).Update("invoice_number", number).Error; err != nil {
			return fmt.Errorf("failed to assign invoice number: %w", err)
		}
		inv.InvoiceNumber = number
		return nil
	})
}

// Get loads an invoice with its lines and the hedge desk's current hedge.
func (r *InvoiceRepository) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *InvoiceRepository) get(db *gorm.DB, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := db.Preload("LineItems", orderedLines).First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load invoice %d: %w", id, err)
	}

	if inv.ExposureID != nil && invoicing.HasExposure(&inv) {
		var exposure models.Exposure
		err := db.Where("id = ?", *inv.ExposureID).First(&exposure).Error
		switch {
		case err == nil:
			invoicing.WithHedge(&inv, exposure.HedgedAmount)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("failed to load exposure %s: %w", *inv.ExposureID, err)
		}
	}
	return &inv, nil
}

// FindByNumber looks an invoice up by its human-readable number.
func (r *InvoiceRepository) FindByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).Select("id").Where("invoice_number = ?", number).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice %s: %w", number, err)
	}
	return r.Get(ctx, inv.ID)
}

// List returns one page of invoices and the total match count.
func (r *InvoiceRepository) List(ctx context.Context, filter ListFilter) ([]models.Invoice, int64, error) {
	filter = filter.normalized()

	q := r.db.WithContext(ctx).Model(&models.Invoice{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TradeID != "" {
		q = q.Where("trade_id = ?", filter.TradeID)
	}
	if filter.PartyID != "" {
		q = q.Where("party_id = ?", filter.PartyID)
	}
	if filter.Currency != "" {
		q = q.Where("currency = ?", strings.ToUpper(filter.Currency))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(invoice_number) LIKE ? OR LOWER(trade_id) LIKE ?)", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	var invoices []models.Invoice
	err := q.Preload("LineItems", orderedLines).
		Order("id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

// conditionalUpdate applies values only while the stored status is still
// from. Zero affected rows means someone else moved the invoice first.
func conditionalUpdate(tx *gorm.DB, id uint, from models.InvoiceStatus, values map[string]interface{}) error {
	res := tx.Model(&models.Invoice{}).Where("id = ? AND status = ?", id, from).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update invoice %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return invoicing.ErrTransitionConflict
	}
	return nil
}

// UpdateDraft replaces dates and lines of a draft.
func (r *InvoiceRepository) UpdateDraft(ctx context.Context, inv *models.Invoice) error {
	invoicing.Recalculate(inv)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := conditionalUpdate(tx, inv.ID, models.InvoiceStatusDraft, map[string]interface{}{
			"party_id":           inv.PartyID,
			"currency":           inv.Currency,
			"invoice_date":       inv.InvoiceDate,
			"due_date":           inv.DueDate,
			"subtotal":           inv.Subtotal,
			"invoice_amount":     inv.InvoiceAmount,
			"outstanding_amount": inv.OutstandingAmount,
		})
		if err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.LineItem{}).Error; err != nil {
			return fmt.Errorf("failed to replace line items: %w", err)
		}
		for i := range inv.LineItems {
			inv.LineItems[i].ID = 0
			inv.LineItems[i].InvoiceID = inv.ID
		}
		if len(inv.LineItems) > 0 {
			if err := tx.Create(&inv.LineItems).Error; err != nil {
				return fmt.Errorf("failed to replace line items: %w", err)
			}
		}
		return nil
	})
}

// Issue persists an invoice already moved to ISSUED by invoicing.Issue and
// opens its exposure record in the same transaction.
func (r *InvoiceRepository) Issue(ctx context.Context, inv *models.Invoice) error {
	if inv.ExposureID == nil {
		return errors.New("issued invoice has no exposure id")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := conditionalUpdate(tx, inv.ID, models.InvoiceStatusDraft, map[string]interface{}{
			"status":             inv.Status,
			"subtotal":           inv.Subtotal,
			"invoice_amount":     inv.InvoiceAmount,
			"outstanding_amount": inv.OutstandingAmount,
			"exposure_id":        *inv.ExposureID,
			"exposed_amount":     inv.ExposedAmount,
			"hedged_amount":      inv.HedgedAmount,
			"unhedged_amount":    inv.UnhedgedAmount,
			"issued_by":          inv.IssuedBy,
			"issued_at":          inv.IssuedAt,
		})
		if err != nil {
			return err
		}

		exposure := models.Exposure{
			ID:            *inv.ExposureID,
			InvoiceID:     inv.ID,
			TradeID:       inv.TradeID,
			Currency:      inv.Currency,
			ExposedAmount: inv.ExposedAmount.Decimal,
			HedgedAmount:  inv.HedgedAmount.Decimal,
		}
		if err := tx.Create(&exposure).Error; err != nil {
			return fmt.Errorf("failed to create exposure: %w", err)
		}
		return nil
	})
}

// Cancel persists an invoice already moved to CANCELLED by invoicing.Cancel.
func (r *InvoiceRepository) Cancel(ctx context.Context, inv *models.Invoice) error {
	return conditionalUpdate(r.db.WithContext(ctx), inv.ID, models.InvoiceStatusDraft, map[string]interface{}{
		"status":        inv.Status,
		"cancelled_by":  inv.CancelledBy,
		"cancelled_at":  inv.CancelledAt,
		"cancel_reason": inv.CancelReason,
	})
}

// PaymentRecorded reports whether a settlement reference was already applied.
func (r *InvoiceRepository) PaymentRecorded(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InvoicePayment{}).Where("reference = ?", reference).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up payment %s: %w", reference, err)
	}
	return count > 0, nil
}

// RecordPayment stores payment and the invoice amounts produced by
// invoicing.ApplyPayment. from is the status the invoice had before the
// payment was applied.
func (r *InvoiceRepository) RecordPayment(ctx context.Context, inv *models.Invoice, from models.InvoiceStatus, payment *models.InvoicePayment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.InvoicePayment{}).Where("reference = ?", payment.Reference).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up payment %s: %w", payment.Reference, err)
		}
		if count > 0 {
			return ErrDuplicatePayment
		}

		err := conditionalUpdate(tx, inv.ID, from, map[string]interface{}{
			"status":             inv.Status,
			"paid_amount":        inv.PaidAmount,
			"outstanding_amount": inv.OutstandingAmount,
		})
		if err != nil {
			return err
		}

		payment.InvoiceID = inv.ID
		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		return nil
	})
}
