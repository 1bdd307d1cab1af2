package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trade-invoices/invoicing"
	"github.com/yourusername/trade-invoices/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Invoice{}, &models.LineItem{}, &models.Exposure{}, &models.InvoicePayment{}))
	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newDraft(tradeID string) *models.Invoice {
	return &models.Invoice{
		TradeID:     tradeID,
		PartyID:     "PTY-1",
		Currency:    "USD",
		InvoiceDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		CreatedBy:   "finance@example.com",
		LineItems: []models.LineItem{
			{Description: "Widgets", Quantity: d("10"), Unit: "PCS", UnitPrice: d("2.50"), LineTotal: d("1")},
			{Description: "Freight", Quantity: d("3"), Unit: "SET", UnitPrice: d("100.00")},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewInvoiceRepository(setupTestDB(t))
	ctx := context.Background()

	inv := newDraft("TRD-1")
	require.NoError(t, repo.Create(ctx, inv))
	assert.Equal(t, "INV-2024-000001", inv.InvoiceNumber)

	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, got.Status)
	assert.Equal(t, "325.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "325.00", got.InvoiceAmount.StringFixed(2))
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "Widgets", got.LineItems[0].Description)
	assert.Equal(t, "25.00", got.LineItems[0].LineTotal.StringFixed(2))
	assert.False(t, got.ExposedAmount.Valid)

	byNumber, err := repo.FindByNumber(ctx, "INV-2024-000001")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, byNumber.ID)

	_, err = repo.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDraftReplacesLines(t *testing.T) {
	repo := NewInvoiceRepository(setupTestDB(t))
	ctx := context.Background()

	inv := newDraft("TRD-1")
	require.NoError(t, repo.Create(ctx, inv))

	inv.LineItems = []models.LineItem{{Description: "Only line", Quantity: d("2"), Unit: "KG", UnitPrice: d("7.125")}}
	require.NoError(t, repo.UpdateDraft(ctx, inv))

	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "14.25", got.Subtotal.StringFixed(2))
}

func TestIssueCreatesExposureAndDetectsConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	inv := newDraft("TRD-1")
	require.NoError(t, repo.Create(ctx, inv))

	stale := *inv
	require.NoError(t, invoicing.Issue(inv, "admin@example.com", "exp-1", time.Now()))
	require.NoError(t, repo.Issue(ctx, inv))

	var exposure models.Exposure
	require.NoError(t, db.First(&exposure, "id = ?", "exp-1").Error)
	assert.Equal(t, inv.ID, exposure.InvoiceID)
	assert.Equal(t, "325.00", exposure.ExposedAmount.StringFixed(2))

	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusIssued, got.Status)
	assert.Equal(t, "325.00", got.ExposedAmount.Decimal.StringFixed(2))

	// A second session still holding the draft loses the race.
	require.NoError(t, invoicing.Cancel(&stale, "other@example.com", "customer withdrew order", time.Now()))
	assert.ErrorIs(t, repo.Cancel(ctx, &stale), invoicing.ErrTransitionConflict)

	stale.LineItems = nil
	assert.ErrorIs(t, repo.UpdateDraft(ctx, &stale), invoicing.ErrTransitionConflict)
}

func TestGetReflectsHedgeBookings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	inv := newDraft("TRD-1")
	require.NoError(t, repo.Create(ctx, inv))
	require.NoError(t, invoicing.Issue(inv, "admin@example.com", "exp-1", time.Now()))
	require.NoError(t, repo.Issue(ctx, inv))

	require.NoError(t, db.Model(&models.Exposure{}).Where("id = ?", "exp-1").Update("hedged_amount", d("200")).Error)

	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	summary, ok := invoicing.CoverageOf(got)
	require.True(t, ok)
	assert.Equal(t, "125.00", summary.UnhedgedAmount.StringFixed(2))
	assert.Equal(t, invoicing.CoveragePartial, summary.Coverage)
}

func TestRecordPayment(t *testing.T) {
	repo := NewInvoiceRepository(setupTestDB(t))
	ctx := context.Background()

	inv := newDraft("TRD-1")
	require.NoError(t, repo.Create(ctx, inv))
	require.NoError(t, invoicing.Issue(inv, "admin@example.com", "exp-1", time.Now()))
	require.NoError(t, repo.Issue(ctx, inv))

	from := inv.Status
	require.NoError(t, invoicing.ApplyPayment(inv, d("100")))
	payment := &models.InvoicePayment{Amount: d("100"), Currency: "USD", Reference: "tx-1", ReceivedAt: time.Now()}
	require.NoError(t, repo.RecordPayment(ctx, inv, from, payment))

	recorded, err := repo.PaymentRecorded(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, recorded)

	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, got.Status)
	assert.Equal(t, "225.00", got.OutstandingAmount.StringFixed(2))

	err = repo.RecordPayment(ctx, got, got.Status, &models.InvoicePayment{Amount: d("1"), Currency: "USD", Reference: "tx-1", ReceivedAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestList(t *testing.T) {
	repo := NewInvoiceRepository(setupTestDB(t))
	ctx := context.Background()

	for _, trade := range []string{"TRD-1", "TRD-1", "TRD-2"} {
		require.NoError(t, repo.Create(ctx, newDraft(trade)))
	}
	eur := newDraft("TRD-3")
	eur.Currency = "EUR"
	require.NoError(t, repo.Create(ctx, eur))

	all, total, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	byTrade, total, err := repo.List(ctx, ListFilter{TradeID: "TRD-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, byTrade, 2)

	byCurrency, _, err := repo.List(ctx, ListFilter{Currency: "eur"})
	require.NoError(t, err)
	require.Len(t, byCurrency, 1)
	assert.Equal(t, "TRD-3", byCurrency[0].TradeID)

	searched, _, err := repo.List(ctx, ListFilter{Search: "000002"})
	require.NoError(t, err)
	require.Len(t, searched, 1)

	paged, total, err := repo.List(ctx, ListFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, paged, 1)

	issued, _, err := repo.List(ctx, ListFilter{Status: models.InvoiceStatusIssued})
	require.NoError(t, err)
	assert.Empty(t, issued)
}
