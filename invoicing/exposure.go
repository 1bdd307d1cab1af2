package invoicing

import (
	"github.com/shopspring/decimal"
	"github.com/yourusername/trade-invoices/models"
)

type Coverage string

const (
	CoverageFull    Coverage = "Fully Hedged"
	CoveragePartial Coverage = "Partially Hedged"
	CoverageAtRisk  Coverage = "At Risk"
)

var (
	hundred              = decimal.NewFromInt(100)
	partialCoverageFloor = decimal.NewFromInt(50)
)

// HasExposure reports whether inv carries an exposure, i.e. whether it has
// been issued and not cancelled.
func HasExposure(inv *models.Invoice) bool {
	if inv == nil {
		return false
	}
	switch inv.Status {
	case models.InvoiceStatusIssued, models.InvoiceStatusPartiallyPaid, models.InvoiceStatusSettled:
		return true
	}
	return false
}

// UnhedgedAmount is exposed minus hedged. A negative result means the hedge
// desk booked more than the exposure and is returned as-is.
func UnhedgedAmount(exposed, hedged decimal.Decimal) decimal.Decimal {
	return exposed.Sub(hedged)
}

// HedgePercentage is hedged / exposed × 100, or 0 when nothing is exposed.
func HedgePercentage(exposed, hedged decimal.Decimal) decimal.Decimal {
	if exposed.IsZero() {
		return decimal.Zero
	}
	return hedged.Div(exposed).Mul(hundred)
}

// CoverageFor buckets a hedge percentage. Comparisons are exact.
func CoverageFor(pct decimal.Decimal) Coverage {
	switch {
	case pct.GreaterThanOrEqual(hundred):
		return CoverageFull
	case pct.GreaterThanOrEqual(partialCoverageFloor):
		return CoveragePartial
	default:
		return CoverageAtRisk
	}
}

type CoverageSummary struct {
	ExposureID      string          `json:"exposure_id"`
	ExposedAmount   decimal.Decimal `json:"exposed_amount"`
	HedgedAmount    decimal.Decimal `json:"hedged_amount"`
	UnhedgedAmount  decimal.Decimal `json:"unhedged_amount"`
	HedgePercentage decimal.Decimal `json:"hedge_percentage"`
	Coverage        Coverage        `json:"coverage"`
	OverHedged      bool            `json:"over_hedged"`
}

// CoverageOf derives the coverage of an issued invoice. ok is false when the
// invoice has no exposure. An unset hedged amount counts as 0.
func CoverageOf(inv *models.Invoice) (summary CoverageSummary, ok bool) {
	if !HasExposure(inv) {
		return CoverageSummary{}, false
	}

	exposed := inv.ExposedAmount.Decimal
	hedged := decimal.Zero
	if inv.HedgedAmount.Valid {
		hedged = inv.HedgedAmount.Decimal
	}
	pct := HedgePercentage(exposed, hedged)

	if inv.ExposureID != nil {
		summary.ExposureID = *inv.ExposureID
	}
	summary.ExposedAmount = exposed
	summary.HedgedAmount = hedged
	summary.UnhedgedAmount = UnhedgedAmount(exposed, hedged)
	summary.HedgePercentage = pct
	summary.Coverage = CoverageFor(pct)
	summary.OverHedged = hedged.GreaterThan(exposed)
	return summary, true
}

// WithHedge returns inv's exposure fields refreshed from the hedge desk's
// current booking.
func WithHedge(inv *models.Invoice, hedged decimal.Decimal) {
	if !HasExposure(inv) {
		return
	}
	inv.HedgedAmount = decimal.NewNullDecimal(hedged)
	inv.UnhedgedAmount = decimal.NewNullDecimal(UnhedgedAmount(inv.ExposedAmount.Decimal, hedged))
}
