package invoicing

import (
	"github.com/shopspring/decimal"
	"github.com/yourusername/trade-invoices/models"
)

// Stored scales of line item quantity and unit price.
const (
	QuantityScale  = 3
	UnitPriceScale = 4
)

// Round2 rounds to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal is quantity × unit price rounded to cents. Negative inputs are not
// clamped; validation rejects them before submission.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return Round2(quantity.Mul(unitPrice))
}

// Subtotal sums already computed line totals.
func Subtotal(lineTotals ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range lineTotals {
		sum = sum.Add(t)
	}
	return Round2(sum)
}

// SubtotalOf recomputes every line from quantity and price, ignoring any
// stored LineTotal.
func SubtotalOf(items []models.LineItem) decimal.Decimal {
	totals := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		totals = append(totals, LineTotal(item.Quantity, item.UnitPrice))
	}
	return Subtotal(totals...)
}

// FormLineTotal is the live total of one grid row. Unparsable fields count as 0.
func FormLineTotal(item LineItemFormData) decimal.Decimal {
	return LineTotal(ParseNumber(item.Quantity), ParseNumber(item.UnitPrice))
}

// FormSubtotal is the running total of the grid, including rows that
// currently fail validation.
func FormSubtotal(items []LineItemFormData) decimal.Decimal {
	totals := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		totals = append(totals, FormLineTotal(item))
	}
	return Subtotal(totals...)
}

// InvoiceAmount derives the billable amount from the subtotal. Tax and
// discounts are not modelled yet, so it is the identity.
func InvoiceAmount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal
}

// Recalculate rewrites every derived amount on inv from its line items and
// paid amount. The server calls it before every write; client totals are
// never trusted. Quantity and unit price are first rounded to their stored
// scales so a reloaded line recomputes to the same total.
func Recalculate(inv *models.Invoice) {
	for i := range inv.LineItems {
		inv.LineItems[i].Quantity = inv.LineItems[i].Quantity.Round(QuantityScale)
		inv.LineItems[i].UnitPrice = inv.LineItems[i].UnitPrice.Round(UnitPriceScale)
		inv.LineItems[i].LineTotal = LineTotal(inv.LineItems[i].Quantity, inv.LineItems[i].UnitPrice)
		inv.LineItems[i].Position = i + 1
	}
	inv.Subtotal = SubtotalOf(inv.LineItems)
	inv.InvoiceAmount = InvoiceAmount(inv.Subtotal)
	inv.OutstandingAmount = inv.InvoiceAmount.Sub(inv.PaidAmount)
	if inv.OutstandingAmount.IsNegative() {
		inv.OutstandingAmount = decimal.Zero
	}
}
