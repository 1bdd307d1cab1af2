package invoicing

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/yourusername/trade-invoices/models"
)

const (
	MinCancelReasonLength = 10
	MaxCancelReasonLength = 500
)

// transitions is the lifecycle graph. DRAFT edges are initiated here;
// ISSUED and PARTIALLY_PAID edges are driven by observed payments. SETTLED
// and CANCELLED have no outgoing edges.
var transitions = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.InvoiceStatusDraft:         {models.InvoiceStatusIssued, models.InvoiceStatusCancelled},
	models.InvoiceStatusIssued:        {models.InvoiceStatusPartiallyPaid, models.InvoiceStatusSettled},
	models.InvoiceStatusPartiallyPaid: {models.InvoiceStatusPartiallyPaid, models.InvoiceStatusSettled},
}

// CanTransition reports whether the graph has an edge from -> to.
func CanTransition(from, to models.InvoiceStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.InvoiceStatus) bool {
	return len(transitions[s]) == 0
}

// ActionState is the caller-side state that gates irreversible actions.
type ActionState struct {
	Dirty    bool // the form holds edits that are not saved yet
	InFlight bool // the same action is already awaiting a response
}

// CheckEdit verifies role and status before a draft is updated.
func CheckEdit(role Role, inv *models.Invoice) error {
	if inv == nil {
		return transitionError("edit", "", ErrNoInvoice)
	}
	if !RoleHas(role, CapabilityEdit) {
		return transitionError("edit", inv.Status, ErrForbidden)
	}
	if inv.Status != models.InvoiceStatusDraft {
		return transitionError("edit", inv.Status, ErrIllegalTransition)
	}
	return nil
}

// CheckIssue verifies every precondition of DRAFT -> ISSUED.
func CheckIssue(role Role, inv *models.Invoice, state ActionState) error {
	if inv == nil {
		return transitionError("issue", "", ErrNoInvoice)
	}
	if !RoleHas(role, CapabilityIssue) {
		return transitionError("issue", inv.Status, ErrForbidden)
	}
	if !CanTransition(inv.Status, models.InvoiceStatusIssued) {
		return transitionError("issue", inv.Status, ErrIllegalTransition)
	}
	if state.InFlight {
		return transitionError("issue", inv.Status, ErrActionInFlight)
	}
	if state.Dirty {
		return transitionError("issue", inv.Status, ErrUnsavedChanges)
	}
	return nil
}

// ValidateCancelReason checks the trimmed reason length.
func ValidateCancelReason(reason string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(reason))
	if n < MinCancelReasonLength || n > MaxCancelReasonLength {
		return ErrInvalidCancelReason
	}
	return nil
}

// CheckCancel verifies every precondition of DRAFT -> CANCELLED.
func CheckCancel(role Role, inv *models.Invoice, reason string, state ActionState) error {
	if inv == nil {
		return transitionError("cancel", "", ErrNoInvoice)
	}
	if !RoleHas(role, CapabilityCancel) {
		return transitionError("cancel", inv.Status, ErrForbidden)
	}
	if !CanTransition(inv.Status, models.InvoiceStatusCancelled) {
		return transitionError("cancel", inv.Status, ErrIllegalTransition)
	}
	if state.InFlight {
		return transitionError("cancel", inv.Status, ErrActionInFlight)
	}
	if err := ValidateCancelReason(reason); err != nil {
		return transitionError("cancel", inv.Status, err)
	}
	return nil
}

// Issue moves a draft to ISSUED and opens its exposure: exposed equals the
// invoice amount, nothing is hedged yet. Callers run CheckIssue first; Issue
// only re-checks the edge.
func Issue(inv *models.Invoice, actor, exposureID string, now time.Time) error {
	if inv == nil {
		return transitionError("issue", "", ErrNoInvoice)
	}
	if !CanTransition(inv.Status, models.InvoiceStatusIssued) {
		return transitionError("issue", inv.Status, ErrIllegalTransition)
	}

	Recalculate(inv)
	exposed := inv.InvoiceAmount
	hedged := decimal.Zero

	inv.Status = models.InvoiceStatusIssued
	inv.ExposureID = &exposureID
	inv.ExposedAmount = decimal.NewNullDecimal(exposed)
	inv.HedgedAmount = decimal.NewNullDecimal(hedged)
	inv.UnhedgedAmount = decimal.NewNullDecimal(UnhedgedAmount(exposed, hedged))
	inv.IssuedBy = actor
	inv.IssuedAt = &now
	return nil
}

// Cancel moves a draft to CANCELLED. Exposure fields stay empty.
func Cancel(inv *models.Invoice, actor, reason string, now time.Time) error {
	if inv == nil {
		return transitionError("cancel", "", ErrNoInvoice)
	}
	if !CanTransition(inv.Status, models.InvoiceStatusCancelled) {
		return transitionError("cancel", inv.Status, ErrIllegalTransition)
	}
	if err := ValidateCancelReason(reason); err != nil {
		return transitionError("cancel", inv.Status, err)
	}

	inv.Status = models.InvoiceStatusCancelled
	inv.CancelledBy = actor
	inv.CancelledAt = &now
	inv.CancelReason = strings.TrimSpace(reason)
	clearExposure(inv)
	return nil
}

// ApplyPayment records an observed payment on an issued invoice and derives
// the resulting status. Payments larger than the outstanding amount are
// rejected so the outstanding amount never goes negative.
func ApplyPayment(inv *models.Invoice, amount decimal.Decimal) error {
	if inv == nil {
		return transitionError("apply payment", "", ErrNoInvoice)
	}
	if !CanTransition(inv.Status, models.InvoiceStatusSettled) {
		return transitionError("apply payment", inv.Status, ErrIllegalTransition)
	}
	amount = Round2(amount)
	if !amount.IsPositive() || amount.GreaterThan(inv.OutstandingAmount) {
		return transitionError("apply payment", inv.Status, ErrInvalidPayment)
	}

	inv.PaidAmount = inv.PaidAmount.Add(amount)
	inv.OutstandingAmount = inv.InvoiceAmount.Sub(inv.PaidAmount)
	if inv.OutstandingAmount.IsZero() {
		inv.Status = models.InvoiceStatusSettled
	} else {
		inv.Status = models.InvoiceStatusPartiallyPaid
	}
	return nil
}

func clearExposure(inv *models.Invoice) {
	inv.ExposureID = nil
	inv.ExposedAmount = decimal.NullDecimal{}
	inv.HedgedAmount = decimal.NullDecimal{}
	inv.UnhedgedAmount = decimal.NullDecimal{}
}
