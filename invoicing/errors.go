package invoicing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yourusername/trade-invoices/models"
)

var (
	// ErrForbidden is returned when the caller's role lacks the capability an
	// action requires.
	ErrForbidden = errors.New("insufficient permissions for invoice action")

	// ErrIllegalTransition is returned when the invoice's current status has no
	// edge to the requested status.
	ErrIllegalTransition = errors.New("illegal invoice status transition")

	// ErrTransitionConflict is returned when the stored invoice changed between
	// read and write, typically because another session acted on it first.
	ErrTransitionConflict = errors.New("this invoice was modified elsewhere; refresh and retry")

	// ErrUnsavedChanges is returned when issuing while the form still holds edits.
	ErrUnsavedChanges = errors.New("invoice has unsaved changes")

	// ErrActionInFlight is returned when the same action is already pending.
	ErrActionInFlight = errors.New("invoice action already in progress")

	// ErrInvalidCancelReason is returned for a missing, short or overlong reason.
	ErrInvalidCancelReason = errors.New("cancellation reason must be between 10 and 500 characters")

	// ErrNoInvoice is returned when an action is attempted without an invoice.
	ErrNoInvoice = errors.New("no invoice to act on")

	// ErrInvalidPayment is returned for non-positive payments or payments larger
	// than the outstanding amount.
	ErrInvalidPayment = errors.New("invalid payment amount")
)

// TransitionError records the attempted operation and the status the invoice
// was in when it was rejected.
type TransitionError struct {
	Op   string
	From models.InvoiceStatus
	Err  error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invoice: %s from %s: %v", e.Op, e.From, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *TransitionError) Unwrap() error {
	return e.Err
}

func transitionError(op string, from models.InvoiceStatus, err error) error {
	return &TransitionError{Op: op, From: from, Err: err}
}

// FieldErrors maps a field name to the message displayed next to it. An empty
// map means the input is valid.
type FieldErrors map[string]string

// Valid reports whether no field failed.
func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// Error implements the error interface so a non-empty FieldErrors can be
// returned where an error is expected.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
