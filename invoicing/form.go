package invoicing

import (
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout   = "2006-01-02"
	MinLineItems = 1
	MaxLineItems = 100
)

// Field names used as FieldErrors keys for the invoice form.
const (
	FieldTradeID     = "trade_id"
	FieldInvoiceDate = "invoice_date"
	FieldDueDate     = "due_date"
	FieldLineItems   = "line_items"
)

// Trade is the approved trade an invoice is raised against. Only its id is
// checked here; approval is the trade desk's concern.
type Trade struct {
	ID          string `json:"id"`
	TradeNumber string `json:"trade_number"`
	PartyID     string `json:"party_id"`
	Type        string `json:"type"` // EXPORT, IMPORT
	Currency    string `json:"currency"`
}

// InvoiceForm is the editable state of a draft invoice.
type InvoiceForm struct {
	TradeID     string             `json:"trade_id"`
	PartyID     string             `json:"party_id"`
	Currency    string             `json:"currency"`
	InvoiceDate string             `json:"invoice_date"`
	DueDate     string             `json:"due_date"`
	LineItems   []LineItemFormData `json:"line_items"`
}

// NewInvoiceForm seeds a draft from the selected trade with one empty row.
func NewInvoiceForm(trade Trade, today time.Time) InvoiceForm {
	return InvoiceForm{
		TradeID:     trade.ID,
		PartyID:     trade.PartyID,
		Currency:    trade.Currency,
		InvoiceDate: today.Format(DateLayout),
		DueDate:     today.AddDate(0, 0, 30).Format(DateLayout),
		LineItems:   []LineItemFormData{NewLineItemFormData()},
	}
}

// ParseDate parses a YYYY-MM-DD calendar date. time.Parse rejects impossible
// dates such as 2024-02-30.
func ParseDate(raw string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValidateInvoiceForm checks the whole draft before create or update. Row
// detail is summarised into a single line_items message; use
// ValidateLineItems for the per-row errors.
func ValidateInvoiceForm(form InvoiceForm) FieldErrors {
	errs := FieldErrors{}

	if isBlank(form.TradeID) {
		errs[FieldTradeID] = "A trade must be selected"
	}

	invoiceDate, invoiceDateOK := ParseDate(form.InvoiceDate)
	switch {
	case isBlank(form.InvoiceDate):
		errs[FieldInvoiceDate] = "Invoice date is required"
	case !invoiceDateOK:
		errs[FieldInvoiceDate] = "Invoice date is not a valid date"
	}

	dueDate, dueDateOK := ParseDate(form.DueDate)
	switch {
	case isBlank(form.DueDate):
		errs[FieldDueDate] = "Due date is required"
	case !dueDateOK:
		errs[FieldDueDate] = "Due date is not a valid date"
	case invoiceDateOK && dueDate.Before(invoiceDate):
		errs[FieldDueDate] = "Due date cannot be before invoice date"
	}

	if msg := lineItemsMessage(form.LineItems); msg != "" {
		errs[FieldLineItems] = msg
	}

	return errs
}

func lineItemsMessage(items []LineItemFormData) string {
	if len(items) < MinLineItems {
		return "At least one line item is required"
	}
	if len(items) > MaxLineItems {
		return "An invoice cannot have more than 100 line items"
	}

	described := false
	for _, item := range items {
		if !isBlank(item.Description) {
			described = true
			break
		}
	}
	if !described {
		return "At least one line item must have a description"
	}

	if len(ValidateLineItems(items)) > 0 {
		return "One or more line items are invalid"
	}
	return ""
}

// ValidateLineItems returns the errors of every failing row keyed by the row's
// client id, or by its 1-based position when the row has no client id.
func ValidateLineItems(items []LineItemFormData) map[string]FieldErrors {
	out := map[string]FieldErrors{}
	for i, item := range items {
		errs := ValidateLineItem(item)
		if errs.Valid() {
			continue
		}
		key := item.ClientID
		if key == "" {
			key = rowKey(i)
		}
		out[key] = errs
	}
	return out
}

func rowKey(i int) string {
	return "row-" + strconv.Itoa(i+1)
}

// InvoiceInput is the submission shape of an invoice form.
type InvoiceInput struct {
	TradeID     string          `json:"trade_id"`
	PartyID     string          `json:"party_id"`
	Currency    string          `json:"currency"`
	InvoiceDate string          `json:"invoice_date"`
	DueDate     string          `json:"due_date"`
	LineItems   []LineItemInput `json:"line_items"`
}

// ToInput converts the form for submission.
func (f InvoiceForm) ToInput() InvoiceInput {
	return InvoiceInput{
		TradeID:     strings.TrimSpace(f.TradeID),
		PartyID:     strings.TrimSpace(f.PartyID),
		Currency:    strings.ToUpper(strings.TrimSpace(f.Currency)),
		InvoiceDate: strings.TrimSpace(f.InvoiceDate),
		DueDate:     strings.TrimSpace(f.DueDate),
		LineItems:   ToLineItemInputs(f.LineItems),
	}
}

// ToForm rebuilds the form a submission came from so it can be validated
// with the same rules.
func (in InvoiceInput) ToForm() InvoiceForm {
	items := make([]LineItemFormData, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		items = append(items, item.ToFormData())
	}
	return InvoiceForm{
		TradeID:     in.TradeID,
		PartyID:     in.PartyID,
		Currency:    in.Currency,
		InvoiceDate: in.InvoiceDate,
		DueDate:     in.DueDate,
		LineItems:   items,
	}
}
