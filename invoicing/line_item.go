package invoicing

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxDescriptionLength = 500
)

var (
	MinQuantity  = decimal.RequireFromString("0.001")
	MaxQuantity  = decimal.RequireFromString("999999999")
	MinUnitPrice = decimal.RequireFromString("0.01")
	MaxUnitPrice = decimal.RequireFromString("999999999")

	hsCodePattern = regexp.MustCompile(`^[0-9]{4,8}$`)
)

// Units are the unit-of-measure codes a line item may use.
var Units = []string{
	"PCS", "KG", "MT", "LTR", "MTR", "SQM", "CBM",
	"BOX", "CTN", "SET", "PAIR", "DOZ", "ROLL", "BAG",
}

// Field names used as FieldErrors keys for a line item.
const (
	FieldDescription = "description"
	FieldHSCode      = "hs_code"
	FieldQuantity    = "quantity"
	FieldUnit        = "unit"
	FieldUnitPrice   = "unit_price"
)

// LineItemFormData is one editable grid row. Quantity and UnitPrice keep the
// raw keystrokes so half-typed values survive re-rendering. ClientID only
// identifies the row locally and is never sent to the API.
type LineItemFormData struct {
	ClientID    string `json:"client_id"`
	Description string `json:"description"`
	HSCode      string `json:"hs_code"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
	UnitPrice   string `json:"unit_price"`
}

// NewLineItemFormData returns an empty row with a fresh client id.
func NewLineItemFormData() LineItemFormData {
	return LineItemFormData{ClientID: uuid.NewString(), Unit: "PCS"}
}

// LineItemInput is the submission shape of a line item. Totals are left to
// the server.
type LineItemInput struct {
	Description string          `json:"description"`
	HSCode      string          `json:"hs_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// IsUnit reports whether code is an accepted unit of measure.
func IsUnit(code string) bool {
	for _, u := range Units {
		if u == code {
			return true
		}
	}
	return false
}

// ValidateLineItem checks one row and returns messages for the failing fields
// only.
func ValidateLineItem(item LineItemFormData) FieldErrors {
	errs := FieldErrors{}

	description := strings.TrimSpace(item.Description)
	switch {
	case description == "":
		errs[FieldDescription] = "Description is required"
	case utf8.RuneCountInString(description) > MaxDescriptionLength:
		errs[FieldDescription] = "Description must be at most 500 characters"
	}

	if hs := strings.TrimSpace(item.HSCode); hs != "" && !hsCodePattern.MatchString(hs) {
		errs[FieldHSCode] = "HS code must be 4 to 8 digits"
	}

	if msg := checkRange(item.Quantity, MinQuantity, MaxQuantity, "Quantity", "0.001"); msg != "" {
		errs[FieldQuantity] = msg
	}

	switch unit := strings.TrimSpace(item.Unit); {
	case unit == "":
		errs[FieldUnit] = "Unit is required"
	case !IsUnit(unit):
		errs[FieldUnit] = "Unit is not a recognised unit of measure"
	}

	if msg := checkRange(item.UnitPrice, MinUnitPrice, MaxUnitPrice, "Unit price", "0.01"); msg != "" {
		errs[FieldUnitPrice] = msg
	}

	return errs
}

func checkRange(raw string, min, max decimal.Decimal, label, minLabel string) string {
	if isBlank(raw) {
		return label + " is required"
	}
	v := ParseNumber(raw)
	if !v.IsPositive() {
		return label + " must be greater than 0"
	}
	if v.LessThan(min) || v.GreaterThan(max) {
		return label + " must be between " + minLabel + " and 999,999,999"
	}
	return ""
}

// RowHasErrors reports whether a grid row should render as erroneous.
// Read-only grids, such as an issued invoice, are never validated.
func RowHasErrors(item LineItemFormData, readOnly bool) bool {
	if readOnly {
		return false
	}
	return !ValidateLineItem(item).Valid()
}

// ToLineItemInputs converts grid rows to the submission shape. Client ids are
// dropped and nothing is totalled.
func ToLineItemInputs(items []LineItemFormData) []LineItemInput {
	out := make([]LineItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, LineItemInput{
			Description: strings.TrimSpace(item.Description),
			HSCode:      strings.TrimSpace(item.HSCode),
			Quantity:    ParseNumber(item.Quantity),
			Unit:        strings.TrimSpace(item.Unit),
			UnitPrice:   ParseNumber(item.UnitPrice),
		})
	}
	return out
}

// ToFormData turns a submitted line back into a grid row, as the server does
// when re-validating a request with the same rules as the client.
func (in LineItemInput) ToFormData() LineItemFormData {
	return LineItemFormData{
		Description: in.Description,
		HSCode:      in.HSCode,
		Quantity:    in.Quantity.String(),
		Unit:        in.Unit,
		UnitPrice:   in.UnitPrice.String(),
	}
}
