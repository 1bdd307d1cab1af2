package invoicing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseNumber converts a form field into a number. Blank or malformed input
// yields zero; the accepted grammar is an optional sign, digits and at most one
// decimal point. Thousands separators are rejected.
func ParseNumber(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if !numberPattern.MatchString(s) {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isBlank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}
