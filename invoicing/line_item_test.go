package invoicing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow() LineItemFormData {
	return LineItemFormData{
		ClientID:    "row-a",
		Description: "Arabica coffee beans",
		HSCode:      "0901",
		Quantity:    "10",
		Unit:        "KG",
		UnitPrice:   "2.50",
	}
}

func TestValidateLineItem(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LineItemFormData)
		fields []string
	}{
		{"valid", func(*LineItemFormData) {}, nil},
		{"empty description", func(i *LineItemFormData) { i.Description = "" }, []string{FieldDescription}},
		{"whitespace description", func(i *LineItemFormData) { i.Description = "   \t" }, []string{FieldDescription}},
		{"description at limit", func(i *LineItemFormData) { i.Description = strings.Repeat("a", 500) }, nil},
		{"description over limit", func(i *LineItemFormData) { i.Description = strings.Repeat("a", 501) }, []string{FieldDescription}},
		{"description trimmed before length", func(i *LineItemFormData) { i.Description = "  " + strings.Repeat("a", 500) + "  " }, nil},
		{"hs code omitted", func(i *LineItemFormData) { i.HSCode = "" }, nil},
		{"hs code 4 digits", func(i *LineItemFormData) { i.HSCode = "1234" }, nil},
		{"hs code 8 digits", func(i *LineItemFormData) { i.HSCode = "12345678" }, nil},
		{"hs code 3 digits", func(i *LineItemFormData) { i.HSCode = "123" }, []string{FieldHSCode}},
		{"hs code 9 digits", func(i *LineItemFormData) { i.HSCode = "123456789" }, []string{FieldHSCode}},
		{"hs code with letters", func(i *LineItemFormData) { i.HSCode = "12AB" }, []string{FieldHSCode}},
		{"hs code with dots", func(i *LineItemFormData) { i.HSCode = "0901.11" }, []string{FieldHSCode}},
		{"quantity missing", func(i *LineItemFormData) { i.Quantity = "" }, []string{FieldQuantity}},
		{"quantity zero", func(i *LineItemFormData) { i.Quantity = "0" }, []string{FieldQuantity}},
		{"quantity negative", func(i *LineItemFormData) { i.Quantity = "-1" }, []string{FieldQuantity}},
		{"quantity unparsable", func(i *LineItemFormData) { i.Quantity = "ten" }, []string{FieldQuantity}},
		{"quantity minimum", func(i *LineItemFormData) { i.Quantity = "0.001" }, nil},
		{"quantity below minimum", func(i *LineItemFormData) { i.Quantity = "0.0009" }, []string{FieldQuantity}},
		{"quantity maximum", func(i *LineItemFormData) { i.Quantity = "999999999" }, nil},
		{"quantity above maximum", func(i *LineItemFormData) { i.Quantity = "1000000000" }, []string{FieldQuantity}},
		{"unit missing", func(i *LineItemFormData) { i.Unit = "" }, []string{FieldUnit}},
		{"unit unknown", func(i *LineItemFormData) { i.Unit = "BARREL" }, []string{FieldUnit}},
		{"unit price missing", func(i *LineItemFormData) { i.UnitPrice = " " }, []string{FieldUnitPrice}},
		{"unit price minimum", func(i *LineItemFormData) { i.UnitPrice = "0.01" }, nil},
		{"unit price below minimum", func(i *LineItemFormData) { i.UnitPrice = "0.009" }, []string{FieldUnitPrice}},
		{"unit price above maximum", func(i *LineItemFormData) { i.UnitPrice = "999999999.01" }, []string{FieldUnitPrice}},
		{"everything wrong", func(i *LineItemFormData) { *i = LineItemFormData{HSCode: "1"} },
			[]string{FieldDescription, FieldHSCode, FieldQuantity, FieldUnit, FieldUnitPrice}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validRow()
			tt.mutate(&item)

			errs := ValidateLineItem(item)

			assert.Len(t, errs, len(tt.fields), "errors: %v", errs)
			for _, f := range tt.fields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestValidateLineItemDescriptionRequiredRegardlessOfOtherFields(t *testing.T) {
	for _, item := range []LineItemFormData{
		{Description: ""},
		{Description: "", Quantity: "1", Unit: "PCS", UnitPrice: "1"},
		{Description: "", HSCode: "bad", Quantity: "x", Unit: "?", UnitPrice: "-1"},
	} {
		errs := ValidateLineItem(item)
		assert.Equal(t, "Description is required", errs[FieldDescription])
	}
}

func TestValidateLineItemIsIdempotent(t *testing.T) {
	items := []LineItemFormData{
		validRow(),
		{Description: "", HSCode: "123", Quantity: "0", Unit: "XX", UnitPrice: ""},
	}
	for _, item := range items {
		assert.Equal(t, ValidateLineItem(item), ValidateLineItem(item))
	}
}

func TestRowHasErrorsSkipsReadOnly(t *testing.T) {
	bad := LineItemFormData{}
	assert.True(t, RowHasErrors(bad, false))
	assert.False(t, RowHasErrors(bad, true))
	assert.False(t, RowHasErrors(validRow(), false))
}

func TestNewLineItemFormDataHasClientID(t *testing.T) {
	a := NewLineItemFormData()
	b := NewLineItemFormData()
	assert.NotEmpty(t, a.ClientID)
	assert.NotEqual(t, a.ClientID, b.ClientID)
}

func TestToLineItemInputsDropsClientIDs(t *testing.T) {
	row := validRow()
	row.Description = "  Arabica coffee beans "
	row.Quantity = " 10 "

	inputs := ToLineItemInputs([]LineItemFormData{row})

	require.Len(t, inputs, 1)
	assert.Equal(t, "Arabica coffee beans", inputs[0].Description)
	assert.True(t, inputs[0].Quantity.Equal(d("10")))
	assert.True(t, inputs[0].UnitPrice.Equal(d("2.5")))
	assert.Equal(t, "KG", inputs[0].Unit)

	back := inputs[0].ToFormData()
	assert.Empty(t, back.ClientID)
	assert.True(t, ValidateLineItem(back).Valid())
}
