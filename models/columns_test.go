package models_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trade-invoices/invoicing"
	"github.com/yourusername/trade-invoices/models"
	"gorm.io/gorm/schema"
)

func decimalColumn(t *testing.T, typ string) (precision, scale int) {
	t.Helper()
	_, err := fmt.Sscanf(typ, "decimal(%d,%d)", &precision, &scale)
	require.NoError(t, err, typ)
	return precision, scale
}

func TestMoneyColumnsHoldLargestInvoice(t *testing.T) {
	largest := invoicing.LineTotal(invoicing.MaxQuantity, invoicing.MaxUnitPrice).
		Mul(decimal.NewFromInt(invoicing.MaxLineItems))
	digits := len(largest.Truncate(0).String())

	for _, model := range []interface{}{&models.Invoice{}, &models.LineItem{}, &models.InvoicePayment{}, &models.Exposure{}} {
		s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)

		for _, field := range s.Fields {
			typ := field.TagSettings["TYPE"]
			if !strings.HasPrefix(typ, "decimal") {
				continue
			}
			precision, scale := decimalColumn(t, typ)

			switch field.Name {
			case "Quantity":
				assert.Equal(t, invoicing.QuantityScale, scale)
				assert.GreaterOrEqual(t, precision-scale, len(invoicing.MaxQuantity.String()))
			case "UnitPrice":
				assert.Equal(t, invoicing.UnitPriceScale, scale)
				assert.GreaterOrEqual(t, precision-scale, len(invoicing.MaxUnitPrice.String()))
			default:
				assert.Equal(t, 2, scale, "%s.%s", s.Name, field.Name)
				assert.GreaterOrEqual(t, precision-scale, digits, "%s.%s", s.Name, field.Name)
			}
		}
	}
}
