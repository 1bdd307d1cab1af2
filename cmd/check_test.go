package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDraft(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draft.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCheckCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"check"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckValidDraft(t *testing.T) {
	path := writeDraft(t, `{
		"trade_id": "TRD-1001",
		"currency": "USD",
		"invoice_date": "2024-03-01",
		"due_date": "2024-03-31",
		"line_items": [
			{"client_id": "a", "description": "Widgets", "quantity": "10", "unit": "PCS", "unit_price": "2.50"},
			{"client_id": "b", "description": "Freight", "quantity": "3", "unit": "SET", "unit_price": "100"}
		]
	}`)

	out, err := runCheckCommand(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "25.00")
	assert.Contains(t, out, "Subtotal:        325.00 USD")
	assert.Contains(t, out, "Invoice amount:  325.00 USD")
	assert.Contains(t, out, "Draft is valid.")
}

func TestCheckInvalidDraft(t *testing.T) {
	path := writeDraft(t, `{
		"trade_id": "",
		"invoice_date": "2024-03-01",
		"due_date": "2024-02-01",
		"line_items": [
			{"client_id": "a", "description": "Widgets", "quantity": "abc", "unit": "PCS", "unit_price": "2.50"}
		]
	}`)

	out, err := runCheckCommand(t, path)
	assert.ErrorIs(t, err, errInvalidDraft)
	assert.Contains(t, out, "Subtotal:        0.00")
	assert.Contains(t, out, "trade_id: A trade must be selected")
	assert.Contains(t, out, "due_date: Due date cannot be before invoice date")
	assert.Contains(t, out, "a.quantity:")
}

func TestCheckRejectsMissingFile(t *testing.T) {
	_, err := runCheckCommand(t, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
