package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourusername/trade-invoices/invoicing"
)

var errInvalidDraft = errors.New("invoice draft is invalid")

var checkCmd = &cobra.Command{
	Use:   "check <draft.json>",
	Short: "Validate an invoice draft and print its totals",
	Long: `Validate an invoice draft offline with the same rules the API applies and
print each line total, the subtotal and the invoice amount.

The draft file holds an invoice form: trade_id, party_id, currency,
invoice_date, due_date and line_items, with quantity and unit_price as strings.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read draft: %w", err)
	}

	var form invoicing.InvoiceForm
	if err := json.Unmarshal(data, &form); err != nil {
		return fmt.Errorf("failed to parse draft: %w", err)
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDESCRIPTION\tQTY\tUNIT\tPRICE\tTOTAL")
	for i, item := range form.LineItems {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, item.Description, item.Quantity, item.Unit, item.UnitPrice,
			invoicing.FormLineTotal(item).StringFixed(2))
	}
	tw.Flush()

	subtotal := invoicing.FormSubtotal(form.LineItems)
	fmt.Fprintf(out, "\nSubtotal:        %s %s\n", subtotal.StringFixed(2), form.Currency)
	fmt.Fprintf(out, "Invoice amount:  %s %s\n", invoicing.InvoiceAmount(subtotal).StringFixed(2), form.Currency)

	errs := invoicing.ValidateInvoiceForm(form)
	if errs.Valid() {
		fmt.Fprintln(out, "\nDraft is valid.")
		return nil
	}

	fmt.Fprintln(out, "\nErrors:")
	printFieldErrors(cmd, "", errs)
	rows := invoicing.ValidateLineItems(form.LineItems)
	keys := make([]string, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		printFieldErrors(cmd, key+".", rows[key])
	}
	return errInvalidDraft
}

func printFieldErrors(cmd *cobra.Command, prefix string, errs invoicing.FieldErrors) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s%s: %s\n", prefix, field, errs[field])
	}
}
