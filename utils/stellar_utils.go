package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon/operations"
)

// PageLimit is the number of operations requested per Horizon call.
const PageLimit = 200

// IncomingPayment is a payment received by the settlement account.
type IncomingPayment struct {
	Reference   string // transaction hash and operation id
	PagingToken string
	Memo        string
	AssetCode   string
	Amount      decimal.Decimal
	ReceivedAt  time.Time
}

// PaymentFeed lists payments received by account after cursor, oldest first.
// The returned cursor resumes after the last operation seen, including
// operations that were filtered out.
type PaymentFeed interface {
	Payments(ctx context.Context, account, cursor string) ([]IncomingPayment, string, error)
}

type paymentsClient interface {
	Payments(request horizonclient.OperationRequest) (operations.OperationsPage, error)
}

type HorizonFeed struct {
	client paymentsClient
}

func NewHorizonFeed(horizonURL string) *HorizonFeed {
	return &HorizonFeed{
		client: &horizonclient.Client{HorizonURL: horizonURL},
	}
}

func (f *HorizonFeed) Payments(ctx context.Context, account, cursor string) ([]IncomingPayment, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, cursor, err
	}

	page, err := f.client.Payments(horizonclient.OperationRequest{
		ForAccount: account,
		Cursor:     cursor,
		Order:      horizonclient.OrderAsc,
		Limit:      PageLimit,
		Join:       "transactions",
	})
	if err != nil {
		return nil, cursor, fmt.Errorf("failed to load payments for %s: %w", account, err)
	}

	next := cursor
	var out []IncomingPayment
	for _, record := range page.Embedded.Records {
		next = record.PagingToken()

		var payment operations.Payment
		switch op := record.(type) {
		case operations.Payment:
			payment = op
		case *operations.Payment:
			payment = *op
		default:
			continue
		}

		in, ok, err := toIncoming(payment, account)
		if err != nil {
			return nil, cursor, err
		}
		if ok {
			out = append(out, in)
		}
	}
	return out, next, nil
}

// OperationReference identifies one payment operation. A transaction can
// carry several payments to the same account, so the hash alone is not unique.
func OperationReference(txHash, operationID string) string {
	return txHash + ":" + operationID
}

// toIncoming keeps successful payments sent to account.
func toIncoming(p operations.Payment, account string) (IncomingPayment, bool, error) {
	if p.To != account || !p.TransactionSuccessful {
		return IncomingPayment{}, false, nil
	}

	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return IncomingPayment{}, false, fmt.Errorf("invalid amount %q in operation %s: %w", p.Amount, p.ID, err)
	}

	code := p.Asset.Code
	if p.Asset.Type == "native" || code == "" {
		code = "XLM"
	}

	var memo string
	if p.Transaction != nil && p.Transaction.MemoType == "text" {
		memo = p.Transaction.Memo
	}

	return IncomingPayment{
		Reference:   OperationReference(p.TransactionHash, p.ID),
		PagingToken: p.PagingToken(),
		Memo:        memo,
		AssetCode:   code,
		Amount:      amount,
		ReceivedAt:  p.LedgerCloseTime,
	}, true, nil
}
