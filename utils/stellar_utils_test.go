package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/base"
	"github.com/stellar/go/protocols/horizon/operations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockPaymentsClient struct {
	PaymentsFunc func(request horizonclient.OperationRequest) (operations.OperationsPage, error)
}

func (m *MockPaymentsClient) Payments(request horizonclient.OperationRequest) (operations.OperationsPage, error) {
	return m.PaymentsFunc(request)
}

func payment(token, to, code, amount, memo string) operations.Payment {
	p := operations.Payment{
		Base: operations.Base{
			ID:                    "op-" + token,
			PT:                    token,
			TransactionSuccessful: true,
			TransactionHash:       "tx-" + token,
			LedgerCloseTime:       time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
			Transaction:           &horizon.Transaction{Memo: memo, MemoType: "text"},
		},
		Asset:  base.Asset{Type: "credit_alphanum4", Code: code},
		To:     to,
		Amount: amount,
	}
	if code == "" {
		p.Asset = base.Asset{Type: "native"}
	}
	return p
}

func TestHorizonFeedPayments(t *testing.T) {
	account := keypair.MustRandom().Address()
	other := keypair.MustRandom().Address()

	failed := payment("104", account, "USD", "5", "INV-2024-000003")
	failed.TransactionSuccessful = false

	var got horizonclient.OperationRequest
	client := &MockPaymentsClient{
		PaymentsFunc: func(request horizonclient.OperationRequest) (operations.OperationsPage, error) {
			got = request
			page := operations.OperationsPage{}
			page.Embedded.Records = []operations.Operation{
				payment("101", account, "USD", "100.0000000", "INV-2024-000001"),
				payment("102", other, "USD", "50", "INV-2024-000001"),
				&operations.CreateAccount{Base: operations.Base{PT: "103"}},
				failed,
				payment("105", account, "", "12.5", ""),
			}
			return page, nil
		},
	}
	feed := &HorizonFeed{client: client}

	payments, next, err := feed.Payments(context.Background(), account, "100")
	require.NoError(t, err)

	assert.Equal(t, account, got.ForAccount)
	assert.Equal(t, "100", got.Cursor)
	assert.Equal(t, horizonclient.OrderAsc, got.Order)
	assert.Equal(t, "transactions", got.Join)

	assert.Equal(t, "105", next)
	require.Len(t, payments, 2)
	assert.Equal(t, "tx-101:op-101", payments[0].Reference)
	assert.Equal(t, "INV-2024-000001", payments[0].Memo)
	assert.Equal(t, "USD", payments[0].AssetCode)
	assert.Equal(t, "100.00", payments[0].Amount.StringFixed(2))
	assert.Equal(t, "XLM", payments[1].AssetCode)
	assert.Empty(t, payments[1].Memo)
}

func TestHorizonFeedSplitsTransactionPayments(t *testing.T) {
	account := keypair.MustRandom().Address()

	first := payment("201", account, "USD", "100", "INV-2024-000001")
	second := payment("202", account, "USD", "225", "INV-2024-000001")
	first.TransactionHash = "tx-201"
	second.TransactionHash = "tx-201"

	feed := &HorizonFeed{client: &MockPaymentsClient{
		PaymentsFunc: func(horizonclient.OperationRequest) (operations.OperationsPage, error) {
			page := operations.OperationsPage{}
			page.Embedded.Records = []operations.Operation{first, second}
			return page, nil
		},
	}}

	payments, next, err := feed.Payments(context.Background(), account, "")
	require.NoError(t, err)
	assert.Equal(t, "202", next)
	require.Len(t, payments, 2)
	assert.Equal(t, "tx-201:op-201", payments[0].Reference)
	assert.Equal(t, "tx-201:op-202", payments[1].Reference)
	assert.NotEqual(t, payments[0].Reference, payments[1].Reference)
}

func TestHorizonFeedErrors(t *testing.T) {
	account := keypair.MustRandom().Address()

	t.Run("Horizon failure keeps cursor", func(t *testing.T) {
		feed := &HorizonFeed{client: &MockPaymentsClient{
			PaymentsFunc: func(horizonclient.OperationRequest) (operations.OperationsPage, error) {
				return operations.OperationsPage{}, errors.New("horizon unavailable")
			},
		}}
		_, next, err := feed.Payments(context.Background(), account, "42")
		assert.Error(t, err)
		assert.Equal(t, "42", next)
	})

	t.Run("Malformed amount", func(t *testing.T) {
		feed := &HorizonFeed{client: &MockPaymentsClient{
			PaymentsFunc: func(horizonclient.OperationRequest) (operations.OperationsPage, error) {
				page := operations.OperationsPage{}
				page.Embedded.Records = []operations.Operation{payment("1", account, "USD", "ten", "")}
				return page, nil
			},
		}}
		_, next, err := feed.Payments(context.Background(), account, "")
		assert.Error(t, err)
		assert.Empty(t, next)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		feed := NewHorizonFeed("https://horizon-testnet.stellar.org")
		_, _, err := feed.Payments(ctx, account, "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
