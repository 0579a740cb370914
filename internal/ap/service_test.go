package ap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/ap"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/ledgertest"
)

type fixture struct {
	poster  *ledger.Service
	mem     *ledgertest.Store
	service *ap.Service
	cash    ledger.Account
	control ledger.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledgertest.NewStore()
	cash := mem.AddAccount("1000", "Cash", ledger.AccountTypeAsset)
	control := mem.AddAccount("2000", "Accounts Payable", ledger.AccountTypeLiability)
	mem.AddPeriod("2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), ledger.PeriodStatusOpen)

	poster := ledger.NewService(mem)
	svc := ap.NewService(mem, poster, mem, cash.ID, control.ID)
	svc.WithNow(func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) })
	return &fixture{poster: poster, mem: mem, service: svc, cash: cash, control: control}
}

func (f *fixture) invoice(t *testing.T, supplierID int64, amount float64, day time.Time) {
	t.Helper()
	err := f.mem.Run(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		voucher, err := f.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        day,
			Description: "Supplier invoice",
			PostedBy:    3,
			SourceType:  "test_supplier_invoice",
			SourceID:    time.Now().Format(time.RFC3339Nano),
			Lines: []ledger.PostingLineInput{
				{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: amount},
				{AccountID: f.control.ID, Type: ledger.EntryCredit, Amount: amount},
			},
		})
		if err != nil {
			return err
		}
		return f.service.InvoiceTx(ctx, tx, supplierID, amount, day, voucher.ID, "PINV-TEST", "Supplier invoice")
	})
	require.NoError(t, err)
}

func TestRecordPaymentSettlesPayable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.invoice(t, 12, 80.0, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))

	voucher, err := f.service.RecordPayment(ctx, ap.PaymentInput{
		SupplierID: 12,
		Amount:     30.0,
		Date:       time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		ActorID:    3,
	})
	require.NoError(t, err)
	require.Len(t, voucher.Lines, 2)
	require.Equal(t, ledger.EntryDebit, voucher.Lines[0].Type)

	balance, err := f.mem.PartyBalance(ctx, ledger.PartySupplier, 12)
	require.NoError(t, err)
	require.InDelta(t, 50.0, balance, 0.001)

	// Liability control balance tracks the subledger total.
	require.InDelta(t, 50.0, f.mem.Account(f.control.ID).Balance, 0.001)
}

func TestRecordPaymentRejectsPayingMoreThanOwed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.invoice(t, 12, 80.0, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))

	_, err := f.service.RecordPayment(ctx, ap.PaymentInput{SupplierID: 12, Amount: 80.01})
	require.ErrorIs(t, err, ledger.ErrValidation)

	balance, err := f.mem.PartyBalance(ctx, ledger.PartySupplier, 12)
	require.NoError(t, err)
	require.InDelta(t, 80.0, balance, 0.001)
	require.Len(t, f.mem.AllVouchers(), 1)
}

func TestGetLedgerRunningBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.invoice(t, 12, 100.0, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	f.invoice(t, 12, 50.0, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC))
	_, err := f.service.RecordPayment(ctx, ap.PaymentInput{
		SupplierID: 12,
		Amount:     100.0,
		Date:       time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		ActorID:    3,
	})
	require.NoError(t, err)

	view, err := f.service.GetLedger(ctx, 12, 1, 20)
	require.NoError(t, err)
	require.Len(t, view.Rows, 3)
	require.InDelta(t, 100.0, view.Rows[0].RunningBalance, 0.001)
	require.InDelta(t, 150.0, view.Rows[1].RunningBalance, 0.001)
	require.InDelta(t, 50.0, view.Rows[2].RunningBalance, 0.001)
	require.InDelta(t, view.Balance, view.Rows[2].RunningBalance, 0.001)
}

func TestAgingBucketsUnpaidSupplierInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asOf := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	f.invoice(t, 12, 300.0, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	f.invoice(t, 12, 120.0, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	_, err := f.service.RecordPayment(ctx, ap.PaymentInput{
		SupplierID: 12,
		Amount:     300.0,
		Date:       time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		ActorID:    3,
	})
	require.NoError(t, err)

	buckets, err := f.service.Aging(ctx, 12, asOf)
	require.NoError(t, err)
	require.InDelta(t, 120.0, buckets.Current, 0.001)
	require.InDelta(t, 120.0, buckets.Total(), 0.001)
}
