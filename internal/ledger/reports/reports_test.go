package reports_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/ledgertest"
	"github.com/meridian-retail/meridian/internal/ledger/reports"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store   *ledgertest.Store
	poster  *ledger.Service
	svc     *reports.Service
	cash    ledger.Account
	ar      ledger.Account
	revenue ledger.Account
	vat     ledger.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledgertest.NewStore()
	f := &fixture{
		store:   store,
		cash:    store.AddAccount("1000", "Cash", ledger.AccountTypeAsset),
		ar:      store.AddAccount("1100", "Accounts Receivable", ledger.AccountTypeAsset),
		revenue: store.AddAccount("4000", "Sales Revenue", ledger.AccountTypeRevenue),
		vat:     store.AddAccount("2100", "Output VAT", ledger.AccountTypeLiability),
	}
	store.AddPeriod("2026-01", date(2026, 1, 1), date(2026, 1, 31), ledger.PeriodStatusOpen)
	store.AddPeriod("2026-02", date(2026, 2, 1), date(2026, 2, 28), ledger.PeriodStatusOpen)
	f.poster = ledger.NewService(store)
	f.svc = reports.NewService(store)
	return f
}

func (f *fixture) post(t *testing.T, day time.Time, desc string, lines ...ledger.PostingLineInput) {
	t.Helper()
	_, err := f.poster.Post(context.Background(), ledger.PostingInput{
		Date: day, Description: desc, PostedBy: 1, Lines: lines,
	})
	require.NoError(t, err)
}

func TestTrialBalanceInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.post(t, date(2026, 1, 5), "cash sale",
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: 23.00},
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryCredit, Amount: 20.00},
		ledger.PostingLineInput{AccountID: f.vat.ID, Type: ledger.EntryCredit, Amount: 3.00},
	)
	f.post(t, date(2026, 1, 20), "credit sale",
		ledger.PostingLineInput{AccountID: f.ar.ID, Type: ledger.EntryDebit, Amount: 60.00},
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: 40.00},
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryCredit, Amount: 100.00},
	)

	tb, err := f.svc.TrialBalance(ctx, date(2026, 1, 31))
	require.NoError(t, err)
	require.True(t, tb.Balanced())
	require.Equal(t, 123.00, tb.TotalDebit)
	require.Equal(t, 123.00, tb.TotalCredit)
	require.Len(t, tb.Rows, 4)

	byCode := make(map[string]reports.TrialBalanceRow)
	for _, row := range tb.Rows {
		byCode[row.Code] = row
	}
	require.Equal(t, 63.00, byCode["1000"].Balance)
	require.Equal(t, 60.00, byCode["1100"].Balance)
	require.Equal(t, 120.00, byCode["4000"].Balance)
	require.Equal(t, 3.00, byCode["2100"].Balance)
}

func TestTrialBalanceDateBounded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.post(t, date(2026, 1, 5), "january",
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: 10},
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryCredit, Amount: 10},
	)
	f.post(t, date(2026, 2, 5), "february",
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: 90},
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryCredit, Amount: 90},
	)

	tb, err := f.svc.TrialBalance(ctx, date(2026, 1, 31))
	require.NoError(t, err)
	require.Equal(t, 10.00, tb.TotalDebit)
	require.True(t, tb.Balanced())
}

func TestTrialBalanceIdempotentReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.post(t, date(2026, 1, 5), "sale",
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: 42},
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryCredit, Amount: 42},
	)

	first, err := f.svc.TrialBalance(ctx, date(2026, 1, 31))
	require.NoError(t, err)
	second, err := f.svc.TrialBalance(ctx, date(2026, 1, 31))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAccountHistoryRunningBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Prior activity establishes the opening balance.
	f.post(t, date(2026, 1, 5), "opening sale",
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: 100},
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryCredit, Amount: 100},
	)
	f.post(t, date(2026, 2, 3), "feb sale",
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: 50},
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryCredit, Amount: 50},
	)
	f.post(t, date(2026, 2, 10), "refund",
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryDebit, Amount: 30},
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryCredit, Amount: 30},
	)

	history, err := f.svc.AccountHistory(ctx, f.cash.ID, date(2026, 2, 1), date(2026, 2, 28))
	require.NoError(t, err)
	require.Equal(t, 100.00, history.Opening)
	require.Len(t, history.Rows, 2)
	require.Equal(t, 150.00, history.Rows[0].RunningBalance)
	require.Equal(t, 120.00, history.Rows[1].RunningBalance)
	require.Equal(t, 120.00, history.Closing)
}

func TestAccountHistoryEmptyRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	history, err := f.svc.AccountHistory(ctx, f.cash.ID, date(2026, 2, 1), date(2026, 2, 28))
	require.NoError(t, err)
	require.Zero(t, history.Opening)
	require.Empty(t, history.Rows)
	require.Zero(t, history.Closing)

	_, err = f.svc.AccountHistory(ctx, 999, date(2026, 2, 1), date(2026, 2, 28))
	require.ErrorIs(t, err, ledger.ErrUnknownAccount)
}

func TestWriteTrialBalanceCSV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.post(t, date(2026, 1, 5), "sale",
		ledger.PostingLineInput{AccountID: f.cash.ID, Type: ledger.EntryDebit, Amount: 1234.50},
		ledger.PostingLineInput{AccountID: f.revenue.ID, Type: ledger.EntryCredit, Amount: 1234.50},
	)

	tb, err := f.svc.TrialBalance(ctx, date(2026, 1, 31))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, reports.WriteTrialBalanceCSV(&buf, tb))
	out := buf.String()
	require.Contains(t, out, "Code,Name,Type,Debit,Credit,Balance")
	require.Contains(t, out, `"1,234.50"`)
	require.Contains(t, out, "Total")
}
