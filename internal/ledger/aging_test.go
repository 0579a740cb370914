package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/ledger"
)

func invoice(day time.Time, amount float64) ledger.SubledgerEntry {
	return ledger.SubledgerEntry{Kind: ledger.SubledgerInvoice, Amount: amount, Date: day}
}

func payment(day time.Time, amount float64) ledger.SubledgerEntry {
	return ledger.SubledgerEntry{Kind: ledger.SubledgerPayment, Amount: -amount, Date: day}
}

func TestAgeEntriesBuckets(t *testing.T) {
	asOf := date(2026, 6, 1)
	entries := []ledger.SubledgerEntry{
		invoice(date(2026, 5, 20), 100), // 12 days -> current
		invoice(date(2026, 4, 15), 200), // 47 days -> 31-60
		invoice(date(2026, 3, 10), 300), // 83 days -> 61-90
		invoice(date(2026, 1, 5), 400),  // 147 days -> over 90
	}
	buckets := ledger.AgeEntries(entries, asOf)
	require.Equal(t, 100.0, buckets.Current)
	require.Equal(t, 200.0, buckets.Bucket30)
	require.Equal(t, 300.0, buckets.Bucket60)
	require.Equal(t, 400.0, buckets.Bucket90)
	require.Equal(t, 1000.0, buckets.Total())
}

func TestAgeEntriesFIFOAllocation(t *testing.T) {
	asOf := date(2026, 6, 1)
	entries := []ledger.SubledgerEntry{
		invoice(date(2026, 1, 5), 400),
		invoice(date(2026, 4, 15), 200),
		payment(date(2026, 5, 1), 450),
	}
	// The payment wipes the oldest invoice and takes 50 off the newer one.
	buckets := ledger.AgeEntries(entries, asOf)
	require.Zero(t, buckets.Bucket90)
	require.Equal(t, 150.0, buckets.Bucket30)
	require.Equal(t, 150.0, buckets.Total())
}

func TestAgeEntriesFullyPaid(t *testing.T) {
	asOf := date(2026, 6, 1)
	entries := []ledger.SubledgerEntry{
		invoice(date(2026, 1, 5), 100),
		payment(date(2026, 2, 1), 60),
		payment(date(2026, 3, 1), 40),
	}
	buckets := ledger.AgeEntries(entries, asOf)
	require.Zero(t, buckets.Total())
}

func TestAgeEntriesCreditNoteCountsAsAllocation(t *testing.T) {
	asOf := date(2026, 6, 1)
	entries := []ledger.SubledgerEntry{
		invoice(date(2026, 5, 15), 100),
		{Kind: ledger.SubledgerCredit, Amount: -25, Date: date(2026, 5, 20)},
	}
	buckets := ledger.AgeEntries(entries, asOf)
	require.Equal(t, 75.0, buckets.Current)
}
