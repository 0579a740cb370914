package ledger

import (
	"context"
	"sort"
	"time"
)

// SubledgerReader is the read side of the AR/AP subledgers.
type SubledgerReader interface {
	// SubledgerEntries returns a party's entries ordered oldest first by (date, id).
	SubledgerEntries(ctx context.Context, kind PartyKind, partyID int64) ([]SubledgerEntry, error)
	// PartyBalance returns the denormalized outstanding balance.
	PartyBalance(ctx context.Context, kind PartyKind, partyID int64) (float64, error)
}

// AgingBuckets classifies outstanding amounts by days since the invoice date.
type AgingBuckets struct {
	Current  float64 // 30 days or less
	Bucket30 float64 // 31-60 days
	Bucket60 float64 // 61-90 days
	Bucket90 float64 // over 90 days
}

// Total sums all buckets; it must equal the party's outstanding balance.
func (b AgingBuckets) Total() float64 {
	return Round(b.Current + b.Bucket30 + b.Bucket60 + b.Bucket90)
}

// AgeEntries buckets a party's unpaid invoice remainders as of the given day.
// Payments and credit notes are allocated to the oldest outstanding invoices
// first (FIFO by invoice date then id) when computing per-invoice remainders.
func AgeEntries(entries []SubledgerEntry, asOf time.Time) AgingBuckets {
	type open struct {
		date      time.Time
		remaining float64
	}
	var invoices []open
	var applied float64
	for _, e := range entries {
		if e.Kind == SubledgerInvoice {
			invoices = append(invoices, open{date: e.Date, remaining: e.Amount})
		} else {
			// Payment/credit amounts carry a negative effect.
			applied += -e.Amount
		}
	}
	sort.SliceStable(invoices, func(i, j int) bool { return invoices[i].date.Before(invoices[j].date) })

	for i := range invoices {
		if applied <= 0 {
			break
		}
		take := invoices[i].remaining
		if take > applied {
			take = applied
		}
		invoices[i].remaining = Round(invoices[i].remaining - take)
		applied = Round(applied - take)
	}

	var buckets AgingBuckets
	for _, inv := range invoices {
		if inv.remaining <= 0 {
			continue
		}
		days := int(asOf.Sub(inv.date).Hours() / 24)
		switch {
		case days <= 30:
			buckets.Current += inv.remaining
		case days <= 60:
			buckets.Bucket30 += inv.remaining
		case days <= 90:
			buckets.Bucket60 += inv.remaining
		default:
			buckets.Bucket90 += inv.remaining
		}
	}
	buckets.Current = Round(buckets.Current)
	buckets.Bucket30 = Round(buckets.Bucket30)
	buckets.Bucket60 = Round(buckets.Bucket60)
	buckets.Bucket90 = Round(buckets.Bucket90)
	return buckets
}
