// Package reports is the read side of the ledger: trial balance and
// per-account history aggregation over posted vouchers.
package reports

import (
	"context"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// Repository defines the aggregation queries the engine reads from.
type Repository interface {
	Activity(ctx context.Context, asOf time.Time) ([]ledger.AccountActivity, error)
	AccountEntries(ctx context.Context, accountID int64, from, to time.Time) ([]ledger.Entry, error)
	AccountBalanceBefore(ctx context.Context, accountID int64, before time.Time) (float64, error)
	GetAccount(ctx context.Context, accountID int64) (ledger.Account, error)
}

// Service builds ledger reports.
type Service struct {
	repo Repository
}

// NewService constructs the report engine.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TrialBalanceRow aggregates one account's posted debits and credits.
type TrialBalanceRow struct {
	Code    string
	Name    string
	Type    ledger.AccountType
	Debit   float64
	Credit  float64
	Balance float64
}

// TrialBalance is the full statement with grand totals. TotalDebit must
// always equal TotalCredit; that identity is the ledger's core self-check.
type TrialBalance struct {
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  float64
	TotalCredit float64
}

// Balanced reports whether the grand totals agree up to rounding noise.
func (tb TrialBalance) Balanced() bool {
	return ledger.WithinEpsilon(tb.TotalDebit, tb.TotalCredit)
}

// BuildTrialBalance converts raw account activity into statement rows.
// Balances are signed per each account's normal side.
func BuildTrialBalance(asOf time.Time, activity []ledger.AccountActivity) TrialBalance {
	tb := TrialBalance{AsOf: asOf}
	for _, act := range activity {
		row := TrialBalanceRow{
			Code:   act.Account.Code,
			Name:   act.Account.Name,
			Type:   act.Account.Type,
			Debit:  ledger.Round(act.Debit),
			Credit: ledger.Round(act.Credit),
		}
		if act.Account.Type.NormalSide() == ledger.EntryDebit {
			row.Balance = ledger.Round(act.Debit - act.Credit)
		} else {
			row.Balance = ledger.Round(act.Credit - act.Debit)
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit = ledger.Round(tb.TotalDebit + row.Debit)
		tb.TotalCredit = ledger.Round(tb.TotalCredit + row.Credit)
	}
	return tb
}

// TrialBalance aggregates every account's lifetime totals up to asOf.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	activity, err := s.repo.Activity(ctx, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(asOf, activity), nil
}
