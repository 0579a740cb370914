package reports

import (
	"context"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// HistoryRow is one posted line with the running balance after it.
type HistoryRow struct {
	Date           time.Time
	VoucherID      int64
	Number         string
	Description    string
	Debit          float64
	Credit         float64
	RunningBalance float64
}

// AccountHistory lists an account's activity over a date range. Opening is
// the balance immediately before From; Closing equals the last row's running
// balance (or Opening when the range is empty).
type AccountHistory struct {
	Account ledger.Account
	From    time.Time
	To      time.Time
	Opening float64
	Rows    []HistoryRow
	Closing float64
}

// AccountHistory builds the running-balance view for one account, ordered by
// (posting date, voucher id) ascending.
func (s *Service) AccountHistory(ctx context.Context, accountID int64, from, to time.Time) (AccountHistory, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return AccountHistory{}, err
	}
	opening, err := s.repo.AccountBalanceBefore(ctx, accountID, from)
	if err != nil {
		return AccountHistory{}, err
	}
	entries, err := s.repo.AccountEntries(ctx, accountID, from, to)
	if err != nil {
		return AccountHistory{}, err
	}

	history := AccountHistory{
		Account: account,
		From:    from,
		To:      to,
		Opening: opening,
		Closing: opening,
	}
	normal := account.Type.NormalSide()
	running := opening
	for _, e := range entries {
		if normal == ledger.EntryDebit {
			running = ledger.Round(running + e.Debit - e.Credit)
		} else {
			running = ledger.Round(running + e.Credit - e.Debit)
		}
		history.Rows = append(history.Rows, HistoryRow{
			Date:           e.Date,
			VoucherID:      e.VoucherID,
			Number:         e.Number,
			Description:    e.Description,
			Debit:          e.Debit,
			Credit:         e.Credit,
			RunningBalance: running,
		})
	}
	history.Closing = running
	return history, nil
}
