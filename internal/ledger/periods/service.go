// Package periods manages the fiscal calendar: creating non-overlapping
// periods, the open/locked/closed lifecycle, and year-end style close runs
// that fold temporary account balances into retained earnings.
package periods

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/shared"
)

// Reader lists periods outside a transaction.
type Reader interface {
	ListPeriods(ctx context.Context) ([]ledger.Period, error)
}

// Service orchestrates the fiscal period lifecycle.
type Service struct {
	uow              ledger.UnitOfWork
	poster           *ledger.Service
	reader           Reader
	retainedEarnings int64
	now              func() time.Time
}

// NewService constructs the period manager. retainedEarnings is the account
// closing entries settle into.
func NewService(uow ledger.UnitOfWork, poster *ledger.Service, reader Reader, retainedEarnings int64) *Service {
	return &Service{
		uow:              uow,
		poster:           poster,
		reader:           reader,
		retainedEarnings: retainedEarnings,
		now:              time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput captures fields for a new fiscal period.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Validate ensures the period definition is coherent.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: period name required", ledger.ErrValidation)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end date required", ledger.ErrValidation)
	}
	if in.StartDate.After(in.EndDate) {
		return fmt.Errorf("%w: start date after end date", ledger.ErrValidation)
	}
	return nil
}

// Create inserts a new open period after checking for range overlap.
func (s *Service) Create(ctx context.Context, in CreateInput) (ledger.Period, error) {
	if err := in.Validate(); err != nil {
		return ledger.Period{}, err
	}
	var period ledger.Period
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		conflict, err := tx.Periods().RangeConflict(ctx, in.StartDate, in.EndDate)
		if err != nil {
			return err
		}
		if conflict {
			return fmt.Errorf("%w: period range overlaps an existing period", ledger.ErrConflict)
		}
		period, err = tx.Periods().Insert(ctx, ledger.Period{
			Name:      strings.TrimSpace(in.Name),
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			Status:    ledger.PeriodStatusOpen,
		})
		return err
	})
	if err != nil {
		return ledger.Period{}, err
	}
	return period, nil
}

// List returns all periods.
func (s *Service) List(ctx context.Context) ([]ledger.Period, error) {
	return s.reader.ListPeriods(ctx)
}

// PeriodFor returns the period containing the date. A missing period is a
// distinct error from a locked one so callers can message differently.
func (s *Service) PeriodFor(ctx context.Context, date time.Time) (ledger.Period, error) {
	var period ledger.Period
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var e error
		period, e = tx.Periods().GetForUpdateByDate(ctx, date)
		return e
	})
	if err != nil {
		return ledger.Period{}, err
	}
	return period, nil
}

// Lock transitions an open period to locked, holding the period row lock so
// in-flight postings serialize against the transition.
func (s *Service) Lock(ctx context.Context, periodID, actorID int64) (ledger.Period, error) {
	return s.transition(ctx, periodID, actorID, ledger.PeriodStatusLocked)
}

// Unlock transitions a locked period back to open. Closed periods stay closed.
func (s *Service) Unlock(ctx context.Context, periodID, actorID int64) (ledger.Period, error) {
	return s.transition(ctx, periodID, actorID, ledger.PeriodStatusOpen)
}

func (s *Service) transition(ctx context.Context, periodID, actorID int64, target ledger.PeriodStatus) (ledger.Period, error) {
	if periodID == 0 || actorID == 0 {
		return ledger.Period{}, fmt.Errorf("%w: period id and actor required", ledger.ErrValidation)
	}
	var period ledger.Period
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		current, err := tx.Periods().GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if err := shared.ValidatePeriodTransition(current.Status, target); err != nil {
			return err
		}
		if err := tx.Periods().UpdateStatus(ctx, periodID, target, actorID, s.now()); err != nil {
			return err
		}
		period = current
		period.Status = target
		return nil
	})
	if err != nil {
		return ledger.Period{}, err
	}
	return period, nil
}

// CloseSummary reports what a close run did.
type CloseSummary struct {
	Period         ledger.Period
	ClosingVoucher *ledger.Voucher
}

// Close finalizes a locked period: temporary revenue/expense balances are
// zeroed into retained earnings with a closing voucher posted into the period
// being closed, then the status flips to closed. Close is the one caller
// allowed to post past the open-period gate.
func (s *Service) Close(ctx context.Context, periodID, actorID int64) (CloseSummary, error) {
	if periodID == 0 || actorID == 0 {
		return CloseSummary{}, fmt.Errorf("%w: period id and actor required", ledger.ErrValidation)
	}
	var summary CloseSummary
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		period, err := tx.Periods().GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if period.Status != ledger.PeriodStatusLocked {
			return fmt.Errorf("%w: close requires a locked period, got %s", ledger.ErrInvalidStatus, period.Status)
		}

		temps, err := tx.Accounts().ListByTypeForUpdate(ctx, ledger.AccountTypeRevenue, ledger.AccountTypeExpense)
		if err != nil {
			return err
		}
		lines := closingLines(temps, s.retainedEarnings)
		if len(lines) > 0 {
			voucher, err := s.poster.PostTx(ctx, tx, ledger.PostingInput{
				Date:        period.EndDate,
				Description: fmt.Sprintf("Closing entries for %s", period.Name),
				SourceType:  "period_close",
				SourceID:    fmt.Sprintf("%d", period.ID),
				PostedBy:    actorID,
				Lines:       lines,
				Closing:     true,
			})
			if err != nil {
				return err
			}
			summary.ClosingVoucher = &voucher
		}
		if err := tx.Periods().UpdateStatus(ctx, periodID, ledger.PeriodStatusClosed, actorID, s.now()); err != nil {
			return err
		}
		period.Status = ledger.PeriodStatusClosed
		summary.Period = period
		return nil
	})
	if err != nil {
		return CloseSummary{}, err
	}
	return summary, nil
}

// closingLines builds offsetting lines that zero each temporary account,
// settling the net against retained earnings. Accounts already at zero are
// skipped; a fully flat ledger yields no closing voucher.
func closingLines(temps []ledger.Account, retainedEarnings int64) []ledger.PostingLineInput {
	var lines []ledger.PostingLineInput
	var debits, credits float64
	for _, acct := range temps {
		balance := ledger.Round(acct.Balance)
		if balance == 0 {
			continue
		}
		line := ledger.PostingLineInput{AccountID: acct.ID, Description: "Period close"}
		normal := acct.Type.NormalSide()
		if balance > 0 {
			line.Type = normal.Opposite()
			line.Amount = balance
		} else {
			line.Type = normal
			line.Amount = -balance
		}
		if line.Type == ledger.EntryDebit {
			debits += line.Amount
		} else {
			credits += line.Amount
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil
	}
	net := ledger.Round(debits - credits)
	if net > 0 {
		lines = append(lines, ledger.PostingLineInput{
			AccountID:   retainedEarnings,
			Type:        ledger.EntryCredit,
			Amount:      net,
			Description: "Net income",
		})
	} else if net < 0 {
		lines = append(lines, ledger.PostingLineInput{
			AccountID:   retainedEarnings,
			Type:        ledger.EntryDebit,
			Amount:      -net,
			Description: "Net loss",
		})
	}
	return lines
}
