// Package payroll posts pay runs: gross wages to expense, net pay out of
// cash, and withholdings parked as a liability until remitted. One run per
// pay period; the period key doubles as the idempotency ref.
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
)

// Service posts payroll runs.
type Service struct {
	uow    ledger.UnitOfWork
	poster *ledger.Service
	std    accounts.Standard
	now    func() time.Time
}

// NewService constructs the payroll producer.
func NewService(uow ledger.UnitOfWork, poster *ledger.Service, std accounts.Standard) *Service {
	return &Service{uow: uow, poster: poster, std: std, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Payslip is one employee's pay for the run.
type Payslip struct {
	EmployeeID int64
	Gross      float64
	Withheld   float64
}

// RunInput is a complete pay run.
type RunInput struct {
	// PeriodKey identifies the pay period (e.g. "2025-06"). Posting the
	// same key twice is rejected.
	PeriodKey string
	Date      time.Time
	Payslips  []Payslip
	ActorID   int64
}

// Run is the committed result.
type Run struct {
	Voucher  ledger.Voucher
	Gross    float64
	Withheld float64
	Net      float64
}

// RunPayroll posts one voucher for the whole run: DEBIT payroll expense
// gross, CREDIT cash net, CREDIT payroll liabilities withheld.
func (s *Service) RunPayroll(ctx context.Context, in RunInput) (Run, error) {
	if in.PeriodKey == "" {
		return Run{}, fmt.Errorf("%w: period key required", ledger.ErrValidation)
	}
	if len(in.Payslips) == 0 {
		return Run{}, fmt.Errorf("%w: pay run needs at least one payslip", ledger.ErrValidation)
	}
	var gross, withheld float64
	for i, slip := range in.Payslips {
		if slip.EmployeeID == 0 {
			return Run{}, fmt.Errorf("%w: payslip %d has no employee", ledger.ErrValidation, i+1)
		}
		if slip.Gross <= 0 {
			return Run{}, fmt.Errorf("%w: payslip %d gross must be positive", ledger.ErrValidation, i+1)
		}
		if slip.Withheld < 0 || slip.Withheld > slip.Gross {
			return Run{}, fmt.Errorf("%w: payslip %d withholding out of range", ledger.ErrValidation, i+1)
		}
		gross += slip.Gross
		withheld += slip.Withheld
	}
	gross = ledger.Round(gross)
	withheld = ledger.Round(withheld)
	net := ledger.Round(gross - withheld)
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	lines := []ledger.PostingLineInput{
		{AccountID: s.std.PayrollExpense, Type: ledger.EntryDebit, Amount: gross},
	}
	if net > 0 {
		lines = append(lines, ledger.PostingLineInput{AccountID: s.std.Cash, Type: ledger.EntryCredit, Amount: net})
	}
	if withheld > 0 {
		lines = append(lines, ledger.PostingLineInput{AccountID: s.std.PayrollLiabilities, Type: ledger.EntryCredit, Amount: withheld})
	}

	voucher, err := s.poster.Post(ctx, ledger.PostingInput{
		Date:        in.Date,
		Description: fmt.Sprintf("Payroll %s (%d employees)", in.PeriodKey, len(in.Payslips)),
		SourceType:  "payroll_run",
		SourceID:    in.PeriodKey,
		PostedBy:    in.ActorID,
		Lines:       lines,
	})
	if err != nil {
		return Run{}, err
	}
	return Run{Voucher: voucher, Gross: gross, Withheld: withheld, Net: net}, nil
}

// RemitWithholdings pays accumulated withholdings over to the authority:
// DEBIT payroll liabilities, CREDIT cash.
func (s *Service) RemitWithholdings(ctx context.Context, amount float64, ref string, actorID int64) (ledger.Voucher, error) {
	if amount <= 0 {
		return ledger.Voucher{}, fmt.Errorf("%w: remittance amount must be positive", ledger.ErrValidation)
	}
	if ref == "" {
		return ledger.Voucher{}, fmt.Errorf("%w: remittance ref required", ledger.ErrValidation)
	}
	return s.poster.Post(ctx, ledger.PostingInput{
		Date:        s.now(),
		Description: fmt.Sprintf("Withholding remittance %s", ref),
		SourceType:  "payroll_remittance",
		SourceID:    ref,
		PostedBy:    actorID,
		Lines: []ledger.PostingLineInput{
			{AccountID: s.std.PayrollLiabilities, Type: ledger.EntryDebit, Amount: amount},
			{AccountID: s.std.Cash, Type: ledger.EntryCredit, Amount: amount},
		},
	})
}
