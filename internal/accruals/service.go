// Package accruals manages prepaid-expense and unearned-revenue schedules.
// Establishing a schedule posts the cash event against the deferral account;
// monthly amortization runs recognize one straight-line installment per due
// schedule until the total is consumed.
package accruals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
)

// Kind separates the two deferral directions.
type Kind string

const (
	// KindPrepaidExpense is cash paid up front, expensed over time.
	KindPrepaidExpense Kind = "PREPAID_EXPENSE"
	// KindUnearnedRevenue is cash received up front, earned over time.
	KindUnearnedRevenue Kind = "UNEARNED_REVENUE"
)

// Schedule is one deferral being amortized.
type Schedule struct {
	ID           int64
	Kind         Kind
	Description  string
	Total        float64
	Installments int
	Recognized   float64
	StartDate    time.Time
	// TargetAccountID receives the recognized amount: an expense account
	// for prepaids, a revenue account for unearned revenue.
	TargetAccountID int64
	IsActive        bool
	CreatedAt       time.Time
}

// Remaining is the unrecognized balance.
func (s Schedule) Remaining() float64 {
	return ledger.Round(s.Total - s.Recognized)
}

// InstallmentAmount is the straight-line monthly amount.
func (s Schedule) InstallmentAmount() float64 {
	if s.Installments <= 0 {
		return 0
	}
	return ledger.Round(s.Total / float64(s.Installments))
}

// Repository persists amortization schedules.
type Repository interface {
	Insert(ctx context.Context, s Schedule) (Schedule, error)
	Get(ctx context.Context, id int64) (Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
	AddRecognized(ctx context.Context, id int64, amount float64) error
}

// Service manages schedules and runs.
type Service struct {
	repo   Repository
	poster *ledger.Service
	std    accounts.Standard
	now    func() time.Time
}

// NewService constructs the accruals service.
func NewService(repo Repository, poster *ledger.Service, std accounts.Standard) *Service {
	return &Service{repo: repo, poster: poster, std: std, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput describes a new schedule.
type CreateInput struct {
	Kind            Kind
	Description     string
	Total           float64
	Installments    int
	StartDate       time.Time
	TargetAccountID int64
	Ref             string
	ActorID         int64
}

// Create stores the schedule and posts its cash event: prepaids debit the
// prepaid-expense account against cash, unearned revenue debits cash against
// the unearned-revenue liability.
func (s *Service) Create(ctx context.Context, in CreateInput) (Schedule, error) {
	if in.Kind != KindPrepaidExpense && in.Kind != KindUnearnedRevenue {
		return Schedule{}, fmt.Errorf("%w: unknown schedule kind %q", ledger.ErrValidation, in.Kind)
	}
	if in.Total <= 0 {
		return Schedule{}, fmt.Errorf("%w: total must be positive", ledger.ErrValidation)
	}
	if in.Installments <= 0 {
		return Schedule{}, fmt.Errorf("%w: installments must be at least one", ledger.ErrValidation)
	}
	if in.TargetAccountID == 0 {
		return Schedule{}, fmt.Errorf("%w: target account required", ledger.ErrValidation)
	}
	if in.Ref == "" {
		return Schedule{}, fmt.Errorf("%w: ref required", ledger.ErrValidation)
	}
	if in.StartDate.IsZero() {
		in.StartDate = s.now()
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("%s schedule %s", in.Kind, in.Ref)
	}

	lines := []ledger.PostingLineInput{}
	switch in.Kind {
	case KindPrepaidExpense:
		lines = append(lines,
			ledger.PostingLineInput{AccountID: s.std.PrepaidExpense, Type: ledger.EntryDebit, Amount: in.Total},
			ledger.PostingLineInput{AccountID: s.std.Cash, Type: ledger.EntryCredit, Amount: in.Total})
	case KindUnearnedRevenue:
		lines = append(lines,
			ledger.PostingLineInput{AccountID: s.std.Cash, Type: ledger.EntryDebit, Amount: in.Total},
			ledger.PostingLineInput{AccountID: s.std.UnearnedRevenue, Type: ledger.EntryCredit, Amount: in.Total})
	}
	if _, err := s.poster.Post(ctx, ledger.PostingInput{
		Date:        in.StartDate,
		Description: description,
		SourceType:  "accrual_schedule",
		SourceID:    in.Ref,
		PostedBy:    in.ActorID,
		Lines:       lines,
	}); err != nil {
		return Schedule{}, err
	}

	return s.repo.Insert(ctx, Schedule{
		Kind:            in.Kind,
		Description:     description,
		Total:           ledger.Round(in.Total),
		Installments:    in.Installments,
		StartDate:       in.StartDate,
		TargetAccountID: in.TargetAccountID,
		IsActive:        true,
		CreatedAt:       s.now(),
	})
}

// Get loads one schedule.
func (s *Service) Get(ctx context.Context, id int64) (Schedule, error) {
	return s.repo.Get(ctx, id)
}

// List returns every schedule.
func (s *Service) List(ctx context.Context) ([]Schedule, error) {
	return s.repo.List(ctx)
}

// RunResult summarizes one amortization run.
type RunResult struct {
	Recognized float64
	Schedules  int
	Vouchers   []ledger.Voucher
}

// RunAmortization recognizes one installment for every active schedule whose
// start date has passed and which still has an unrecognized balance. Each
// schedule posts its own voucher keyed by schedule and month, so a re-run of
// the same month skips schedules it already recognized.
func (s *Service) RunAmortization(ctx context.Context, asOf time.Time, actorID int64) (RunResult, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	monthKey := asOf.Format("2006-01")

	all, err := s.repo.List(ctx)
	if err != nil {
		return RunResult{}, err
	}
	var result RunResult
	for _, sched := range all {
		if !sched.IsActive || sched.StartDate.After(asOf) {
			continue
		}
		remaining := sched.Remaining()
		if remaining <= ledger.Epsilon {
			continue
		}
		amount := sched.InstallmentAmount()
		if amount > remaining {
			amount = remaining
		}

		var lines []ledger.PostingLineInput
		switch sched.Kind {
		case KindPrepaidExpense:
			lines = []ledger.PostingLineInput{
				{AccountID: sched.TargetAccountID, Type: ledger.EntryDebit, Amount: amount},
				{AccountID: s.std.PrepaidExpense, Type: ledger.EntryCredit, Amount: amount},
			}
		case KindUnearnedRevenue:
			lines = []ledger.PostingLineInput{
				{AccountID: s.std.UnearnedRevenue, Type: ledger.EntryDebit, Amount: amount},
				{AccountID: sched.TargetAccountID, Type: ledger.EntryCredit, Amount: amount},
			}
		default:
			continue
		}

		voucher, err := s.poster.Post(ctx, ledger.PostingInput{
			Date:        asOf,
			Description: fmt.Sprintf("Amortization %s: %s", monthKey, sched.Description),
			SourceType:  "amortization",
			SourceID:    fmt.Sprintf("%d-%s", sched.ID, monthKey),
			PostedBy:    actorID,
			Lines:       lines,
		})
		if errors.Is(err, ledger.ErrSourceAlreadyLinked) {
			continue
		}
		if err != nil {
			return RunResult{}, err
		}
		if err := s.repo.AddRecognized(ctx, sched.ID, amount); err != nil {
			return RunResult{}, err
		}
		result.Recognized = ledger.Round(result.Recognized + amount)
		result.Schedules++
		result.Vouchers = append(result.Vouchers, voucher)
	}
	return result, nil
}
