package recon

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// Service runs balance comparisons and posts adjustments.
type Service struct {
	repo              Repository
	reader            BalanceReader
	uow               ledger.UnitOfWork
	poster            *ledger.Service
	adjustmentAccount int64
	now               func() time.Time
}

// NewService constructs the reconciliation service. adjustmentAccount is the
// expense account discrepancy write-offs are booked against.
func NewService(repo Repository, reader BalanceReader, uow ledger.UnitOfWork, poster *ledger.Service, adjustmentAccount int64) *Service {
	return &Service{
		repo:              repo,
		reader:            reader,
		uow:               uow,
		poster:            poster,
		adjustmentAccount: adjustmentAccount,
		now:               time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Comparison is the result of comparing a GL balance against an external one.
type Comparison struct {
	AccountCode     string
	AsOf            time.Time
	LedgerBalance   float64
	ExternalBalance float64
	Difference      float64
	Reconciled      bool
}

// Calculate compares the account's GL balance as of the cutoff against the
// external balance without persisting anything.
func (s *Service) Calculate(ctx context.Context, accountCode string, asOf time.Time, external float64) (Comparison, error) {
	if accountCode == "" {
		return Comparison{}, fmt.Errorf("%w: account code required", ledger.ErrValidation)
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	balance, err := s.reader.AccountBalanceAsOf(ctx, accountCode, asOf)
	if err != nil {
		return Comparison{}, err
	}
	diff := ledger.Round(external - balance)
	return Comparison{
		AccountCode:     accountCode,
		AsOf:            asOf,
		LedgerBalance:   balance,
		ExternalBalance: ledger.Round(external),
		Difference:      diff,
		Reconciled:      ledger.WithinEpsilon(diff, 0),
	}, nil
}

// SaveInput captures a reconciliation to persist.
type SaveInput struct {
	AccountCode     string
	AsOf            time.Time
	ExternalBalance float64
	Note            string
	ActorID         int64
}

// Save computes the comparison and stores it with RECONCILED or DISCREPANCY
// status.
func (s *Service) Save(ctx context.Context, in SaveInput) (Record, error) {
	cmp, err := s.Calculate(ctx, in.AccountCode, in.AsOf, in.ExternalBalance)
	if err != nil {
		return Record{}, err
	}
	status := StatusDiscrepancy
	if cmp.Reconciled {
		status = StatusReconciled
	}
	return s.repo.Insert(ctx, Record{
		AccountCode:     cmp.AccountCode,
		AsOf:            cmp.AsOf,
		LedgerBalance:   cmp.LedgerBalance,
		ExternalBalance: cmp.ExternalBalance,
		Difference:      cmp.Difference,
		Status:          status,
		Note:            in.Note,
		CreatedBy:       in.ActorID,
		CreatedAt:       s.now(),
	})
}

// Get loads one reconciliation record.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	return s.repo.Get(ctx, id)
}

// List returns reconciliation history for an account, newest first.
func (s *Service) List(ctx context.Context, accountCode string) ([]Record, error) {
	return s.repo.List(ctx, accountCode)
}

// AdjustmentInput describes a correcting entry for a discrepancy record.
// Side optionally forces which side of the reconciled account the entry
// hits; when empty it follows the sign of the recorded difference.
type AdjustmentInput struct {
	RecordID    int64
	Amount      float64
	Side        ledger.EntryType
	Description string
	ActorID     int64
}

// CreateAdjustment posts a correcting voucher moving the reconciled account
// toward the external balance, with the offset booked to the adjustment
// account. The amount must be positive and cannot exceed the recorded
// discrepancy. The record moves to ADJUSTED.
func (s *Service) CreateAdjustment(ctx context.Context, in AdjustmentInput) (ledger.Voucher, error) {
	if in.Amount <= 0 {
		return ledger.Voucher{}, fmt.Errorf("%w: adjustment amount must be positive", ledger.ErrValidation)
	}
	rec, err := s.repo.Get(ctx, in.RecordID)
	if err != nil {
		return ledger.Voucher{}, err
	}
	if rec.Status != StatusDiscrepancy {
		return ledger.Voucher{}, fmt.Errorf("%w: reconciliation %d is %s", ledger.ErrInvalidStatus, rec.ID, rec.Status)
	}
	if in.Amount > math.Abs(rec.Difference)+ledger.Epsilon {
		return ledger.Voucher{}, fmt.Errorf("%w: adjustment %.2f exceeds discrepancy %.2f", ledger.ErrValidation, in.Amount, math.Abs(rec.Difference))
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Reconciliation adjustment for account %s as of %s", rec.AccountCode, rec.AsOf.Format("2006-01-02"))
	}

	// Voucher and status flip commit together; a failure after the posting
	// would otherwise leave the record stuck in DISCREPANCY with its source
	// link already taken.
	var voucher ledger.Voucher
	err = s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		account, err := tx.Accounts().GetByCodeForUpdate(ctx, rec.AccountCode)
		if err != nil {
			return err
		}
		// Move the account by the signed difference: a positive difference
		// means the external balance is higher, so the account increases on
		// its normal side.
		accountSide := account.Type.NormalSide()
		if rec.Difference < 0 {
			accountSide = accountSide.Opposite()
		}
		if in.Side == ledger.EntryDebit || in.Side == ledger.EntryCredit {
			accountSide = in.Side
		}
		voucher, err = s.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        s.now(),
			Description: description,
			SourceType:  "reconciliation_adjustment",
			SourceID:    fmt.Sprintf("%d", rec.ID),
			PostedBy:    in.ActorID,
			Lines: []ledger.PostingLineInput{
				{AccountID: account.ID, Type: accountSide, Amount: in.Amount},
				{AccountID: s.adjustmentAccount, Type: accountSide.Opposite(), Amount: in.Amount},
			},
		})
		if err != nil {
			return err
		}
		return s.repo.SetAdjusted(ctx, tx, rec.ID, voucher.ID)
	})
	if err != nil {
		return ledger.Voucher{}, err
	}
	return voucher, nil
}
