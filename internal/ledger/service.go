package ledger

import (
	"context"
	"fmt"
	"time"
)

// Service is the ledger posting engine. Every business event goes through
// Post or PostTx; nothing else writes vouchers.
type Service struct {
	uow UnitOfWork
	now func() time.Time
}

// NewService constructs the posting service.
func NewService(uow UnitOfWork) *Service {
	return &Service{uow: uow, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post validates and commits a voucher in its own unit of work.
func (s *Service) Post(ctx context.Context, in PostingInput) (Voucher, error) {
	if err := in.Validate(); err != nil {
		return Voucher{}, err
	}
	var voucher Voucher
	err := s.uow.Run(ctx, func(ctx context.Context, tx Tx) error {
		var e error
		voucher, e = s.PostTx(ctx, tx, in)
		return e
	})
	if err != nil {
		return Voucher{}, err
	}
	return voucher, nil
}

// PostTx posts a voucher inside the caller's transaction. Producers compose
// it with subledger and stock writes so the whole event commits atomically.
func (s *Service) PostTx(ctx context.Context, tx Tx, in PostingInput) (Voucher, error) {
	if err := in.Validate(); err != nil {
		return Voucher{}, err
	}
	period, err := tx.Periods().GetForUpdateByDate(ctx, in.Date)
	if err != nil {
		return Voucher{}, err
	}
	if period.Status != PeriodStatusOpen && !in.Closing {
		return Voucher{}, fmt.Errorf("%w: period %s is %s", ErrPeriodClosed, period.Name, period.Status)
	}

	number, err := tx.Vouchers().NextNumber(ctx)
	if err != nil {
		return Voucher{}, err
	}
	voucher, err := tx.Vouchers().Insert(ctx, Voucher{
		Number:      number,
		Date:        in.Date,
		Description: in.Description,
		SourceType:  in.SourceType,
		SourceID:    in.SourceID,
		PostedBy:    in.PostedBy,
		Status:      VoucherStatusPosted,
		PostedAt:    s.now(),
	})
	if err != nil {
		return Voucher{}, err
	}

	lines := make([]VoucherLine, 0, len(in.Lines))
	for _, line := range in.Lines {
		account, err := tx.Accounts().GetForUpdate(ctx, line.AccountID)
		if err != nil {
			return Voucher{}, err
		}
		if !account.IsActive {
			return Voucher{}, fmt.Errorf("%w: %s", ErrAccountInactive, account.Code)
		}
		delta := line.Amount
		if line.Type != account.Type.NormalSide() {
			delta = -delta
		}
		if err := tx.Accounts().ApplyBalance(ctx, account.ID, delta); err != nil {
			return Voucher{}, err
		}
		lines = append(lines, VoucherLine{
			AccountID:   line.AccountID,
			Type:        line.Type,
			Amount:      Round(line.Amount),
			Description: line.Description,
		})
	}
	voucher.Lines, err = tx.Vouchers().InsertLines(ctx, voucher.ID, lines)
	if err != nil {
		return Voucher{}, err
	}
	if in.SourceType != "" && in.SourceID != "" {
		if err := tx.Vouchers().LinkSource(ctx, in.SourceType, in.SourceID, voucher.ID); err != nil {
			return Voucher{}, err
		}
	}
	return voucher, nil
}

// Reverse posts a new voucher with every line's side flipped, referencing the
// original. The original is marked reversed but kept; the ledger stays
// append-only. When the original's period is no longer open, the reversal
// lands on the first day of the next open period.
func (s *Service) Reverse(ctx context.Context, voucherID, actorID int64, memo string) (Voucher, error) {
	if voucherID == 0 || actorID == 0 {
		return Voucher{}, fmt.Errorf("%w: voucher id and actor required", ErrValidation)
	}
	var reversal Voucher
	err := s.uow.Run(ctx, func(ctx context.Context, tx Tx) error {
		original, err := tx.Vouchers().GetWithLines(ctx, voucherID)
		if err != nil {
			return err
		}
		if original.Status != VoucherStatusPosted {
			return fmt.Errorf("%w: voucher %s is %s", ErrInvalidStatus, original.Number, original.Status)
		}
		period, err := tx.Periods().GetForUpdateByDate(ctx, original.Date)
		if err != nil {
			return err
		}
		targetDate := original.Date
		if period.Status != PeriodStatusOpen {
			next, err := tx.Periods().NextOpenAfter(ctx, period.EndDate.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			targetDate = next.StartDate
		}
		posting := PostingInput{
			Date:        targetDate,
			Description: reversalMemo(memo, original.Number),
			SourceType:  "voucher_reversal",
			SourceID:    fmt.Sprintf("%d", original.ID),
			PostedBy:    actorID,
			Lines:       flipLines(original.Lines),
		}
		reversal, err = s.PostTx(ctx, tx, posting)
		if err != nil {
			return err
		}
		if err := tx.Vouchers().MarkReversed(ctx, original.ID, reversal.ID); err != nil {
			return err
		}
		originalID := original.ID
		reversal.ReversalOf = &originalID
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	return reversal, nil
}

// Get loads one voucher with its lines.
func (s *Service) Get(ctx context.Context, voucherID int64) (Voucher, error) {
	var voucher Voucher
	err := s.uow.Run(ctx, func(ctx context.Context, tx Tx) error {
		var e error
		voucher, e = tx.Vouchers().GetWithLines(ctx, voucherID)
		return e
	})
	if err != nil {
		return Voucher{}, err
	}
	return voucher, nil
}

func flipLines(lines []VoucherLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID:   line.AccountID,
			Type:        line.Type.Opposite(),
			Amount:      line.Amount,
			Description: line.Description,
		})
	}
	return out
}

func reversalMemo(memo, number string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", number)
}
