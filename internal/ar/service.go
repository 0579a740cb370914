// Package ar maintains the customer subledger: invoice and payment entries,
// the denormalized customer balance, ledger views with running balances, and
// receivable aging. Subledger writes always ride inside the same unit of work
// as the GL posting they mirror.
package ar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/shared"
)

// Service handles accounts-receivable business logic.
type Service struct {
	uow            ledger.UnitOfWork
	poster         *ledger.Service
	reader         ledger.SubledgerReader
	cashAccount    int64
	controlAccount int64
	now            func() time.Time
}

// NewService constructs the AR service. controlAccount is the GL accounts
// receivable control account the subledger reconciles to.
func NewService(uow ledger.UnitOfWork, poster *ledger.Service, reader ledger.SubledgerReader, cashAccount, controlAccount int64) *Service {
	return &Service{
		uow:            uow,
		poster:         poster,
		reader:         reader,
		cashAccount:    cashAccount,
		controlAccount: controlAccount,
		now:            time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// InvoiceTx appends an invoice entry and bumps the customer balance inside
// the caller's transaction. Producers call it right after posting the GL
// side so both commit or neither does.
func (s *Service) InvoiceTx(ctx context.Context, tx ledger.Tx, customerID int64, amount float64, day time.Time, voucherID int64, ref, description string) error {
	if customerID == 0 {
		return fmt.Errorf("%w: customer id required", ledger.ErrValidation)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: invoice amount must be positive", ledger.ErrValidation)
	}
	if _, err := tx.Subledger().Append(ctx, ledger.SubledgerEntry{
		PartyKind:   ledger.PartyCustomer,
		PartyID:     customerID,
		Kind:        ledger.SubledgerInvoice,
		Amount:      ledger.Round(amount),
		Date:        day,
		VoucherID:   voucherID,
		Ref:         ref,
		Description: description,
	}); err != nil {
		return err
	}
	return tx.Subledger().ApplyPartyBalance(ctx, ledger.PartyCustomer, customerID, amount)
}

// PaymentInput captures a customer payment.
type PaymentInput struct {
	CustomerID  int64
	Amount      float64
	Date        time.Time
	Description string
	ActorID     int64
}

// RecordPayment posts the GL movement (debit cash, credit the AR control
// account), appends the payment entry and decrements the customer balance in
// one unit of work. Payments above the outstanding balance are rejected.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (ledger.Voucher, error) {
	if in.CustomerID == 0 {
		return ledger.Voucher{}, fmt.Errorf("%w: customer id required", ledger.ErrValidation)
	}
	if in.Amount <= 0 {
		return ledger.Voucher{}, fmt.Errorf("%w: payment amount must be positive", ledger.ErrValidation)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Customer %d payment", in.CustomerID)
	}
	var voucher ledger.Voucher
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		balance, err := tx.Subledger().PartyBalanceForUpdate(ctx, ledger.PartyCustomer, in.CustomerID)
		if err != nil {
			return err
		}
		if in.Amount > balance+ledger.Epsilon {
			return fmt.Errorf("%w: payment %.2f exceeds outstanding balance %.2f", ledger.ErrValidation, in.Amount, balance)
		}
		voucher, err = s.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        in.Date,
			Description: description,
			SourceType:  "customer_payment",
			SourceID:    uuid.NewString(),
			PostedBy:    in.ActorID,
			Lines: []ledger.PostingLineInput{
				{AccountID: s.cashAccount, Type: ledger.EntryDebit, Amount: in.Amount},
				{AccountID: s.controlAccount, Type: ledger.EntryCredit, Amount: in.Amount},
			},
		})
		if err != nil {
			return err
		}
		if _, err := tx.Subledger().Append(ctx, ledger.SubledgerEntry{
			PartyKind:   ledger.PartyCustomer,
			PartyID:     in.CustomerID,
			Kind:        ledger.SubledgerPayment,
			Amount:      -ledger.Round(in.Amount),
			Date:        in.Date,
			VoucherID:   voucher.ID,
			Description: description,
		}); err != nil {
			return err
		}
		return tx.Subledger().ApplyPartyBalance(ctx, ledger.PartyCustomer, in.CustomerID, -in.Amount)
	})
	if err != nil {
		return ledger.Voucher{}, err
	}
	return voucher, nil
}

// LedgerRow is one subledger entry with the running balance after it.
type LedgerRow struct {
	Entry          ledger.SubledgerEntry
	RunningBalance float64
}

// LedgerView is a paginated customer statement. Balance is the denormalized
// customer balance and always equals the final row's running balance.
type LedgerView struct {
	CustomerID int64
	Rows       []LedgerRow
	Balance    float64
	Aging      ledger.AgingBuckets
	Pagination shared.Pagination
}

// GetLedger returns the customer's transactions oldest first with a running
// balance column, plus aging buckets as of now.
func (s *Service) GetLedger(ctx context.Context, customerID int64, page, perPage int) (LedgerView, error) {
	if customerID == 0 {
		return LedgerView{}, fmt.Errorf("%w: customer id required", ledger.ErrValidation)
	}
	entries, err := s.reader.SubledgerEntries(ctx, ledger.PartyCustomer, customerID)
	if err != nil {
		return LedgerView{}, err
	}
	balance, err := s.reader.PartyBalance(ctx, ledger.PartyCustomer, customerID)
	if err != nil {
		return LedgerView{}, err
	}

	rows := make([]LedgerRow, 0, len(entries))
	var running float64
	for _, e := range entries {
		running = ledger.Round(running + e.Amount)
		rows = append(rows, LedgerRow{Entry: e, RunningBalance: running})
	}

	view := LedgerView{
		CustomerID: customerID,
		Balance:    balance,
		Aging:      ledger.AgeEntries(entries, s.now()),
		Pagination: shared.NewPagination(page, perPage, len(rows)),
	}
	start := view.Pagination.Offset()
	if start < len(rows) {
		end := start + view.Pagination.PerPage
		if end > len(rows) {
			end = len(rows)
		}
		view.Rows = rows[start:end]
	}
	return view, nil
}

// Aging buckets the customer's outstanding invoices as of the given day.
func (s *Service) Aging(ctx context.Context, customerID int64, asOf time.Time) (ledger.AgingBuckets, error) {
	entries, err := s.reader.SubledgerEntries(ctx, ledger.PartyCustomer, customerID)
	if err != nil {
		return ledger.AgingBuckets{}, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	return ledger.AgeEntries(entries, asOf), nil
}
