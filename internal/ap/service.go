// Package ap maintains the supplier subledger. It mirrors the customer side:
// supplier invoices raise the payable balance, payments settle it, and every
// subledger write shares a unit of work with its GL posting.
package ap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/shared"
)

// Service handles accounts-payable business logic.
type Service struct {
	uow            ledger.UnitOfWork
	poster         *ledger.Service
	reader         ledger.SubledgerReader
	cashAccount    int64
	controlAccount int64
	now            func() time.Time
}

// NewService constructs the AP service. controlAccount is the GL accounts
// payable control account.
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

// InvoiceTx appends a supplier invoice entry and raises the supplier balance
// inside the caller's transaction. Purchase producers call it alongside the
// GL posting.
func (s *Service) InvoiceTx(ctx context.Context, tx ledger.Tx, supplierID int64, amount float64, day time.Time, voucherID int64, ref, description string) error {
	if supplierID == 0 {
		return fmt.Errorf("%w: supplier id required", ledger.ErrValidation)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: invoice amount must be positive", ledger.ErrValidation)
	}
	if _, err := tx.Subledger().Append(ctx, ledger.SubledgerEntry{
		PartyKind:   ledger.PartySupplier,
		PartyID:     supplierID,
		Kind:        ledger.SubledgerInvoice,
		Amount:      ledger.Round(amount),
		Date:        day,
		VoucherID:   voucherID,
		Ref:         ref,
		Description: description,
	}); err != nil {
		return err
	}
	return tx.Subledger().ApplyPartyBalance(ctx, ledger.PartySupplier, supplierID, amount)
}

// PaymentInput captures a payment made to a supplier.
type PaymentInput struct {
	SupplierID  int64
	Amount      float64
	Date        time.Time
	Description string
	ActorID     int64
}

// RecordPayment posts the GL movement (debit the AP control account, credit
// cash), appends the payment entry and decrements the supplier balance in one
// unit of work. Paying more than is owed is rejected.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (ledger.Voucher, error) {
	if in.SupplierID == 0 {
		return ledger.Voucher{}, fmt.Errorf("%w: supplier id required", ledger.ErrValidation)
	}
	if in.Amount <= 0 {
		return ledger.Voucher{}, fmt.Errorf("%w: payment amount must be positive", ledger.ErrValidation)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Supplier %d payment", in.SupplierID)
	}
	var voucher ledger.Voucher
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		balance, err := tx.Subledger().PartyBalanceForUpdate(ctx, ledger.PartySupplier, in.SupplierID)
		if err != nil {
			return err
		}
		if in.Amount > balance+ledger.Epsilon {
			return fmt.Errorf("%w: payment %.2f exceeds amount owed %.2f", ledger.ErrValidation, in.Amount, balance)
		}
		voucher, err = s.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        in.Date,
			Description: description,
			SourceType:  "supplier_payment",
			SourceID:    uuid.NewString(),
			PostedBy:    in.ActorID,
			Lines: []ledger.PostingLineInput{
				{AccountID: s.controlAccount, Type: ledger.EntryDebit, Amount: in.Amount},
				{AccountID: s.cashAccount, Type: ledger.EntryCredit, Amount: in.Amount},
			},
		})
		if err != nil {
			return err
		}
		if _, err := tx.Subledger().Append(ctx, ledger.SubledgerEntry{
			PartyKind:   ledger.PartySupplier,
			PartyID:     in.SupplierID,
			Kind:        ledger.SubledgerPayment,
			Amount:      -ledger.Round(in.Amount),
			Date:        in.Date,
			VoucherID:   voucher.ID,
			Description: description,
		}); err != nil {
			return err
		}
		return tx.Subledger().ApplyPartyBalance(ctx, ledger.PartySupplier, in.SupplierID, -in.Amount)
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

// LedgerView is a paginated supplier statement.
type LedgerView struct {
	SupplierID int64
	Rows       []LedgerRow
	Balance    float64
	Aging      ledger.AgingBuckets
	Pagination shared.Pagination
}

// GetLedger returns the supplier's transactions oldest first with a running
// balance column.
func (s *Service) GetLedger(ctx context.Context, supplierID int64, page, perPage int) (LedgerView, error) {
	if supplierID == 0 {
		return LedgerView{}, fmt.Errorf("%w: supplier id required", ledger.ErrValidation)
	}
	entries, err := s.reader.SubledgerEntries(ctx, ledger.PartySupplier, supplierID)
	if err != nil {
		return LedgerView{}, err
	}
	balance, err := s.reader.PartyBalance(ctx, ledger.PartySupplier, supplierID)
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
		SupplierID: supplierID,
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

// Aging buckets the supplier's unpaid invoices as of the given day.
func (s *Service) Aging(ctx context.Context, supplierID int64, asOf time.Time) (ledger.AgingBuckets, error) {
	entries, err := s.reader.SubledgerEntries(ctx, ledger.PartySupplier, supplierID)
	if err != nil {
		return ledger.AgingBuckets{}, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	return ledger.AgeEntries(entries, asOf), nil
}
