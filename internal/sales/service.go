// Package sales turns till transactions into balanced GL postings with the
// matching stock and receivable effects. One sale commits as a single unit
// of work: stock out at moving-average cost, revenue/VAT/discount lines,
// cash and on-account splits, and the AR invoice entry when part of the
// total is due.
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-retail/meridian/internal/ar"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
)

// Service records sales.
type Service struct {
	uow    ledger.UnitOfWork
	poster *ledger.Service
	ar     *ar.Service
	std    accounts.Standard
	now    func() time.Time
}

// NewService constructs the sales producer.
func NewService(uow ledger.UnitOfWork, poster *ledger.Service, arService *ar.Service, std accounts.Standard) *Service {
	return &Service{uow: uow, poster: poster, ar: arService, std: std, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SaleItem is one till line.
type SaleItem struct {
	ProductID int64
	Qty       float64
	UnitPrice float64
}

// SaleInput is a completed till transaction. AmountPaid below the total
// requires a customer to carry the remainder on account.
type SaleInput struct {
	Date        time.Time
	CustomerID  int64
	Items       []SaleItem
	Discount    float64
	VATRate     float64
	AmountPaid  float64
	Ref         string
	Description string
	ActorID     int64
}

// Sale is the committed result.
type Sale struct {
	Voucher   ledger.Voucher
	Subtotal  float64
	Discount  float64
	VAT       float64
	Total     float64
	Paid      float64
	AmountDue float64
	COGS      float64
}

// RecordSale validates, totals and commits the sale.
//
// VAT applies to the discounted subtotal. Stock moves out first so an
// insufficient balance aborts before any GL line exists.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (Sale, error) {
	if len(in.Items) == 0 {
		return Sale{}, fmt.Errorf("%w: sale needs at least one item", ledger.ErrValidation)
	}
	if in.VATRate < 0 || in.VATRate > 1 {
		return Sale{}, fmt.Errorf("%w: vat rate must be between 0 and 1", ledger.ErrValidation)
	}
	if in.Discount < 0 || in.AmountPaid < 0 {
		return Sale{}, fmt.Errorf("%w: discount and paid amounts cannot be negative", ledger.ErrValidation)
	}
	var subtotal float64
	for i, item := range in.Items {
		if item.ProductID == 0 || item.Qty <= 0 || item.UnitPrice < 0 {
			return Sale{}, fmt.Errorf("%w: item %d is malformed", ledger.ErrValidation, i+1)
		}
		subtotal += item.Qty * item.UnitPrice
	}
	subtotal = ledger.Round(subtotal)
	if in.Discount > subtotal {
		return Sale{}, fmt.Errorf("%w: discount %.2f exceeds subtotal %.2f", ledger.ErrValidation, in.Discount, subtotal)
	}
	discounted := ledger.Round(subtotal - in.Discount)
	vat := ledger.Round(discounted * in.VATRate)
	total := ledger.Round(discounted + vat)
	if in.AmountPaid > total+ledger.Epsilon {
		return Sale{}, fmt.Errorf("%w: paid %.2f exceeds total %.2f", ledger.ErrValidation, in.AmountPaid, total)
	}
	paid := ledger.Round(in.AmountPaid)
	due := ledger.Round(total - paid)
	if due > ledger.Epsilon && in.CustomerID == 0 {
		return Sale{}, fmt.Errorf("%w: on-account sales need a customer", ledger.ErrValidation)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	ref := in.Ref
	if ref == "" {
		ref = uuid.NewString()
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Sale %s", ref)
	}

	sale := Sale{Subtotal: subtotal, Discount: ledger.Round(in.Discount), VAT: vat, Total: total, Paid: paid, AmountDue: due}
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var cogs float64
		for _, item := range in.Items {
			balance, err := tx.Stock().BalanceForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if _, err := tx.Stock().Apply(ctx, ledger.StockMove{
				ProductID: item.ProductID,
				Direction: ledger.StockOut,
				Qty:       item.Qty,
				Ref:       ref,
			}); err != nil {
				return err
			}
			cogs += item.Qty * balance.AvgCost
		}
		cogs = ledger.Round(cogs)
		sale.COGS = cogs

		lines := make([]ledger.PostingLineInput, 0, 7)
		if paid > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: s.std.Cash, Type: ledger.EntryDebit, Amount: paid})
		}
		if due > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: s.std.AccountsReceivable, Type: ledger.EntryDebit, Amount: due})
		}
		if sale.Discount > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: s.std.SalesDiscount, Type: ledger.EntryDebit, Amount: sale.Discount})
		}
		lines = append(lines, ledger.PostingLineInput{AccountID: s.std.SalesRevenue, Type: ledger.EntryCredit, Amount: subtotal})
		if vat > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: s.std.OutputVAT, Type: ledger.EntryCredit, Amount: vat})
		}
		if cogs > 0 {
			lines = append(lines,
				ledger.PostingLineInput{AccountID: s.std.CostOfGoodsSold, Type: ledger.EntryDebit, Amount: cogs},
				ledger.PostingLineInput{AccountID: s.std.Inventory, Type: ledger.EntryCredit, Amount: cogs})
		}

		voucher, err := s.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        in.Date,
			Description: description,
			SourceType:  "sale",
			SourceID:    ref,
			PostedBy:    in.ActorID,
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		sale.Voucher = voucher

		if due > 0 {
			return s.ar.InvoiceTx(ctx, tx, in.CustomerID, due, in.Date, voucher.ID, ref, description)
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}
