// Package purchases records goods receipts from suppliers: stock in at
// actual cost (updating the moving average), input VAT, and the cash /
// payable split, all in one unit of work with the supplier subledger entry.
package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-retail/meridian/internal/ap"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
)

// Service records purchases.
type Service struct {
	uow    ledger.UnitOfWork
	poster *ledger.Service
	ap     *ap.Service
	std    accounts.Standard
	now    func() time.Time
}

// NewService constructs the purchases producer.
func NewService(uow ledger.UnitOfWork, poster *ledger.Service, apService *ap.Service, std accounts.Standard) *Service {
	return &Service{uow: uow, poster: poster, ap: apService, std: std, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PurchaseItem is one received line.
type PurchaseItem struct {
	ProductID int64
	Qty       float64
	UnitCost  float64
}

// PurchaseInput is a supplier delivery with its invoice.
type PurchaseInput struct {
	Date        time.Time
	SupplierID  int64
	Items       []PurchaseItem
	VATRate     float64
	AmountPaid  float64
	Ref         string
	Description string
	ActorID     int64
}

// Purchase is the committed result.
type Purchase struct {
	Voucher   ledger.Voucher
	Subtotal  float64
	VAT       float64
	Total     float64
	Paid      float64
	AmountDue float64
}

// RecordPurchase receives stock and posts the purchase. The unpaid remainder
// lands on the supplier's account.
func (s *Service) RecordPurchase(ctx context.Context, in PurchaseInput) (Purchase, error) {
	if in.SupplierID == 0 {
		return Purchase{}, fmt.Errorf("%w: supplier id required", ledger.ErrValidation)
	}
	if len(in.Items) == 0 {
		return Purchase{}, fmt.Errorf("%w: purchase needs at least one item", ledger.ErrValidation)
	}
	if in.VATRate < 0 || in.VATRate > 1 {
		return Purchase{}, fmt.Errorf("%w: vat rate must be between 0 and 1", ledger.ErrValidation)
	}
	if in.AmountPaid < 0 {
		return Purchase{}, fmt.Errorf("%w: paid amount cannot be negative", ledger.ErrValidation)
	}
	var subtotal float64
	for i, item := range in.Items {
		if item.ProductID == 0 || item.Qty <= 0 || item.UnitCost < 0 {
			return Purchase{}, fmt.Errorf("%w: item %d is malformed", ledger.ErrValidation, i+1)
		}
		subtotal += item.Qty * item.UnitCost
	}
	subtotal = ledger.Round(subtotal)
	vat := ledger.Round(subtotal * in.VATRate)
	total := ledger.Round(subtotal + vat)
	if in.AmountPaid > total+ledger.Epsilon {
		return Purchase{}, fmt.Errorf("%w: paid %.2f exceeds total %.2f", ledger.ErrValidation, in.AmountPaid, total)
	}
	paid := ledger.Round(in.AmountPaid)
	due := ledger.Round(total - paid)
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	ref := in.Ref
	if ref == "" {
		ref = uuid.NewString()
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Purchase %s from supplier %d", ref, in.SupplierID)
	}

	purchase := Purchase{Subtotal: subtotal, VAT: vat, Total: total, Paid: paid, AmountDue: due}
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		for _, item := range in.Items {
			if _, err := tx.Stock().Apply(ctx, ledger.StockMove{
				ProductID: item.ProductID,
				Direction: ledger.StockIn,
				Qty:       item.Qty,
				UnitCost:  item.UnitCost,
				Ref:       ref,
			}); err != nil {
				return err
			}
		}

		lines := make([]ledger.PostingLineInput, 0, 4)
		lines = append(lines, ledger.PostingLineInput{AccountID: s.std.Inventory, Type: ledger.EntryDebit, Amount: subtotal})
		if vat > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: s.std.InputVAT, Type: ledger.EntryDebit, Amount: vat})
		}
		if paid > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: s.std.Cash, Type: ledger.EntryCredit, Amount: paid})
		}
		if due > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: s.std.AccountsPayable, Type: ledger.EntryCredit, Amount: due})
		}

		voucher, err := s.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        in.Date,
			Description: description,
			SourceType:  "purchase",
			SourceID:    ref,
			PostedBy:    in.ActorID,
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		purchase.Voucher = voucher

		if due > 0 {
			return s.ap.InvoiceTx(ctx, tx, in.SupplierID, due, in.Date, voucher.ID, ref, description)
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}
