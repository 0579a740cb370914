// Package inventory tracks on-hand stock at moving-average cost and posts
// the GL side of manual stock adjustments. Sales and purchases move stock
// through their own producers; this package covers counts and shrinkage.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// StockReader is the query port for current stock balances.
type StockReader interface {
	StockBalances(ctx context.Context) ([]ledger.StockBalance, error)
	ProductStock(ctx context.Context, productID int64) (ledger.StockBalance, error)
}

// Service handles stock queries and adjustments.
type Service struct {
	uow              ledger.UnitOfWork
	poster           *ledger.Service
	reader           StockReader
	inventoryAccount int64
	shrinkageAccount int64
	now              func() time.Time
}

// NewService constructs the inventory service. shrinkageAccount takes the
// expense side of write-downs and the gain side of count surpluses.
func NewService(uow ledger.UnitOfWork, poster *ledger.Service, reader StockReader, inventoryAccount, shrinkageAccount int64) *Service {
	return &Service{
		uow:              uow,
		poster:           poster,
		reader:           reader,
		inventoryAccount: inventoryAccount,
		shrinkageAccount: shrinkageAccount,
		now:              time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns every product's on-hand balance.
func (s *Service) List(ctx context.Context) ([]ledger.StockBalance, error) {
	return s.reader.StockBalances(ctx)
}

// Get returns one product's balance. Unknown products report zero on hand.
func (s *Service) Get(ctx context.Context, productID int64) (ledger.StockBalance, error) {
	return s.reader.ProductStock(ctx, productID)
}

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	ProductID int64
	Direction ledger.StockDirection
	Qty       float64
	// UnitCost applies to inbound adjustments; outbound consumes the
	// moving average.
	UnitCost float64
	Reason   string
	ActorID  int64
	Date     time.Time
}

// Adjustment is the committed result.
type Adjustment struct {
	Voucher ledger.Voucher
	Balance ledger.StockBalance
}

// Adjust applies a quantity correction and posts its GL value in one unit of
// work. Inbound adjustments debit inventory at the supplied unit cost;
// outbound adjustments credit inventory at moving-average cost with the
// offset booked to the shrinkage account.
func (s *Service) Adjust(ctx context.Context, in AdjustmentInput) (Adjustment, error) {
	if in.ProductID == 0 {
		return Adjustment{}, fmt.Errorf("%w: product id required", ledger.ErrValidation)
	}
	if in.Qty <= 0 {
		return Adjustment{}, fmt.Errorf("%w: quantity must be positive", ledger.ErrValidation)
	}
	if in.Direction == ledger.StockIn && in.UnitCost <= 0 {
		return Adjustment{}, fmt.Errorf("%w: inbound adjustments need a unit cost", ledger.ErrValidation)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	reason := in.Reason
	if reason == "" {
		reason = fmt.Sprintf("Stock adjustment for product %d", in.ProductID)
	}

	var out Adjustment
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		unitCost := in.UnitCost
		if in.Direction == ledger.StockOut {
			current, err := tx.Stock().BalanceForUpdate(ctx, in.ProductID)
			if err != nil {
				return err
			}
			unitCost = current.AvgCost
		}
		balance, err := tx.Stock().Apply(ctx, ledger.StockMove{
			ProductID: in.ProductID,
			Direction: in.Direction,
			Qty:       in.Qty,
			UnitCost:  unitCost,
			Ref:       reason,
		})
		if err != nil {
			return err
		}
		out.Balance = balance

		value := ledger.Round(in.Qty * unitCost)
		if value == 0 {
			// Zero-cost stock moves quantity without a GL entry.
			return nil
		}
		inventorySide := ledger.EntryDebit
		if in.Direction == ledger.StockOut {
			inventorySide = ledger.EntryCredit
		}
		out.Voucher, err = s.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        in.Date,
			Description: reason,
			SourceType:  "stock_adjustment",
			SourceID:    uuid.NewString(),
			PostedBy:    in.ActorID,
			Lines: []ledger.PostingLineInput{
				{AccountID: s.inventoryAccount, Type: inventorySide, Amount: value},
				{AccountID: s.shrinkageAccount, Type: inventorySide.Opposite(), Amount: value},
			},
		})
		return err
	})
	if err != nil {
		return Adjustment{}, err
	}
	return out, nil
}
