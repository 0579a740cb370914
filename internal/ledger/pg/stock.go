package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-retail/meridian/internal/ledger"
)

type stockStore struct {
	tx pgx.Tx
}

// lockBalance ensures a balance row exists and locks it. New products get a
// zero row so the first inbound move has a row to serialize on.
func (s *stockStore) lockBalance(ctx context.Context, productID int64) (ledger.StockBalance, error) {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO stock_balances (product_id, qty, avg_cost) VALUES ($1, 0, 0)
		 ON CONFLICT (product_id) DO NOTHING`, productID)
	if err != nil {
		return ledger.StockBalance{}, err
	}
	var b ledger.StockBalance
	err = s.tx.QueryRow(ctx,
		`SELECT product_id, qty, avg_cost, updated_at FROM stock_balances WHERE product_id = $1 FOR UPDATE`,
		productID).Scan(&b.ProductID, &b.Qty, &b.AvgCost, &b.UpdatedAt)
	return b, err
}

func (s *stockStore) BalanceForUpdate(ctx context.Context, productID int64) (ledger.StockBalance, error) {
	return s.lockBalance(ctx, productID)
}

func (s *stockStore) Apply(ctx context.Context, move ledger.StockMove) (ledger.StockBalance, error) {
	b, err := s.lockBalance(ctx, move.ProductID)
	if err != nil {
		return ledger.StockBalance{}, err
	}
	switch move.Direction {
	case ledger.StockIn:
		total := b.Qty*b.AvgCost + move.Qty*move.UnitCost
		b.Qty += move.Qty
		if b.Qty > 0 {
			b.AvgCost = total / b.Qty
		}
	case ledger.StockOut:
		if move.Qty > b.Qty {
			return ledger.StockBalance{}, fmt.Errorf("%w: product %d has %.2f, need %.2f",
				ledger.ErrInsufficientStock, move.ProductID, b.Qty, move.Qty)
		}
		b.Qty -= move.Qty
	default:
		return ledger.StockBalance{}, fmt.Errorf("%w: direction %q", ledger.ErrValidation, move.Direction)
	}
	b.UpdatedAt = time.Now()
	_, err = s.tx.Exec(ctx,
		`UPDATE stock_balances SET qty = $2, avg_cost = $3, updated_at = $4 WHERE product_id = $1`,
		b.ProductID, b.Qty, b.AvgCost, b.UpdatedAt)
	if err != nil {
		return ledger.StockBalance{}, err
	}
	return b, nil
}
