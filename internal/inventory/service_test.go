package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/inventory"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/ledgertest"
)

type fixture struct {
	mem       *ledgertest.Store
	service   *inventory.Service
	stockAcct ledger.Account
	shrinkage ledger.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledgertest.NewStore()
	stockAcct := mem.AddAccount("1200", "Inventory", ledger.AccountTypeAsset)
	shrinkage := mem.AddAccount("5900", "Inventory Shrinkage", ledger.AccountTypeExpense)
	mem.AddPeriod("2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), ledger.PeriodStatusOpen)

	poster := ledger.NewService(mem)
	svc := inventory.NewService(mem, poster, mem, stockAcct.ID, shrinkage.ID)
	svc.WithNow(func() time.Time { return time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC) })
	return &fixture{mem: mem, service: svc, stockAcct: stockAcct, shrinkage: shrinkage}
}

func TestAdjustInboundRaisesStockAndMovingAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(9, 10, 2.00)

	adj, err := f.service.Adjust(ctx, inventory.AdjustmentInput{
		ProductID: 9,
		Direction: ledger.StockIn,
		Qty:       10,
		UnitCost:  3.00,
		ActorID:   3,
	})
	require.NoError(t, err)
	require.InDelta(t, 20.0, adj.Balance.Qty, 0.001)
	require.InDelta(t, 2.50, adj.Balance.AvgCost, 0.001)

	// 10 units at 3.00 added to the inventory account.
	require.InDelta(t, 30.0, f.mem.Account(f.stockAcct.ID).Balance, 0.001)
	require.InDelta(t, -30.0, f.mem.Account(f.shrinkage.ID).Balance, 0.001)
	require.Len(t, adj.Voucher.Lines, 2)
}

func TestAdjustOutboundWritesOffAtMovingAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(9, 10, 2.50)

	adj, err := f.service.Adjust(ctx, inventory.AdjustmentInput{
		ProductID: 9,
		Direction: ledger.StockOut,
		Qty:       4,
		Reason:    "Cycle count shortfall",
		ActorID:   3,
	})
	require.NoError(t, err)
	require.InDelta(t, 6.0, adj.Balance.Qty, 0.001)

	// 4 units at avg 2.50 leave inventory and land in shrinkage.
	require.InDelta(t, -10.0, f.mem.Account(f.stockAcct.ID).Balance, 0.001)
	require.InDelta(t, 10.0, f.mem.Account(f.shrinkage.ID).Balance, 0.001)
}

func TestAdjustOutboundRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(9, 3, 2.50)

	_, err := f.service.Adjust(ctx, inventory.AdjustmentInput{
		ProductID: 9,
		Direction: ledger.StockOut,
		Qty:       5,
		ActorID:   3,
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	// Nothing moved.
	require.InDelta(t, 3.0, f.mem.StockBalance(9).Qty, 0.001)
	require.InDelta(t, 0.0, f.mem.Account(f.stockAcct.ID).Balance, 0.001)
	require.Empty(t, f.mem.AllVouchers())
}

func TestAdjustValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Adjust(ctx, inventory.AdjustmentInput{Direction: ledger.StockIn, Qty: 1, UnitCost: 1})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.Adjust(ctx, inventory.AdjustmentInput{ProductID: 9, Direction: ledger.StockIn, Qty: 0, UnitCost: 1})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.Adjust(ctx, inventory.AdjustmentInput{ProductID: 9, Direction: ledger.StockIn, Qty: 1})
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(1, 5, 1.00)
	f.mem.SetStock(2, 8, 3.00)

	balances, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	require.Equal(t, int64(1), balances[0].ProductID)

	one, err := f.service.Get(ctx, 2)
	require.NoError(t, err)
	require.InDelta(t, 8.0, one.Qty, 0.001)

	missing, err := f.service.Get(ctx, 99)
	require.NoError(t, err)
	require.Zero(t, missing.Qty)
}
