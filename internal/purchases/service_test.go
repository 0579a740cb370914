package purchases_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/ap"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
	"github.com/meridian-retail/meridian/internal/ledger/ledgertest"
	"github.com/meridian-retail/meridian/internal/purchases"
)

type fixture struct {
	mem     *ledgertest.Store
	service *purchases.Service
	std     accounts.Standard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledgertest.NewStore()
	std := accounts.Standard{
		Cash:            mem.AddAccount("1000", "Cash", ledger.AccountTypeAsset).ID,
		Inventory:       mem.AddAccount("1200", "Inventory", ledger.AccountTypeAsset).ID,
		InputVAT:        mem.AddAccount("1300", "Input VAT", ledger.AccountTypeAsset).ID,
		AccountsPayable: mem.AddAccount("2000", "Accounts Payable", ledger.AccountTypeLiability).ID,
	}
	mem.AddPeriod("2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), ledger.PeriodStatusOpen)

	poster := ledger.NewService(mem)
	apService := ap.NewService(mem, poster, mem, std.Cash, std.AccountsPayable)
	svc := purchases.NewService(mem, poster, apService, std)
	svc.WithNow(func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) })
	return &fixture{mem: mem, service: svc, std: std}
}

func TestRecordPurchaseOnAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(5, 10, 2.00)

	purchase, err := f.service.RecordPurchase(ctx, purchases.PurchaseInput{
		SupplierID: 12,
		Items:      []purchases.PurchaseItem{{ProductID: 5, Qty: 10, UnitCost: 3.00}},
		VATRate:    0.15,
		ActorID:    3,
	})
	require.NoError(t, err)
	require.InDelta(t, 30.00, purchase.Subtotal, 0.001)
	require.InDelta(t, 4.50, purchase.VAT, 0.001)
	require.InDelta(t, 34.50, purchase.AmountDue, 0.001)

	// Moving average: (10*2 + 10*3) / 20.
	stock := f.mem.StockBalance(5)
	require.InDelta(t, 20.0, stock.Qty, 0.001)
	require.InDelta(t, 2.50, stock.AvgCost, 0.001)

	require.InDelta(t, 30.00, f.mem.Account(f.std.Inventory).Balance, 0.001)
	require.InDelta(t, 4.50, f.mem.Account(f.std.InputVAT).Balance, 0.001)
	require.InDelta(t, 34.50, f.mem.Account(f.std.AccountsPayable).Balance, 0.001)

	balance, err := f.mem.PartyBalance(ctx, ledger.PartySupplier, 12)
	require.NoError(t, err)
	require.InDelta(t, 34.50, balance, 0.001)

	entries, err := f.mem.SubledgerEntries(ctx, ledger.PartySupplier, 12)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.SubledgerInvoice, entries[0].Kind)
	require.Equal(t, purchase.Voucher.ID, entries[0].VoucherID)
}

func TestRecordPurchasePaidInFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	purchase, err := f.service.RecordPurchase(ctx, purchases.PurchaseInput{
		SupplierID: 12,
		Items:      []purchases.PurchaseItem{{ProductID: 5, Qty: 4, UnitCost: 5.00}},
		AmountPaid: 20.00,
		ActorID:    3,
	})
	require.NoError(t, err)
	require.Zero(t, purchase.AmountDue)

	require.InDelta(t, -20.00, f.mem.Account(f.std.Cash).Balance, 0.001)
	require.InDelta(t, 0.0, f.mem.Account(f.std.AccountsPayable).Balance, 0.001)

	// No payable, no subledger entry.
	entries, err := f.mem.SubledgerEntries(ctx, ledger.PartySupplier, 12)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRecordPurchaseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.RecordPurchase(ctx, purchases.PurchaseInput{
		Items: []purchases.PurchaseItem{{ProductID: 5, Qty: 1, UnitCost: 1}},
	})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.RecordPurchase(ctx, purchases.PurchaseInput{SupplierID: 12})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.RecordPurchase(ctx, purchases.PurchaseInput{
		SupplierID: 12,
		Items:      []purchases.PurchaseItem{{ProductID: 5, Qty: 1, UnitCost: 10}},
		AmountPaid: 11.00,
	})
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestDuplicateRefRollsBackStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := purchases.PurchaseInput{
		SupplierID: 12,
		Items:      []purchases.PurchaseItem{{ProductID: 5, Qty: 2, UnitCost: 4.00}},
		AmountPaid: 8.00,
		Ref:        "GRN-0001",
		ActorID:    3,
	}
	_, err := f.service.RecordPurchase(ctx, in)
	require.NoError(t, err)

	_, err = f.service.RecordPurchase(ctx, in)
	require.ErrorIs(t, err, ledger.ErrSourceAlreadyLinked)
	require.InDelta(t, 2.0, f.mem.StockBalance(5).Qty, 0.001)
	require.Len(t, f.mem.AllVouchers(), 1)
}
