package sales_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/ar"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
	"github.com/meridian-retail/meridian/internal/ledger/ledgertest"
	"github.com/meridian-retail/meridian/internal/sales"
)

type fixture struct {
	mem     *ledgertest.Store
	service *sales.Service
	std     accounts.Standard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledgertest.NewStore()
	std := accounts.Standard{
		Cash:               mem.AddAccount("1000", "Cash", ledger.AccountTypeAsset).ID,
		AccountsReceivable: mem.AddAccount("1100", "Accounts Receivable", ledger.AccountTypeAsset).ID,
		Inventory:          mem.AddAccount("1200", "Inventory", ledger.AccountTypeAsset).ID,
		SalesRevenue:       mem.AddAccount("4000", "Sales Revenue", ledger.AccountTypeRevenue).ID,
		SalesDiscount:      mem.AddAccount("4100", "Sales Discounts", ledger.AccountTypeRevenue).ID,
		OutputVAT:          mem.AddAccount("2100", "Output VAT", ledger.AccountTypeLiability).ID,
		CostOfGoodsSold:    mem.AddAccount("5000", "Cost of Goods Sold", ledger.AccountTypeExpense).ID,
	}
	mem.AddPeriod("2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), ledger.PeriodStatusOpen)

	poster := ledger.NewService(mem)
	arService := ar.NewService(mem, poster, mem, std.Cash, std.AccountsReceivable)
	svc := sales.NewService(mem, poster, arService, std)
	svc.WithNow(func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) })
	return &fixture{mem: mem, service: svc, std: std}
}

func TestCashSalePostsBalancedVoucher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(1, 10, 4.00)

	sale, err := f.service.RecordSale(ctx, sales.SaleInput{
		Items:      []sales.SaleItem{{ProductID: 1, Qty: 2, UnitPrice: 10.00}},
		VATRate:    0.15,
		AmountPaid: 23.00,
		ActorID:    3,
	})
	require.NoError(t, err)
	require.InDelta(t, 20.00, sale.Subtotal, 0.001)
	require.InDelta(t, 3.00, sale.VAT, 0.001)
	require.InDelta(t, 23.00, sale.Total, 0.001)
	require.Zero(t, sale.AmountDue)
	require.InDelta(t, 8.00, sale.COGS, 0.001)

	var debits, credits float64
	for _, line := range sale.Voucher.Lines {
		if line.Type == ledger.EntryDebit {
			debits += line.Amount
		} else {
			credits += line.Amount
		}
	}
	require.InDelta(t, debits, credits, 0.001)
	require.InDelta(t, 31.00, debits, 0.001)

	require.InDelta(t, 23.00, f.mem.Account(f.std.Cash).Balance, 0.001)
	require.InDelta(t, 20.00, f.mem.Account(f.std.SalesRevenue).Balance, 0.001)
	require.InDelta(t, 3.00, f.mem.Account(f.std.OutputVAT).Balance, 0.001)
	require.InDelta(t, 8.00, f.mem.Account(f.std.CostOfGoodsSold).Balance, 0.001)
	require.InDelta(t, -8.00, f.mem.Account(f.std.Inventory).Balance, 0.001)
	require.InDelta(t, 8.0, f.mem.StockBalance(1).Qty, 0.001)
}

func TestCreditSaleWithPartialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(1, 20, 0)

	sale, err := f.service.RecordSale(ctx, sales.SaleInput{
		CustomerID: 7,
		Items:      []sales.SaleItem{{ProductID: 1, Qty: 5, UnitPrice: 20.00}},
		AmountPaid: 40.00,
		ActorID:    3,
	})
	require.NoError(t, err)
	require.InDelta(t, 100.00, sale.Total, 0.001)
	require.InDelta(t, 60.00, sale.AmountDue, 0.001)

	require.InDelta(t, 40.00, f.mem.Account(f.std.Cash).Balance, 0.001)
	require.InDelta(t, 60.00, f.mem.Account(f.std.AccountsReceivable).Balance, 0.001)
	require.InDelta(t, 100.00, f.mem.Account(f.std.SalesRevenue).Balance, 0.001)

	balance, err := f.mem.PartyBalance(ctx, ledger.PartyCustomer, 7)
	require.NoError(t, err)
	require.InDelta(t, 60.00, balance, 0.001)

	entries, err := f.mem.SubledgerEntries(ctx, ledger.PartyCustomer, 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.SubledgerInvoice, entries[0].Kind)
	require.InDelta(t, 60.00, entries[0].Amount, 0.001)
	require.Equal(t, sale.Voucher.ID, entries[0].VoucherID)
}

func TestVATAppliesToDiscountedSubtotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(1, 10, 0)

	sale, err := f.service.RecordSale(ctx, sales.SaleInput{
		Items:      []sales.SaleItem{{ProductID: 1, Qty: 4, UnitPrice: 25.00}},
		Discount:   20.00,
		VATRate:    0.10,
		AmountPaid: 88.00,
		ActorID:    3,
	})
	require.NoError(t, err)
	require.InDelta(t, 100.00, sale.Subtotal, 0.001)
	// VAT on 80.00, not 100.00.
	require.InDelta(t, 8.00, sale.VAT, 0.001)
	require.InDelta(t, 88.00, sale.Total, 0.001)

	require.InDelta(t, 100.00, f.mem.Account(f.std.SalesRevenue).Balance, 0.001)
	require.InDelta(t, -20.00, f.mem.Account(f.std.SalesDiscount).Balance, 0.001)
}

func TestInsufficientStockLeavesNoPartialState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(1, 10, 2.00)
	f.mem.SetStock(2, 1, 2.00)

	_, err := f.service.RecordSale(ctx, sales.SaleInput{
		Items: []sales.SaleItem{
			{ProductID: 1, Qty: 2, UnitPrice: 5.00},
			{ProductID: 2, Qty: 3, UnitPrice: 5.00},
		},
		AmountPaid: 25.00,
		ActorID:    3,
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	// The first item's stock move rolled back with everything else.
	require.InDelta(t, 10.0, f.mem.StockBalance(1).Qty, 0.001)
	require.InDelta(t, 1.0, f.mem.StockBalance(2).Qty, 0.001)
	require.Empty(t, f.mem.AllVouchers())
	require.InDelta(t, 0.0, f.mem.Account(f.std.Cash).Balance, 0.001)
}

func TestOnAccountSaleRequiresCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(1, 10, 0)

	_, err := f.service.RecordSale(ctx, sales.SaleInput{
		Items:      []sales.SaleItem{{ProductID: 1, Qty: 1, UnitPrice: 10.00}},
		AmountPaid: 4.00,
		ActorID:    3,
	})
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestDuplicateRefIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.SetStock(1, 10, 0)

	in := sales.SaleInput{
		Items:      []sales.SaleItem{{ProductID: 1, Qty: 1, UnitPrice: 10.00}},
		AmountPaid: 10.00,
		Ref:        "POS-0001",
		ActorID:    3,
	}
	_, err := f.service.RecordSale(ctx, in)
	require.NoError(t, err)

	_, err = f.service.RecordSale(ctx, in)
	require.ErrorIs(t, err, ledger.ErrSourceAlreadyLinked)

	// The retry changed nothing.
	require.Len(t, f.mem.AllVouchers(), 1)
	require.InDelta(t, 9.0, f.mem.StockBalance(1).Qty, 0.001)
}

func TestRecordSaleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.RecordSale(ctx, sales.SaleInput{})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.RecordSale(ctx, sales.SaleInput{
		Items:   []sales.SaleItem{{ProductID: 1, Qty: 1, UnitPrice: 10}},
		VATRate: 1.5,
	})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.RecordSale(ctx, sales.SaleInput{
		Items:    []sales.SaleItem{{ProductID: 1, Qty: 1, UnitPrice: 10}},
		Discount: 15,
	})
	require.ErrorIs(t, err, ledger.ErrValidation)
}
