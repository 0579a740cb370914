package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
	"github.com/meridian-retail/meridian/internal/ledger/ledgertest"
	"github.com/meridian-retail/meridian/internal/payroll"
)

type fixture struct {
	mem     *ledgertest.Store
	service *payroll.Service
	std     accounts.Standard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledgertest.NewStore()
	std := accounts.Standard{
		Cash:               mem.AddAccount("1000", "Cash", ledger.AccountTypeAsset).ID,
		PayrollExpense:     mem.AddAccount("5100", "Payroll Expense", ledger.AccountTypeExpense).ID,
		PayrollLiabilities: mem.AddAccount("2200", "Payroll Liabilities", ledger.AccountTypeLiability).ID,
	}
	mem.AddPeriod("2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), ledger.PeriodStatusOpen)

	poster := ledger.NewService(mem)
	svc := payroll.NewService(mem, poster, std)
	svc.WithNow(func() time.Time { return time.Date(2025, 6, 30, 17, 0, 0, 0, time.UTC) })
	return &fixture{mem: mem, service: svc, std: std}
}

func TestRunPayrollSplitsNetAndWithholdings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, err := f.service.RunPayroll(ctx, payroll.RunInput{
		PeriodKey: "2025-06",
		Payslips: []payroll.Payslip{
			{EmployeeID: 1, Gross: 2000.00, Withheld: 400.00},
			{EmployeeID: 2, Gross: 1500.00, Withheld: 250.00},
		},
		ActorID: 3,
	})
	require.NoError(t, err)
	require.InDelta(t, 3500.00, run.Gross, 0.001)
	require.InDelta(t, 650.00, run.Withheld, 0.001)
	require.InDelta(t, 2850.00, run.Net, 0.001)

	require.InDelta(t, 3500.00, f.mem.Account(f.std.PayrollExpense).Balance, 0.001)
	require.InDelta(t, -2850.00, f.mem.Account(f.std.Cash).Balance, 0.001)
	require.InDelta(t, 650.00, f.mem.Account(f.std.PayrollLiabilities).Balance, 0.001)
}

func TestRunPayrollIdempotentPerPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := payroll.RunInput{
		PeriodKey: "2025-06",
		Payslips:  []payroll.Payslip{{EmployeeID: 1, Gross: 1000.00, Withheld: 100.00}},
		ActorID:   3,
	}

	_, err := f.service.RunPayroll(ctx, in)
	require.NoError(t, err)

	_, err = f.service.RunPayroll(ctx, in)
	require.ErrorIs(t, err, ledger.ErrSourceAlreadyLinked)
	require.Len(t, f.mem.AllVouchers(), 1)
	require.InDelta(t, 1000.00, f.mem.Account(f.std.PayrollExpense).Balance, 0.001)
}

func TestRunPayrollValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.RunPayroll(ctx, payroll.RunInput{
		Payslips: []payroll.Payslip{{EmployeeID: 1, Gross: 100}},
	})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.RunPayroll(ctx, payroll.RunInput{PeriodKey: "2025-06"})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.RunPayroll(ctx, payroll.RunInput{
		PeriodKey: "2025-06",
		Payslips:  []payroll.Payslip{{EmployeeID: 1, Gross: 100, Withheld: 150}},
	})
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestRemitWithholdings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.RunPayroll(ctx, payroll.RunInput{
		PeriodKey: "2025-06",
		Payslips:  []payroll.Payslip{{EmployeeID: 1, Gross: 1000.00, Withheld: 200.00}},
		ActorID:   3,
	})
	require.NoError(t, err)

	_, err = f.service.RemitWithholdings(ctx, 200.00, "REMIT-2025-06", 3)
	require.NoError(t, err)
	require.InDelta(t, 0.0, f.mem.Account(f.std.PayrollLiabilities).Balance, 0.001)
	require.InDelta(t, -1000.00, f.mem.Account(f.std.Cash).Balance, 0.001)
}
