package accounts

import (
	"context"
	"fmt"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// Codes maps the symbolic account roles used by business-event producers to
// concrete chart codes. It comes from configuration and is resolved exactly
// once at startup; a missing or inactive code aborts boot.
type Codes struct {
	Cash                    string
	AccountsReceivable      string
	AccountsPayable         string
	SalesRevenue            string
	SalesDiscount           string
	OutputVAT               string
	InputVAT                string
	Inventory               string
	CostOfGoodsSold         string
	RetainedEarnings        string
	ReconAdjustments        string
	PayrollExpense          string
	PayrollLiabilities      string
	DepreciationExpense     string
	AccumulatedDepreciation string
	PrepaidExpense          string
	UnearnedRevenue         string
}

// Standard carries the resolved account ids for every role. Producers receive
// it by injection and never look accounts up by string key at posting time.
type Standard struct {
	Cash                    int64
	AccountsReceivable      int64
	AccountsPayable         int64
	SalesRevenue            int64
	SalesDiscount           int64
	OutputVAT               int64
	InputVAT                int64
	Inventory               int64
	CostOfGoodsSold         int64
	RetainedEarnings        int64
	ReconAdjustments        int64
	PayrollExpense          int64
	PayrollLiabilities      int64
	DepreciationExpense     int64
	AccumulatedDepreciation int64
	PrepaidExpense          int64
	UnearnedRevenue         int64
}

// ResolveStandard maps every configured role code to an active account id,
// failing fast on the first role that cannot be resolved.
func ResolveStandard(ctx context.Context, repo Repository, codes Codes) (Standard, error) {
	var std Standard
	roles := []struct {
		role string
		code string
		dst  *int64
	}{
		{"cash", codes.Cash, &std.Cash},
		{"accounts_receivable", codes.AccountsReceivable, &std.AccountsReceivable},
		{"accounts_payable", codes.AccountsPayable, &std.AccountsPayable},
		{"sales_revenue", codes.SalesRevenue, &std.SalesRevenue},
		{"sales_discount", codes.SalesDiscount, &std.SalesDiscount},
		{"output_vat", codes.OutputVAT, &std.OutputVAT},
		{"input_vat", codes.InputVAT, &std.InputVAT},
		{"inventory", codes.Inventory, &std.Inventory},
		{"cost_of_goods_sold", codes.CostOfGoodsSold, &std.CostOfGoodsSold},
		{"retained_earnings", codes.RetainedEarnings, &std.RetainedEarnings},
		{"reconciliation_adjustments", codes.ReconAdjustments, &std.ReconAdjustments},
		{"payroll_expense", codes.PayrollExpense, &std.PayrollExpense},
		{"payroll_liabilities", codes.PayrollLiabilities, &std.PayrollLiabilities},
		{"depreciation_expense", codes.DepreciationExpense, &std.DepreciationExpense},
		{"accumulated_depreciation", codes.AccumulatedDepreciation, &std.AccumulatedDepreciation},
		{"prepaid_expense", codes.PrepaidExpense, &std.PrepaidExpense},
		{"unearned_revenue", codes.UnearnedRevenue, &std.UnearnedRevenue},
	}
	for _, r := range roles {
		if r.code == "" {
			return Standard{}, fmt.Errorf("accounts: standard account %s not configured", r.role)
		}
		acct, err := repo.GetByCode(ctx, r.code)
		if err != nil {
			return Standard{}, fmt.Errorf("accounts: standard account %s (%s): %w", r.role, r.code, err)
		}
		if !acct.IsActive {
			return Standard{}, fmt.Errorf("accounts: standard account %s (%s): %w", r.role, r.code, ledger.ErrAccountInactive)
		}
		*r.dst = acct.ID
	}
	return std, nil
}
