package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// Reads is the pool-backed query side: report aggregation, account history,
// subledger listings, stock balances and period listings. It satisfies the
// read ports of the reports, AR/AP, reconciliation, inventory and period
// packages.
type Reads struct {
	pool *pgxpool.Pool
}

// NewReads constructs Reads.
func NewReads(pool *pgxpool.Pool) *Reads {
	return &Reads{pool: pool}
}

// Activity aggregates posted debits/credits per account up to asOf. Accounts
// with no postings still appear with zero totals.
func (r *Reads) Activity(ctx context.Context, asOf time.Time) ([]ledger.AccountActivity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.code, a.name, a.type, a.parent_id, a.is_active, a.balance, a.created_at, a.updated_at,
		        COALESCE(SUM(l.amount) FILTER (WHERE l.type = 'DEBIT'), 0),
		        COALESCE(SUM(l.amount) FILTER (WHERE l.type = 'CREDIT'), 0)
		 FROM accounts a
		 LEFT JOIN voucher_lines l ON l.account_id = a.id
		 LEFT JOIN vouchers v ON v.id = l.voucher_id AND v.date <= $1
		 GROUP BY a.id
		 ORDER BY a.code`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.AccountActivity
	for rows.Next() {
		var act ledger.AccountActivity
		a := &act.Account
		err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.Balance, &a.CreatedAt, &a.UpdatedAt,
			&act.Debit, &act.Credit)
		if err != nil {
			return nil, err
		}
		out = append(out, act)
	}
	return out, rows.Err()
}

// AccountEntries lists posted lines against one account within [from, to],
// ordered by (date, voucher id). Blank line descriptions fall back to the
// voucher description.
func (r *Reads) AccountEntries(ctx context.Context, accountID int64, from, to time.Time) ([]ledger.Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT v.date, v.id, v.number,
		        CASE WHEN l.description <> '' THEN l.description ELSE v.description END,
		        CASE WHEN l.type = 'DEBIT' THEN l.amount ELSE 0 END,
		        CASE WHEN l.type = 'CREDIT' THEN l.amount ELSE 0 END
		 FROM voucher_lines l
		 JOIN vouchers v ON v.id = l.voucher_id
		 WHERE l.account_id = $1 AND v.date BETWEEN $2 AND $3
		 ORDER BY v.date, v.id, l.id`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.Date, &e.VoucherID, &e.Number, &e.Description, &e.Debit, &e.Credit); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AccountBalanceBefore returns the signed balance from postings strictly
// before the given date, positive on the account's normal side.
func (r *Reads) AccountBalanceBefore(ctx context.Context, accountID int64, before time.Time) (float64, error) {
	acct, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return r.signedBalance(ctx, acct, before)
}

// AccountBalanceAsOf returns the signed balance of the account with the given
// code from postings up to and including asOf.
func (r *Reads) AccountBalanceAsOf(ctx context.Context, code string, asOf time.Time) (float64, error) {
	acct, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code))
	if err != nil {
		return 0, fmt.Errorf("%w: account %s", ledger.ErrUnknownAccount, code)
	}
	return r.signedBalance(ctx, acct, asOf.AddDate(0, 0, 1))
}

func (r *Reads) signedBalance(ctx context.Context, acct ledger.Account, before time.Time) (float64, error) {
	debitNormal := acct.Type.NormalSide() == ledger.EntryDebit
	var balance float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(round(SUM(
		            CASE WHEN (l.type = 'DEBIT') = $2 THEN l.amount ELSE -l.amount END
		        )::numeric, 2), 0)
		 FROM voucher_lines l
		 JOIN vouchers v ON v.id = l.voucher_id
		 WHERE l.account_id = $1 AND v.date < $3`, acct.ID, debitNormal, before).Scan(&balance)
	return balance, err
}

// GetAccount fetches one account by id.
func (r *Reads) GetAccount(ctx context.Context, accountID int64) (ledger.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID))
}

// SubledgerEntries lists a party's entries ordered oldest first by (date, id).
func (r *Reads) SubledgerEntries(ctx context.Context, kind ledger.PartyKind, partyID int64) ([]ledger.SubledgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, party_kind, party_id, kind, amount, date, voucher_id, ref, description, created_at
		 FROM subledger_entries
		 WHERE party_kind = $1 AND party_id = $2
		 ORDER BY date, id`, kind, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.SubledgerEntry
	for rows.Next() {
		var e ledger.SubledgerEntry
		err := rows.Scan(&e.ID, &e.PartyKind, &e.PartyID, &e.Kind, &e.Amount, &e.Date, &e.VoucherID, &e.Ref, &e.Description, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PartyBalance returns the denormalized balance for a customer or supplier.
// Parties with no history have a zero balance.
func (r *Reads) PartyBalance(ctx context.Context, kind ledger.PartyKind, partyID int64) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM party_balances WHERE party_kind = $1 AND party_id = $2`,
		kind, partyID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// PartyBalanceTotal sums the outstanding balances of every party of a kind.
func (r *Reads) PartyBalanceTotal(ctx context.Context, kind ledger.PartyKind) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(round(SUM(balance)::numeric, 2), 0) FROM party_balances WHERE party_kind = $1`,
		kind).Scan(&total)
	return total, err
}

// StockBalances lists every product's on-hand position ordered by product id.
func (r *Reads) StockBalances(ctx context.Context) ([]ledger.StockBalance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, qty, avg_cost, updated_at FROM stock_balances ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.StockBalance
	for rows.Next() {
		var b ledger.StockBalance
		if err := rows.Scan(&b.ProductID, &b.Qty, &b.AvgCost, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ProductStock returns one product's balance; unknown products read as empty.
func (r *Reads) ProductStock(ctx context.Context, productID int64) (ledger.StockBalance, error) {
	var b ledger.StockBalance
	err := r.pool.QueryRow(ctx,
		`SELECT product_id, qty, avg_cost, updated_at FROM stock_balances WHERE product_id = $1`,
		productID).Scan(&b.ProductID, &b.Qty, &b.AvgCost, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.StockBalance{ProductID: productID}, nil
	}
	return b, err
}

// ListPeriods returns every fiscal period ordered by start date.
func (r *Reads) ListPeriods(ctx context.Context) ([]ledger.Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
