package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/ledger"
)

const accountColumns = `id, code, name, type, parent_id, is_active, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, ledger.ErrUnknownAccount
	}
	return a, err
}

type accountStore struct {
	tx pgx.Tx
}

func (s *accountStore) GetForUpdate(ctx context.Context, id int64) (ledger.Account, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

func (s *accountStore) GetByCodeForUpdate(ctx context.Context, code string) (ledger.Account, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = $1 FOR UPDATE`, code)
	return scanAccount(row)
}

func (s *accountStore) ApplyBalance(ctx context.Context, id int64, delta float64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE accounts SET balance = round((balance + $2)::numeric, 2), updated_at = now() WHERE id = $1`, id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrUnknownAccount
	}
	return nil
}

func (s *accountStore) ListByTypeForUpdate(ctx context.Context, types ...ledger.AccountType) ([]ledger.Account, error) {
	params := make([]string, len(types))
	args := make([]any, len(types))
	for i, t := range types {
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(t)
	}
	rows, err := s.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_active AND type IN (`+strings.Join(params, ", ")+`) ORDER BY code FOR UPDATE`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AccountRepo is the pool-backed chart-of-accounts registry.
type AccountRepo struct {
	pool *pgxpool.Pool
}

// NewAccountRepo constructs AccountRepo.
func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Insert(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (code, name, type, parent_id, is_active, balance)
		 VALUES ($1, $2, $3, $4, $5, 0)
		 RETURNING `+accountColumns,
		a.Code, a.Name, a.Type, a.ParentID, a.IsActive)
	out, err := scanAccount(row)
	return out, mapError(err)
}

func (r *AccountRepo) List(ctx context.Context) ([]ledger.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) GetByID(ctx context.Context, id int64) (ledger.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *AccountRepo) GetByCode(ctx context.Context, code string) (ledger.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code))
}

func (r *AccountRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrUnknownAccount
	}
	return nil
}
