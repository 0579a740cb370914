package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/recon"
)

const reconColumns = `id, account_code, as_of, ledger_balance, external_balance, difference, status, note, created_by, created_at, adjustment_voucher_id`

func scanRecon(row pgx.Row) (recon.Record, error) {
	var rec recon.Record
	err := row.Scan(&rec.ID, &rec.AccountCode, &rec.AsOf, &rec.LedgerBalance, &rec.ExternalBalance,
		&rec.Difference, &rec.Status, &rec.Note, &rec.CreatedBy, &rec.CreatedAt, &rec.AdjustmentVoucherID)
	return rec, err
}

// ReconRepo persists reconciliation records.
type ReconRepo struct {
	pool *pgxpool.Pool
}

// NewReconRepo constructs ReconRepo.
func NewReconRepo(pool *pgxpool.Pool) *ReconRepo {
	return &ReconRepo{pool: pool}
}

func (r *ReconRepo) Insert(ctx context.Context, rec recon.Record) (recon.Record, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO recon_records (account_code, as_of, ledger_balance, external_balance, difference, status, note, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+reconColumns,
		rec.AccountCode, rec.AsOf, rec.LedgerBalance, rec.ExternalBalance, rec.Difference, rec.Status, rec.Note, rec.CreatedBy)
	return scanRecon(row)
}

func (r *ReconRepo) Get(ctx context.Context, id int64) (recon.Record, error) {
	rec, err := scanRecon(r.pool.QueryRow(ctx, `SELECT `+reconColumns+` FROM recon_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return recon.Record{}, fmt.Errorf("%w: reconciliation %d", ledger.ErrNotFound, id)
	}
	return rec, err
}

func (r *ReconRepo) List(ctx context.Context, accountCode string) ([]recon.Record, error) {
	query := `SELECT ` + reconColumns + ` FROM recon_records ORDER BY as_of DESC, id DESC`
	args := []any{}
	if accountCode != "" {
		query = `SELECT ` + reconColumns + ` FROM recon_records WHERE account_code = $1 ORDER BY as_of DESC, id DESC`
		args = append(args, accountCode)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []recon.Record
	for rows.Next() {
		rec, err := scanRecon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ReconRepo) SetAdjusted(ctx context.Context, tx ledger.Tx, id, voucherID int64) error {
	tag, err := txExec(tx, r.pool).Exec(ctx,
		`UPDATE recon_records SET status = $2, adjustment_voucher_id = $3 WHERE id = $1`,
		id, recon.StatusAdjusted, voucherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: reconciliation %d", ledger.ErrNotFound, id)
	}
	return nil
}
