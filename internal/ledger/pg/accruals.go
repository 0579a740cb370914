package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/accruals"
	"github.com/meridian-retail/meridian/internal/ledger"
)

const scheduleColumns = `id, kind, description, total, installments, recognized, start_date, target_account_id, is_active, created_at`

func scanSchedule(row pgx.Row) (accruals.Schedule, error) {
	var s accruals.Schedule
	err := row.Scan(&s.ID, &s.Kind, &s.Description, &s.Total, &s.Installments, &s.Recognized,
		&s.StartDate, &s.TargetAccountID, &s.IsActive, &s.CreatedAt)
	return s, err
}

// AccrualRepo persists amortization schedules.
type AccrualRepo struct {
	pool *pgxpool.Pool
}

// NewAccrualRepo constructs AccrualRepo.
func NewAccrualRepo(pool *pgxpool.Pool) *AccrualRepo {
	return &AccrualRepo{pool: pool}
}

func (r *AccrualRepo) Insert(ctx context.Context, s accruals.Schedule) (accruals.Schedule, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO accrual_schedules (kind, description, total, installments, recognized, start_date, target_account_id, is_active)
		 VALUES ($1, $2, $3, $4, 0, $5, $6, true)
		 RETURNING `+scheduleColumns,
		s.Kind, s.Description, s.Total, s.Installments, s.StartDate, s.TargetAccountID)
	return scanSchedule(row)
}

func (r *AccrualRepo) Get(ctx context.Context, id int64) (accruals.Schedule, error) {
	s, err := scanSchedule(r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM accrual_schedules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return accruals.Schedule{}, fmt.Errorf("%w: schedule %d", ledger.ErrNotFound, id)
	}
	return s, err
}

func (r *AccrualRepo) List(ctx context.Context) ([]accruals.Schedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM accrual_schedules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []accruals.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *AccrualRepo) AddRecognized(ctx context.Context, id int64, amount float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accrual_schedules SET recognized = round((recognized + $2)::numeric, 2) WHERE id = $1`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: schedule %d", ledger.ErrNotFound, id)
	}
	return nil
}
