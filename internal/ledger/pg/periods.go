package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-retail/meridian/internal/ledger"
)

const periodColumns = `id, name, start_date, end_date, status, locked_by, closed_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (ledger.Period, error) {
	var p ledger.Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.LockedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type periodStore struct {
	tx pgx.Tx
}

func (s *periodStore) GetForUpdate(ctx context.Context, id int64) (ledger.Period, error) {
	p, err := scanPeriod(s.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Period{}, fmt.Errorf("%w: period %d", ledger.ErrNotFound, id)
	}
	return p, err
}

func (s *periodStore) GetForUpdateByDate(ctx context.Context, date time.Time) (ledger.Period, error) {
	p, err := scanPeriod(s.tx.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM fiscal_periods WHERE start_date <= $1 AND end_date >= $1 FOR UPDATE`, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Period{}, fmt.Errorf("%w: %s", ledger.ErrPeriodNotFound, date.Format("2006-01-02"))
	}
	return p, err
}

func (s *periodStore) NextOpenAfter(ctx context.Context, date time.Time) (ledger.Period, error) {
	p, err := scanPeriod(s.tx.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM fiscal_periods
		 WHERE start_date > $1 AND status = $2
		 ORDER BY start_date LIMIT 1 FOR UPDATE`, date, ledger.PeriodStatusOpen))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Period{}, fmt.Errorf("%w: no open period after %s", ledger.ErrPeriodNotFound, date.Format("2006-01-02"))
	}
	return p, err
}

func (s *periodStore) Insert(ctx context.Context, p ledger.Period) (ledger.Period, error) {
	row := s.tx.QueryRow(ctx,
		`INSERT INTO fiscal_periods (name, start_date, end_date, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.StartDate, p.EndDate, p.Status)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return ledger.Period{}, mapError(err)
	}
	return p, nil
}

func (s *periodStore) RangeConflict(ctx context.Context, start, end time.Time) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM fiscal_periods WHERE start_date <= $2 AND end_date >= $1)`,
		start, end).Scan(&exists)
	return exists, err
}

func (s *periodStore) UpdateStatus(ctx context.Context, id int64, status ledger.PeriodStatus, actorID int64, at time.Time) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	switch status {
	case ledger.PeriodStatusLocked:
		tag, err = s.tx.Exec(ctx,
			`UPDATE fiscal_periods SET status = $2, locked_by = $3, updated_at = $4 WHERE id = $1`,
			id, status, actorID, at)
	case ledger.PeriodStatusClosed:
		tag, err = s.tx.Exec(ctx,
			`UPDATE fiscal_periods SET status = $2, closed_at = $3, updated_at = $3 WHERE id = $1`,
			id, status, at)
	default:
		tag, err = s.tx.Exec(ctx,
			`UPDATE fiscal_periods SET status = $2, locked_by = NULL, updated_at = $3 WHERE id = $1`,
			id, status, at)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: period %d", ledger.ErrNotFound, id)
	}
	return nil
}
