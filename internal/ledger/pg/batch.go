package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/batch"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/db"
)

// BatchRepo persists batch jobs. Item lines are stored as jsonb because they
// reference accounts by code, not id, and need no relational joins.
type BatchRepo struct {
	pool *pgxpool.Pool
}

// NewBatchRepo constructs BatchRepo.
func NewBatchRepo(pool *pgxpool.Pool) *BatchRepo {
	return &BatchRepo{pool: pool}
}

func (r *BatchRepo) CreateJob(ctx context.Context, job batch.Job) (batch.Job, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO batch_jobs (description, operation, status, created_by)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at`,
			job.Description, job.Operation, job.Status, job.CreatedBy)
		if err := row.Scan(&job.ID, &job.CreatedAt); err != nil {
			return err
		}
		for i := range job.Items {
			item := &job.Items[i]
			item.JobID = job.ID
			lines, err := json.Marshal(item.Lines)
			if err != nil {
				return err
			}
			row := tx.QueryRow(ctx,
				`INSERT INTO batch_items (job_id, seq, date, description, lines, status)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 RETURNING id`,
				item.JobID, item.Seq, item.Date, item.Description, lines, item.Status)
			if err := row.Scan(&item.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return batch.Job{}, err
	}
	return job, nil
}

func (r *BatchRepo) GetJob(ctx context.Context, id int64) (batch.Job, error) {
	var job batch.Job
	err := r.pool.QueryRow(ctx,
		`SELECT id, description, operation, status, created_by, created_at, started_at, finished_at
		 FROM batch_jobs WHERE id = $1`, id).
		Scan(&job.ID, &job.Description, &job.Operation, &job.Status, &job.CreatedBy, &job.CreatedAt, &job.StartedAt, &job.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return batch.Job{}, fmt.Errorf("%w: batch job %d", ledger.ErrNotFound, id)
	}
	if err != nil {
		return batch.Job{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, job_id, seq, date, description, lines, status, error, voucher_id
		 FROM batch_items WHERE job_id = $1 ORDER BY seq`, id)
	if err != nil {
		return batch.Job{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item batch.Item
		var lines []byte
		err := rows.Scan(&item.ID, &item.JobID, &item.Seq, &item.Date, &item.Description, &lines, &item.Status, &item.Error, &item.VoucherID)
		if err != nil {
			return batch.Job{}, err
		}
		if err := json.Unmarshal(lines, &item.Lines); err != nil {
			return batch.Job{}, err
		}
		job.Items = append(job.Items, item)
	}
	return job, rows.Err()
}

func (r *BatchRepo) ListJobs(ctx context.Context) ([]batch.Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, description, operation, status, created_by, created_at, started_at, finished_at
		 FROM batch_jobs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []batch.Job
	for rows.Next() {
		var job batch.Job
		err := rows.Scan(&job.ID, &job.Description, &job.Operation, &job.Status, &job.CreatedBy, &job.CreatedAt, &job.StartedAt, &job.FinishedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *BatchRepo) UpdateJobStatus(ctx context.Context, id int64, status batch.JobStatus, startedAt, finishedAt *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE batch_jobs
		 SET status = $2, started_at = COALESCE($3, started_at), finished_at = COALESCE($4, finished_at)
		 WHERE id = $1`,
		id, status, startedAt, finishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: batch job %d", ledger.ErrNotFound, id)
	}
	return nil
}

func (r *BatchRepo) UpdateItemResult(ctx context.Context, itemID int64, status batch.ItemStatus, errMsg string, voucherID *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE batch_items SET status = $2, error = $3, voucher_id = $4 WHERE id = $1`,
		itemID, status, errMsg, voucherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: batch item %d", ledger.ErrNotFound, itemID)
	}
	return nil
}

func (r *BatchRepo) DeleteJob(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM batch_items WHERE job_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM batch_jobs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: batch job %d", ledger.ErrNotFound, id)
		}
		return nil
	})
}
