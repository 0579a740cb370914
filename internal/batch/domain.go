// Package batch runs bulk posting jobs: a job holds independent posting
// items, execution posts each item in its own transaction and keeps going
// past failures, and source links make re-execution safe after a crash.
package batch

import (
	"context"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// Operation selects how a job's items are turned into vouchers.
type Operation string

const (
	// OpJournalImport posts each item's lines as-is.
	OpJournalImport Operation = "journal_import"
	// OpExpenseImport items carry a single expense debit; execution adds
	// the matching cash credit.
	OpExpenseImport Operation = "expense_import"
)

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

const (
	JobPending             JobStatus = "PENDING"
	JobProcessing          JobStatus = "PROCESSING"
	JobCompleted           JobStatus = "COMPLETED"
	JobCompletedWithErrors JobStatus = "COMPLETED_WITH_ERRORS"
	JobFailed              JobStatus = "FAILED"
)

// ItemStatus is the state of a single posting item.
type ItemStatus string

const (
	ItemPending ItemStatus = "PENDING"
	ItemPosted  ItemStatus = "POSTED"
	ItemFailed  ItemStatus = "FAILED"
)

// Job is a bulk posting run.
type Job struct {
	ID          int64
	Description string
	Operation   Operation
	Status      JobStatus
	CreatedBy   int64
	CreatedAt   time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Items       []Item
}

// Item is one independent posting inside a job. Lines reference accounts by
// code so batch payloads survive chart edits between creation and execution.
type Item struct {
	ID          int64
	JobID       int64
	Seq         int
	Date        time.Time
	Description string
	Lines       []ItemLine
	Status      ItemStatus
	Error       string
	VoucherID   *int64
}

// ItemLine is one leg of a batch item posting.
type ItemLine struct {
	AccountCode string
	Type        ledger.EntryType
	Amount      float64
	Description string
}

// Repository persists batch jobs and their items.
type Repository interface {
	CreateJob(ctx context.Context, job Job) (Job, error)
	GetJob(ctx context.Context, id int64) (Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
	UpdateJobStatus(ctx context.Context, id int64, status JobStatus, startedAt, finishedAt *time.Time) error
	UpdateItemResult(ctx context.Context, itemID int64, status ItemStatus, errMsg string, voucherID *int64) error
	DeleteJob(ctx context.Context, id int64) error
}
