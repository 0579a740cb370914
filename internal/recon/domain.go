// Package recon compares GL account balances against external statements
// (bank statements, processor settlement files, till counts) and posts
// bounded correcting entries for confirmed discrepancies.
package recon

import (
	"context"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// Status describes the lifecycle of a reconciliation record.
type Status string

const (
	// StatusReconciled means ledger and external balances agreed within tolerance.
	StatusReconciled Status = "RECONCILED"
	// StatusDiscrepancy means the balances disagree and no adjustment was posted yet.
	StatusDiscrepancy Status = "DISCREPANCY"
	// StatusAdjusted means a correcting entry was posted for the discrepancy.
	StatusAdjusted Status = "ADJUSTED"
)

// Record is a saved reconciliation snapshot. Difference is always
// external minus ledger, so a negative value means the ledger overstates
// the account.
type Record struct {
	ID                  int64
	AccountCode         string
	AsOf                time.Time
	LedgerBalance       float64
	ExternalBalance     float64
	Difference          float64
	Status              Status
	Note                string
	CreatedBy           int64
	CreatedAt           time.Time
	AdjustmentVoucherID *int64
}

// Repository persists reconciliation records.
type Repository interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	List(ctx context.Context, accountCode string) ([]Record, error)
	// SetAdjusted takes the ledger transaction so the status flip commits
	// with the adjustment voucher.
	SetAdjusted(ctx context.Context, tx ledger.Tx, id, voucherID int64) error
}

// BalanceReader resolves an account's GL balance as of a cutoff date.
type BalanceReader interface {
	AccountBalanceAsOf(ctx context.Context, code string, asOf time.Time) (float64, error)
}
