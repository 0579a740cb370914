package ledger

import (
	"context"
	"time"
)

// UnitOfWork runs a function inside one atomic transaction. Every business
// event composes its GL posting, subledger entries and stock moves through a
// single Run call, so atomicity is structural: either everything the function
// did commits, or nothing does.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the transactional stores available inside a unit of work.
type Tx interface {
	Accounts() AccountStore
	Vouchers() VoucherStore
	Periods() PeriodStore
	Subledger() SubledgerStore
	Stock() StockStore
}

// AccountStore mutates chart-of-accounts rows under row locks.
type AccountStore interface {
	GetForUpdate(ctx context.Context, id int64) (Account, error)
	GetByCodeForUpdate(ctx context.Context, code string) (Account, error)
	// ApplyBalance adds delta to the denormalized running balance.
	ApplyBalance(ctx context.Context, id int64, delta float64) error
	// ListByTypeForUpdate locks and returns active accounts of the given types.
	ListByTypeForUpdate(ctx context.Context, types ...AccountType) ([]Account, error)
}

// VoucherStore persists voucher headers and lines.
type VoucherStore interface {
	// NextNumber reserves the next monotonic voucher number, e.g. JV-000042.
	NextNumber(ctx context.Context) (string, error)
	Insert(ctx context.Context, v Voucher) (Voucher, error)
	InsertLines(ctx context.Context, voucherID int64, lines []VoucherLine) ([]VoucherLine, error)
	GetWithLines(ctx context.Context, id int64) (Voucher, error)
	MarkReversed(ctx context.Context, id, reversalID int64) error
	// LinkSource records the (sourceType, sourceID) pair once; a second link
	// for the same pair fails with ErrSourceAlreadyLinked.
	LinkSource(ctx context.Context, sourceType, sourceID string, voucherID int64) error
}

// PeriodStore locks and mutates fiscal period rows. The period row lock is
// acquired before the date-range check and held until the voucher commits,
// which serializes postings against lock/unlock/close transitions.
type PeriodStore interface {
	GetForUpdate(ctx context.Context, id int64) (Period, error)
	GetForUpdateByDate(ctx context.Context, date time.Time) (Period, error)
	NextOpenAfter(ctx context.Context, date time.Time) (Period, error)
	Insert(ctx context.Context, p Period) (Period, error)
	RangeConflict(ctx context.Context, start, end time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status PeriodStatus, actorID int64, at time.Time) error
}

// SubledgerStore appends AR/AP detail rows and maintains the denormalized
// party balance in the same transaction as the GL posting.
type SubledgerStore interface {
	Append(ctx context.Context, e SubledgerEntry) (SubledgerEntry, error)
	PartyBalanceForUpdate(ctx context.Context, kind PartyKind, partyID int64) (float64, error)
	ApplyPartyBalance(ctx context.Context, kind PartyKind, partyID int64, delta float64) error
}

// StockStore maintains per-product on-hand quantity and moving-average cost.
type StockStore interface {
	BalanceForUpdate(ctx context.Context, productID int64) (StockBalance, error)
	// Apply posts the move against the locked balance. Outbound moves that
	// exceed on-hand quantity fail with ErrInsufficientStock; inbound moves
	// re-average the unit cost.
	Apply(ctx context.Context, move StockMove) (StockBalance, error)
}
