// Package pg is the PostgreSQL persistence layer for the ledger. Every
// store runs inside a RepeatableRead transaction opened by UnitOfWork and
// takes row locks with SELECT ... FOR UPDATE, so posting, subledger and
// stock writes serialize on the rows they touch.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/db"
)

// UnitOfWork opens one database transaction per Run call and hands the
// callback a ledger.Tx whose stores all share that transaction.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork constructs a UnitOfWork over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Run implements ledger.UnitOfWork.
func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	err := db.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, &ledgerTx{tx: tx})
	})
	return mapError(err)
}

type ledgerTx struct {
	tx pgx.Tx
}

// execer is the statement-execution subset shared by pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// txExec returns the executor joined to tx when it is one of ours, otherwise
// the fallback. Repos use it for writes that must commit with a posting.
func txExec(tx ledger.Tx, fallback execer) execer {
	if lt, ok := tx.(*ledgerTx); ok {
		return lt.tx
	}
	return fallback
}

func (t *ledgerTx) Accounts() ledger.AccountStore    { return &accountStore{tx: t.tx} }
func (t *ledgerTx) Vouchers() ledger.VoucherStore    { return &voucherStore{tx: t.tx} }
func (t *ledgerTx) Periods() ledger.PeriodStore      { return &periodStore{tx: t.tx} }
func (t *ledgerTx) Subledger() ledger.SubledgerStore { return &subledgerStore{tx: t.tx} }
func (t *ledgerTx) Stock() ledger.StockStore         { return &stockStore{tx: t.tx} }

// mapError translates driver-level failures into ledger sentinel errors.
// Unique-violation on uq_source_links means a second posting attempt for the
// same source document; serialization failures are safe to retry whole.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.ConstraintName == "uq_source_links":
			return fmt.Errorf("%w: %s", ledger.ErrSourceAlreadyLinked, pgErr.Detail)
		case pgErr.Code == "23505":
			return fmt.Errorf("%w: %s", ledger.ErrConflict, pgErr.ConstraintName)
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return fmt.Errorf("%w: %s", ledger.ErrConflict, pgErr.Code)
		}
	}
	return err
}
