package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/reports"
)

// IntegrityReads is the read surface the nightly ledger check depends on.
type IntegrityReads interface {
	AccountBalanceAsOf(ctx context.Context, code string, asOf time.Time) (float64, error)
	PartyBalanceTotal(ctx context.Context, kind ledger.PartyKind) (float64, error)
}

// IntegrityChecker verifies the ledger's structural invariants: the trial
// balance must balance, and each subledger must agree with its control
// account. A failed check is a bug or data corruption, never routine.
type IntegrityChecker struct {
	Reports        *reports.Service
	Reads          IntegrityReads
	ReceivableCode string
	PayableCode    string
	Logger         *slog.Logger
}

// Run executes all checks concurrently and returns the first failure.
func (c *IntegrityChecker) Run(ctx context.Context, asOf time.Time) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tb, err := c.Reports.TrialBalance(ctx, asOf)
		if err != nil {
			return fmt.Errorf("trial balance: %w", err)
		}
		if !tb.Balanced() {
			return fmt.Errorf("trial balance out of balance: debit %.2f credit %.2f", tb.TotalDebit, tb.TotalCredit)
		}
		return nil
	})

	g.Go(func() error {
		return c.checkControl(ctx, asOf, ledger.PartyCustomer, c.ReceivableCode)
	})
	g.Go(func() error {
		return c.checkControl(ctx, asOf, ledger.PartySupplier, c.PayableCode)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if c.Logger != nil {
		c.Logger.Info("ledger integrity check passed", slog.Time("as_of", asOf))
	}
	return nil
}

func (c *IntegrityChecker) checkControl(ctx context.Context, asOf time.Time, kind ledger.PartyKind, code string) error {
	control, err := c.Reads.AccountBalanceAsOf(ctx, code, asOf)
	if err != nil {
		return fmt.Errorf("control account %s: %w", code, err)
	}
	total, err := c.Reads.PartyBalanceTotal(ctx, kind)
	if err != nil {
		return fmt.Errorf("subledger total %s: %w", kind, err)
	}
	if !ledger.WithinEpsilon(control, total) {
		return fmt.Errorf("subledger %s disagrees with control %s: control %.2f subledger %.2f", kind, code, control, total)
	}
	return nil
}
