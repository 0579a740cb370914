// Package assets keeps a fixed-asset registry and posts monthly
// straight-line depreciation runs, capped at each asset's depreciable base.
package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
)

// Asset is one depreciable fixed asset. Depreciated accumulates posted
// installments and never exceeds Cost - Salvage.
type Asset struct {
	ID          int64
	Name        string
	Cost        float64
	Salvage     float64
	LifeMonths  int
	AcquiredAt  time.Time
	Depreciated float64
	IsActive    bool
	CreatedAt   time.Time
}

// Base is the total amount the asset can depreciate.
func (a Asset) Base() float64 {
	return ledger.Round(a.Cost - a.Salvage)
}

// MonthlyAmount is the straight-line installment.
func (a Asset) MonthlyAmount() float64 {
	if a.LifeMonths <= 0 {
		return 0
	}
	return ledger.Round(a.Base() / float64(a.LifeMonths))
}

// Repository persists the asset registry. AddDepreciation takes the ledger
// transaction so registry updates commit with the depreciation voucher.
type Repository interface {
	Insert(ctx context.Context, a Asset) (Asset, error)
	Get(ctx context.Context, id int64) (Asset, error)
	List(ctx context.Context) ([]Asset, error)
	AddDepreciation(ctx context.Context, tx ledger.Tx, id int64, amount float64) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service manages assets and depreciation runs.
type Service struct {
	repo   Repository
	uow    ledger.UnitOfWork
	poster *ledger.Service
	std    accounts.Standard
	now    func() time.Time
}

// NewService constructs the asset service.
func NewService(repo Repository, uow ledger.UnitOfWork, poster *ledger.Service, std accounts.Standard) *Service {
	return &Service{repo: repo, uow: uow, poster: poster, std: std, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterInput describes a new asset.
type RegisterInput struct {
	Name       string
	Cost       float64
	Salvage    float64
	LifeMonths int
	AcquiredAt time.Time
}

// Register adds an asset to the registry.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Asset, error) {
	if in.Name == "" {
		return Asset{}, fmt.Errorf("%w: asset name required", ledger.ErrValidation)
	}
	if in.Cost <= 0 {
		return Asset{}, fmt.Errorf("%w: cost must be positive", ledger.ErrValidation)
	}
	if in.Salvage < 0 || in.Salvage >= in.Cost {
		return Asset{}, fmt.Errorf("%w: salvage must be non-negative and below cost", ledger.ErrValidation)
	}
	if in.LifeMonths <= 0 {
		return Asset{}, fmt.Errorf("%w: useful life must be at least one month", ledger.ErrValidation)
	}
	if in.AcquiredAt.IsZero() {
		in.AcquiredAt = s.now()
	}
	return s.repo.Insert(ctx, Asset{
		Name:       in.Name,
		Cost:       ledger.Round(in.Cost),
		Salvage:    ledger.Round(in.Salvage),
		LifeMonths: in.LifeMonths,
		AcquiredAt: in.AcquiredAt,
		IsActive:   true,
		CreatedAt:  s.now(),
	})
}

// Get loads one asset.
func (s *Service) Get(ctx context.Context, id int64) (Asset, error) {
	return s.repo.Get(ctx, id)
}

// List returns the registry.
func (s *Service) List(ctx context.Context) ([]Asset, error) {
	return s.repo.List(ctx)
}

// Dispose deactivates an asset; no further depreciation is taken.
func (s *Service) Dispose(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, false)
}

// RunResult summarizes one depreciation run.
type RunResult struct {
	Voucher ledger.Voucher
	Total   float64
	Assets  int
	Posted  bool
}

// RunDepreciation takes one straight-line installment for every active asset
// acquired on or before the run month, capping the final installment at the
// remaining base. The run posts a single aggregate voucher keyed by month,
// so re-running the same month is rejected before any registry update.
func (s *Service) RunDepreciation(ctx context.Context, asOf time.Time, actorID int64) (RunResult, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	monthKey := asOf.Format("2006-01")

	all, err := s.repo.List(ctx)
	if err != nil {
		return RunResult{}, err
	}
	type installment struct {
		assetID int64
		amount  float64
	}
	var (
		installments []installment
		total        float64
	)
	for _, a := range all {
		if !a.IsActive || a.AcquiredAt.After(asOf) {
			continue
		}
		remaining := ledger.Round(a.Base() - a.Depreciated)
		if remaining <= ledger.Epsilon {
			continue
		}
		amount := a.MonthlyAmount()
		if amount > remaining {
			amount = remaining
		}
		installments = append(installments, installment{assetID: a.ID, amount: amount})
		total += amount
	}
	total = ledger.Round(total)
	if total <= 0 {
		return RunResult{}, nil
	}

	// Voucher and registry updates commit together: a crash cannot leave GL
	// accumulated depreciation ahead of the per-asset counters.
	var voucher ledger.Voucher
	err = s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		voucher, err = s.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        asOf,
			Description: fmt.Sprintf("Depreciation %s (%d assets)", monthKey, len(installments)),
			SourceType:  "depreciation_run",
			SourceID:    monthKey,
			PostedBy:    actorID,
			Lines: []ledger.PostingLineInput{
				{AccountID: s.std.DepreciationExpense, Type: ledger.EntryDebit, Amount: total},
				{AccountID: s.std.AccumulatedDepreciation, Type: ledger.EntryCredit, Amount: total},
			},
		})
		if err != nil {
			return err
		}
		for _, inst := range installments {
			if err := s.repo.AddDepreciation(ctx, tx, inst.assetID, inst.amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Voucher: voucher, Total: total, Assets: len(installments), Posted: true}, nil
}
