package assets_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/assets"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
	"github.com/meridian-retail/meridian/internal/ledger/ledgertest"
)

type memoryRepo struct {
	seq              int64
	assets           map[int64]assets.Asset
	failDepreciation bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{assets: map[int64]assets.Asset{}}
}

func (m *memoryRepo) Insert(_ context.Context, a assets.Asset) (assets.Asset, error) {
	m.seq++
	a.ID = m.seq
	m.assets[a.ID] = a
	return a, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (assets.Asset, error) {
	a, ok := m.assets[id]
	if !ok {
		return assets.Asset{}, ledger.ErrNotFound
	}
	return a, nil
}

func (m *memoryRepo) List(_ context.Context) ([]assets.Asset, error) {
	out := make([]assets.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) AddDepreciation(_ context.Context, _ ledger.Tx, id int64, amount float64) error {
	if m.failDepreciation {
		return errors.New("registry unavailable")
	}
	a, ok := m.assets[id]
	if !ok {
		return ledger.ErrNotFound
	}
	a.Depreciated = ledger.Round(a.Depreciated + amount)
	m.assets[id] = a
	return nil
}

func (m *memoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	a, ok := m.assets[id]
	if !ok {
		return ledger.ErrNotFound
	}
	a.IsActive = active
	m.assets[id] = a
	return nil
}

type fixture struct {
	mem     *ledgertest.Store
	repo    *memoryRepo
	service *assets.Service
	std     accounts.Standard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledgertest.NewStore()
	std := accounts.Standard{
		DepreciationExpense:     mem.AddAccount("5200", "Depreciation Expense", ledger.AccountTypeExpense).ID,
		AccumulatedDepreciation: mem.AddAccount("1500", "Accumulated Depreciation", ledger.AccountTypeAsset).ID,
	}
	mem.AddPeriod("2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), ledger.PeriodStatusOpen)

	repo := newMemoryRepo()
	poster := ledger.NewService(mem)
	svc := assets.NewService(repo, mem, poster, std)
	svc.WithNow(func() time.Time { return time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC) })
	return &fixture{mem: mem, repo: repo, service: svc, std: std}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, assets.RegisterInput{Cost: 100, LifeMonths: 12})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.Register(ctx, assets.RegisterInput{Name: "Freezer", Cost: 100, Salvage: 100, LifeMonths: 12})
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.service.Register(ctx, assets.RegisterInput{Name: "Freezer", Cost: 100, LifeMonths: 0})
	require.ErrorIs(t, err, ledger.ErrValidation)

	asset, err := f.service.Register(ctx, assets.RegisterInput{
		Name:       "Walk-in freezer",
		Cost:       2400.00,
		Salvage:    0,
		LifeMonths: 24,
		AcquiredAt: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, asset.IsActive)
	require.InDelta(t, 100.00, asset.MonthlyAmount(), 0.001)
}

func TestRunDepreciationPostsAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acquired := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := f.service.Register(ctx, assets.RegisterInput{Name: "Freezer", Cost: 2400, LifeMonths: 24, AcquiredAt: acquired})
	require.NoError(t, err)
	_, err = f.service.Register(ctx, assets.RegisterInput{Name: "Delivery van", Cost: 12000, Salvage: 2400, LifeMonths: 48, AcquiredAt: acquired})
	require.NoError(t, err)

	result, err := f.service.RunDepreciation(ctx, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.True(t, result.Posted)
	require.Equal(t, 2, result.Assets)
	// 2400/24 + (12000-2400)/48 = 100 + 200.
	require.InDelta(t, 300.00, result.Total, 0.001)

	require.InDelta(t, 300.00, f.mem.Account(f.std.DepreciationExpense).Balance, 0.001)
	require.InDelta(t, -300.00, f.mem.Account(f.std.AccumulatedDepreciation).Balance, 0.001)

	first, err := f.service.Get(ctx, 1)
	require.NoError(t, err)
	require.InDelta(t, 100.00, first.Depreciated, 0.001)
}

func TestRunDepreciationCapsAtBase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asset, err := f.service.Register(ctx, assets.RegisterInput{
		Name:       "Scale",
		Cost:       250.00,
		LifeMonths: 2,
		AcquiredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Monthly installment 125.00; simulate prior runs totalling 200.00.
	require.NoError(t, f.repo.AddDepreciation(ctx, nil, asset.ID, 200.00))

	result, err := f.service.RunDepreciation(ctx, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.InDelta(t, 50.00, result.Total, 0.001)

	done, err := f.service.Get(ctx, asset.ID)
	require.NoError(t, err)
	require.InDelta(t, done.Base(), done.Depreciated, 0.001)

	// Fully depreciated assets produce no further postings.
	again, err := f.service.RunDepreciation(ctx, time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.False(t, again.Posted)
}

func TestRunDepreciationRollsBackVoucherOnRegistryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.Register(ctx, assets.RegisterInput{
		Name:       "Freezer",
		Cost:       1200,
		LifeMonths: 12,
		AcquiredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f.repo.failDepreciation = true
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	_, err = f.service.RunDepreciation(ctx, asOf, 3)
	require.Error(t, err)

	// The voucher rolled back with the registry write, so GL balances are
	// untouched and the month can be re-run once the registry recovers.
	require.Empty(t, f.mem.AllVouchers())
	require.Zero(t, f.mem.Account(f.std.DepreciationExpense).Balance)

	f.repo.failDepreciation = false
	result, err := f.service.RunDepreciation(ctx, asOf, 3)
	require.NoError(t, err)
	require.True(t, result.Posted)
	require.InDelta(t, 100.00, result.Total, 0.001)
}

func TestRunDepreciationIdempotentPerMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.Register(ctx, assets.RegisterInput{
		Name:       "Freezer",
		Cost:       1200,
		LifeMonths: 12,
		AcquiredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	_, err = f.service.RunDepreciation(ctx, asOf, 3)
	require.NoError(t, err)

	_, err = f.service.RunDepreciation(ctx, asOf, 3)
	require.ErrorIs(t, err, ledger.ErrSourceAlreadyLinked)

	// Registry untouched by the rejected rerun.
	asset, err := f.service.Get(ctx, 1)
	require.NoError(t, err)
	require.InDelta(t, 100.00, asset.Depreciated, 0.001)
}

func TestRunDepreciationSkipsFutureAndDisposedAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	future, err := f.service.Register(ctx, assets.RegisterInput{
		Name:       "New slicer",
		Cost:       600,
		LifeMonths: 6,
		AcquiredAt: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	disposed, err := f.service.Register(ctx, assets.RegisterInput{
		Name:       "Old cooler",
		Cost:       1000,
		LifeMonths: 10,
		AcquiredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, f.service.Dispose(ctx, disposed.ID))

	result, err := f.service.RunDepreciation(ctx, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.False(t, result.Posted)
	require.Zero(t, result.Assets)

	// Neither asset accrued anything.
	a, _ := f.service.Get(ctx, future.ID)
	require.Zero(t, a.Depreciated)
}
