package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/assets"
	"github.com/meridian-retail/meridian/internal/ledger"
)

const assetColumns = `id, name, cost, salvage, life_months, acquired_at, depreciated, is_active, created_at`

func scanAsset(row pgx.Row) (assets.Asset, error) {
	var a assets.Asset
	err := row.Scan(&a.ID, &a.Name, &a.Cost, &a.Salvage, &a.LifeMonths, &a.AcquiredAt, &a.Depreciated, &a.IsActive, &a.CreatedAt)
	return a, err
}

// AssetRepo persists the fixed-asset registry.
type AssetRepo struct {
	pool *pgxpool.Pool
}

// NewAssetRepo constructs AssetRepo.
func NewAssetRepo(pool *pgxpool.Pool) *AssetRepo {
	return &AssetRepo{pool: pool}
}

func (r *AssetRepo) Insert(ctx context.Context, a assets.Asset) (assets.Asset, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO assets (name, cost, salvage, life_months, acquired_at, depreciated, is_active)
		 VALUES ($1, $2, $3, $4, $5, 0, true)
		 RETURNING `+assetColumns,
		a.Name, a.Cost, a.Salvage, a.LifeMonths, a.AcquiredAt)
	return scanAsset(row)
}

func (r *AssetRepo) Get(ctx context.Context, id int64) (assets.Asset, error) {
	a, err := scanAsset(r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return assets.Asset{}, fmt.Errorf("%w: asset %d", ledger.ErrNotFound, id)
	}
	return a, err
}

func (r *AssetRepo) List(ctx context.Context) ([]assets.Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []assets.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssetRepo) AddDepreciation(ctx context.Context, tx ledger.Tx, id int64, amount float64) error {
	tag, err := txExec(tx, r.pool).Exec(ctx,
		`UPDATE assets SET depreciated = round((depreciated + $2)::numeric, 2) WHERE id = $1`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: asset %d", ledger.ErrNotFound, id)
	}
	return nil
}

func (r *AssetRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE assets SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: asset %d", ledger.ErrNotFound, id)
	}
	return nil
}
