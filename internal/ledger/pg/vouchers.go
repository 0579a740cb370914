package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-retail/meridian/internal/ledger"
)

type voucherStore struct {
	tx pgx.Tx
}

func (s *voucherStore) NextNumber(ctx context.Context) (string, error) {
	var n int64
	if err := s.tx.QueryRow(ctx, `SELECT nextval('voucher_numbers')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("JV-%06d", n), nil
}

func (s *voucherStore) Insert(ctx context.Context, v ledger.Voucher) (ledger.Voucher, error) {
	row := s.tx.QueryRow(ctx,
		`INSERT INTO vouchers (number, date, description, source_type, source_id, posted_by, status, reversal_of, posted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		v.Number, v.Date, v.Description, v.SourceType, v.SourceID, v.PostedBy, v.Status, v.ReversalOf, v.PostedAt)
	if err := row.Scan(&v.ID, &v.CreatedAt); err != nil {
		return ledger.Voucher{}, err
	}
	return v, nil
}

func (s *voucherStore) InsertLines(ctx context.Context, voucherID int64, lines []ledger.VoucherLine) ([]ledger.VoucherLine, error) {
	out := make([]ledger.VoucherLine, 0, len(lines))
	for _, l := range lines {
		l.VoucherID = voucherID
		row := s.tx.QueryRow(ctx,
			`INSERT INTO voucher_lines (voucher_id, account_id, type, amount, description)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			l.VoucherID, l.AccountID, l.Type, l.Amount, l.Description)
		if err := row.Scan(&l.ID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *voucherStore) GetWithLines(ctx context.Context, id int64) (ledger.Voucher, error) {
	return getVoucherWithLines(ctx, s.tx, id)
}

func (s *voucherStore) MarkReversed(ctx context.Context, id, reversalID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE vouchers SET status = $2 WHERE id = $1`, id, ledger.VoucherStatusReversed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: voucher %d", ledger.ErrNotFound, id)
	}
	_, err = s.tx.Exec(ctx, `UPDATE vouchers SET reversal_of = $2 WHERE id = $1`, reversalID, id)
	return err
}

func (s *voucherStore) LinkSource(ctx context.Context, sourceType, sourceID string, voucherID int64) error {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO source_links (source_type, source_id, voucher_id) VALUES ($1, $2, $3)`,
		sourceType, sourceID, voucherID)
	return mapError(err)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getVoucherWithLines(ctx context.Context, q querier, id int64) (ledger.Voucher, error) {
	var v ledger.Voucher
	err := q.QueryRow(ctx,
		`SELECT id, number, date, description, source_type, source_id, posted_by, status, reversal_of, posted_at, created_at
		 FROM vouchers WHERE id = $1`, id).
		Scan(&v.ID, &v.Number, &v.Date, &v.Description, &v.SourceType, &v.SourceID, &v.PostedBy, &v.Status, &v.ReversalOf, &v.PostedAt, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Voucher{}, fmt.Errorf("%w: voucher %d", ledger.ErrNotFound, id)
	}
	if err != nil {
		return ledger.Voucher{}, err
	}
	rows, err := q.Query(ctx,
		`SELECT id, voucher_id, account_id, type, amount, description
		 FROM voucher_lines WHERE voucher_id = $1 ORDER BY id`, id)
	if err != nil {
		return ledger.Voucher{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l ledger.VoucherLine
		if err := rows.Scan(&l.ID, &l.VoucherID, &l.AccountID, &l.Type, &l.Amount, &l.Description); err != nil {
			return ledger.Voucher{}, err
		}
		v.Lines = append(v.Lines, l)
	}
	return v, rows.Err()
}
