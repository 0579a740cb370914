package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-retail/meridian/internal/ledger"
)

type subledgerStore struct {
	tx pgx.Tx
}

func (s *subledgerStore) Append(ctx context.Context, e ledger.SubledgerEntry) (ledger.SubledgerEntry, error) {
	row := s.tx.QueryRow(ctx,
		`INSERT INTO subledger_entries (party_kind, party_id, kind, amount, date, voucher_id, ref, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		e.PartyKind, e.PartyID, e.Kind, e.Amount, e.Date, e.VoucherID, e.Ref, e.Description)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return ledger.SubledgerEntry{}, err
	}
	return e, nil
}

// PartyBalanceForUpdate locks the party's balance row, inserting a zero row
// first for parties that have never traded. The insert keeps the lock
// meaningful for first-ever payments.
func (s *subledgerStore) PartyBalanceForUpdate(ctx context.Context, kind ledger.PartyKind, partyID int64) (float64, error) {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO party_balances (party_kind, party_id, balance) VALUES ($1, $2, 0)
		 ON CONFLICT (party_kind, party_id) DO NOTHING`, kind, partyID)
	if err != nil {
		return 0, err
	}
	var balance float64
	err = s.tx.QueryRow(ctx,
		`SELECT balance FROM party_balances WHERE party_kind = $1 AND party_id = $2 FOR UPDATE`,
		kind, partyID).Scan(&balance)
	return balance, err
}

func (s *subledgerStore) ApplyPartyBalance(ctx context.Context, kind ledger.PartyKind, partyID int64, delta float64) error {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO party_balances (party_kind, party_id, balance) VALUES ($1, $2, round($3::numeric, 2))
		 ON CONFLICT (party_kind, party_id)
		 DO UPDATE SET balance = round((party_balances.balance + EXCLUDED.balance)::numeric, 2)`,
		kind, partyID, delta)
	return err
}
