// Package ledgertest provides an in-memory UnitOfWork used by package tests
// across the finance core. Run snapshots state up front and restores it when
// the function fails, so rollback behavior matches the real store.
package ledgertest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
)

type partyKey struct {
	kind ledger.PartyKind
	id   int64
}

// Store is an in-memory implementation of ledger.UnitOfWork plus the read
// ports consumed by the reports, AR/AP and reconciliation packages.
type Store struct {
	mu sync.Mutex

	accounts    map[int64]*ledger.Account
	byCode      map[string]int64
	periods     map[int64]*ledger.Period
	vouchers    map[int64]*ledger.Voucher
	sourceLinks map[string]int64
	entries     []ledger.SubledgerEntry
	balances    map[partyKey]float64
	stock       map[int64]*ledger.StockBalance

	accountSeq int64
	periodSeq  int64
	voucherSeq int64
	lineSeq    int64
	entrySeq   int64
	numberSeq  int64
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[int64]*ledger.Account),
		byCode:      make(map[string]int64),
		periods:     make(map[int64]*ledger.Period),
		vouchers:    make(map[int64]*ledger.Voucher),
		sourceLinks: make(map[string]int64),
		balances:    make(map[partyKey]float64),
		stock:       make(map[int64]*ledger.StockBalance),
	}
}

// AddAccount seeds an active account and returns it.
func (s *Store) AddAccount(code, name string, typ ledger.AccountType) ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountSeq++
	acct := &ledger.Account{
		ID:       s.accountSeq,
		Code:     code,
		Name:     name,
		Type:     typ,
		IsActive: true,
	}
	s.accounts[acct.ID] = acct
	s.byCode[code] = acct.ID
	return *acct
}

// DeactivateAccount flips the active flag on a seeded account.
func (s *Store) DeactivateAccount(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[id]; ok {
		acct.IsActive = false
	}
}

// AddPeriod seeds a fiscal period.
func (s *Store) AddPeriod(name string, start, end time.Time, status ledger.PeriodStatus) ledger.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periodSeq++
	p := &ledger.Period{
		ID:        s.periodSeq,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    status,
	}
	s.periods[p.ID] = p
	return *p
}

// ListPeriods returns all periods ordered by start date.
func (s *Store) ListPeriods(_ context.Context) ([]ledger.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Period, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// SetStock seeds a product balance.
func (s *Store) SetStock(productID int64, qty, avgCost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = &ledger.StockBalance{ProductID: productID, Qty: qty, AvgCost: avgCost}
}

// Account returns a copy of the account by id.
func (s *Store) Account(id int64) ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[id]; ok {
		return *acct
	}
	return ledger.Account{}
}

// GetAccount returns the account by id, erroring when missing.
func (s *Store) GetAccount(_ context.Context, id int64) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[id]; ok {
		return *acct, nil
	}
	return ledger.Account{}, fmt.Errorf("%w: account %d", ledger.ErrUnknownAccount, id)
}

// Period returns a copy of the period by id.
func (s *Store) Period(id int64) ledger.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.periods[id]; ok {
		return *p
	}
	return ledger.Period{}
}

// Vouchers returns all vouchers ordered by id.
func (s *Store) AllVouchers() []ledger.Voucher {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Voucher, 0, len(s.vouchers))
	for _, v := range s.vouchers {
		cp := *v
		cp.Lines = append([]ledger.VoucherLine(nil), v.Lines...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StockBalance returns a copy of the product balance.
func (s *Store) StockBalance(productID int64) ledger.StockBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.stock[productID]; ok {
		return *b
	}
	return ledger.StockBalance{ProductID: productID}
}

// StockBalances lists every product balance ordered by product id.
func (s *Store) StockBalances(_ context.Context) ([]ledger.StockBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.StockBalance, 0, len(s.stock))
	for _, b := range s.stock {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// ProductStock returns one product balance, zero-valued when unknown.
func (s *Store) ProductStock(_ context.Context, productID int64) (ledger.StockBalance, error) {
	return s.StockBalance(productID), nil
}

// Run implements ledger.UnitOfWork with snapshot/restore atomicity.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(ctx, &memTx{store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	accounts    map[int64]*ledger.Account
	byCode      map[string]int64
	periods     map[int64]*ledger.Period
	vouchers    map[int64]*ledger.Voucher
	sourceLinks map[string]int64
	entries     []ledger.SubledgerEntry
	balances    map[partyKey]float64
	stock       map[int64]*ledger.StockBalance
	seqs        [6]int64
}

func (s *Store) snapshot() snapshotState {
	snap := snapshotState{
		accounts:    make(map[int64]*ledger.Account, len(s.accounts)),
		byCode:      make(map[string]int64, len(s.byCode)),
		periods:     make(map[int64]*ledger.Period, len(s.periods)),
		vouchers:    make(map[int64]*ledger.Voucher, len(s.vouchers)),
		sourceLinks: make(map[string]int64, len(s.sourceLinks)),
		entries:     append([]ledger.SubledgerEntry(nil), s.entries...),
		balances:    make(map[partyKey]float64, len(s.balances)),
		stock:       make(map[int64]*ledger.StockBalance, len(s.stock)),
		seqs:        [6]int64{s.accountSeq, s.periodSeq, s.voucherSeq, s.lineSeq, s.entrySeq, s.numberSeq},
	}
	for id, acct := range s.accounts {
		cp := *acct
		snap.accounts[id] = &cp
	}
	for code, id := range s.byCode {
		snap.byCode[code] = id
	}
	for id, p := range s.periods {
		cp := *p
		snap.periods[id] = &cp
	}
	for id, v := range s.vouchers {
		cp := *v
		cp.Lines = append([]ledger.VoucherLine(nil), v.Lines...)
		snap.vouchers[id] = &cp
	}
	for key, id := range s.sourceLinks {
		snap.sourceLinks[key] = id
	}
	for key, bal := range s.balances {
		snap.balances[key] = bal
	}
	for id, b := range s.stock {
		cp := *b
		snap.stock[id] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshotState) {
	s.accounts = snap.accounts
	s.byCode = snap.byCode
	s.periods = snap.periods
	s.vouchers = snap.vouchers
	s.sourceLinks = snap.sourceLinks
	s.entries = snap.entries
	s.balances = snap.balances
	s.stock = snap.stock
	s.accountSeq, s.periodSeq, s.voucherSeq = snap.seqs[0], snap.seqs[1], snap.seqs[2]
	s.lineSeq, s.entrySeq, s.numberSeq = snap.seqs[3], snap.seqs[4], snap.seqs[5]
}

type memTx struct {
	store *Store
}

func (t *memTx) Accounts() ledger.AccountStore   { return (*memAccounts)(t) }
func (t *memTx) Vouchers() ledger.VoucherStore   { return (*memVouchers)(t) }
func (t *memTx) Periods() ledger.PeriodStore     { return (*memPeriods)(t) }
func (t *memTx) Subledger() ledger.SubledgerStore { return (*memSubledger)(t) }
func (t *memTx) Stock() ledger.StockStore        { return (*memStock)(t) }

type memAccounts memTx

func (m *memAccounts) GetForUpdate(_ context.Context, id int64) (ledger.Account, error) {
	acct, ok := m.store.accounts[id]
	if !ok {
		return ledger.Account{}, fmt.Errorf("%w: account %d", ledger.ErrUnknownAccount, id)
	}
	return *acct, nil
}

func (m *memAccounts) GetByCodeForUpdate(_ context.Context, code string) (ledger.Account, error) {
	id, ok := m.store.byCode[code]
	if !ok {
		return ledger.Account{}, fmt.Errorf("%w: account %s", ledger.ErrUnknownAccount, code)
	}
	return *m.store.accounts[id], nil
}

func (m *memAccounts) ApplyBalance(_ context.Context, id int64, delta float64) error {
	acct, ok := m.store.accounts[id]
	if !ok {
		return fmt.Errorf("%w: account %d", ledger.ErrUnknownAccount, id)
	}
	acct.Balance = ledger.Round(acct.Balance + delta)
	return nil
}

func (m *memAccounts) ListByTypeForUpdate(_ context.Context, types ...ledger.AccountType) ([]ledger.Account, error) {
	want := make(map[ledger.AccountType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []ledger.Account
	for _, acct := range m.store.accounts {
		if acct.IsActive && want[acct.Type] {
			out = append(out, *acct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type memVouchers memTx

func (m *memVouchers) NextNumber(_ context.Context) (string, error) {
	m.store.numberSeq++
	return fmt.Sprintf("JV-%06d", m.store.numberSeq), nil
}

func (m *memVouchers) Insert(_ context.Context, v ledger.Voucher) (ledger.Voucher, error) {
	m.store.voucherSeq++
	v.ID = m.store.voucherSeq
	v.CreatedAt = v.PostedAt
	cp := v
	m.store.vouchers[v.ID] = &cp
	return v, nil
}

func (m *memVouchers) InsertLines(_ context.Context, voucherID int64, lines []ledger.VoucherLine) ([]ledger.VoucherLine, error) {
	v, ok := m.store.vouchers[voucherID]
	if !ok {
		return nil, fmt.Errorf("%w: voucher %d", ledger.ErrNotFound, voucherID)
	}
	out := make([]ledger.VoucherLine, 0, len(lines))
	for _, line := range lines {
		m.store.lineSeq++
		line.ID = m.store.lineSeq
		line.VoucherID = voucherID
		out = append(out, line)
	}
	v.Lines = append(v.Lines, out...)
	return out, nil
}

func (m *memVouchers) GetWithLines(_ context.Context, id int64) (ledger.Voucher, error) {
	v, ok := m.store.vouchers[id]
	if !ok {
		return ledger.Voucher{}, fmt.Errorf("%w: voucher %d", ledger.ErrNotFound, id)
	}
	cp := *v
	cp.Lines = append([]ledger.VoucherLine(nil), v.Lines...)
	return cp, nil
}

func (m *memVouchers) MarkReversed(_ context.Context, id, reversalID int64) error {
	v, ok := m.store.vouchers[id]
	if !ok {
		return fmt.Errorf("%w: voucher %d", ledger.ErrNotFound, id)
	}
	v.Status = ledger.VoucherStatusReversed
	if rv, ok := m.store.vouchers[reversalID]; ok {
		orig := id
		rv.ReversalOf = &orig
	}
	return nil
}

func (m *memVouchers) LinkSource(_ context.Context, sourceType, sourceID string, voucherID int64) error {
	key := sourceType + ":" + sourceID
	if _, exists := m.store.sourceLinks[key]; exists {
		return fmt.Errorf("%w: %s", ledger.ErrSourceAlreadyLinked, key)
	}
	m.store.sourceLinks[key] = voucherID
	return nil
}

type memPeriods memTx

func (m *memPeriods) GetForUpdate(_ context.Context, id int64) (ledger.Period, error) {
	p, ok := m.store.periods[id]
	if !ok {
		return ledger.Period{}, fmt.Errorf("%w: period %d", ledger.ErrNotFound, id)
	}
	return *p, nil
}

func (m *memPeriods) GetForUpdateByDate(_ context.Context, date time.Time) (ledger.Period, error) {
	for _, p := range m.store.periods {
		if p.Contains(date) {
			return *p, nil
		}
	}
	return ledger.Period{}, fmt.Errorf("%w: %s", ledger.ErrPeriodNotFound, date.Format("2006-01-02"))
}

func (m *memPeriods) NextOpenAfter(_ context.Context, date time.Time) (ledger.Period, error) {
	var best *ledger.Period
	for _, p := range m.store.periods {
		if p.Status != ledger.PeriodStatusOpen || p.StartDate.Before(date) {
			continue
		}
		if best == nil || p.StartDate.Before(best.StartDate) {
			best = p
		}
	}
	if best == nil {
		return ledger.Period{}, fmt.Errorf("%w: no open period after %s", ledger.ErrPeriodNotFound, date.Format("2006-01-02"))
	}
	return *best, nil
}

func (m *memPeriods) Insert(_ context.Context, p ledger.Period) (ledger.Period, error) {
	m.store.periodSeq++
	p.ID = m.store.periodSeq
	cp := p
	m.store.periods[p.ID] = &cp
	return p, nil
}

func (m *memPeriods) RangeConflict(_ context.Context, start, end time.Time) (bool, error) {
	for _, p := range m.store.periods {
		if !end.Before(p.StartDate) && !start.After(p.EndDate) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPeriods) UpdateStatus(_ context.Context, id int64, status ledger.PeriodStatus, actorID int64, at time.Time) error {
	p, ok := m.store.periods[id]
	if !ok {
		return fmt.Errorf("%w: period %d", ledger.ErrNotFound, id)
	}
	p.Status = status
	switch status {
	case ledger.PeriodStatusLocked:
		p.LockedBy = &actorID
	case ledger.PeriodStatusClosed:
		closedAt := at
		p.ClosedAt = &closedAt
	case ledger.PeriodStatusOpen:
		p.LockedBy = nil
	}
	p.UpdatedAt = at
	return nil
}

type memSubledger memTx

func (m *memSubledger) Append(_ context.Context, e ledger.SubledgerEntry) (ledger.SubledgerEntry, error) {
	m.store.entrySeq++
	e.ID = m.store.entrySeq
	m.store.entries = append(m.store.entries, e)
	return e, nil
}

func (m *memSubledger) PartyBalanceForUpdate(_ context.Context, kind ledger.PartyKind, partyID int64) (float64, error) {
	return m.store.balances[partyKey{kind, partyID}], nil
}

func (m *memSubledger) ApplyPartyBalance(_ context.Context, kind ledger.PartyKind, partyID int64, delta float64) error {
	key := partyKey{kind, partyID}
	m.store.balances[key] = ledger.Round(m.store.balances[key] + delta)
	return nil
}

type memStock memTx

func (m *memStock) BalanceForUpdate(_ context.Context, productID int64) (ledger.StockBalance, error) {
	if b, ok := m.store.stock[productID]; ok {
		return *b, nil
	}
	return ledger.StockBalance{ProductID: productID}, nil
}

func (m *memStock) Apply(_ context.Context, move ledger.StockMove) (ledger.StockBalance, error) {
	b, ok := m.store.stock[move.ProductID]
	if !ok {
		b = &ledger.StockBalance{ProductID: move.ProductID}
		m.store.stock[move.ProductID] = b
	}
	switch move.Direction {
	case ledger.StockIn:
		total := b.Qty*b.AvgCost + move.Qty*move.UnitCost
		b.Qty += move.Qty
		if b.Qty > 0 {
			b.AvgCost = total / b.Qty
		}
	case ledger.StockOut:
		if move.Qty > b.Qty {
			return ledger.StockBalance{}, fmt.Errorf("%w: product %d has %.2f, need %.2f",
				ledger.ErrInsufficientStock, move.ProductID, b.Qty, move.Qty)
		}
		b.Qty -= move.Qty
	default:
		return ledger.StockBalance{}, fmt.Errorf("%w: stock direction %q", ledger.ErrValidation, move.Direction)
	}
	return *b, nil
}

// Read-side helpers below satisfy the query ports of the reports, AR/AP and
// reconciliation packages, so one store backs a whole scenario test.

// Activity aggregates posted debits/credits per account up to asOf.
func (s *Store) Activity(_ context.Context, asOf time.Time) ([]ledger.AccountActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byAccount := make(map[int64]*ledger.AccountActivity)
	for _, acct := range s.accounts {
		byAccount[acct.ID] = &ledger.AccountActivity{Account: *acct}
	}
	for _, v := range s.vouchers {
		if v.Date.After(asOf) {
			continue
		}
		for _, line := range v.Lines {
			act, ok := byAccount[line.AccountID]
			if !ok {
				continue
			}
			if line.Type == ledger.EntryDebit {
				act.Debit += line.Amount
			} else {
				act.Credit += line.Amount
			}
		}
	}
	out := make([]ledger.AccountActivity, 0, len(byAccount))
	for _, act := range byAccount {
		out = append(out, *act)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Code < out[j].Account.Code })
	return out, nil
}

// AccountEntries lists posted lines against one account within [from, to],
// ordered by (date, voucher id).
func (s *Store) AccountEntries(_ context.Context, accountID int64, from, to time.Time) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Entry
	for _, v := range s.vouchers {
		if v.Date.Before(from) || v.Date.After(to) {
			continue
		}
		for _, line := range v.Lines {
			if line.AccountID != accountID {
				continue
			}
			e := ledger.Entry{
				Date:        v.Date,
				VoucherID:   v.ID,
				Number:      v.Number,
				Description: lineDescription(line, v),
			}
			if line.Type == ledger.EntryDebit {
				e.Debit = line.Amount
			} else {
				e.Credit = line.Amount
			}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].VoucherID < out[j].VoucherID
	})
	return out, nil
}

// AccountBalanceBefore returns the signed account balance from postings
// strictly before the given date.
func (s *Store) AccountBalanceBefore(ctx context.Context, accountID int64, before time.Time) (float64, error) {
	s.mu.Lock()
	acct, ok := s.accounts[accountID]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: account %d", ledger.ErrUnknownAccount, accountID)
	}
	normal := acct.Type.NormalSide()
	var balance float64
	for _, v := range s.vouchers {
		if !v.Date.Before(before) {
			continue
		}
		for _, line := range v.Lines {
			if line.AccountID == accountID {
				balance += line.Signed(normal)
			}
		}
	}
	s.mu.Unlock()
	return ledger.Round(balance), nil
}

// AccountBalanceAsOf returns the signed balance of the account with the given
// code from postings up to and including asOf.
func (s *Store) AccountBalanceAsOf(ctx context.Context, code string, asOf time.Time) (float64, error) {
	s.mu.Lock()
	id, ok := s.byCode[code]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: account %s", ledger.ErrUnknownAccount, code)
	}
	return s.AccountBalanceBefore(ctx, id, asOf.AddDate(0, 0, 1))
}

// SubledgerEntries lists a party's entries ordered oldest first by (date, id).
func (s *Store) SubledgerEntries(_ context.Context, kind ledger.PartyKind, partyID int64) ([]ledger.SubledgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.SubledgerEntry
	for _, e := range s.entries {
		if e.PartyKind == kind && e.PartyID == partyID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PartyBalance returns the denormalized balance for a customer or supplier.
func (s *Store) PartyBalance(_ context.Context, kind ledger.PartyKind, partyID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[partyKey{kind, partyID}], nil
}

// PartyBalanceTotal sums the outstanding balances of every party of a kind.
func (s *Store) PartyBalanceTotal(_ context.Context, kind ledger.PartyKind) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for key, bal := range s.balances {
		if key.kind == kind {
			total += bal
		}
	}
	return ledger.Round(total), nil
}

func lineDescription(line ledger.VoucherLine, v *ledger.Voucher) string {
	if line.Description != "" {
		return line.Description
	}
	return v.Description
}
