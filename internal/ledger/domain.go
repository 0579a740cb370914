package ledger

import (
	"time"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// EntryType marks a voucher line as debit or credit.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Opposite returns the flipped entry side.
func (t EntryType) Opposite() EntryType {
	if t == EntryDebit {
		return EntryCredit
	}
	return EntryDebit
}

// NormalSide returns the side on which accounts of this type increase.
func (t AccountType) NormalSide() EntryType {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return EntryDebit
	default:
		return EntryCredit
	}
}

// Temporary reports whether balances of this type are zeroed at period close.
func (t AccountType) Temporary() bool {
	return t == AccountTypeRevenue || t == AccountTypeExpense
}

// Account models a chart of accounts node. Balance is the denormalized
// signed sum of posted lines, positive on the account's normal side.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	ParentID  *int64
	IsActive  bool
	Balance   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoucherStatus enumerates voucher lifecycle values. Vouchers are append-only:
// a posted voucher is never mutated, a correction is a new reversing voucher.
type VoucherStatus string

const (
	VoucherStatusPosted   VoucherStatus = "POSTED"
	VoucherStatusReversed VoucherStatus = "REVERSED"
)

// Voucher is the header of a balanced group of debit/credit lines.
type Voucher struct {
	ID          int64
	Number      string
	Date        time.Time
	Description string
	SourceType  string
	SourceID    string
	PostedBy    int64
	Status      VoucherStatus
	ReversalOf  *int64
	PostedAt    time.Time
	CreatedAt   time.Time
	Lines       []VoucherLine
}

// VoucherLine is a single debit or credit against one account.
type VoucherLine struct {
	ID          int64
	VoucherID   int64
	AccountID   int64
	Type        EntryType
	Amount      float64
	Description string
}

// Signed returns the line amount signed per the given normal side.
func (l VoucherLine) Signed(normal EntryType) float64 {
	if l.Type == normal {
		return l.Amount
	}
	return -l.Amount
}

// PeriodStatus enumerates fiscal period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusLocked PeriodStatus = "LOCKED"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Period is a non-overlapping date range gating whether postings are allowed.
type Period struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	LockedBy  *int64
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the date falls inside the period window.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// PartyKind distinguishes the two subledgers.
type PartyKind string

const (
	PartyCustomer PartyKind = "CUSTOMER"
	PartySupplier PartyKind = "SUPPLIER"
)

// SubledgerKind enumerates subledger entry types.
type SubledgerKind string

const (
	SubledgerInvoice SubledgerKind = "INVOICE"
	SubledgerPayment SubledgerKind = "PAYMENT"
	SubledgerCredit  SubledgerKind = "CREDIT"
)

// SubledgerEntry is one AR/AP detail row. Amount carries the signed effect on
// the party balance: positive for invoices, negative for payments and credits.
type SubledgerEntry struct {
	ID          int64
	PartyKind   PartyKind
	PartyID     int64
	Kind        SubledgerKind
	Amount      float64
	Date        time.Time
	VoucherID   int64
	Ref         string
	Description string
	CreatedAt   time.Time
}

// StockBalance summarises on-hand quantity and moving-average unit cost.
type StockBalance struct {
	ProductID int64
	Qty       float64
	AvgCost   float64
	UpdatedAt time.Time
}

// StockDirection marks inbound or outbound movements.
type StockDirection string

const (
	StockIn  StockDirection = "IN"
	StockOut StockDirection = "OUT"
)

// StockMove describes a quantity movement applied to a stock balance.
// UnitCost is required for inbound moves; outbound moves consume the
// current moving-average cost.
type StockMove struct {
	ProductID int64
	Direction StockDirection
	Qty       float64
	UnitCost  float64
	Ref       string
}

// AccountActivity aggregates posted debits and credits for one account.
type AccountActivity struct {
	Account Account
	Debit   float64
	Credit  float64
}

// Entry is one posted line seen from a single account's perspective,
// used by account history and reconciliation reads.
type Entry struct {
	Date        time.Time
	VoucherID   int64
	Number      string
	Description string
	Debit       float64
	Credit      float64
}
