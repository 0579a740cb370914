package ledger

import "errors"

var (
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("ledger: validation failed")
	// ErrTooFewLines indicates less than two voucher lines.
	ErrTooFewLines = errors.New("ledger: voucher requires at least two lines")
	// ErrUnbalanced indicates debits do not equal credits.
	ErrUnbalanced = errors.New("ledger: voucher lines must balance")
	// ErrPeriodNotFound indicates no fiscal period covers the posting date.
	ErrPeriodNotFound = errors.New("ledger: no fiscal period for date")
	// ErrPeriodClosed indicates the posting date falls in a locked or closed period.
	ErrPeriodClosed = errors.New("ledger: period is locked or closed")
	// ErrUnknownAccount indicates a line references a missing account.
	ErrUnknownAccount = errors.New("ledger: unknown account")
	// ErrAccountInactive indicates a line references a deactivated account.
	ErrAccountInactive = errors.New("ledger: account is inactive")
	// ErrInsufficientStock indicates an outbound move exceeds on-hand quantity.
	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	// ErrSourceAlreadyLinked indicates the source document was already posted.
	ErrSourceAlreadyLinked = errors.New("ledger: source document already posted")
	// ErrConflict indicates lock contention; the whole operation is safe to retry.
	ErrConflict = errors.New("ledger: concurrent update conflict")
	// ErrNotFound indicates a missing entity.
	ErrNotFound = errors.New("ledger: not found")
	// ErrInvalidStatus indicates a lifecycle transition is not allowed.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
)
