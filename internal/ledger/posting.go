package ledger

import (
	"fmt"
	"time"
)

// PostingLineInput describes one requested voucher line.
type PostingLineInput struct {
	AccountID   int64
	Type        EntryType
	Amount      float64
	Description string
}

// PostingInput groups everything required to post a voucher.
type PostingInput struct {
	Date        time.Time
	Description string
	SourceType  string
	SourceID    string
	PostedBy    int64
	Lines       []PostingLineInput

	// Closing bypasses the open-period gate. Only the period close process
	// sets it, to post closing entries into the period being closed.
	Closing bool
}

// Validate checks the input before any mutation happens.
func (in PostingInput) Validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: posting date required", ErrValidation)
	}
	if in.PostedBy == 0 {
		return fmt.Errorf("%w: actor required", ErrValidation)
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("%w: line %d missing account", ErrValidation, idx)
		}
		if line.Type != EntryDebit && line.Type != EntryCredit {
			return fmt.Errorf("%w: line %d invalid entry type %q", ErrValidation, idx, line.Type)
		}
		if line.Amount <= 0 {
			return fmt.Errorf("%w: line %d amount must be positive", ErrValidation, idx)
		}
		if line.Type == EntryDebit {
			debit += line.Amount
		} else {
			credit += line.Amount
		}
	}
	if !WithinEpsilon(debit, credit) {
		return fmt.Errorf("%w: debit %.2f credit %.2f", ErrUnbalanced, debit, credit)
	}
	return nil
}

// Total returns the debit-side total of the posting.
func (in PostingInput) Total() float64 {
	var debit float64
	for _, line := range in.Lines {
		if line.Type == EntryDebit {
			debit += line.Amount
		}
	}
	return Round(debit)
}
