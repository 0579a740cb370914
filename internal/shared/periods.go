package shared

import (
	"fmt"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// ValidatePeriodTransition checks fiscal period status changes against
// policy: open -> locked -> closed, with unlock allowed only from locked.
// Closed is terminal.
func ValidatePeriodTransition(current, target ledger.PeriodStatus) error {
	if current == target {
		return nil
	}
	switch current {
	case ledger.PeriodStatusOpen:
		if target == ledger.PeriodStatusLocked {
			return nil
		}
	case ledger.PeriodStatusLocked:
		if target == ledger.PeriodStatusOpen || target == ledger.PeriodStatusClosed {
			return nil
		}
	case ledger.PeriodStatusClosed:
		// terminal
	}
	return fmt.Errorf("%w: period %s -> %s", ledger.ErrInvalidStatus, current, target)
}
