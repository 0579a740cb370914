package reports

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}

// WriteTrialBalanceCSV streams the statement as CSV.
func WriteTrialBalanceCSV(w io.Writer, tb TrialBalance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Code", "Name", "Type", "Debit", "Credit", "Balance"}); err != nil {
		return fmt.Errorf("reports: write csv header: %w", err)
	}
	for _, row := range tb.Rows {
		record := []string{
			row.Code,
			row.Name,
			string(row.Type),
			formatAmount(row.Debit),
			formatAmount(row.Credit),
			formatAmount(row.Balance),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("reports: write csv row: %w", err)
		}
	}
	totals := []string{"", "Total", "", formatAmount(tb.TotalDebit), formatAmount(tb.TotalCredit), ""}
	if err := cw.Write(totals); err != nil {
		return fmt.Errorf("reports: write csv totals: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteAccountHistoryCSV streams an account history as CSV.
func WriteAccountHistoryCSV(w io.Writer, h AccountHistory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Voucher", "Description", "Debit", "Credit", "Running Balance"}); err != nil {
		return fmt.Errorf("reports: write csv header: %w", err)
	}
	for _, row := range h.Rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			row.Number,
			row.Description,
			formatAmount(row.Debit),
			formatAmount(row.Credit),
			formatAmount(row.RunningBalance),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("reports: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
