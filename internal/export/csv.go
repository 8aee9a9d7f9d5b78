// Package export serializes transactions to CSV.
//
// The format is a plain header row followed by comma-joined values. Field
// values are written as-is: a description containing a comma produces a row
// that parses into the wrong columns. Callers who need lossless output
// should strip commas first.
package export

import (
	"fmt"
	"strings"
	"time"

	"mindcash/internal/core"
)

const dateLayout = "2006-01-02"

var header = []string{"id", "kind", "amount", "category", "description", "date"}

// TransactionsCSV renders the transactions, one row each, newest order
// preserved as given.
func TransactionsCSV(transactions []core.Transaction) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for _, t := range transactions {
		fields := []string{
			t.ID,
			string(t.Kind),
			t.Amount.String(),
			t.Category,
			t.Description,
			t.OccurredOn.Format(dateLayout),
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseTransactionsCSV reads back what TransactionsCSV produced. Rows whose
// descriptions contained commas will fail the column-count check.
func ParseTransactionsCSV(data string) ([]core.Transaction, error) {
	lines := strings.Split(strings.TrimRight(data, "\n"), "\n")
	if len(lines) == 0 || lines[0] != strings.Join(header, ",") {
		return nil, fmt.Errorf("missing or malformed header row")
	}

	var out []core.Transaction
	for i, line := range lines[1:] {
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != len(header) {
			return nil, fmt.Errorf("row %d: got %d fields, want %d", i+2, len(fields), len(header))
		}

		amount, err := core.ParseDecimalToCents(fields[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad amount %q: %w", i+2, fields[2], err)
		}
		occurred, err := time.ParseInLocation(dateLayout, fields[5], time.Local)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", i+2, fields[5], err)
		}

		out = append(out, core.Transaction{
			ID:          fields[0],
			Kind:        core.Kind(fields[1]),
			Amount:      core.Money{Cents: amount},
			Category:    fields[3],
			Description: fields[4],
			OccurredOn:  core.Date{Time: occurred},
		})
	}
	return out, nil
}
