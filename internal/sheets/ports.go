package sheets

import (
	"context"

	"tally/internal/core"
)

// ExpenseAppender is the outbound port for the spreadsheet backup.
type ExpenseAppender interface {
	// Append writes one expense row and returns a reference to where it
	// landed.
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
