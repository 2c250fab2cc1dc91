package sheets

import (
	"context"
	"errors"
	"time"

	"aidance/internal/core"
)

// DateLayout is the date format written to the sheet.
const DateLayout = "2006-01-02"

var ErrNotExpense = errors.New("record is not an expense")

// ExpenseRow is one exported expense.
type ExpenseRow struct {
	Date     string
	Item     string
	Category string
	Amount   float64
	Currency string
	RecordID string
}

// Ports for outbound adapters.
type (
	ExpenseExporter interface {
		// AppendExpense adds row at the end of the sheet.
		AppendExpense(ctx context.Context, row ExpenseRow) (rowRef string, err error)
		// HasRecord reports whether a row for recordID was already exported.
		HasRecord(ctx context.Context, recordID string) (bool, error)
	}
)

// RowFromRecord converts an EXPENSE record, dating it in loc.
func RowFromRecord(r core.Record, loc *time.Location) (ExpenseRow, error) {
	if r.Type != core.RecordExpense || r.Expense == nil {
		return ExpenseRow{}, ErrNotExpense
	}
	return ExpenseRow{
		Date:     core.TimeOf(r.Timestamp, loc).Format(DateLayout),
		Item:     r.Expense.Item,
		Category: r.Expense.Category,
		Amount:   r.Expense.Amount,
		Currency: r.Expense.Currency,
		RecordID: r.ID,
	}, nil
}

// Values returns the row cells in column order A..F.
func (r ExpenseRow) Values() []any {
	return []any{r.Date, r.Item, r.Category, r.Amount, r.Currency, r.RecordID}
}
