package memory

import (
	"context"
	"fmt"
	"sync"

	"aidance/internal/sheets"
)

// Exporter keeps exported rows in memory, for local runs and tests.
type Exporter struct {
	mu   sync.Mutex
	rows []sheets.ExpenseRow
}

var _ sheets.ExpenseExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// AppendExpense stores the row and returns a synthetic row reference.
func (e *Exporter) AppendExpense(_ context.Context, row sheets.ExpenseRow) (string, error) {
	if row.RecordID == "" {
		return "", fmt.Errorf("append expense: empty record id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, row)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

func (e *Exporter) HasRecord(_ context.Context, recordID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.rows {
		if r.RecordID == recordID {
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of the exported rows.
func (e *Exporter) Rows() []sheets.ExpenseRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.ExpenseRow(nil), e.rows...)
}
