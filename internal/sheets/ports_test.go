package sheets

import (
	"errors"
	"testing"
	"time"

	"aidance/internal/core"
)

func TestRowFromRecord(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	// 2024-03-31 20:00 UTC is already April 1st in loc.
	ts := time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC).UnixMilli()
	r := core.NewExpenseRecord("r1", core.RecordBase{Timestamp: ts}, core.Expense{Amount: 30, Category: "餐饮", Item: "面条"})

	row, err := RowFromRecord(r, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := ExpenseRow{Date: "2024-04-01", Item: "面条", Category: "餐饮", Amount: 30, Currency: "¥", RecordID: "r1"}
	if row != want {
		t.Fatalf("got %+v, want %+v", row, want)
	}
	if v := row.Values(); len(v) != 6 || v[5] != "r1" {
		t.Fatalf("unexpected values %v", v)
	}

	mood := core.NewMoodRecord("m", core.RecordBase{Timestamp: ts}, core.Mood{Mood: "开心"})
	if _, err := RowFromRecord(mood, loc); !errors.Is(err, ErrNotExpense) {
		t.Fatalf("expected ErrNotExpense, got %v", err)
	}
}
