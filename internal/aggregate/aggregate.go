// Package aggregate computes the dashboard views and budget alerts from the
// stored records. Every function is pure and treats empty input as zero.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"aidance/internal/core"
)

// Tab selects a record type on the dashboard.
type Tab string

const (
	TabAll     Tab = "all"
	TabMood    Tab = "mood"
	TabExpense Tab = "expense"
	TabEvent   Tab = "event"
)

// AllCategories is the pass-through category filter.
const AllCategories = "all"

// ParseTab maps a query value to a Tab; empty and unknown values are TabAll.
func ParseTab(s string) Tab {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case TabMood:
		return TabMood
	case TabExpense:
		return TabExpense
	case TabEvent:
		return TabEvent
	default:
		return TabAll
	}
}

func (t Tab) recordType() (core.RecordType, bool) {
	switch t {
	case TabMood:
		return core.RecordMood, true
	case TabExpense:
		return core.RecordExpense, true
	case TabEvent:
		return core.RecordEvent, true
	default:
		return "", false
	}
}

// MonthlyExpenses returns the EXPENSE records whose timestamp falls in the
// given calendar month (1-12) and year as seen from loc. Input order is kept.
func MonthlyExpenses(records []core.Record, month time.Month, year int, loc *time.Location) []core.Record {
	out := make([]core.Record, 0)
	for _, r := range records {
		if r.Type != core.RecordExpense || r.Expense == nil {
			continue
		}
		t := core.TimeOf(r.Timestamp, loc)
		if t.Month() == month && t.Year() == year {
			out = append(out, r)
		}
	}
	return out
}

// TotalSpent sums the expense amounts.
func TotalSpent(expenses []core.Record) float64 {
	var total float64
	for _, r := range expenses {
		if r.Expense != nil {
			total += r.Expense.Amount
		}
	}
	return total
}

// CategoryBreakdown groups expenses by category, largest total first. Ties
// keep the order in which the categories were first seen. Percent is each
// total relative to the largest one.
func CategoryBreakdown(expenses []core.Record) []core.CategoryAmount {
	index := map[string]int{}
	out := make([]core.CategoryAmount, 0)
	for _, r := range expenses {
		if r.Expense == nil {
			continue
		}
		i, ok := index[r.Expense.Category]
		if !ok {
			i = len(out)
			index[r.Expense.Category] = i
			out = append(out, core.CategoryAmount{Name: r.Expense.Category})
		}
		out[i].Amount += r.Expense.Amount
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })

	if len(out) > 0 && out[0].Amount > 0 {
		top := out[0].Amount
		for i := range out {
			out[i].Percent = out[i].Amount / top * 100
		}
	}
	return out
}

// FilterByTab narrows records to a tab and a category, newest first. Mood
// records match a category through their tags.
func FilterByTab(records []core.Record, tab Tab, category string) []core.Record {
	want, byType := tab.recordType()
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if byType && r.Type != want {
			continue
		}
		if category != "" && category != AllCategories && !matchesCategory(r, category) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

func matchesCategory(r core.Record, category string) bool {
	switch r.Type {
	case core.RecordMood:
		if r.Mood == nil {
			return false
		}
		for _, tag := range r.Mood.Tags {
			if tag == category {
				return true
			}
		}
		return false
	default:
		return r.Category() == category
	}
}

// Categories lists the filter chips for a tab in first-seen order: expense
// or event categories, or mood tags. TabAll has no chips.
func Categories(records []core.Record, tab Tab) []string {
	want, ok := tab.recordType()
	out := make([]string, 0)
	if !ok {
		return out
	}
	seen := map[string]struct{}{}
	add := func(s string) {
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, r := range records {
		if r.Type != want {
			continue
		}
		if r.Type == core.RecordMood && r.Mood != nil {
			for _, tag := range r.Mood.Tags {
				add(tag)
			}
			continue
		}
		add(r.Category())
	}
	return out
}

// Overview summarises one month for the dashboard header.
func Overview(records []core.Record, cfg core.BudgetConfig, year int, month time.Month, loc *time.Location) core.MonthOverview {
	expenses := MonthlyExpenses(records, month, year, loc)
	total := TotalSpent(expenses)
	ov := core.MonthOverview{
		Year:       year,
		Month:      int(month),
		Total:      total,
		Budget:     cfg.TotalBudget,
		ByCategory: CategoryBreakdown(expenses),
	}
	if cfg.TotalBudget > 0 {
		ov.Progress = total / cfg.TotalBudget * 100
	}
	return ov
}
