package aggregate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"aidance/internal/core"
)

// NearBudgetRatio is the share of a cap at which the near-budget warning
// starts.
const NearBudgetRatio = 0.8

// Options tunes CheckBudget.
type Options struct {
	// NearBudget enables the 80% warnings next to the over-budget alerts.
	NearBudget bool
}

// DefaultOptions has near-budget warnings on.
func DefaultOptions() Options {
	return Options{NearBudget: true}
}

// CheckBudget evaluates a new expense against the month's existing expenses
// (not including it). It returns the alert text and true when a category or
// the total is over its cap, or near it when enabled. The category line comes
// first. A zero TotalBudget disables every check.
func CheckBudget(expense core.Expense, cfg core.BudgetConfig, existing []core.Record, opts Options) (string, bool) {
	if !cfg.Enabled() {
		return "", false
	}

	total := TotalSpent(existing) + expense.Amount
	categorySpent := expense.Amount
	for _, r := range existing {
		if r.Expense != nil && r.Expense.Category == expense.Category {
			categorySpent += r.Expense.Amount
		}
	}

	var lines []string
	if limit := cfg.CategoryCap(expense.Category); limit > 0 {
		switch {
		case categorySpent > limit:
			lines = append(lines, fmt.Sprintf("⚠️ 您的【%s】消费已超支！(预算: ¥%s, 已用: ¥%s)",
				expense.Category, formatAmount(limit), formatAmount(categorySpent)))
		case opts.NearBudget && categorySpent >= limit*NearBudgetRatio:
			lines = append(lines, fmt.Sprintf("⚠️ 您的【%s】消费接近预算。(已用: %s%%)",
				expense.Category, formatPercent(categorySpent/limit*100)))
		}
	}

	switch {
	case total > cfg.TotalBudget:
		lines = append(lines, fmt.Sprintf("⚠️ 本月总预算已超支！(预算: ¥%s, 已用: ¥%s)",
			formatAmount(cfg.TotalBudget), formatAmount(total)))
	case opts.NearBudget && total >= cfg.TotalBudget*NearBudgetRatio:
		lines = append(lines, fmt.Sprintf("⚠️ 本月总预算已使用 %s%%。", formatPercent(total/cfg.TotalBudget*100)))
	}

	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// formatAmount prints the shortest decimal form: 200, 12.5.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}
