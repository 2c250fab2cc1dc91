package core

import (
	"errors"
	"math"
)

var ErrInvalidBudget = errors.New("invalid budget")

// BudgetConfig holds the monthly spending caps. A TotalBudget of 0 disables
// budget alerts; a missing or zero category entry means no cap.
type BudgetConfig struct {
	TotalBudget     float64            `json:"totalBudget"`
	CategoryBudgets map[string]float64 `json:"categoryBudgets"`
}

// Enabled reports whether a total budget is configured.
func (b BudgetConfig) Enabled() bool {
	return b.TotalBudget > 0
}

// CategoryCap returns the cap for category, 0 when none is set.
func (b BudgetConfig) CategoryCap(category string) float64 {
	if b.CategoryBudgets == nil {
		return 0
	}
	return b.CategoryBudgets[category]
}

func (b BudgetConfig) Validate() error {
	if invalidAmount(b.TotalBudget) {
		return ErrInvalidBudget
	}
	for _, v := range b.CategoryBudgets {
		if invalidAmount(v) {
			return ErrInvalidBudget
		}
	}
	return nil
}

// Normalized returns a copy with a non-nil category map and zero caps
// removed.
func (b BudgetConfig) Normalized() BudgetConfig {
	out := BudgetConfig{TotalBudget: b.TotalBudget, CategoryBudgets: make(map[string]float64, len(b.CategoryBudgets))}
	for k, v := range b.CategoryBudgets {
		if v > 0 {
			out.CategoryBudgets[k] = v
		}
	}
	return out
}

func invalidAmount(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}
