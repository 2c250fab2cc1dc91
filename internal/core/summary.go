package core

// CategoryAmount is a category total. Percent is the bar width relative to
// the largest category in the same breakdown.
type CategoryAmount struct {
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}

// MonthOverview summarises the expenses of one calendar month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Total      float64          `json:"total"`
	Budget     float64          `json:"budget"`
	Progress   float64          `json:"progress"` // percent of Budget, 0 when no budget
	ByCategory []CategoryAmount `json:"byCategory"`
}
