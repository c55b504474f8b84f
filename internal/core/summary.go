package core

import (
	"fmt"
	"time"
)

// YearMonth identifies one calendar month, parsed from "YYYY-MM" queries.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses a "YYYY-MM" string such as "2025-10".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, ErrInvalidMonth
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Bounds returns the [start, end) interval covering the month in UTC.
func (ym YearMonth) Bounds() (time.Time, time.Time) {
	start := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Days returns the number of calendar days in the month.
func (ym YearMonth) Days() int {
	start, end := ym.Bounds()
	return int(end.Sub(start).Hours() / 24)
}

// CategoryTotal is one aggregation row keyed by resolved category name.
type CategoryTotal struct {
	Name  string
	Total Money
}

// MonthlySummary groups one month's income or expense transactions by
// category name. An empty month yields zero totals, not an error.
type MonthlySummary struct {
	Month      YearMonth
	Kind       TransactionKind
	Total      Money
	ByCategory []CategoryTotal
}

// ProfitSummary is the income-vs-expense view for one month.
type ProfitSummary struct {
	Month        YearMonth
	TotalIncome  Money
	TotalExpense Money
	Profit       Money
}

// DailyTotals is one pre-populated calendar-day bucket. Every day of the
// month gets a bucket even when nothing happened on it.
type DailyTotals struct {
	Date    string // YYYY-MM-DD
	Income  Money
	Expense Money
}
