package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

// UncategorizedName labels transactions whose category reference no longer
// resolves, or never had one.
const UncategorizedName = "Uncategorized"

// ReportService builds read-only views over the transaction log. Aggregates
// are computed from the log itself, not from the category running totals, so
// they stay correct across renames and deletions.
type ReportService struct {
	categories store.CategoryStore
	txs        store.TransactionStore
}

func NewReportService(s store.Store) *ReportService {
	return &ReportService{categories: s, txs: s}
}

// Transactions lists the owner's log entries newest first, optionally
// narrowed by account, kind, or time window.
func (s *ReportService) Transactions(ctx context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, core.ErrInvalidArgument
	}
	return s.txs.ListTransactions(ctx, ownerID, f)
}

// MonthlySummary totals one month's income or expense entries grouped by
// category name. Transfers are excluded; unresolvable categories collapse
// into the "Uncategorized" row.
func (s *ReportService) MonthlySummary(ctx context.Context, ownerID string, month core.YearMonth, kind core.TransactionKind) (core.MonthlySummary, error) {
	if kind != core.TxIncome && kind != core.TxExpense {
		return core.MonthlySummary{}, core.ErrInvalidArgument
	}
	entries, err := s.monthEntries(ctx, ownerID, month, kind)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	names, err := s.categoryNames(ctx, ownerID)
	if err != nil {
		return core.MonthlySummary{}, err
	}

	summary := core.MonthlySummary{Month: month, Kind: kind}
	byName := make(map[string]int64)
	for _, t := range entries {
		name := names[t.CategoryID]
		if name == "" {
			name = UncategorizedName
		}
		byName[name] += t.Amount.Cents
		summary.Total.Cents += t.Amount.Cents
	}
	for name, cents := range byName {
		summary.ByCategory = append(summary.ByCategory, core.CategoryTotal{
			Name:  name,
			Total: core.Money{Cents: cents},
		})
	}
	// Largest buckets first, name as the tiebreaker for a stable order.
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		a, b := summary.ByCategory[i], summary.ByCategory[j]
		if a.Total.Cents != b.Total.Cents {
			return a.Total.Cents > b.Total.Cents
		}
		return a.Name < b.Name
	})
	return summary, nil
}

// ProfitSummary totals income against expense for one month.
func (s *ReportService) ProfitSummary(ctx context.Context, ownerID string, month core.YearMonth) (core.ProfitSummary, error) {
	income, err := s.monthEntries(ctx, ownerID, month, core.TxIncome)
	if err != nil {
		return core.ProfitSummary{}, err
	}
	expense, err := s.monthEntries(ctx, ownerID, month, core.TxExpense)
	if err != nil {
		return core.ProfitSummary{}, err
	}
	p := core.ProfitSummary{Month: month}
	for _, t := range income {
		p.TotalIncome.Cents += t.Amount.Cents
	}
	for _, t := range expense {
		p.TotalExpense.Cents += t.Amount.Cents
	}
	p.Profit.Cents = p.TotalIncome.Cents - p.TotalExpense.Cents
	return p, nil
}

// DailySummary buckets one month's income and expense by calendar day. Every
// day of the month appears in order, zero-valued when nothing happened.
func (s *ReportService) DailySummary(ctx context.Context, ownerID string, month core.YearMonth) ([]core.DailyTotals, error) {
	from, to := month.Bounds()
	entries, err := s.txs.ListTransactions(ctx, ownerID, store.TransactionFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list month transactions: %w", err)
	}

	days := make([]core.DailyTotals, month.Days())
	index := make(map[string]int, len(days))
	for i := range days {
		date := from.AddDate(0, 0, i).Format("2006-01-02")
		days[i].Date = date
		index[date] = i
	}
	for _, t := range entries {
		i, ok := index[t.OccurredAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		switch t.Kind {
		case core.TxIncome:
			days[i].Income.Cents += t.Amount.Cents
		case core.TxExpense:
			days[i].Expense.Cents += t.Amount.Cents
		}
	}
	return days, nil
}

func (s *ReportService) monthEntries(ctx context.Context, ownerID string, month core.YearMonth, kind core.TransactionKind) ([]core.Transaction, error) {
	from, to := month.Bounds()
	entries, err := s.txs.ListTransactions(ctx, ownerID, store.TransactionFilter{
		Kind: kind,
		From: from,
		To:   to,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s transactions: %w", kind, err)
	}
	return entries, nil
}

// categoryNames maps the owner's category ids to display names.
func (s *ReportService) categoryNames(ctx context.Context, ownerID string) (map[string]string, error) {
	names := make(map[string]string)
	for _, kind := range []core.CategoryKind{core.CategoryIncome, core.CategoryExpense} {
		list, err := s.categories.ListCategories(ctx, ownerID, kind)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		for _, c := range list {
			names[c.ID] = c.Name
		}
	}
	return names, nil
}
