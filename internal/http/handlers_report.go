package http

import (
	"net/http"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

// monthFromQuery reads ?month=YYYY-MM, defaulting to the current month.
func monthFromQuery(r *http.Request) (core.YearMonth, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return currentMonth(), nil
	}
	return core.ParseYearMonth(raw)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TransactionFilter{
		AccountID: q.Get("accountId"),
		Kind:      core.TransactionKind(q.Get("kind")),
	}
	if raw := q.Get("month"); raw != "" {
		month, err := core.ParseYearMonth(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.From, filter.To = month.Bounds()
	}
	txs, err := s.reports.Transactions(r.Context(), ownerID(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) monthlySummary(w http.ResponseWriter, r *http.Request, kind core.TransactionKind) {
	month, err := monthFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner := ownerID(r)
	key := reportKey(owner, month.String(), string(kind))
	summary, ok := s.summaryCache.Get(key)
	if !ok {
		summary, err = s.reports.MonthlySummary(r.Context(), owner, month, kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.summaryCache.Set(key, summary)
	}

	byCategory := make([]map[string]string, 0, len(summary.ByCategory))
	for _, ct := range summary.ByCategory {
		byCategory = append(byCategory, map[string]string{
			"name":  ct.Name,
			"total": ct.Total.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":      summary.Month.String(),
		"kind":       string(summary.Kind),
		"total":      summary.Total.String(),
		"byCategory": byCategory,
	})
}

func (s *Server) handleIncomeMonthly(w http.ResponseWriter, r *http.Request) {
	s.monthlySummary(w, r, core.TxIncome)
}

func (s *Server) handleExpenseMonthly(w http.ResponseWriter, r *http.Request) {
	s.monthlySummary(w, r, core.TxExpense)
}

func (s *Server) handleProfitSummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner := ownerID(r)
	key := reportKey(owner, month.String(), "profit")
	summary, ok := s.profitCache.Get(key)
	if !ok {
		summary, err = s.reports.ProfitSummary(r.Context(), owner, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.profitCache.Set(key, summary)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":        summary.Month.String(),
		"totalIncome":  summary.TotalIncome.String(),
		"totalExpense": summary.TotalExpense.String(),
		"profit":       summary.Profit.String(),
	})
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner := ownerID(r)
	key := reportKey(owner, month.String(), "daily")
	days, ok := s.dailyCache.Get(key)
	if !ok {
		days, err = s.reports.DailySummary(r.Context(), owner, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.dailyCache.Set(key, days)
	}
	out := make([]map[string]string, 0, len(days))
	for _, d := range days {
		out = append(out, map[string]string{
			"date":    d.Date,
			"income":  d.Income.String(),
			"expense": d.Expense.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month": month.String(),
		"days":  out,
	})
}
