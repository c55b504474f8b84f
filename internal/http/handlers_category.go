package http

import (
	"net/http"

	"finsmart/internal/core"
	"finsmart/internal/services"
)

type categoryResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	IsDefault     bool   `json:"isDefault"`
	MonthlyBudget string `json:"monthlyBudget,omitempty"`
	MonthlyTotal  string `json:"monthlyTotal,omitempty"`
	OverallTotal  string `json:"overallTotal,omitempty"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	resp := categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      string(c.Kind),
		IsDefault: c.IsDefault,
	}
	if c.Kind == core.CategoryExpense {
		resp.MonthlyBudget = c.MonthlyBudget.String()
		resp.MonthlyTotal = c.MonthlyTotal.String()
		resp.OverallTotal = c.OverallTotal.String()
	}
	return resp
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request, kind core.CategoryKind) {
	categories, err := s.categories.Categories(r.Context(), ownerID(r), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	budgeted := make([]categoryResponse, 0)
	for _, c := range categories {
		resp := toCategoryResponse(c)
		out = append(out, resp)
		if c.Kind == core.CategoryExpense && c.MonthlyBudget.Cents > 0 {
			budgeted = append(budgeted, resp)
		}
	}
	body := map[string]any{"categories": out}
	if kind == core.CategoryExpense {
		body["budgeted"] = budgeted
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) addCategory(w http.ResponseWriter, r *http.Request, kind core.CategoryKind) {
	var req struct {
		Name          string `json:"name"`
		MonthlyBudget string `json:"monthlyBudget"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var budget int64
	if req.MonthlyBudget != "" {
		var err error
		if budget, err = parseAmount(req.MonthlyBudget); err != nil {
			writeError(w, r, err)
			return
		}
	}
	c, err := s.categories.AddCategory(r.Context(), ownerID(r), kind, req.Name, budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"category": toCategoryResponse(c)})
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          *string `json:"name"`
		MonthlyBudget *string `json:"monthlyBudget"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	upd := services.CategoryUpdate{Name: req.Name}
	if req.MonthlyBudget != nil {
		budget, err := parseAmount(*req.MonthlyBudget)
		if err != nil {
			writeError(w, r, err)
			return
		}
		upd.BudgetCents = &budget
	}
	c, err := s.categories.UpdateCategory(r.Context(), ownerID(r), r.PathValue("id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Renames change how past months aggregate.
	s.invalidateReports(ownerID(r), currentMonth())
	writeJSON(w, http.StatusOK, map[string]any{"category": toCategoryResponse(c)})
}

func (s *Server) handleListIncomeSources(w http.ResponseWriter, r *http.Request) {
	s.listCategories(w, r, core.CategoryIncome)
}

func (s *Server) handleAddIncomeSource(w http.ResponseWriter, r *http.Request) {
	s.addCategory(w, r, core.CategoryIncome)
}

func (s *Server) handleUpdateIncomeSource(w http.ResponseWriter, r *http.Request) {
	s.updateCategory(w, r)
}

func (s *Server) handleListExpenseCategories(w http.ResponseWriter, r *http.Request) {
	s.listCategories(w, r, core.CategoryExpense)
}

func (s *Server) handleAddExpenseCategory(w http.ResponseWriter, r *http.Request) {
	s.addCategory(w, r, core.CategoryExpense)
}

func (s *Server) handleUpdateExpenseCategory(w http.ResponseWriter, r *http.Request) {
	s.updateCategory(w, r)
}
