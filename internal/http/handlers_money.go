package http

import (
	"net/http"
	"time"

	"finsmart/internal/core"
	"finsmart/internal/services"
)

type transactionResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Amount        string `json:"amount"`
	AccountID     string `json:"accountId,omitempty"`
	CategoryID    string `json:"categoryId,omitempty"`
	FromAccountID string `json:"fromAccountId,omitempty"`
	ToAccountID   string `json:"toAccountId,omitempty"`
	OccurredAt    string `json:"occurredAt"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		Kind:          string(t.Kind),
		Title:         t.Title,
		Description:   t.Description,
		Amount:        t.Amount.String(),
		AccountID:     t.AccountID,
		CategoryID:    t.CategoryID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		OccurredAt:    t.OccurredAt.UTC().Format(time.RFC3339),
	}
}

type movementRequest struct {
	AccountID  string `json:"accountId"`
	CategoryID string `json:"categoryId"`
	Amount     string `json:"amount"`
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cents, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	account, tx, overall, err := s.ledger.AddIncome(r.Context(), ownerID(r), req.AccountID, req.CategoryID, cents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports(ownerID(r), currentMonth())
	writeJSON(w, http.StatusCreated, map[string]any{
		"account":        toAccountResponse(account),
		"transaction":    toTransactionResponse(tx),
		"overallBalance": overall.String(),
	})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cents, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	account, tx, overall, err := s.ledger.AddExpense(r.Context(), ownerID(r), req.AccountID, req.CategoryID, cents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports(ownerID(r), currentMonth())
	writeJSON(w, http.StatusCreated, map[string]any{
		"account":        toAccountResponse(account),
		"transaction":    toTransactionResponse(tx),
		"overallBalance": overall.String(),
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID string `json:"fromAccountId"`
		ToAccountID   string `json:"toAccountId"`
		Amount        string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cents, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	from, to, tx, err := s.ledger.Transfer(r.Context(), ownerID(r), req.FromAccountID, req.ToAccountID, cents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports(ownerID(r), currentMonth())
	writeJSON(w, http.StatusCreated, map[string]any{
		"fromAccount": toAccountResponse(from),
		"toAccount":   toAccountResponse(to),
		"transaction": toTransactionResponse(tx),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Kind        string `json:"kind"`
		Category    string `json:"category"`
		AccountName string `json:"accountName"`
		OccurredAt  string `json:"occurredAt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cents, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := services.GenericTransactionInput{
		Description: req.Description,
		AmountCents: cents,
		Kind:        core.TransactionKind(req.Kind),
		Category:    req.Category,
		AccountName: req.AccountName,
	}
	if req.OccurredAt != "" {
		occurred, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			writeError(w, r, core.ErrInvalidArgument)
			return
		}
		in.OccurredAt = occurred
	}
	account, tx, overall, err := s.ledger.CreateTransaction(r.Context(), ownerID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	month := currentMonth()
	if !in.OccurredAt.IsZero() {
		month = core.YearMonth{Year: in.OccurredAt.Year(), Month: in.OccurredAt.Month()}
	}
	s.invalidateReports(ownerID(r), month, currentMonth())
	writeJSON(w, http.StatusCreated, map[string]any{
		"account":        toAccountResponse(account),
		"transaction":    toTransactionResponse(tx),
		"overallBalance": overall.String(),
	})
}
