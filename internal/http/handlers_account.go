package http

import (
	"net/http"

	"finsmart/internal/core"
)

type accountResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	InitialBalance string `json:"initialBalance"`
	Balance        string `json:"balance"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Kind:           string(a.Kind),
		InitialBalance: a.InitialBalance.String(),
		Balance:        a.Balance.String(),
	}
}

func toAccountResponses(accounts []core.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

func (s *Server) handleInitAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.InitDefaultAccounts(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": toAccountResponses(accounts)})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Accounts(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": toAccountResponses(accounts)})
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Balance string `json:"balance"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var cents int64
	if req.Balance != "" {
		var err error
		if cents, err = parseAmount(req.Balance); err != nil {
			writeError(w, r, err)
			return
		}
	}
	account, overall, err := s.ledger.AddAccount(r.Context(), ownerID(r), req.Name, cents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"account":        toAccountResponse(account),
		"overallBalance": overall.String(),
	})
}

// handleSetInitialBalance posts an opening amount into the account. The
// amount adds to the running balance; the stored marker becomes the posted
// value.
func (s *Server) handleSetInitialBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
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
	account, overall, err := s.ledger.SetInitialBalance(r.Context(), ownerID(r), r.PathValue("id"), cents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports(ownerID(r), currentMonth())
	writeJSON(w, http.StatusOK, map[string]any{
		"account":        toAccountResponse(account),
		"overallBalance": overall.String(),
	})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	overall, err := s.ledger.DeleteAccount(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports(ownerID(r), currentMonth())
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "account deleted",
		"overallBalance": overall.String(),
	})
}
