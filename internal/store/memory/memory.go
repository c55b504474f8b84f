// Package memory provides an in-process store used by tests and the
// DATA_BACKEND=memory mode. It mirrors the SQLite repository's semantics,
// including atomic in-place balance increments under its mutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

type Store struct {
	mu           sync.Mutex
	accounts     map[string]core.Account
	categories   map[string]core.Category
	transactions []core.Transaction
	users        map[string]core.User
}

func New() *Store {
	return &Store{
		accounts:   make(map[string]core.Account),
		categories: make(map[string]core.Category),
		users:      make(map[string]core.User),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Close() error { return nil }

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.UserID == a.UserID && strings.EqualFold(existing.Name, a.Name) {
			return core.Account{}, core.ErrAlreadyExists
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) Account(_ context.Context, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) AccountOwned(_ context.Context, ownerID, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != ownerID {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) AccountByName(_ context.Context, ownerID, name string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == ownerID && strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return core.Account{}, core.ErrNotFound
}

func (s *Store) ListAccounts(_ context.Context, ownerID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AdjustBalance(_ context.Context, ownerID, id string, deltaCents int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != ownerID {
		return core.Account{}, core.ErrNotFound
	}
	a.Balance.Cents += deltaCents
	a.UpdatedAt = time.Now().UTC()
	s.accounts[id] = a
	return a, nil
}

func (s *Store) SetInitialBalance(_ context.Context, ownerID, id string, amountCents int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != ownerID {
		return core.Account{}, core.ErrNotFound
	}
	a.Balance.Cents += amountCents
	a.InitialBalance.Cents = amountCents
	a.UpdatedAt = time.Now().UTC()
	s.accounts[id] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) DeleteAccountsByUser(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.accounts {
		if a.UserID == ownerID {
			delete(s.accounts, id)
		}
	}
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.UserID == c.UserID && existing.Kind == c.Kind && strings.EqualFold(existing.Name, c.Name) {
			return core.Category{}, core.ErrAlreadyExists
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) CategoryOwned(_ context.Context, ownerID, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != ownerID {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) CategoryByName(_ context.Context, ownerID string, kind core.CategoryKind, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.UserID == ownerID && c.Kind == kind && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func (s *Store) ListCategories(_ context.Context, ownerID string, kind core.CategoryKind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == ownerID && c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok || existing.UserID != c.UserID {
		return core.Category{}, core.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) AddExpenseTotals(_ context.Context, ownerID, id string, amountCents int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != ownerID {
		return core.Category{}, core.ErrNotFound
	}
	c.MonthlyTotal.Cents += amountCents
	c.OverallTotal.Cents += amountCents
	c.UpdatedAt = time.Now().UTC()
	s.categories[id] = c
	return c, nil
}

func (s *Store) ResetMonthlyTotals(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.categories {
		if c.Kind != core.CategoryExpense {
			continue
		}
		c.MonthlyTotal.Cents = 0
		c.UpdatedAt = time.Now().UTC()
		s.categories[id] = c
		n++
	}
	return n, nil
}

func (s *Store) DeleteCategoriesByUser(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.categories {
		if c.UserID == ownerID {
			delete(s.categories, id)
		}
	}
	return nil
}

func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	if t.OccurredAt.IsZero() {
		t.OccurredAt = t.CreatedAt
	}
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if t.UserID != ownerID {
			continue
		}
		if f.AccountID != "" && t.AccountID != f.AccountID {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if !f.From.IsZero() && t.OccurredAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !t.OccurredAt.Before(f.To) {
			continue
		}
		out = append(out, t)
	}
	// Newest first, matching the SQLite ORDER BY occurred_at DESC,
	// created_at DESC; equal timestamps keep the later-appended entry first.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteTransactionsByUser(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.transactions[:0]
	for _, t := range s.transactions {
		if t.UserID != ownerID {
			kept = append(kept, t)
		}
	}
	s.transactions = kept
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.User{}, core.ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) SetOverallBalance(_ context.Context, id string, cents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.OverallBalance.Cents = cents
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.users, id)
	return nil
}
