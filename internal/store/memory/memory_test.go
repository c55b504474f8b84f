package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

func seedUser(t *testing.T, s *Store) core.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), core.User{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := seedUser(t, s)

	a, err := s.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Cash", Kind: core.AccountCash})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected generated id")
	}

	if _, err := s.AccountOwned(ctx, "someone-else", a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign owner should get not found, got %v", err)
	}
	if _, err := s.AccountByName(ctx, u.ID, "cash"); err != nil {
		t.Fatalf("name lookup should be case-insensitive: %v", err)
	}

	a, err = s.AdjustBalance(ctx, u.ID, a.ID, 500)
	if err != nil || a.Balance.Cents != 500 {
		t.Fatalf("adjust balance: %d, %v", a.Balance.Cents, err)
	}
	a, err = s.AdjustBalance(ctx, u.ID, a.ID, -700)
	if err != nil || a.Balance.Cents != -200 {
		t.Fatalf("overdraft should be allowed: %d, %v", a.Balance.Cents, err)
	}

	if err := s.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteAccount(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestSetInitialBalanceIsAdditive(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := seedUser(t, s)
	a, _ := s.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Card", Kind: core.AccountCard})

	a, err := s.SetInitialBalance(ctx, u.ID, a.ID, 5000)
	if err != nil {
		t.Fatalf("set initial: %v", err)
	}
	a, err = s.SetInitialBalance(ctx, u.ID, a.ID, 5000)
	if err != nil {
		t.Fatalf("set initial twice: %v", err)
	}
	if a.Balance.Cents != 10000 {
		t.Fatalf("expected additive balance 10000, got %d", a.Balance.Cents)
	}
	if a.InitialBalance.Cents != 5000 {
		t.Fatalf("marker should hold last amount, got %d", a.InitialBalance.Cents)
	}
}

func TestCategoryUniquenessPerOwnerAndKind(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := seedUser(t, s)

	if _, err := s.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryExpense, Name: "Food"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryExpense, Name: "food"}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("case-insensitive duplicate should conflict, got %v", err)
	}
	// Same name under the other kind is allowed.
	if _, err := s.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryIncome, Name: "Food"}); err != nil {
		t.Fatalf("same name different kind: %v", err)
	}
	// Same name for another user is allowed.
	other, _ := s.CreateUser(ctx, core.User{Name: "Bob", Email: "bob@example.com"})
	if _, err := s.CreateCategory(ctx, core.Category{UserID: other.ID, Kind: core.CategoryExpense, Name: "Food"}); err != nil {
		t.Fatalf("same name different user: %v", err)
	}
}

func TestResetMonthlyTotals(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := seedUser(t, s)

	c, _ := s.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryExpense, Name: "Food"})
	src, _ := s.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryIncome, Name: "Salary"})
	if _, err := s.AddExpenseTotals(ctx, u.ID, c.ID, 1500); err != nil {
		t.Fatalf("add totals: %v", err)
	}

	n, err := s.ResetMonthlyTotals(ctx)
	if err != nil || n != 1 {
		t.Fatalf("reset: n=%d err=%v", n, err)
	}
	c, _ = s.CategoryOwned(ctx, u.ID, c.ID)
	if c.MonthlyTotal.Cents != 0 {
		t.Fatalf("monthly total should be zero, got %d", c.MonthlyTotal.Cents)
	}
	if c.OverallTotal.Cents != 1500 {
		t.Fatalf("overall total must survive reset, got %d", c.OverallTotal.Cents)
	}
	if _, err := s.CategoryOwned(ctx, u.ID, src.ID); err != nil {
		t.Fatalf("income source untouched: %v", err)
	}

	// Running it again changes nothing.
	if _, err := s.ResetMonthlyTotals(ctx); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	c, _ = s.CategoryOwned(ctx, u.ID, c.ID)
	if c.MonthlyTotal.Cents != 0 || c.OverallTotal.Cents != 1500 {
		t.Fatal("reset is not idempotent")
	}
}

func TestListTransactionsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := seedUser(t, s)

	base := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	for i, kind := range []core.TransactionKind{core.TxIncome, core.TxExpense, core.TxIncome} {
		tx := core.Transaction{
			UserID:     u.ID,
			Kind:       kind,
			Title:      "entry",
			Amount:     core.Money{Cents: int64(100 * (i + 1))},
			AccountID:  "a1",
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		}
		if _, err := s.AppendTransaction(ctx, tx); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.ListTransactions(ctx, u.ID, store.TransactionFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3, got %d (%v)", len(all), err)
	}
	if !all[0].OccurredAt.After(all[1].OccurredAt) {
		t.Fatal("expected newest-first ordering")
	}

	incomes, _ := s.ListTransactions(ctx, u.ID, store.TransactionFilter{Kind: core.TxIncome})
	if len(incomes) != 2 {
		t.Fatalf("expected 2 incomes, got %d", len(incomes))
	}

	window, _ := s.ListTransactions(ctx, u.ID, store.TransactionFilter{
		From: base,
		To:   base.Add(time.Hour), // [From, To) excludes the second entry
	})
	if len(window) != 1 {
		t.Fatalf("half-open window expected 1, got %d", len(window))
	}

	other, _ := s.ListTransactions(ctx, "stranger", store.TransactionFilter{})
	if len(other) != 0 {
		t.Fatal("transactions leaked across owners")
	}
}

func TestUserEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s)
	if _, err := s.CreateUser(ctx, core.User{Name: "Ada2", Email: "ADA@example.com"}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateAccountDuplicateName(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := seedUser(t, s)

	if _, err := s.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Cash", Kind: core.AccountCash}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Cash", Kind: core.AccountCash}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("duplicate name should conflict, got %v", err)
	}
	if _, err := s.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "cash", Kind: core.AccountCustom}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("names collide case-insensitively, got %v", err)
	}

	// Another user may reuse the name.
	other, err := s.CreateUser(ctx, core.User{Name: "Lin", Email: "lin@example.com"})
	if err != nil {
		t.Fatalf("create other user: %v", err)
	}
	if _, err := s.CreateAccount(ctx, core.Account{UserID: other.ID, Name: "Cash", Kind: core.AccountCash}); err != nil {
		t.Fatalf("same name for another owner: %v", err)
	}
}

func TestListTransactionsSameInstantOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := seedUser(t, s)

	at := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	first, err := s.AppendTransaction(ctx, core.Transaction{
		UserID: u.ID, Kind: core.TxIncome, Title: "first",
		Amount: core.Money{Cents: 100}, AccountID: "a1", OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	second, err := s.AppendTransaction(ctx, core.Transaction{
		UserID: u.ID, Kind: core.TxIncome, Title: "second",
		Amount: core.Money{Cents: 200}, AccountID: "a1", OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("append second: %v", err)
	}

	// Same occurred_at: the later-created entry lists first, as the SQLite
	// created_at tiebreaker orders it.
	out, err := s.ListTransactions(ctx, u.ID, store.TransactionFilter{})
	if err != nil || len(out) != 2 {
		t.Fatalf("list: %d, %v", len(out), err)
	}
	if out[0].ID != second.ID || out[1].ID != first.ID {
		t.Fatalf("order: got %q then %q", out[0].Title, out[1].Title)
	}
}
