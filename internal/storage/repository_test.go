package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createTestUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: "Ada", Email: email})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestMigrationsAndUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := createTestUser(t, repo, "ada@example.com")
	if u.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := repo.UserByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("email lookup should be case-insensitive: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("id mismatch: %q vs %q", got.ID, u.ID)
	}

	if _, err := repo.CreateUser(ctx, core.User{Name: "Other", Email: "Ada@Example.com"}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("duplicate email: %v", err)
	}

	if err := repo.SetOverallBalance(ctx, u.ID, 12345); err != nil {
		t.Fatalf("set overall: %v", err)
	}
	got, _ = repo.UserByID(ctx, u.ID)
	if got.OverallBalance.Cents != 12345 {
		t.Fatalf("overall: %d", got.OverallBalance.Cents)
	}
}

func TestAccountBalanceArithmetic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createTestUser(t, repo, "ada@example.com")

	a, err := repo.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Cash", Kind: core.AccountCash})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	a, err = repo.AdjustBalance(ctx, u.ID, a.ID, 10000)
	if err != nil || a.Balance.Cents != 10000 {
		t.Fatalf("credit: %d, %v", a.Balance.Cents, err)
	}
	a, err = repo.AdjustBalance(ctx, u.ID, a.ID, -15000)
	if err != nil || a.Balance.Cents != -5000 {
		t.Fatalf("overdraft must pass: %d, %v", a.Balance.Cents, err)
	}

	if _, err := repo.AdjustBalance(ctx, "stranger", a.ID, 100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign adjust: %v", err)
	}

	a, err = repo.SetInitialBalance(ctx, u.ID, a.ID, 5000)
	if err != nil {
		t.Fatalf("set initial: %v", err)
	}
	a, err = repo.SetInitialBalance(ctx, u.ID, a.ID, 5000)
	if err != nil {
		t.Fatalf("set initial twice: %v", err)
	}
	if a.Balance.Cents != 5000 || a.InitialBalance.Cents != 5000 {
		t.Fatalf("additive initial balance: balance=%d marker=%d", a.Balance.Cents, a.InitialBalance.Cents)
	}
}

func TestCategoryUniqueViolationMapsToAlreadyExists(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createTestUser(t, repo, "ada@example.com")

	if _, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryExpense, Name: "Food"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryExpense, Name: "food"}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("NOCASE duplicate: %v", err)
	}
	if _, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryIncome, Name: "Food"}); err != nil {
		t.Fatalf("other kind: %v", err)
	}
}

func TestExpenseTotalsAndReset(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createTestUser(t, repo, "ada@example.com")

	c, _ := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryExpense, Name: "Food"})
	if _, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryIncome, Name: "Salary"}); err != nil {
		t.Fatalf("create source: %v", err)
	}

	c, err := repo.AddExpenseTotals(ctx, u.ID, c.ID, 2500)
	if err != nil {
		t.Fatalf("add totals: %v", err)
	}
	c, err = repo.AddExpenseTotals(ctx, u.ID, c.ID, 1500)
	if err != nil || c.MonthlyTotal.Cents != 4000 || c.OverallTotal.Cents != 4000 {
		t.Fatalf("totals: monthly=%d overall=%d err=%v", c.MonthlyTotal.Cents, c.OverallTotal.Cents, err)
	}

	n, err := repo.ResetMonthlyTotals(ctx)
	if err != nil || n != 1 {
		t.Fatalf("reset: n=%d err=%v", n, err)
	}
	c, _ = repo.CategoryOwned(ctx, u.ID, c.ID)
	if c.MonthlyTotal.Cents != 0 || c.OverallTotal.Cents != 4000 {
		t.Fatalf("after reset: monthly=%d overall=%d", c.MonthlyTotal.Cents, c.OverallTotal.Cents)
	}
}

func TestTransactionLogRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createTestUser(t, repo, "ada@example.com")
	a, _ := repo.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Cash", Kind: core.AccountCash})

	base := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	income, err := repo.AppendTransaction(ctx, core.Transaction{
		UserID: u.ID, Kind: core.TxIncome, Title: "Income - Salary",
		Amount: core.Money{Cents: 200000}, AccountID: a.ID, CategoryID: "c1",
		OccurredAt: base,
	})
	if err != nil {
		t.Fatalf("append income: %v", err)
	}
	if income.ID == "" || income.CreatedAt.IsZero() {
		t.Fatal("append should assign id and created_at")
	}
	if _, err := repo.AppendTransaction(ctx, core.Transaction{
		UserID: u.ID, Kind: core.TxTransfer, Title: "Transfer",
		Amount: core.Money{Cents: 5000}, FromAccountID: a.ID, ToAccountID: "a2",
		OccurredAt: base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("append transfer: %v", err)
	}

	all, err := repo.ListTransactions(ctx, u.ID, store.TransactionFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("list: %d, %v", len(all), err)
	}
	if all[0].Kind != core.TxTransfer {
		t.Fatal("expected newest first")
	}
	got := all[1]
	if got.Kind != core.TxIncome || got.AccountID != a.ID || got.CategoryID != "c1" || got.Amount.Cents != 200000 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.OccurredAt.Equal(base) {
		t.Fatalf("occurred_at drift: %v vs %v", got.OccurredAt, base)
	}

	window, _ := repo.ListTransactions(ctx, u.ID, store.TransactionFilter{From: base, To: base.Add(time.Hour)})
	if len(window) != 1 || window[0].Kind != core.TxIncome {
		t.Fatalf("half-open window: %d", len(window))
	}

	byKind, _ := repo.ListTransactions(ctx, u.ID, store.TransactionFilter{Kind: core.TxTransfer})
	if len(byKind) != 1 {
		t.Fatalf("kind filter: %d", len(byKind))
	}
}

func TestCascadingDeletes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createTestUser(t, repo, "ada@example.com")

	a, _ := repo.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Cash", Kind: core.AccountCash})
	if _, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryExpense, Name: "Food"}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := repo.AppendTransaction(ctx, core.Transaction{
		UserID: u.ID, Kind: core.TxIncome, Title: "x",
		Amount: core.Money{Cents: 100}, AccountID: a.ID,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := repo.DeleteTransactionsByUser(ctx, u.ID); err != nil {
		t.Fatalf("delete txs: %v", err)
	}
	if err := repo.DeleteCategoriesByUser(ctx, u.ID); err != nil {
		t.Fatalf("delete categories: %v", err)
	}
	if err := repo.DeleteAccountsByUser(ctx, u.ID); err != nil {
		t.Fatalf("delete accounts: %v", err)
	}
	if err := repo.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if _, err := repo.UserByID(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("user should be gone")
	}
	accounts, _ := repo.ListAccounts(ctx, u.ID)
	if len(accounts) != 0 {
		t.Fatal("accounts should be gone")
	}
}
