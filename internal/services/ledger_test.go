package services

import (
	"context"
	"errors"
	"testing"

	"finsmart/internal/core"
	"finsmart/internal/store/memory"
)

type recordingQueue struct {
	published []string
}

func (q *recordingQueue) PublishReconcile(_ context.Context, userID, reason string) error {
	q.published = append(q.published, userID+":"+reason)
	return nil
}

type fixture struct {
	store   *memory.Store
	ledger  *LedgerService
	queue   *recordingQueue
	user    core.User
	cash    core.Account
	card    core.Account
	salary  core.Category
	food    core.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	queue := &recordingQueue{}
	ledger := NewLedgerService(st, queue)

	u, err := st.CreateUser(ctx, core.User{Name: "Ada", Email: "ada@example.com", IsVerified: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	accounts, err := ledger.InitDefaultAccounts(ctx, u.ID)
	if err != nil {
		t.Fatalf("init accounts: %v", err)
	}
	f := &fixture{store: st, ledger: ledger, queue: queue, user: u}
	for _, a := range accounts {
		switch a.Name {
		case "Cash":
			f.cash = a
		case "Card":
			f.card = a
		}
	}
	f.salary, err = st.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryIncome, Name: "Salary"})
	if err != nil {
		t.Fatalf("create salary: %v", err)
	}
	f.food, err = st.CreateCategory(ctx, core.Category{UserID: u.ID, Kind: core.CategoryExpense, Name: "Food"})
	if err != nil {
		t.Fatalf("create food: %v", err)
	}
	return f
}

func (f *fixture) overall(t *testing.T) int64 {
	t.Helper()
	u, err := f.store.UserByID(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	return u.OverallBalance.Cents
}

func (f *fixture) sumAccounts(t *testing.T) int64 {
	t.Helper()
	accounts, err := f.store.ListAccounts(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	var sum int64
	for _, a := range accounts {
		sum += a.Balance.Cents
	}
	return sum
}

func TestInitDefaultAccountsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	accounts, err := f.ledger.InitDefaultAccounts(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts after repeat init, got %d", len(accounts))
	}
	names := map[string]bool{}
	for _, a := range accounts {
		names[a.Name] = true
		if a.Balance.Cents != 0 {
			t.Fatalf("default account %s should start at zero", a.Name)
		}
	}
	for _, want := range []string{"Cash", "Card", "Savings"} {
		if !names[want] {
			t.Fatalf("missing default account %s", want)
		}
	}
}

func TestAddIncomeScenarioA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, tx, overall, err := f.ledger.AddIncome(ctx, f.user.ID, f.cash.ID, f.salary.ID, 200000)
	if err != nil {
		t.Fatalf("add income: %v", err)
	}
	if account.Balance.Cents != 200000 {
		t.Fatalf("account balance: %d", account.Balance.Cents)
	}
	if overall.Cents != 200000 {
		t.Fatalf("overall: %d", overall.Cents)
	}
	if tx.Kind != core.TxIncome || tx.AccountID != f.cash.ID || tx.CategoryID != f.salary.ID {
		t.Fatalf("unexpected log entry %+v", tx)
	}
	if f.overall(t) != f.sumAccounts(t) {
		t.Fatal("overall balance out of step with account sum")
	}
}

func TestAddExpenseScenarioB(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, _, err := f.ledger.AddIncome(ctx, f.user.ID, f.cash.ID, f.salary.ID, 200000); err != nil {
		t.Fatalf("seed income: %v", err)
	}
	account, tx, overall, err := f.ledger.AddExpense(ctx, f.user.ID, f.cash.ID, f.food.ID, 4550)
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if account.Balance.Cents != 195450 {
		t.Fatalf("account balance: %d", account.Balance.Cents)
	}
	if overall.Cents != 195450 {
		t.Fatalf("overall: %d", overall.Cents)
	}
	if tx.Kind != core.TxExpense {
		t.Fatalf("kind: %s", tx.Kind)
	}

	food, _ := f.store.CategoryOwned(ctx, f.user.ID, f.food.ID)
	if food.MonthlyTotal.Cents != 4550 || food.OverallTotal.Cents != 4550 {
		t.Fatalf("category totals: monthly=%d overall=%d", food.MonthlyTotal.Cents, food.OverallTotal.Cents)
	}
}

func TestAddExpenseAllowsOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, _, overall, err := f.ledger.AddExpense(ctx, f.user.ID, f.cash.ID, f.food.ID, 9900)
	if err != nil {
		t.Fatalf("overdraft expense rejected: %v", err)
	}
	if account.Balance.Cents != -9900 {
		t.Fatalf("balance: %d", account.Balance.Cents)
	}
	if overall.Cents != -9900 {
		t.Fatalf("overall: %d", overall.Cents)
	}
}

func TestMovementRejectsWrongCategoryKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Expense against an income source must fail.
	if _, _, _, err := f.ledger.AddExpense(ctx, f.user.ID, f.cash.ID, f.salary.ID, 100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	// Income against an expense category must fail.
	if _, _, _, err := f.ledger.AddIncome(ctx, f.user.ID, f.cash.ID, f.food.ID, 100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMovementRejectsForeignAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stranger, _ := f.store.CreateUser(ctx, core.User{Name: "Eve", Email: "eve@example.com"})
	if _, _, _, err := f.ledger.AddIncome(ctx, stranger.ID, f.cash.ID, f.salary.ID, 100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign account should be invisible, got %v", err)
	}
}

func TestTransferScenarioC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, _, err := f.ledger.AddIncome(ctx, f.user.ID, f.cash.ID, f.salary.ID, 50000); err != nil {
		t.Fatalf("seed income: %v", err)
	}
	before := f.sumAccounts(t)

	from, to, tx, err := f.ledger.Transfer(ctx, f.user.ID, f.cash.ID, f.card.ID, 20000)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if from.Balance.Cents != 30000 || to.Balance.Cents != 20000 {
		t.Fatalf("balances after transfer: from=%d to=%d", from.Balance.Cents, to.Balance.Cents)
	}
	if tx.Kind != core.TxTransfer || tx.FromAccountID != f.cash.ID || tx.ToAccountID != f.card.ID {
		t.Fatalf("unexpected log entry %+v", tx)
	}
	// Net effect on the account sum is zero.
	if f.sumAccounts(t) != before {
		t.Fatal("transfer changed the account sum")
	}
	// No synchronous reconcile, but a repair message goes out.
	if len(f.queue.published) != 1 {
		t.Fatalf("expected 1 repair message, got %d", len(f.queue.published))
	}
}

func TestTransferSameAccountRejected(t *testing.T) {
	f := newFixture(t)
	if _, _, _, err := f.ledger.Transfer(context.Background(), f.user.ID, f.cash.ID, f.cash.ID, 100); !errors.Is(err, core.ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}
}

func TestTransferMissingAccount(t *testing.T) {
	f := newFixture(t)
	if _, _, _, err := f.ledger.Transfer(context.Background(), f.user.ID, f.cash.ID, "nope", 100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetInitialBalanceAdditiveAndReconciled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, overall, err := f.ledger.SetInitialBalance(ctx, f.user.ID, f.cash.ID, 5000)
	if err != nil {
		t.Fatalf("set initial: %v", err)
	}
	if overall.Cents != 5000 {
		t.Fatalf("overall after first post: %d", overall.Cents)
	}
	account, overall, err := f.ledger.SetInitialBalance(ctx, f.user.ID, f.cash.ID, 5000)
	if err != nil {
		t.Fatalf("second post: %v", err)
	}
	if account.Balance.Cents != 10000 || overall.Cents != 10000 {
		t.Fatalf("posting twice should stack: balance=%d overall=%d", account.Balance.Cents, overall.Cents)
	}
	if account.InitialBalance.Cents != 5000 {
		t.Fatalf("marker: %d", account.InitialBalance.Cents)
	}
}

func TestDeleteAccountReconciles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.ledger.SetInitialBalance(ctx, f.user.ID, f.cash.ID, 7000); err != nil {
		t.Fatalf("seed: %v", err)
	}
	overall, err := f.ledger.DeleteAccount(ctx, f.user.ID, f.cash.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if overall.Cents != 0 {
		t.Fatalf("overall after delete: %d", overall.Cents)
	}
	if _, err := f.store.Account(ctx, f.cash.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("account still present")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, _, err := f.ledger.AddIncome(ctx, f.user.ID, f.cash.ID, f.salary.ID, 12345); err != nil {
		t.Fatalf("seed: %v", err)
	}
	first, err := f.ledger.Reconcile(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	second, err := f.ledger.Reconcile(ctx, f.user.ID)
	if err != nil || first != second {
		t.Fatalf("reconcile not idempotent: %v vs %v (%v)", first, second, err)
	}
	if second.Cents != f.sumAccounts(t) {
		t.Fatal("reconcile result differs from account sum")
	}
}

func TestAddAccountDefaultsAndReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, overall, err := f.ledger.AddAccount(ctx, f.user.ID, "", 2500)
	if err != nil {
		t.Fatalf("add account: %v", err)
	}
	if account.Name != "CustomCard" || account.Kind != core.AccountCustom {
		t.Fatalf("defaults: name=%q kind=%q", account.Name, account.Kind)
	}
	if account.Balance.Cents != 2500 || overall.Cents != 2500 {
		t.Fatalf("balances: account=%d overall=%d", account.Balance.Cents, overall.Cents)
	}
}

func TestCreateTransactionResolvesCategoryByName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, tx, overall, err := f.ledger.CreateTransaction(ctx, f.user.ID, GenericTransactionInput{
		Description: "weekly groceries",
		AmountCents: 3000,
		Kind:        core.TxExpense,
		Category:    "food",
		AccountName: "cash",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if tx.CategoryID != f.food.ID {
		t.Fatalf("category not resolved: %q", tx.CategoryID)
	}
	if account.Balance.Cents != -3000 || overall.Cents != -3000 {
		t.Fatalf("balances: %d / %d", account.Balance.Cents, overall.Cents)
	}
}

func TestCreateTransactionUnknownCategoryKeepsEmptyReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, tx, _, err := f.ledger.CreateTransaction(ctx, f.user.ID, GenericTransactionInput{
		Description: "mystery purchase",
		AmountCents: 1000,
		Kind:        core.TxExpense,
		Category:    "Gadgets",
		AccountName: "Cash",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if tx.CategoryID != "" {
		t.Fatalf("unknown category should leave reference empty, got %q", tx.CategoryID)
	}
	// Category totals stay untouched for free-form entries.
	food, _ := f.store.CategoryOwned(ctx, f.user.ID, f.food.ID)
	if food.MonthlyTotal.Cents != 0 {
		t.Fatal("free-form expense must not bump category totals")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []GenericTransactionInput{
		{Description: "", AmountCents: 100, Kind: core.TxExpense, Category: "Food", AccountName: "Cash"},
		{Description: "x", AmountCents: 0, Kind: core.TxExpense, Category: "Food", AccountName: "Cash"},
		{Description: "x", AmountCents: 100, Kind: core.TxTransfer, Category: "Food", AccountName: "Cash"},
		{Description: "x", AmountCents: 100, Kind: core.TxExpense, Category: "", AccountName: "Cash"},
		{Description: "x", AmountCents: 100, Kind: core.TxExpense, Category: "Food", AccountName: ""},
	}
	for i, in := range cases {
		if _, _, _, err := f.ledger.CreateTransaction(ctx, f.user.ID, in); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if _, _, _, err := f.ledger.CreateTransaction(ctx, f.user.ID, GenericTransactionInput{
		Description: "x", AmountCents: 100, Kind: core.TxExpense, Category: "Food", AccountName: "Vault",
	}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown account: expected ErrNotFound, got %v", err)
	}
}
