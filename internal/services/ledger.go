// Package services orchestrates the domain operations across the store and
// the repair queue. Every balance-affecting operation here keeps the owner's
// cached overall balance in step with the sum of their account balances.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

// RepairQueue publishes asynchronous reconciliation requests. The AMQP
// client implements it; a nil queue disables background repair.
type RepairQueue interface {
	PublishReconcile(ctx context.Context, userID, reason string) error
}

// defaultAccounts are seeded for every verified user, each starting at zero.
var defaultAccounts = []struct {
	Name string
	Kind core.AccountKind
}{
	{"Cash", core.AccountCash},
	{"Card", core.AccountCard},
	{"Savings", core.AccountSavings},
}

// LedgerService owns account balances, the transaction log, and the
// overall-balance reconciliation that ties them together.
type LedgerService struct {
	accounts   store.AccountStore
	categories store.CategoryStore
	txs        store.TransactionStore
	users      store.UserStore
	repairs    RepairQueue
}

func NewLedgerService(s store.Store, repairs RepairQueue) *LedgerService {
	return &LedgerService{
		accounts:   s,
		categories: s,
		txs:        s,
		users:      s,
		repairs:    repairs,
	}
}

// InitDefaultAccounts ensures the three default accounts exist for the user.
// Accounts already present by name are left untouched, so the call is
// idempotent and safe to repeat.
func (s *LedgerService) InitDefaultAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	for _, def := range defaultAccounts {
		_, err := s.accounts.AccountByName(ctx, ownerID, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("check default account %s: %w", def.Name, err)
		}
		if _, err := s.accounts.CreateAccount(ctx, core.Account{
			UserID: ownerID,
			Name:   def.Name,
			Kind:   def.Kind,
		}); err != nil {
			return nil, fmt.Errorf("create default account %s: %w", def.Name, err)
		}
	}
	return s.accounts.ListAccounts(ctx, ownerID)
}

func (s *LedgerService) Accounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	return s.accounts.ListAccounts(ctx, ownerID)
}

// AddAccount creates a custom account with the given starting balance and
// reconciles the owner's aggregate.
func (s *LedgerService) AddAccount(ctx context.Context, ownerID, name string, balanceCents int64) (core.Account, core.Money, error) {
	if strings.TrimSpace(name) == "" {
		name = "CustomCard"
	}
	if balanceCents < 0 {
		return core.Account{}, core.Money{}, core.ErrInvalidAmount
	}
	a, err := s.accounts.CreateAccount(ctx, core.Account{
		UserID:         ownerID,
		Name:           name,
		Kind:           core.AccountCustom,
		InitialBalance: core.Money{Cents: balanceCents},
		Balance:        core.Money{Cents: balanceCents},
	})
	if err != nil {
		return core.Account{}, core.Money{}, err
	}
	overall, err := s.Reconcile(ctx, ownerID)
	if err != nil {
		return core.Account{}, core.Money{}, err
	}
	return a, overall, nil
}

// SetInitialBalance adds amount to the account balance and records amount as
// the new initial-balance marker. The semantics are additive on purpose:
// posting 50 twice leaves the balance 100 higher, with the marker at 50.
func (s *LedgerService) SetInitialBalance(ctx context.Context, ownerID, accountID string, amountCents int64) (core.Account, core.Money, error) {
	a, err := s.accounts.SetInitialBalance(ctx, ownerID, accountID, amountCents)
	if err != nil {
		return core.Account{}, core.Money{}, err
	}
	overall, err := s.Reconcile(ctx, ownerID)
	if err != nil {
		return core.Account{}, core.Money{}, err
	}
	return a, overall, nil
}

// DeleteAccount removes the account and reconciles the caller's aggregate.
//
// The account is loaded by id alone, without re-checking ownership before
// the delete; the reconciliation afterwards is scoped to the caller. This
// mirrors the upstream behavior intentionally (see DESIGN.md).
func (s *LedgerService) DeleteAccount(ctx context.Context, ownerID, accountID string) (core.Money, error) {
	if _, err := s.accounts.Account(ctx, accountID); err != nil {
		return core.Money{}, err
	}
	if err := s.accounts.DeleteAccount(ctx, accountID); err != nil {
		return core.Money{}, err
	}
	return s.Reconcile(ctx, ownerID)
}

// Reconcile recomputes the owner's overall balance as the sum of their
// account balances and persists it. Pure function of current ledger state;
// running it twice in a row is a no-op.
func (s *LedgerService) Reconcile(ctx context.Context, ownerID string) (core.Money, error) {
	accounts, err := s.accounts.ListAccounts(ctx, ownerID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list accounts for reconcile: %w", err)
	}
	var total int64
	for _, a := range accounts {
		total += a.Balance.Cents
	}
	if err := s.users.SetOverallBalance(ctx, ownerID, total); err != nil {
		return core.Money{}, fmt.Errorf("persist overall balance: %w", err)
	}
	return core.Money{Cents: total}, nil
}

// AddIncome credits the account, reconciles the aggregate, and appends an
// income entry referencing the source category.
func (s *LedgerService) AddIncome(ctx context.Context, ownerID, accountID, sourceID string, amountCents int64) (core.Account, core.Transaction, core.Money, error) {
	return s.recordMovement(ctx, ownerID, accountID, sourceID, amountCents, core.TxIncome)
}

// AddExpense debits the account, bumps the destination category's monthly
// and overall totals, reconciles, and appends an expense entry.
func (s *LedgerService) AddExpense(ctx context.Context, ownerID, accountID, destinationID string, amountCents int64) (core.Account, core.Transaction, core.Money, error) {
	return s.recordMovement(ctx, ownerID, accountID, destinationID, amountCents, core.TxExpense)
}

func (s *LedgerService) recordMovement(ctx context.Context, ownerID, accountID, categoryID string, amountCents int64, kind core.TransactionKind) (core.Account, core.Transaction, core.Money, error) {
	if accountID == "" || categoryID == "" {
		return core.Account{}, core.Transaction{}, core.Money{}, core.ErrInvalidArgument
	}
	if amountCents <= 0 {
		return core.Account{}, core.Transaction{}, core.Money{}, core.ErrInvalidAmount
	}

	if _, err := s.accounts.AccountOwned(ctx, ownerID, accountID); err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("load account: %w", err)
	}
	category, err := s.categoryOfKind(ctx, ownerID, categoryID, kind)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("load category: %w", err)
	}

	delta := amountCents
	if kind == core.TxExpense {
		delta = -amountCents
	}
	account, err := s.accounts.AdjustBalance(ctx, ownerID, accountID, delta)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("adjust balance: %w", err)
	}
	if kind == core.TxExpense {
		if _, err := s.categories.AddExpenseTotals(ctx, ownerID, categoryID, amountCents); err != nil {
			return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("record expense totals: %w", err)
		}
	}

	overall, err := s.Reconcile(ctx, ownerID)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, err
	}

	title := fmt.Sprintf("Income - %s", category.Name)
	build := core.NewIncomeTransaction
	if kind == core.TxExpense {
		title = fmt.Sprintf("Expense - %s", category.Name)
		build = core.NewExpenseTransaction
	}
	entry, err := build(ownerID, accountID, categoryID, title, core.Money{Cents: amountCents}, time.Now().UTC())
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, err
	}
	tx, err := s.txs.AppendTransaction(ctx, entry)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("append transaction: %w", err)
	}

	slog.InfoContext(ctx, "Money movement recorded",
		"user_id", ownerID,
		"account_id", accountID,
		"kind", string(kind),
		"amount_cents", amountCents)
	return account, tx, overall, nil
}

func (s *LedgerService) categoryOfKind(ctx context.Context, ownerID, id string, kind core.TransactionKind) (core.Category, error) {
	c, err := s.categories.CategoryOwned(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, err
	}
	want := core.CategoryIncome
	if kind == core.TxExpense {
		want = core.CategoryExpense
	}
	if c.Kind != want {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

// Transfer moves amount between two distinct accounts and appends a transfer
// entry. The net effect on any single owner's aggregate is zero, so no
// synchronous reconcile runs; a repair message is queued instead so the
// background worker re-verifies the aggregates.
func (s *LedgerService) Transfer(ctx context.Context, ownerID, fromAccountID, toAccountID string, amountCents int64) (core.Account, core.Account, core.Transaction, error) {
	if fromAccountID == "" || toAccountID == "" {
		return core.Account{}, core.Account{}, core.Transaction{}, core.ErrInvalidArgument
	}
	if fromAccountID == toAccountID {
		return core.Account{}, core.Account{}, core.Transaction{}, core.ErrSameAccount
	}
	if amountCents <= 0 {
		return core.Account{}, core.Account{}, core.Transaction{}, core.ErrInvalidAmount
	}

	fromAccount, err := s.accounts.Account(ctx, fromAccountID)
	if err != nil {
		return core.Account{}, core.Account{}, core.Transaction{}, fmt.Errorf("load source account: %w", err)
	}
	toAccount, err := s.accounts.Account(ctx, toAccountID)
	if err != nil {
		return core.Account{}, core.Account{}, core.Transaction{}, fmt.Errorf("load destination account: %w", err)
	}

	fromAccount, err = s.accounts.AdjustBalance(ctx, fromAccount.UserID, fromAccountID, -amountCents)
	if err != nil {
		return core.Account{}, core.Account{}, core.Transaction{}, fmt.Errorf("debit source: %w", err)
	}
	toAccount, err = s.accounts.AdjustBalance(ctx, toAccount.UserID, toAccountID, amountCents)
	if err != nil {
		return core.Account{}, core.Account{}, core.Transaction{}, fmt.Errorf("credit destination: %w", err)
	}

	title := fmt.Sprintf("Transfer from %s to %s", fromAccount.Name, toAccount.Name)
	entry, err := core.NewTransferTransaction(ownerID, fromAccountID, toAccountID, title,
		core.Money{Cents: amountCents}, time.Now().UTC())
	if err != nil {
		return core.Account{}, core.Account{}, core.Transaction{}, err
	}
	tx, err := s.txs.AppendTransaction(ctx, entry)
	if err != nil {
		return core.Account{}, core.Account{}, core.Transaction{}, fmt.Errorf("append transfer: %w", err)
	}

	s.queueRepair(ctx, ownerID, "transfer")

	slog.InfoContext(ctx, "Transfer recorded",
		"user_id", ownerID,
		"from_account_id", fromAccountID,
		"to_account_id", toAccountID,
		"amount_cents", amountCents)
	return fromAccount, toAccount, tx, nil
}

// GenericTransactionInput is the payload for the free-form transaction
// endpoint, which addresses the account by name and the category by name.
type GenericTransactionInput struct {
	Description string
	AmountCents int64
	Kind        core.TransactionKind
	Category    string
	AccountName string
	OccurredAt  time.Time
}

// CreateTransaction records an income or expense against an account looked
// up by name. The category name is resolved to the owner's category when one
// matches; otherwise the entry aggregates under "Uncategorized".
func (s *LedgerService) CreateTransaction(ctx context.Context, ownerID string, in GenericTransactionInput) (core.Account, core.Transaction, core.Money, error) {
	if strings.TrimSpace(in.Description) == "" || in.Category == "" || in.AccountName == "" {
		return core.Account{}, core.Transaction{}, core.Money{}, core.ErrInvalidArgument
	}
	if in.Kind != core.TxIncome && in.Kind != core.TxExpense {
		return core.Account{}, core.Transaction{}, core.Money{}, core.ErrInvalidArgument
	}
	if in.AmountCents <= 0 {
		return core.Account{}, core.Transaction{}, core.Money{}, core.ErrInvalidAmount
	}

	account, err := s.accounts.AccountByName(ctx, ownerID, in.AccountName)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("load account by name: %w", err)
	}

	delta := in.AmountCents
	categoryKind := core.CategoryIncome
	build := core.NewIncomeTransaction
	if in.Kind == core.TxExpense {
		delta = -in.AmountCents
		categoryKind = core.CategoryExpense
		build = core.NewExpenseTransaction
	}

	var categoryID string
	if c, err := s.categories.CategoryByName(ctx, ownerID, categoryKind, in.Category); err == nil {
		categoryID = c.ID
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("resolve category: %w", err)
	}

	account, err = s.accounts.AdjustBalance(ctx, ownerID, account.ID, delta)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("adjust balance: %w", err)
	}
	overall, err := s.Reconcile(ctx, ownerID)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, err
	}

	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	entry, err := build(ownerID, account.ID, categoryID, in.Description, core.Money{Cents: in.AmountCents}, occurred)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, err
	}
	entry.Description = in.Description
	tx, err := s.txs.AppendTransaction(ctx, entry)
	if err != nil {
		return core.Account{}, core.Transaction{}, core.Money{}, fmt.Errorf("append transaction: %w", err)
	}
	return account, tx, overall, nil
}

func (s *LedgerService) queueRepair(ctx context.Context, ownerID, reason string) {
	if s.repairs == nil {
		return
	}
	if err := s.repairs.PublishReconcile(ctx, ownerID, reason); err != nil {
		// Repair is best effort; the mutation already succeeded.
		slog.WarnContext(ctx, "Failed to queue reconcile repair",
			"user_id", ownerID,
			"reason", reason,
			"error", err)
	}
}
