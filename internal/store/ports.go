// Package store defines the persistence ports consumed by the services.
// The SQLite repository and the in-memory store both satisfy them.
package store

import (
	"context"
	"time"

	"finsmart/internal/core"
)

// TransactionFilter narrows a transaction log query. Zero values mean
// "no constraint"; From/To bound OccurredAt as [From, To).
type TransactionFilter struct {
	AccountID string
	Kind      core.TransactionKind
	From      time.Time
	To        time.Time
}

type (
	AccountStore interface {
		// CreateAccount persists the account, assigning an id when empty.
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		// Account loads by id without an ownership check.
		Account(ctx context.Context, id string) (core.Account, error)
		// AccountOwned loads by id scoped to the owner; core.ErrNotFound
		// covers both absence and foreign ownership.
		AccountOwned(ctx context.Context, ownerID, id string) (core.Account, error)
		AccountByName(ctx context.Context, ownerID, name string) (core.Account, error)
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
		// AdjustBalance applies balance += delta as a single in-place
		// increment and returns the updated account.
		AdjustBalance(ctx context.Context, ownerID, id string, deltaCents int64) (core.Account, error)
		// SetInitialBalance adds amount to the balance and records amount as
		// the new initial-balance marker (additive, not a replacement).
		SetInitialBalance(ctx context.Context, ownerID, id string, amountCents int64) (core.Account, error)
		DeleteAccount(ctx context.Context, id string) error
		DeleteAccountsByUser(ctx context.Context, ownerID string) error
	}

	CategoryStore interface {
		// CreateCategory persists the category; core.ErrAlreadyExists when a
		// category with the same (owner, kind, name) exists.
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		CategoryOwned(ctx context.Context, ownerID, id string) (core.Category, error)
		CategoryByName(ctx context.Context, ownerID string, kind core.CategoryKind, name string) (core.Category, error)
		ListCategories(ctx context.Context, ownerID string, kind core.CategoryKind) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// AddExpenseTotals increments monthly and overall running totals.
		AddExpenseTotals(ctx context.Context, ownerID, id string, amountCents int64) (core.Category, error)
		// ResetMonthlyTotals zeroes monthly totals for every expense
		// category system-wide and reports how many rows changed.
		ResetMonthlyTotals(ctx context.Context) (int64, error)
		DeleteCategoriesByUser(ctx context.Context, ownerID string) error
	}

	TransactionStore interface {
		// AppendTransaction persists the entry, assigning id and CreatedAt.
		// Entries are never updated afterwards.
		AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// ListTransactions returns the owner's entries newest first.
		ListTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error)
		DeleteTransactionsByUser(ctx context.Context, ownerID string) error
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		UserByID(ctx context.Context, id string) (core.User, error)
		UserByEmail(ctx context.Context, email string) (core.User, error)
		UpdateUser(ctx context.Context, u core.User) (core.User, error)
		// SetOverallBalance writes the reconciled aggregate.
		SetOverallBalance(ctx context.Context, id string, cents int64) error
		DeleteUser(ctx context.Context, id string) error
	}
)

// Store is the full persistence surface, implemented by both backends.
type Store interface {
	AccountStore
	CategoryStore
	TransactionStore
	UserStore
	Close() error
}
