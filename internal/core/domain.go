package core

import (
	"errors"
	"strings"
	"time"
)

const (
	AccountCard    AccountKind = "CARD"
	AccountCash    AccountKind = "CASH"
	AccountSavings AccountKind = "SAVINGS"
	AccountCustom  AccountKind = "CUSTOM"
)

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

const (
	TxIncome   TransactionKind = "income"
	TxExpense  TransactionKind = "expense"
	TxTransfer TransactionKind = "transfer"
)

type (
	AccountKind     string
	CategoryKind    string
	TransactionKind string

	Money struct {
		Cents int64
	}

	// Account is a single ledger bucket owned by one user. Balance is the
	// authoritative current value and is mutated only through the ledger
	// service so the owner's aggregate stays in step.
	Account struct {
		ID             string
		UserID         string
		Name           string
		Kind           AccountKind
		InitialBalance Money
		Balance        Money
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// Category is a named bucket for classifying money movements. Expense
	// categories carry running totals and an optional monthly budget; income
	// sources are plain name entries.
	Category struct {
		ID            string
		UserID        string
		Kind          CategoryKind
		Name          string
		IsDefault     bool
		MonthlyBudget Money
		MonthlyTotal  Money
		OverallTotal  Money
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Transaction is an immutable log entry. Kind discriminates which
	// reference fields are populated: income and expense carry AccountID
	// plus CategoryID, transfer carries FromAccountID and ToAccountID.
	Transaction struct {
		ID            string
		UserID        string
		Kind          TransactionKind
		Title         string
		Description   string
		Amount        Money
		AccountID     string
		CategoryID    string
		FromAccountID string
		ToAccountID   string
		OccurredAt    time.Time
		CreatedAt     time.Time
	}

	User struct {
		ID             string
		Name           string
		Email          string
		PasswordHash   string
		OTP            string
		OTPExpiresAt   time.Time
		IsVerified     bool
		OverallBalance Money
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}
)

// Error taxonomy surfaced to callers. Everything else is a storage failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrEmptyName     = errors.New("empty name")
	ErrSameAccount   = errors.New("cannot transfer to the same account")
)

func (k AccountKind) Valid() bool {
	switch k {
	case AccountCard, AccountCash, AccountSavings, AccountCustom:
		return true
	}
	return false
}

func (k CategoryKind) Valid() bool {
	return k == CategoryIncome || k == CategoryExpense
}

func (k TransactionKind) Valid() bool {
	switch k {
	case TxIncome, TxExpense, TxTransfer:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Kind.Valid() {
		return errors.New("invalid account kind")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.Valid() {
		return errors.New("invalid category kind")
	}
	if c.MonthlyBudget.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewIncomeTransaction builds a validated income log entry.
func NewIncomeTransaction(userID, accountID, sourceID, title string, amount Money, occurredAt time.Time) (Transaction, error) {
	t := Transaction{
		UserID:     userID,
		Kind:       TxIncome,
		Title:      title,
		Amount:     amount,
		AccountID:  accountID,
		CategoryID: sourceID,
		OccurredAt: occurredAt,
	}
	return t, t.Validate()
}

// NewExpenseTransaction builds a validated expense log entry.
func NewExpenseTransaction(userID, accountID, destinationID, title string, amount Money, occurredAt time.Time) (Transaction, error) {
	t := Transaction{
		UserID:     userID,
		Kind:       TxExpense,
		Title:      title,
		Amount:     amount,
		AccountID:  accountID,
		CategoryID: destinationID,
		OccurredAt: occurredAt,
	}
	return t, t.Validate()
}

// NewTransferTransaction builds a validated transfer log entry.
func NewTransferTransaction(userID, fromAccountID, toAccountID, title string, amount Money, occurredAt time.Time) (Transaction, error) {
	t := Transaction{
		UserID:        userID,
		Kind:          TxTransfer,
		Title:         title,
		Amount:        amount,
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
		OccurredAt:    occurredAt,
	}
	return t, t.Validate()
}

// Validate enforces the per-kind reference rules: income and expense need an
// account plus a category reference, transfers need two distinct accounts and
// no category. Invalid combinations never reach the log.
func (t Transaction) Validate() error {
	if t.UserID == "" {
		return errors.New("missing user id")
	}
	if !t.Kind.Valid() {
		return errors.New("invalid transaction kind")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("empty title")
	}
	switch t.Kind {
	case TxIncome, TxExpense:
		if t.AccountID == "" {
			return errors.New("missing account id")
		}
		if t.FromAccountID != "" || t.ToAccountID != "" {
			return errors.New("transfer accounts set on non-transfer")
		}
	case TxTransfer:
		if t.FromAccountID == "" || t.ToAccountID == "" {
			return errors.New("missing transfer account ids")
		}
		if t.FromAccountID == t.ToAccountID {
			return ErrSameAccount
		}
		if t.AccountID != "" || t.CategoryID != "" {
			return errors.New("category reference set on transfer")
		}
	}
	return nil
}
