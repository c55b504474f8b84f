package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

// SQLiteRepository implements store.Store on top of modernc sqlite.
//
// Balance and total mutations run as single UPDATE ... SET x = x + ?
// statements, so each individual increment is atomic even though the
// composite ledger operations around them are not.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

var _ store.Store = (*SQLiteRepository)(nil)

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const accountColumns = `id, user_id, name, kind, initial_balance_cents, balance_cents, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, (*string)(&a.Kind),
		&a.InitialBalance.Cents, &a.Balance.Cents, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, kind, initial_balance_cents, balance_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Kind), a.InitialBalance.Cents, a.Balance.Cents, now, now)
	if isUniqueViolation(err) {
		return core.Account{}, core.ErrAlreadyExists
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = now, now

	slog.InfoContext(ctx, "Account created",
		"id", a.ID,
		"user_id", a.UserID,
		"name", a.Name,
		"balance_cents", a.Balance.Cents)
	return a, nil
}

func (r *SQLiteRepository) Account(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *SQLiteRepository) AccountOwned(ctx context.Context, ownerID, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, ownerID)
	return scanAccount(row)
}

func (r *SQLiteRepository) AccountByName(ctx context.Context, ownerID, name string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND name = ? COLLATE NOCASE`, ownerID, name)
	return scanAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AdjustBalance(ctx context.Context, ownerID, id string, deltaCents int64) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		deltaCents, time.Now().UTC(), id, ownerID)
	if err != nil {
		return core.Account{}, fmt.Errorf("adjust balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, core.ErrNotFound
	}
	return r.AccountOwned(ctx, ownerID, id)
}

func (r *SQLiteRepository) SetInitialBalance(ctx context.Context, ownerID, id string, amountCents int64) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ?, initial_balance_cents = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		amountCents, amountCents, time.Now().UTC(), id, ownerID)
	if err != nil {
		return core.Account{}, fmt.Errorf("set initial balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, core.ErrNotFound
	}
	return r.AccountOwned(ctx, ownerID, id)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Account deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) DeleteAccountsByUser(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, ownerID); err != nil {
		return fmt.Errorf("delete accounts by user: %w", err)
	}
	return nil
}

const categoryColumns = `id, user_id, kind, name, is_default, monthly_budget_cents, monthly_total_cents, overall_total_cents, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.UserID, (*string)(&c.Kind), &c.Name, &c.IsDefault,
		&c.MonthlyBudget.Cents, &c.MonthlyTotal.Cents, &c.OverallTotal.Cents,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, kind, name, is_default, monthly_budget_cents, monthly_total_cents, overall_total_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, string(c.Kind), c.Name, c.IsDefault,
		c.MonthlyBudget.Cents, c.MonthlyTotal.Cents, c.OverallTotal.Cents, now, now)
	if isUniqueViolation(err) {
		return core.Category{}, core.ErrAlreadyExists
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return c, nil
}

func (r *SQLiteRepository) CategoryOwned(ctx context.Context, ownerID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, ownerID)
	return scanCategory(row)
}

func (r *SQLiteRepository) CategoryByName(ctx context.Context, ownerID string, kind core.CategoryKind, name string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND kind = ? AND name = ?`,
		ownerID, string(kind), name)
	return scanCategory(row)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string, kind core.CategoryKind) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND kind = ? ORDER BY name`,
		ownerID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, monthly_budget_cents = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		c.Name, c.MonthlyBudget.Cents, time.Now().UTC(), c.ID, c.UserID)
	if isUniqueViolation(err) {
		return core.Category{}, core.ErrAlreadyExists
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, core.ErrNotFound
	}
	return r.CategoryOwned(ctx, c.UserID, c.ID)
}

func (r *SQLiteRepository) AddExpenseTotals(ctx context.Context, ownerID, id string, amountCents int64) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET monthly_total_cents = monthly_total_cents + ?,
		        overall_total_cents = overall_total_cents + ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND kind = ?`,
		amountCents, amountCents, time.Now().UTC(), id, ownerID, string(core.CategoryExpense))
	if err != nil {
		return core.Category{}, fmt.Errorf("add expense totals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, core.ErrNotFound
	}
	return r.CategoryOwned(ctx, ownerID, id)
}

func (r *SQLiteRepository) ResetMonthlyTotals(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET monthly_total_cents = 0, updated_at = ?
		 WHERE kind = ? AND monthly_total_cents <> 0`,
		time.Now().UTC(), string(core.CategoryExpense))
	if err != nil {
		return 0, fmt.Errorf("reset monthly totals: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Monthly expense totals reset", "categories", n)
	return n, nil
}

func (r *SQLiteRepository) DeleteCategoriesByUser(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ?`, ownerID); err != nil {
		return fmt.Errorf("delete categories by user: %w", err)
	}
	return nil
}

const transactionColumns = `id, user_id, kind, title, description, amount_cents, account_id, category_id, from_account_id, to_account_id, occurred_at, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var accountID, categoryID, fromID, toID sql.NullString
	err := row.Scan(&t.ID, &t.UserID, (*string)(&t.Kind), &t.Title, &t.Description,
		&t.Amount.Cents, &accountID, &categoryID, &fromID, &toID, &t.OccurredAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.AccountID = accountID.String
	t.CategoryID = categoryID.String
	t.FromAccountID = fromID.String
	t.ToAccountID = toID.String
	return t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	if t.OccurredAt.IsZero() {
		t.OccurredAt = now
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, kind, title, description, amount_cents, account_id, category_id, from_account_id, to_account_id, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Kind), t.Title, t.Description, t.Amount.Cents,
		nullable(t.AccountID), nullable(t.CategoryID), nullable(t.FromAccountID), nullable(t.ToAccountID),
		t.OccurredAt, t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction appended",
		"id", t.ID,
		"user_id", t.UserID,
		"kind", string(t.Kind),
		"amount_cents", t.Amount.Cents)
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{ownerID}
	if f.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if !f.From.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += ` AND occurred_at < ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY occurred_at DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteTransactionsByUser(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, ownerID); err != nil {
		return fmt.Errorf("delete transactions by user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, password_hash, otp, otp_expires_at, is_verified, overall_balance_cents, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var u core.User
	var otpExpires sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.OTP, &otpExpires,
		&u.IsVerified, &u.OverallBalance.Cents, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.OTPExpiresAt = otpExpires.Time
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, otp, otp_expires_at, is_verified, overall_balance_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.OTP, nullTime(u.OTPExpiresAt),
		u.IsVerified, u.OverallBalance.Cents, now, now)
	if isUniqueViolation(err) {
		return core.User{}, core.ErrAlreadyExists
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now

	slog.InfoContext(ctx, "User created", "id", u.ID, "email", u.Email)
	return u, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, otp = ?, otp_expires_at = ?,
		        is_verified = ?, updated_at = ?
		 WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.OTP, nullTime(u.OTPExpiresAt),
		u.IsVerified, time.Now().UTC(), u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.User{}, core.ErrNotFound
	}
	return r.UserByID(ctx, u.ID)
}

func (r *SQLiteRepository) SetOverallBalance(ctx context.Context, id string, cents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET overall_balance_cents = ?, updated_at = ? WHERE id = ?`,
		cents, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set overall balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
