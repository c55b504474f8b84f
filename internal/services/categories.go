package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

// Default taxonomies seeded for every verified user.
var (
	defaultIncomeSources = []string{
		"Awards", "Coupons", "Grants", "Lottery",
		"Refunds", "Rental", "Salary", "Sell",
	}
	defaultExpenseCategories = []string{
		"Baby", "Beauty", "Bills", "Car", "Clothing", "Education",
		"Electronics", "Entertainment", "Food", "Health", "Home",
		"Insurance", "Shopping", "Social", "Sport", "Tax",
		"Telephone", "Transportation",
	}
)

// CategoryService manages the per-user income source and expense category
// taxonomies, including the monthly total rollover.
type CategoryService struct {
	categories store.CategoryStore
}

func NewCategoryService(s store.CategoryStore) *CategoryService {
	return &CategoryService{categories: s}
}

// SeedDefaults creates the stock income sources and expense categories for a
// freshly verified user. Names already present are skipped, so re-running
// after a partial failure completes the set without duplicates.
func (s *CategoryService) SeedDefaults(ctx context.Context, ownerID string) error {
	seed := func(kind core.CategoryKind, names []string) error {
		for _, name := range names {
			_, err := s.categories.CreateCategory(ctx, core.Category{
				UserID:    ownerID,
				Kind:      kind,
				Name:      name,
				IsDefault: true,
			})
			if err != nil && !errors.Is(err, core.ErrAlreadyExists) {
				return fmt.Errorf("seed %s %s: %w", kind, name, err)
			}
		}
		return nil
	}
	if err := seed(core.CategoryIncome, defaultIncomeSources); err != nil {
		return err
	}
	return seed(core.CategoryExpense, defaultExpenseCategories)
}

func (s *CategoryService) Categories(ctx context.Context, ownerID string, kind core.CategoryKind) ([]core.Category, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidArgument
	}
	return s.categories.ListCategories(ctx, ownerID, kind)
}

// AddCategory creates a custom category. Names collide case-insensitively
// within the same (owner, kind) pair. The budget applies to expense
// categories only.
func (s *CategoryService) AddCategory(ctx context.Context, ownerID string, kind core.CategoryKind, name string, budgetCents int64) (core.Category, error) {
	name = strings.TrimSpace(name)
	c := core.Category{
		UserID: ownerID,
		Kind:   kind,
		Name:   name,
	}
	if kind == core.CategoryExpense {
		c.MonthlyBudget = core.Money{Cents: budgetCents}
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.categories.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	slog.InfoContext(ctx, "Category created",
		"user_id", ownerID,
		"kind", string(kind),
		"name", name)
	return created, nil
}

// CategoryUpdate carries the optional fields of a rename/rebudget request.
// Nil means "leave unchanged"; at least one field must be set.
type CategoryUpdate struct {
	Name        *string
	BudgetCents *int64
}

// UpdateCategory applies a partial update to an owned category. A budget
// change is rejected on income sources, which carry no budget.
func (s *CategoryService) UpdateCategory(ctx context.Context, ownerID, id string, upd CategoryUpdate) (core.Category, error) {
	if upd.Name == nil && upd.BudgetCents == nil {
		return core.Category{}, core.ErrInvalidArgument
	}
	c, err := s.categories.CategoryOwned(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return core.Category{}, core.ErrEmptyName
		}
		c.Name = name
	}
	if upd.BudgetCents != nil {
		if c.Kind != core.CategoryExpense {
			return core.Category{}, core.ErrInvalidArgument
		}
		if *upd.BudgetCents < 0 {
			return core.Category{}, core.ErrInvalidAmount
		}
		c.MonthlyBudget = core.Money{Cents: *upd.BudgetCents}
	}
	return s.categories.UpdateCategory(ctx, c)
}

// ResetMonthlyTotals zeroes the monthly running total of every expense
// category across all users. The scheduler fires it at each month boundary;
// overall totals are untouched, so the operation is idempotent.
func (s *CategoryService) ResetMonthlyTotals(ctx context.Context) error {
	n, err := s.categories.ResetMonthlyTotals(ctx)
	if err != nil {
		return fmt.Errorf("reset monthly totals: %w", err)
	}
	slog.InfoContext(ctx, "Monthly expense totals reset", "categories", n)
	return nil
}
