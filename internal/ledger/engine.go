// Package ledger implements the ledger engine: validated mutations of a
// user's income and expenses and the summary derived from them.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Engine applies ledger operations against an injected store. It holds no
// per-user state of its own and is safe for concurrent use.
type Engine struct {
	store core.Store
}

func NewEngine(store core.Store) *Engine {
	return &Engine{store: store}
}

// Savings selects how the savings amount of an income registration is
// obtained. The zero value means no savings.
type Savings struct {
	rate   *decimal.Decimal
	amount decimal.Decimal
}

// SavingsRate derives savings as income × pct / 100.
func SavingsRate(pct decimal.Decimal) Savings {
	return Savings{rate: &pct}
}

// SavingsAmount stores a directly entered savings amount.
func SavingsAmount(amount decimal.Decimal) Savings {
	return Savings{amount: amount}
}

func (s Savings) resolve(income decimal.Decimal) (decimal.Decimal, *decimal.Decimal) {
	if s.rate == nil {
		return s.amount, nil
	}
	rate := *s.rate
	// Shift instead of Div keeps the result exact.
	return income.Mul(rate).Shift(-2), &rate
}

// RegisterIncome replaces the user's income record. Any prior income and
// savings values are overwritten, never merged.
func (e *Engine) RegisterIncome(ctx context.Context, userID int64, income decimal.Decimal, savings Savings) (core.IncomeRecord, error) {
	amount, rate := savings.resolve(income)
	rec := core.IncomeRecord{
		UserID:      userID,
		Income:      income,
		Savings:     amount,
		SavingsRate: rate,
	}
	if err := rec.Validate(); err != nil {
		return core.IncomeRecord{}, err
	}

	stored, err := e.store.UpsertIncome(ctx, rec)
	if err != nil {
		return core.IncomeRecord{}, unavailable("register income", err)
	}

	slog.DebugContext(ctx, "Income registered",
		"user_id", userID,
		"income", stored.Income.String(),
		"savings", stored.Savings.String())
	return stored, nil
}

// AddExpense appends a new expense for the user. Identical calls create
// distinct records.
func (e *Engine) AddExpense(ctx context.Context, userID int64, description string, amount decimal.Decimal) (core.ExpenseRecord, error) {
	rec := core.ExpenseRecord{
		UserID:      userID,
		Description: strings.TrimSpace(description),
		Amount:      amount,
	}
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	stored, err := e.store.InsertExpense(ctx, rec)
	if err != nil {
		return core.ExpenseRecord{}, unavailable("add expense", err)
	}

	slog.DebugContext(ctx, "Expense added",
		"user_id", userID,
		"expense_id", stored.ID,
		"amount", stored.Amount.String())
	return stored, nil
}

// GetFinancialState returns the user's income record (nil when none was
// registered) and all expenses in insertion order.
func (e *Engine) GetFinancialState(ctx context.Context, userID int64) (core.FinancialState, error) {
	state, err := e.store.FinancialState(ctx, userID)
	if err != nil {
		return core.FinancialState{}, unavailable("read financial state", err)
	}
	return state, nil
}

// DeleteUser removes the user's income record and every expense it owns.
// Deleting a user the store does not know is not an error.
func (e *Engine) DeleteUser(ctx context.Context, userID int64) error {
	if err := e.store.DeleteUser(ctx, userID); err != nil {
		return unavailable("delete user", err)
	}
	slog.DebugContext(ctx, "User ledger deleted", "user_id", userID)
	return nil
}

// Ping reports whether the underlying store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStoreUnavailable, op, err)
}
