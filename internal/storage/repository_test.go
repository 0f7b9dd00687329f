package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

func openTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestMigrationsAreIdempotent(t *testing.T) {
	repo, path := openTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := RunMigrations(DSN(path)); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
}

func TestDeleteCascadesExpenses(t *testing.T) {
	repo, _ := openTestRepo(t)
	ctx := context.Background()

	if _, err := repo.UpsertIncome(ctx, core.IncomeRecord{UserID: 42, Income: decimal.NewFromInt(1000)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := repo.InsertExpense(ctx, core.ExpenseRecord{UserID: 42, Description: "x", Amount: decimal.NewFromInt(5)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	n, err := repo.CountExpenses(ctx, 42)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 expenses, got %d (err=%v)", n, err)
	}

	if err := repo.DeleteUser(ctx, 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err = repo.CountExpenses(ctx, 42)
	if err != nil || n != 0 {
		t.Fatalf("expected cascade to remove expenses, got %d (err=%v)", n, err)
	}
}

func TestImplicitOwnerHasNoIncome(t *testing.T) {
	repo, _ := openTestRepo(t)
	ctx := context.Background()

	exp, err := repo.InsertExpense(ctx, core.ExpenseRecord{UserID: 7, Description: "coffee", Amount: decimal.RequireFromString("2.345")})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if exp.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be populated")
	}

	state, err := repo.FinancialState(ctx, 7)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Income != nil {
		t.Fatalf("implicit owner row must not read as income: %+v", state.Income)
	}
	if len(state.Expenses) != 1 || state.Expenses[0].Amount.String() != "2.345" {
		t.Fatalf("unexpected expenses: %+v", state.Expenses)
	}
}

func TestUpsertKeepsPrecisionAndRate(t *testing.T) {
	repo, _ := openTestRepo(t)
	ctx := context.Background()

	rate := decimal.RequireFromString("12.5")
	stored, err := repo.UpsertIncome(ctx, core.IncomeRecord{
		UserID:      1,
		Income:      decimal.RequireFromString("1999.999"),
		Savings:     decimal.RequireFromString("249.999875"),
		SavingsRate: &rate,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if stored.Savings.String() != "249.999875" {
		t.Fatalf("savings precision lost: %s", stored.Savings)
	}
	if stored.SavingsRate == nil || !stored.SavingsRate.Equal(rate) {
		t.Fatalf("rate not stored: %v", stored.SavingsRate)
	}
	if stored.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at")
	}

	stored, err = repo.UpsertIncome(ctx, core.IncomeRecord{UserID: 1, Income: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if stored.SavingsRate != nil || !stored.Savings.IsZero() {
		t.Fatalf("upsert must replace, not merge: %+v", stored)
	}
}
