// Package storage is the SQLite ledger store. Every operation is a single
// SQL statement, so SQLite's statement atomicity is what keeps a reader
// from seeing a half written income record.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ core.Store = (*SQLiteRepository)(nil)

// DSN builds the modernc.org/sqlite connection string. Foreign keys are
// enabled on every pooled connection so deletes cascade.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// UpsertIncome implements core.IncomeWriter
func (r *SQLiteRepository) UpsertIncome(ctx context.Context, rec core.IncomeRecord) (core.IncomeRecord, error) {
	params := UpsertIncomeParams{
		UserID:  rec.UserID,
		Income:  rec.Income.String(),
		Savings: rec.Savings.String(),
	}
	if rec.SavingsRate != nil {
		params.SavingsRate = sql.NullString{String: rec.SavingsRate.String(), Valid: true}
	}

	row, err := r.queries.UpsertIncome(ctx, params)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("upsert income: %w", err)
	}

	stored, err := incomeFromColumns(row.UserID, row.Income, row.Savings, row.SavingsRate, row.UpdatedAt)
	if err != nil {
		return core.IncomeRecord{}, err
	}

	slog.InfoContext(ctx, "Income saved to SQLite",
		"user_id", stored.UserID,
		"income", row.Income.String,
		"savings", row.Savings.String)

	return *stored, nil
}

// InsertExpense implements core.ExpenseWriter
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		UserID:      e.UserID,
		Description: e.Description,
		Amount:      e.Amount.String(),
	})
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	stored, err := expenseFromColumns(row.ID, row.UserID, row.Description, row.Amount, row.CreatedAt)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", stored.ID,
		"user_id", stored.UserID,
		"description", stored.Description,
		"amount", row.Amount)

	return stored, nil
}

// FinancialState implements core.StateReader
func (r *SQLiteRepository) FinancialState(ctx context.Context, userID int64) (core.FinancialState, error) {
	state := core.FinancialState{UserID: userID}

	rows, err := r.queries.GetLedger(ctx, userID)
	if err != nil {
		return state, fmt.Errorf("get ledger: %w", err)
	}
	if len(rows) == 0 {
		return state, nil
	}

	first := rows[0]
	state.Income, err = incomeFromColumns(userID, first.Income, first.Savings, first.SavingsRate, first.UpdatedAt)
	if err != nil {
		return state, err
	}

	for _, row := range rows {
		if !row.ExpenseID.Valid {
			continue
		}
		exp, err := expenseFromColumns(row.ExpenseID.Int64, userID, row.ExpenseDescription.String, row.ExpenseAmount.String, row.ExpenseCreatedAt.String)
		if err != nil {
			return state, err
		}
		state.Expenses = append(state.Expenses, exp)
	}

	return state, nil
}

// DeleteUser implements core.UserDeleter
func (r *SQLiteRepository) DeleteUser(ctx context.Context, userID int64) error {
	n, err := r.queries.DeleteIncome(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}

	slog.InfoContext(ctx, "User ledger deleted from SQLite", "user_id", userID, "found", n > 0)
	return nil
}

// CountExpenses returns how many expense rows the user owns.
func (r *SQLiteRepository) CountExpenses(ctx context.Context, userID int64) (int64, error) {
	n, err := r.queries.CountExpenses(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// incomeFromColumns returns nil when the row is only an implicit owner
// created for expenses, with no income registered yet.
func incomeFromColumns(userID int64, income, savings, rate sql.NullString, updatedAt string) (*core.IncomeRecord, error) {
	if !income.Valid {
		return nil, nil
	}
	rec := &core.IncomeRecord{UserID: userID}

	var err error
	if rec.Income, err = decimal.NewFromString(income.String); err != nil {
		return nil, fmt.Errorf("parse income for user %d: %w", userID, err)
	}
	if savings.Valid {
		if rec.Savings, err = decimal.NewFromString(savings.String); err != nil {
			return nil, fmt.Errorf("parse savings for user %d: %w", userID, err)
		}
	}
	if rate.Valid {
		pct, err := decimal.NewFromString(rate.String)
		if err != nil {
			return nil, fmt.Errorf("parse savings rate for user %d: %w", userID, err)
		}
		rec.SavingsRate = &pct
	}
	rec.UpdatedAt = parseTimestamp(updatedAt)
	return rec, nil
}

func expenseFromColumns(id, userID int64, description, amount, createdAt string) (core.ExpenseRecord, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("parse amount of expense %d: %w", id, err)
	}
	return core.ExpenseRecord{
		ID:          id,
		UserID:      userID,
		Description: description,
		Amount:      d,
		CreatedAt:   parseTimestamp(createdAt),
	}, nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
