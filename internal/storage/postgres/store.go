// Package postgres is the PostgreSQL ledger store. Like the SQLite store it
// maps every ledger operation onto one statement: an ON CONFLICT upsert, an
// insert whose trigger creates the owner row, a join read, and a delete
// that cascades.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open connects to databaseURL and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const upsertIncome = `
INSERT INTO incomes (user_id, income, savings, savings_rate, updated_at)
VALUES ($1, $2::numeric, $3::numeric, $4::numeric, now())
ON CONFLICT (user_id) DO UPDATE SET
    income       = EXCLUDED.income,
    savings      = EXCLUDED.savings,
    savings_rate = EXCLUDED.savings_rate,
    updated_at   = EXCLUDED.updated_at
RETURNING income::text, savings::text, savings_rate::text, updated_at
`

func (s *Store) UpsertIncome(ctx context.Context, rec core.IncomeRecord) (core.IncomeRecord, error) {
	var rate *string
	if rec.SavingsRate != nil {
		v := rec.SavingsRate.String()
		rate = &v
	}

	var income, savings, storedRate *string
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, upsertIncome, rec.UserID, rec.Income.String(), rec.Savings.String(), rate).
		Scan(&income, &savings, &storedRate, &updatedAt)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("upsert income: %w", err)
	}

	stored, err := incomeFromColumns(rec.UserID, income, savings, storedRate, updatedAt)
	if err != nil {
		return core.IncomeRecord{}, err
	}

	slog.InfoContext(ctx, "Income saved to PostgreSQL",
		"user_id", rec.UserID,
		"income", stored.Income.String(),
		"savings", stored.Savings.String())

	return *stored, nil
}

const insertExpense = `
INSERT INTO expenses (user_id, description, amount)
VALUES ($1, $2, $3::numeric)
RETURNING id, amount::text, created_at
`

func (s *Store) InsertExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	var amount string
	err := s.pool.QueryRow(ctx, insertExpense, e.UserID, e.Description, e.Amount.String()).
		Scan(&e.ID, &amount, &e.CreatedAt)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("parse amount of expense %d: %w", e.ID, err)
	}

	slog.InfoContext(ctx, "Expense saved to PostgreSQL",
		"id", e.ID,
		"user_id", e.UserID,
		"description", e.Description,
		"amount", amount)

	return e, nil
}

const getLedger = `
SELECT i.income::text, i.savings::text, i.savings_rate::text, i.updated_at,
       e.id, e.description, e.amount::text, e.created_at
FROM incomes i
LEFT JOIN expenses e ON e.user_id = i.user_id
WHERE i.user_id = $1
ORDER BY e.id
`

func (s *Store) FinancialState(ctx context.Context, userID int64) (core.FinancialState, error) {
	state := core.FinancialState{UserID: userID}

	rows, err := s.pool.Query(ctx, getLedger, userID)
	if err != nil {
		return state, fmt.Errorf("get ledger: %w", err)
	}
	defer rows.Close()

	first := true
	for rows.Next() {
		var (
			income, savings, rate *string
			updatedAt             time.Time
			expID                 *int64
			desc, amount          *string
			createdAt             *time.Time
		)
		if err := rows.Scan(&income, &savings, &rate, &updatedAt, &expID, &desc, &amount, &createdAt); err != nil {
			return state, fmt.Errorf("scan ledger row: %w", err)
		}

		if first {
			state.Income, err = incomeFromColumns(userID, income, savings, rate, updatedAt)
			if err != nil {
				return state, err
			}
			first = false
		}

		if expID == nil {
			continue
		}
		d, err := decimal.NewFromString(deref(amount))
		if err != nil {
			return state, fmt.Errorf("parse amount of expense %d: %w", *expID, err)
		}
		exp := core.ExpenseRecord{
			ID:          *expID,
			UserID:      userID,
			Description: deref(desc),
			Amount:      d,
		}
		if createdAt != nil {
			exp.CreatedAt = *createdAt
		}
		state.Expenses = append(state.Expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return state, fmt.Errorf("read ledger rows: %w", err)
	}

	return state, nil
}

func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM incomes WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}

	slog.InfoContext(ctx, "User ledger deleted from PostgreSQL", "user_id", userID, "found", tag.RowsAffected() > 0)
	return nil
}

func incomeFromColumns(userID int64, income, savings, rate *string, updatedAt time.Time) (*core.IncomeRecord, error) {
	if income == nil {
		return nil, nil
	}
	rec := &core.IncomeRecord{UserID: userID, UpdatedAt: updatedAt}

	var err error
	if rec.Income, err = decimal.NewFromString(*income); err != nil {
		return nil, fmt.Errorf("parse income for user %d: %w", userID, err)
	}
	if savings != nil {
		if rec.Savings, err = decimal.NewFromString(*savings); err != nil {
			return nil, fmt.Errorf("parse savings for user %d: %w", userID, err)
		}
	}
	if rate != nil {
		pct, err := decimal.NewFromString(*rate)
		if err != nil {
			return nil, fmt.Errorf("parse savings rate for user %d: %w", userID, err)
		}
		rec.SavingsRate = &pct
	}
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
