package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Income mirrors a row of the incomes table.
type Income struct {
	UserID      int64
	Income      sql.NullString
	Savings     sql.NullString
	SavingsRate sql.NullString
	UpdatedAt   string
}

// Expense mirrors a row of the expenses table.
type Expense struct {
	ID          int64
	UserID      int64
	Description string
	Amount      string
	CreatedAt   string
}

// LedgerRow is one row of the incomes LEFT JOIN expenses read. Expense
// columns are NULL when the user has no expenses.
type LedgerRow struct {
	Income             sql.NullString
	Savings            sql.NullString
	SavingsRate        sql.NullString
	UpdatedAt          string
	ExpenseID          sql.NullInt64
	ExpenseDescription sql.NullString
	ExpenseAmount      sql.NullString
	ExpenseCreatedAt   sql.NullString
}

const upsertIncome = `
INSERT INTO incomes (user_id, income, savings, savings_rate, updated_at)
VALUES (?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
ON CONFLICT (user_id) DO UPDATE SET
    income       = excluded.income,
    savings      = excluded.savings,
    savings_rate = excluded.savings_rate,
    updated_at   = excluded.updated_at
RETURNING user_id, income, savings, savings_rate, updated_at
`

type UpsertIncomeParams struct {
	UserID      int64
	Income      string
	Savings     string
	SavingsRate sql.NullString
}

func (q *Queries) UpsertIncome(ctx context.Context, arg UpsertIncomeParams) (Income, error) {
	row := q.db.QueryRowContext(ctx, upsertIncome, arg.UserID, arg.Income, arg.Savings, arg.SavingsRate)
	var i Income
	err := row.Scan(&i.UserID, &i.Income, &i.Savings, &i.SavingsRate, &i.UpdatedAt)
	return i, err
}

const createExpense = `
INSERT INTO expenses (user_id, description, amount)
VALUES (?, ?, ?)
RETURNING id, user_id, description, amount, created_at
`

type CreateExpenseParams struct {
	UserID      int64
	Description string
	Amount      string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense, arg.UserID, arg.Description, arg.Amount)
	var e Expense
	err := row.Scan(&e.ID, &e.UserID, &e.Description, &e.Amount, &e.CreatedAt)
	return e, err
}

const getLedger = `
SELECT i.income, i.savings, i.savings_rate, i.updated_at,
       e.id, e.description, e.amount, e.created_at
FROM incomes i
LEFT JOIN expenses e ON e.user_id = i.user_id
WHERE i.user_id = ?
ORDER BY e.id
`

func (q *Queries) GetLedger(ctx context.Context, userID int64) ([]LedgerRow, error) {
	rows, err := q.db.QueryContext(ctx, getLedger, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerRow
	for rows.Next() {
		var r LedgerRow
		if err := rows.Scan(
			&r.Income,
			&r.Savings,
			&r.SavingsRate,
			&r.UpdatedAt,
			&r.ExpenseID,
			&r.ExpenseDescription,
			&r.ExpenseAmount,
			&r.ExpenseCreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteIncome = `DELETE FROM incomes WHERE user_id = ?`

func (q *Queries) DeleteIncome(ctx context.Context, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteIncome, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countExpenses = `SELECT COUNT(*) FROM expenses WHERE user_id = ?`

func (q *Queries) CountExpenses(ctx context.Context, userID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpenses, userID)
	var n int64
	err := row.Scan(&n)
	return n, err
}
