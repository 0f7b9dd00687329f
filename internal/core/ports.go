package core

import "context"

// Ports implemented by the storage adapters.
type (
	// IncomeWriter upserts the income record for a user in a single atomic step.
	IncomeWriter interface {
		UpsertIncome(ctx context.Context, r IncomeRecord) (IncomeRecord, error)
	}

	// ExpenseWriter appends an expense and returns it with its assigned ID.
	ExpenseWriter interface {
		InsertExpense(ctx context.Context, e ExpenseRecord) (ExpenseRecord, error)
	}

	// StateReader returns a consistent snapshot of a user's ledger.
	StateReader interface {
		FinancialState(ctx context.Context, userID int64) (FinancialState, error)
	}

	// UserDeleter removes the income record and, by cascade, every expense.
	UserDeleter interface {
		DeleteUser(ctx context.Context, userID int64) error
	}

	Store interface {
		IncomeWriter
		ExpenseWriter
		StateReader
		UserDeleter
		Ping(ctx context.Context) error
		Close() error
	}
)
