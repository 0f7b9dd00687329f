// Package sheets defines the spreadsheet mirror the worker appends
// expenses to.
package sheets

import (
	"context"
	"time"
)

// ExpenseRow is one mirrored expense. Amount is the decimal string as stored.
type ExpenseRow struct {
	Date        time.Time
	UserID      int64
	ExpenseID   int64
	Description string
	Amount      string
}

// ExpenseMirror appends expense rows to an external sheet.
type ExpenseMirror interface {
	AppendExpense(ctx context.Context, row ExpenseRow) (rowRef string, err error)
}
