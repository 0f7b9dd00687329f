package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// ExpenseLine is one itemized entry of a summary.
type ExpenseLine struct {
	ID          int64
	Description string
	Amount      decimal.Decimal
}

// Summary is the derived view of a user's ledger. Amounts keep full
// precision; rounding for display is left to the caller.
type Summary struct {
	UserID        int64
	Income        decimal.Decimal
	Savings       decimal.Decimal
	TotalExpenses decimal.Decimal
	// Balance is Income - TotalExpenses - Savings and may be negative.
	Balance  decimal.Decimal
	Expenses []ExpenseLine
}

// Overspent reports whether expenses and savings exceed the income.
func (s Summary) Overspent() bool {
	return s.Balance.IsNegative()
}

// ComputeSummary reads the user's state and derives the summary from it.
func (e *Engine) ComputeSummary(ctx context.Context, userID int64) (Summary, error) {
	state, err := e.GetFinancialState(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(state)
}

// Summarize derives a summary from a financial state. It fails with
// core.ErrNoIncomeRegistered rather than reporting a zero income.
func Summarize(state core.FinancialState) (Summary, error) {
	if !state.HasIncome() {
		return Summary{}, core.ErrNoIncomeRegistered
	}

	total := decimal.Zero
	lines := make([]ExpenseLine, 0, len(state.Expenses))
	for _, exp := range state.Expenses {
		total = total.Add(exp.Amount)
		lines = append(lines, ExpenseLine{
			ID:          exp.ID,
			Description: exp.Description,
			Amount:      exp.Amount,
		})
	}

	inc := state.Income
	return Summary{
		UserID:        state.UserID,
		Income:        inc.Income,
		Savings:       inc.Savings,
		TotalExpenses: total,
		Balance:       inc.Income.Sub(total).Sub(inc.Savings),
		Expenses:      lines,
	}, nil
}
