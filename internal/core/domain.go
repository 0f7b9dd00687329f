package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// IncomeRecord is the single income/savings declaration a user owns.
	IncomeRecord struct {
		UserID  int64
		Income  decimal.Decimal
		Savings decimal.Decimal
		// SavingsRate is the percentage savings were derived from, nil when
		// savings were entered directly.
		SavingsRate *decimal.Decimal
		UpdatedAt   time.Time
	}

	ExpenseRecord struct {
		ID          int64
		UserID      int64
		Description string
		Amount      decimal.Decimal
		CreatedAt   time.Time
	}

	// FinancialState is everything the store holds for one user. Income is nil
	// when no income was registered, which is not the same as a zero income.
	FinancialState struct {
		UserID   int64
		Income   *IncomeRecord
		Expenses []ExpenseRecord
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrNoIncomeRegistered = errors.New("no income registered")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// MaxSavingsRate caps the percentage accepted when savings are derived from income.
var MaxSavingsRate = decimal.NewFromInt(100)

func (r IncomeRecord) Validate() error {
	if r.Income.IsNegative() || r.Savings.IsNegative() {
		return ErrInvalidAmount
	}
	if r.SavingsRate != nil {
		if r.SavingsRate.IsNegative() || r.SavingsRate.GreaterThan(MaxSavingsRate) {
			return ErrInvalidAmount
		}
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// HasIncome reports whether an income record has been registered.
func (s FinancialState) HasIncome() bool {
	return s.Income != nil
}
