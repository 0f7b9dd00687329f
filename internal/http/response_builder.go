// Package http exposes the ledger as a JSON API and a command webhook.
//
// This file builds JSON responses and maps ledger errors onto status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type incomeResponse struct {
	UserID      int64     `json:"user_id"`
	Income      string    `json:"income"`
	Savings     string    `json:"savings"`
	SavingsRate *string   `json:"savings_rate,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type expenseResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type expenseLine struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type summaryResponse struct {
	UserID        int64         `json:"user_id"`
	Income        string        `json:"income"`
	Savings       string        `json:"savings"`
	TotalExpenses string        `json:"total_expenses"`
	Balance       string        `json:"balance"`
	Overspent     bool          `json:"overspent"`
	Expenses      []expenseLine `json:"expenses"`
}

// commandResponse replies are Markdown with user text escaped.
type commandResponse struct {
	Reply     string `json:"reply"`
	ParseMode string `json:"parse_mode"`
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func newIncomeResponse(rec core.IncomeRecord) incomeResponse {
	resp := incomeResponse{
		UserID:    rec.UserID,
		Income:    amount(rec.Income),
		Savings:   amount(rec.Savings),
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.SavingsRate != nil {
		rate := rec.SavingsRate.String()
		resp.SavingsRate = &rate
	}
	return resp
}

func newExpenseResponse(rec core.ExpenseRecord) expenseResponse {
	return expenseResponse{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Description: rec.Description,
		Amount:      amount(rec.Amount),
		CreatedAt:   rec.CreatedAt,
	}
}

func newSummaryResponse(sum ledger.Summary) summaryResponse {
	lines := make([]expenseLine, 0, len(sum.Expenses))
	for _, e := range sum.Expenses {
		lines = append(lines, expenseLine{ID: e.ID, Description: e.Description, Amount: amount(e.Amount)})
	}
	return summaryResponse{
		UserID:        sum.UserID,
		Income:        amount(sum.Income),
		Savings:       amount(sum.Savings),
		TotalExpenses: amount(sum.TotalExpenses),
		Balance:       amount(sum.Balance),
		Overspent:     sum.Overspent(),
		Expenses:      lines,
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// statusForError maps a ledger error onto its HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "invalid_amount"
	case errors.Is(err, core.ErrEmptyDescription):
		return http.StatusUnprocessableEntity, "empty_description"
	case errors.Is(err, core.ErrNoIncomeRegistered):
		return http.StatusNotFound, "no_income_registered"
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError logs and writes err. Server-side failures never expose err.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusForError(err)
	message := err.Error()
	if status >= 500 {
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op)
		message = http.StatusText(status)
	}
	writeErrorStatus(w, status, code, message)
}
