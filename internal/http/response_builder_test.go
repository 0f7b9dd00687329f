package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("add expense: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity, "invalid_amount"},
		{core.ErrEmptyDescription, http.StatusUnprocessableEntity, "empty_description"},
		{fmt.Errorf("summary: %w", core.ErrNoIncomeRegistered), http.StatusNotFound, "no_income_registered"},
		{fmt.Errorf("%w: read: %w", core.ErrStoreUnavailable, errors.New("disk")), http.StatusServiceUnavailable, "store_unavailable"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := statusForError(tt.err)
		if status != tt.status || code != tt.code {
			t.Errorf("statusForError(%v) = (%d, %s), want (%d, %s)", tt.err, status, code, tt.status, tt.code)
		}
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(w, r, "summary", fmt.Errorf("%w: dial tcp 10.0.0.5:5432", core.ErrStoreUnavailable))

	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusServiceUnavailable || body.Error != "store_unavailable" {
		t.Fatalf("response = %d %+v", w.Code, body)
	}
	if body.Message != http.StatusText(http.StatusServiceUnavailable) {
		t.Errorf("message leaked details: %q", body.Message)
	}
}

func TestNewSummaryResponse(t *testing.T) {
	sum := ledger.Summary{
		UserID:        7,
		Income:        decimal.RequireFromString("1234.57"),
		Savings:       decimal.RequireFromString("92.59275"),
		TotalExpenses: decimal.RequireFromString("20.6"),
		Balance:       decimal.RequireFromString("1121.37725"),
		Expenses: []ledger.ExpenseLine{
			{ID: 1, Description: "pan", Amount: decimal.RequireFromString("20.6")},
		},
	}
	got := newSummaryResponse(sum)
	if got.Income != "1234.57" || got.Savings != "92.59" || got.TotalExpenses != "20.60" || got.Balance != "1121.38" {
		t.Errorf("amounts = %+v", got)
	}
	if got.Overspent || len(got.Expenses) != 1 || got.Expenses[0].Amount != "20.60" {
		t.Errorf("summary = %+v", got)
	}

	empty := newSummaryResponse(ledger.Summary{})
	b, _ := json.Marshal(empty)
	var raw map[string]any
	json.Unmarshal(b, &raw)
	if _, ok := raw["expenses"].([]any); !ok {
		t.Errorf("expenses should encode as an empty array, got %s", b)
	}
}

func TestNewIncomeResponse_SavingsRate(t *testing.T) {
	rate := decimal.RequireFromString("7.5")
	got := newIncomeResponse(core.IncomeRecord{UserID: 1, Income: decimal.RequireFromString("100"), SavingsRate: &rate})
	if got.SavingsRate == nil || *got.SavingsRate != "7.5" {
		t.Fatalf("SavingsRate = %v", got.SavingsRate)
	}
	if got := newIncomeResponse(core.IncomeRecord{UserID: 1}); got.SavingsRate != nil {
		t.Fatal("direct savings should omit savings_rate")
	}
}
