package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/storage/memory"
)

func TestDecimalField(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"string", `{"amount":"12.50"}`, "12.5", false},
		{"comma string", `{"amount":"12,345"}`, "12.345", false},
		{"number keeps literal", `{"amount":0.1}`, "0.1", false},
		{"negative", `{"amount":"-1"}`, "", true},
		{"exponent", `{"amount":1e3}`, "", true},
		{"bool", `{"amount":true}`, "", true},
		{"missing", `{"description":"x"}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req expenseRequest
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if err := decodeJSON(r, &req); err != nil {
				t.Fatalf("decodeJSON: %v", err)
			}
			got, err := req.Amount.amount()
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidAmount) {
					t.Fatalf("amount() error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil || got.String() != tt.want {
				t.Fatalf("amount() = (%s, %v), want %s", got, err, tt.want)
			}
		})
	}
}

func TestDecodeJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"amount":`},
		{"unknown field", `{"amount":"1","currency":"EUR"}`},
		{"trailing data", `{"amount":"1"} {"amount":"2"}`},
		{"too large", `{"description":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req expenseRequest
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if err := decodeJSON(r, &req); !errors.Is(err, errBadRequest) {
				t.Fatalf("decodeJSON error = %v, want errBadRequest", err)
			}
		})
	}
}

func TestIncomeRequest_Parse(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantErr     bool
		wantSavings string
	}{
		{"rate", `{"income":"1000","savings_rate":"10"}`, false, "100"},
		{"rate with percent", `{"income":"1000","savings_rate":"12.5%"}`, false, "125"},
		{"fixed amount", `{"income":"1000","savings":"250"}`, false, "250"},
		{"no savings", `{"income":"1000"}`, false, "0"},
		{"both forms", `{"income":"1000","savings":"1","savings_rate":"1"}`, true, ""},
		{"rate too high", `{"income":"1000","savings_rate":"101"}`, true, ""},
		{"bad income", `{"income":"mil"}`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req incomeRequest
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if err := decodeJSON(r, &req); err != nil {
				t.Fatalf("decodeJSON: %v", err)
			}
			income, savings, err := req.parse()
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidAmount) {
					t.Fatalf("parse() error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse() error = %v", err)
			}
			rec, err := ledger.NewEngine(memory.New()).RegisterIncome(context.Background(), 1, income, savings)
			if err != nil {
				t.Fatalf("RegisterIncome: %v", err)
			}
			if rec.Income.String() != "1000" || rec.Savings.String() != tt.wantSavings {
				t.Errorf("record = income %s savings %s, want 1000 and %s", rec.Income, rec.Savings, tt.wantSavings)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("pan\x00\x07 con\tqueso\n"); got != "pan con\tqueso\n" {
		t.Fatalf("sanitizeInput = %q", got)
	}
}
