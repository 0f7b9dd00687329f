package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	logger.WithFields(NewFields().WithUser(42).WithExpense(7, "12.5")).
		InfoContext(context.Background(), "Expense added")

	out := buf.String()
	for _, want := range []string{"component=ledger", "user_id=42", "expense_id=7", "amount=12.5", `msg="Expense added"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestLogger_WithComponentReplaces(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).With(FieldRequestID, "req_1").WithComponent(ComponentAMQP)

	logger.Info("Published ledger event")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=amqp") {
		t.Errorf("want a single component=amqp, got %q", out)
	}
	if !strings.Contains(out, "request_id=req_1") {
		t.Errorf("attributes added before WithComponent were lost: %q", out)
	}
	if logger.Component() != ComponentAMQP {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("hidden")
	logger.LogError(context.Background(), "visible", errors.New("boom"), OpSummary)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "operation=summary") {
		t.Errorf("error record missing fields: %q", out)
	}
}

func TestMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentHTTP})

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_abc" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Fatalf("log output missing request id: %q", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("Component() = %q, want unknown", l.Component())
	}
}
