package google

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finanzas/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{SheetName: "Gastos"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	t.Run("inline wins", func(t *testing.T) {
		got, err := readCredentials(ctx, Config{ServiceAccountJSON: ` {"type":"service_account"} `, ServiceAccountFile: "/nope"}, slog.Default())
		if err != nil {
			t.Fatalf("readCredentials: %v", err)
		}
		if string(got) != `{"type":"service_account"}` {
			t.Errorf("credentials = %s", got)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sa.json")
		if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := readCredentials(ctx, Config{ServiceAccountFile: path}, slog.Default())
		if err != nil || string(got) != `{}` {
			t.Fatalf("readCredentials = (%s, %v)", got, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readCredentials(ctx, Config{ServiceAccountFile: filepath.Join(t.TempDir(), "none.json")}, slog.Default())
		if err == nil || !strings.Contains(err.Error(), "read service account file") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		if _, err := readCredentials(ctx, Config{}, slog.Default()); err == nil {
			t.Fatal("expected error without credentials")
		}
	})
}

func TestRowValues(t *testing.T) {
	row := sheets.ExpenseRow{
		Date:        time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC),
		UserID:      42,
		ExpenseID:   7,
		Description: " almuerzo ",
		Amount:      "12.5",
	}
	got, err := rowValues(row)
	if err != nil {
		t.Fatalf("rowValues: %v", err)
	}
	want := []any{"2024-03-09", 3, "42", "7", "almuerzo", "12.5"}
	if len(got) != len(want) {
		t.Fatalf("rowValues = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRowValues_Invalid(t *testing.T) {
	if _, err := rowValues(sheets.ExpenseRow{Description: "  ", Amount: "1"}); err == nil {
		t.Error("expected error for empty description")
	}
	if _, err := rowValues(sheets.ExpenseRow{Description: "pan"}); err == nil {
		t.Error("expected error for empty amount")
	}
}

func TestSanitizeCell(t *testing.T) {
	tests := map[string]string{
		"=SUM(A1)": "'=SUM(A1)",
		"+1":       "'+1",
		"@home":    "'@home",
		"pan":      "pan",
		"":         "",
	}
	for in, want := range tests {
		if got := sanitizeCell(in); got != want {
			t.Errorf("sanitizeCell(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Gastos", "2024 Gastos"},
		{"2023 Gastos", "2023 Gastos"},
		{"  ", ""},
		{"12345", "2024 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2024); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestClient_AppendExpense_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.AppendExpense(context.Background(), sheets.ExpenseRow{Description: "pan", Amount: "1"})
	if err == nil || err.Error() != "sheets service not initialized" {
		t.Fatalf("err = %v", err)
	}
}
