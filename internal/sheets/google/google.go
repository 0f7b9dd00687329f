package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID string
	// SheetName is the base name; the current year is prefixed unless the
	// name already starts with one.
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
}

var _ sheets.ExpenseMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Gastos"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	credentials, err := readCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	sheet := yearPrefixedName(base, time.Now().Year())
	logger.InfoContext(ctx, "Google Sheets mirror ready", "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, expensesSheet: sheet}, nil
}

// readCredentials prefers inline JSON, then the configured file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func readCredentials(ctx context.Context, cfg Config, logger *slog.Logger) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendExpense appends the row after the last filled row of the sheet.
func (c *Client) AppendExpense(ctx context.Context, row sheets.ExpenseRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	values, err := rowValues(row)
	if err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A:F", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.expensesSheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// rowValues lays out Date, Month, User, Expense ID, Description, Amount.
func rowValues(row sheets.ExpenseRow) ([]any, error) {
	desc := strings.TrimSpace(row.Description)
	if desc == "" {
		return nil, errors.New("expense row without description")
	}
	if row.Amount == "" {
		return nil, errors.New("expense row without amount")
	}
	date := row.Date
	if date.IsZero() {
		date = time.Now()
	}
	return []any{
		date.Format("2006-01-02"),
		int(date.Month()),
		strconv.FormatInt(row.UserID, 10),
		strconv.FormatInt(row.ExpenseID, 10),
		sanitizeCell(desc),
		row.Amount,
	}, nil
}

// sanitizeCell keeps USER_ENTERED from evaluating descriptions as formulas.
func sanitizeCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
