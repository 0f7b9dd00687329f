package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// decimalField accepts a JSON string or number and keeps its literal text,
// so amounts never pass through float64.
type decimalField struct {
	raw string
	set bool
}

func (f *decimalField) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	f.set = true
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &f.raw)
	}
	f.raw = string(b)
	return nil
}

func (f decimalField) amount() (decimal.Decimal, error) {
	return core.ParseAmount(f.raw)
}

type incomeRequest struct {
	Income      decimalField `json:"income"`
	SavingsRate decimalField `json:"savings_rate"`
	Savings     decimalField `json:"savings"`
}

// parse resolves the income and savings form. Omitting both savings fields
// registers a zero rate; sending both is rejected.
func (req incomeRequest) parse() (decimal.Decimal, ledger.Savings, error) {
	income, err := req.Income.amount()
	if err != nil {
		return decimal.Zero, ledger.Savings{}, fmt.Errorf("income: %w", err)
	}
	switch {
	case req.SavingsRate.set && req.Savings.set:
		return decimal.Zero, ledger.Savings{}, fmt.Errorf("savings_rate and savings are exclusive: %w", core.ErrInvalidAmount)
	case req.Savings.set:
		amt, err := req.Savings.amount()
		if err != nil {
			return decimal.Zero, ledger.Savings{}, fmt.Errorf("savings: %w", err)
		}
		return income, ledger.SavingsAmount(amt), nil
	case req.SavingsRate.set:
		rate, err := core.ParseRate(req.SavingsRate.raw)
		if err != nil {
			return decimal.Zero, ledger.Savings{}, fmt.Errorf("savings_rate: %w", err)
		}
		return income, ledger.SavingsRate(rate), nil
	}
	return income, ledger.SavingsRate(decimal.Zero), nil
}

type expenseRequest struct {
	Description string       `json:"description"`
	Amount      decimalField `json:"amount"`
}

type commandRequest struct {
	UserID *int64 `json:"user_id"`
	Text   string `json:"text"`
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// pathUserID reads the {id} wildcard of the matched route.
func pathUserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid user id %q", errBadRequest, raw)
	}
	return id, nil
}

// sanitizeInput removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
