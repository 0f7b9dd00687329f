// Package memory is an in-process expense mirror for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"finanzas/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []sheets.ExpenseRow
	seen map[int64]struct{}
}

var _ sheets.ExpenseMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{seen: make(map[int64]struct{})}
}

// AppendExpense stores the row and returns a synthetic row reference. A
// redelivered expense id is acknowledged without adding a second row.
func (m *Mirror) AppendExpense(_ context.Context, row sheets.ExpenseRow) (string, error) {
	if strings.TrimSpace(row.Description) == "" {
		return "", errors.New("expense row without description")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[row.ExpenseID]; dup && row.ExpenseID != 0 {
		return fmt.Sprintf("mem:expense:%d", row.ExpenseID), nil
	}
	m.seen[row.ExpenseID] = struct{}{}
	m.rows = append(m.rows, row)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Rows returns a copy of the mirrored rows in append order.
func (m *Mirror) Rows() []sheets.ExpenseRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.ExpenseRow(nil), m.rows...)
}
