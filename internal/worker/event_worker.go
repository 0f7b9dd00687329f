// Package worker consumes ledger events off the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
	"finanzas/internal/sheets"
)

// SummaryReader is satisfied by *ledger.Engine.
type SummaryReader interface {
	ComputeSummary(ctx context.Context, userID int64) (ledger.Summary, error)
}

// EventWorker mirrors new expenses to a spreadsheet and reports users whose
// expenses and savings exceed their income.
type EventWorker struct {
	summaries SummaryReader
	mirror    sheets.ExpenseMirror
}

// NewEventWorker accepts a nil mirror when no spreadsheet is configured.
func NewEventWorker(summaries SummaryReader, mirror sheets.ExpenseMirror) *EventWorker {
	return &EventWorker{summaries: summaries, mirror: mirror}
}

// HandleEvent processes one event. Only a failed mirror append is returned
// as an error, so the message is redelivered; balance checks are best effort.
func (w *EventWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		log.FieldEventType, msg.Type,
		"user_id", msg.UserID)

	switch msg.Type {
	case amqp.UserDeleted:
		slog.InfoContext(ctx, "User ledger deleted, mirror rows left in place", "user_id", msg.UserID)
		return nil
	case amqp.ExpenseAdded:
		if err := w.mirrorExpense(ctx, msg); err != nil {
			return err
		}
	}

	if _, err := w.CheckBalance(ctx, msg.UserID); err != nil {
		slog.ErrorContext(ctx, "Balance check failed", "user_id", msg.UserID, "error", err)
	}
	return nil
}

func (w *EventWorker) mirrorExpense(ctx context.Context, msg *amqp.LedgerEvent) error {
	if w.mirror == nil {
		slog.DebugContext(ctx, "No expense mirror configured, skipping", "expense_id", msg.ExpenseID)
		return nil
	}
	ref, err := w.mirror.AppendExpense(ctx, sheets.ExpenseRow{
		Date:        msg.Timestamp,
		UserID:      msg.UserID,
		ExpenseID:   msg.ExpenseID,
		Description: msg.Description,
		Amount:      msg.Amount,
	})
	if err != nil {
		return fmt.Errorf("mirror expense %d: %w", msg.ExpenseID, err)
	}
	slog.InfoContext(ctx, "Mirrored expense",
		"user_id", msg.UserID,
		"expense_id", msg.ExpenseID,
		"ref", ref)
	return nil
}

// CheckBalance reports whether the user is overspent. A user without income
// is not overspent.
func (w *EventWorker) CheckBalance(ctx context.Context, userID int64) (bool, error) {
	sum, err := w.summaries.ComputeSummary(ctx, userID)
	if errors.Is(err, core.ErrNoIncomeRegistered) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compute summary: %w", err)
	}
	if !sum.Overspent() {
		return false, nil
	}
	slog.WarnContext(ctx, "User is overspent",
		"user_id", userID,
		"income", sum.Income.StringFixed(2),
		"expenses", sum.TotalExpenses.StringFixed(2),
		"savings", sum.Savings.StringFixed(2),
		"balance", sum.Balance.StringFixed(2))
	return true, nil
}
