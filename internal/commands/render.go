package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

const (
	replyStart = "¡Hola! Soy tu bot financiero. Usa /sueldo, /gasto y /resumen para administrar tu dinero."

	replyHelp = "Comandos disponibles:\n" +
		"/sueldo <monto> \\[<% ahorro>] registra tu sueldo y el porcentaje que ahorras\n" +
		"/sueldofijo <monto> <ahorro> registra tu sueldo con un ahorro fijo\n" +
		"/gasto <descripción> <monto> añade un gasto\n" +
		"/resumen muestra tu saldo disponible\n" +
		"/borrar elimina todos tus datos"

	usageIncome      = "Uso: /sueldo <monto> \\[<% ahorro>]"
	usageIncomeFixed = "Uso: /sueldofijo <monto> <ahorro>"
	usageExpense     = "Uso: /gasto <descripción> <monto>"

	replyUnknown          = "No conozco ese comando. Usa /help para ver las opciones."
	replyNotCommand       = "Escribe un comando, por ejemplo /gasto café 2,50. Usa /help para ver las opciones."
	replyInvalidAmount    = "⚠️ Monto inválido. Usa un número sin signo, por ejemplo 1500 o 12,50."
	replyInvalidRate      = "⚠️ Porcentaje de ahorro inválido. Debe estar entre 0 y 100."
	replyEmptyDescription = "⚠️ La descripción del gasto no puede estar vacía."
	replyNoIncome         = "⚠️ No tienes sueldo registrado. Usa /sueldo para agregarlo."
	replyUnavailable      = "⛔ No pude acceder a tus datos. Intenta de nuevo en unos minutos."
	replyTimeout          = "⌛ La operación tardó demasiado. Intenta de nuevo."
	replyRateLimited      = "⏳ Demasiados comandos seguidos. Espera un minuto e intenta de nuevo."
	replyReset            = "🗑️ Tus datos fueron borrados."
	replyInternal         = "⛔ Algo salió mal. Intenta de nuevo."
)

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown keeps user text from opening Markdown entities.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func renderIncome(rec core.IncomeRecord) string {
	return fmt.Sprintf("💰 Sueldo registrado: %s\n💾 Ahorro estimado: %s", money(rec.Income), money(rec.Savings))
}

func renderExpense(rec core.ExpenseRecord) string {
	return fmt.Sprintf("📌 Gasto añadido: %s - %s", escapeMarkdown(rec.Description), money(rec.Amount))
}

// RenderSummary formats a summary as the bot's Markdown reply. Every reply
// is meant to be sent with Markdown parsing.
func RenderSummary(sum ledger.Summary) string {
	var b strings.Builder
	b.WriteString("📊 *Resumen financiero*\n\n")
	fmt.Fprintf(&b, "💰 *Sueldo:* %s\n", money(sum.Income))
	fmt.Fprintf(&b, "💾 *Ahorro estimado:* %s\n", money(sum.Savings))
	fmt.Fprintf(&b, "💸 *Total Gastos:* %s\n", money(sum.TotalExpenses))
	fmt.Fprintf(&b, "📉 *Saldo Disponible:* %s\n", money(sum.Balance))
	if sum.Overspent() {
		b.WriteString("🚨 Tus gastos y ahorro superan tu sueldo.\n")
	}
	b.WriteString("\n*📌 Detalle de gastos:*\n")
	if len(sum.Expenses) == 0 {
		b.WriteString("  (sin gastos)\n")
	}
	for _, e := range sum.Expenses {
		fmt.Fprintf(&b, "  - %s: %s\n", escapeMarkdown(e.Description), money(e.Amount))
	}
	return b.String()
}

// replyForError maps each failure kind to its own reply.
func replyForError(err error) string {
	switch {
	case errors.Is(err, errInvalidRate):
		return replyInvalidRate
	case errors.Is(err, core.ErrInvalidAmount):
		return replyInvalidAmount
	case errors.Is(err, core.ErrEmptyDescription):
		return replyEmptyDescription
	case errors.Is(err, core.ErrNoIncomeRegistered):
		return replyNoIncome
	case errors.Is(err, context.DeadlineExceeded):
		return replyTimeout
	case errors.Is(err, core.ErrStoreUnavailable):
		return replyUnavailable
	default:
		return replyInternal
	}
}
