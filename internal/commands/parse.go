// Package commands is the chat front end: it parses bot commands, runs them
// against the ledger and renders Spanish replies.
package commands

import (
	"strings"
)

// Canonical command names.
const (
	CmdStart       = "start"
	CmdHelp        = "help"
	CmdIncome      = "sueldo"
	CmdIncomeFixed = "sueldofijo"
	CmdExpense     = "gasto"
	CmdSummary     = "resumen"
	CmdReset       = "borrar"
)

var aliases = map[string]string{
	"start":        CmdStart,
	"help":         CmdHelp,
	"ayuda":        CmdHelp,
	"sueldo":       CmdIncome,
	"income":       CmdIncome,
	"sueldofijo":   CmdIncomeFixed,
	"income_fixed": CmdIncomeFixed,
	"gasto":        CmdExpense,
	"expense":      CmdExpense,
	"resumen":      CmdSummary,
	"summary":      CmdSummary,
	"borrar":       CmdReset,
	"reset":        CmdReset,
}

// Command is one parsed chat command. Name is canonical; unknown commands
// keep their lowercased name with Known unset.
type Command struct {
	Name  string
	Args  []string
	Known bool
}

// Parse splits "/gasto@FinanzasBot café 2,50" into its command and
// arguments. ok is false when text is not a command at all.
func Parse(text string) (cmd Command, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	name = strings.ToLower(name)
	if name == "" {
		return Command{}, false
	}

	cmd = Command{Name: name, Args: fields[1:]}
	if canonical, known := aliases[name]; known {
		cmd.Name = canonical
		cmd.Known = true
	}
	return cmd, true
}

// splitExpense treats the last argument as the amount and the rest as the
// description, so descriptions may contain spaces.
func splitExpense(args []string) (description, amount string, ok bool) {
	if len(args) < 2 {
		return "", "", false
	}
	last := len(args) - 1
	return strings.Join(args[:last], " "), args[last], true
}
