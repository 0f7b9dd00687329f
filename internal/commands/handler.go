package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
)

// errInvalidRate is a savings percentage outside [0, 100].
var errInvalidRate = fmt.Errorf("savings rate: %w", core.ErrInvalidAmount)

// Ledger is satisfied by *services.LedgerService.
type Ledger interface {
	RegisterIncome(ctx context.Context, userID int64, income decimal.Decimal, savings ledger.Savings) (core.IncomeRecord, error)
	AddExpense(ctx context.Context, userID int64, description string, amount decimal.Decimal) (core.ExpenseRecord, error)
	Summary(ctx context.Context, userID int64) (ledger.Summary, error)
	DeleteUser(ctx context.Context, userID int64) error
}

// Limiter is satisfied by *ratelimit.Limiter.
type Limiter interface {
	Allow(key string) bool
}

type Handler struct {
	ledger  Ledger
	limiter Limiter
	timeout time.Duration
}

// NewHandler bounds every command by timeout. limiter may be nil.
func NewHandler(l Ledger, limiter Limiter, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{ledger: l, limiter: limiter, timeout: timeout}
}

// Handle runs one chat message for userID and returns the reply text.
func (h *Handler) Handle(ctx context.Context, userID int64, text string) string {
	cmd, ok := Parse(text)
	if !ok {
		return replyNotCommand
	}
	if !cmd.Known {
		return replyUnknown
	}
	if h.limiter != nil && cmd.Name != CmdStart && cmd.Name != CmdHelp {
		if !h.limiter.Allow("user:" + strconv.FormatInt(userID, 10)) {
			log.FromContext(ctx).WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Command rate limited",
				log.NewFields().WithUser(userID).WithCommand(cmd.Name).ToSlice()...)
			return replyRateLimited
		}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	reply, err := h.run(ctx, userID, cmd)
	if err != nil {
		level := slog.LevelInfo
		if errorIsInternal(err) {
			level = slog.LevelError
		}
		fields := log.NewFields().
			WithOperation(log.OpCommand).
			WithUser(userID).
			WithCommand(cmd.Name).
			WithError(err)
		log.FromContext(ctx).WithComponent(log.ComponentCommands).Log(ctx, level, "Command failed", fields.ToSlice()...)
		return replyForError(err)
	}
	return reply
}

func (h *Handler) run(ctx context.Context, userID int64, cmd Command) (string, error) {
	switch cmd.Name {
	case CmdStart:
		return replyStart, nil
	case CmdHelp:
		return replyHelp, nil
	case CmdIncome:
		return h.income(ctx, userID, cmd.Args)
	case CmdIncomeFixed:
		return h.incomeFixed(ctx, userID, cmd.Args)
	case CmdExpense:
		return h.expense(ctx, userID, cmd.Args)
	case CmdSummary:
		sum, err := h.ledger.Summary(ctx, userID)
		if err != nil {
			return "", err
		}
		return RenderSummary(sum), nil
	case CmdReset:
		if err := h.ledger.DeleteUser(ctx, userID); err != nil {
			return "", err
		}
		return replyReset, nil
	}
	return replyUnknown, nil
}

func (h *Handler) income(ctx context.Context, userID int64, args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return usageIncome, nil
	}
	amount, err := core.ParseAmount(args[0])
	if err != nil {
		return "", err
	}
	rate := decimal.Zero
	if len(args) == 2 {
		if rate, err = core.ParseRate(args[1]); err != nil {
			return "", errInvalidRate
		}
	}
	rec, err := h.ledger.RegisterIncome(ctx, userID, amount, ledger.SavingsRate(rate))
	if err != nil {
		return "", err
	}
	return renderIncome(rec), nil
}

func (h *Handler) incomeFixed(ctx context.Context, userID int64, args []string) (string, error) {
	if len(args) != 2 {
		return usageIncomeFixed, nil
	}
	amount, err := core.ParseAmount(args[0])
	if err != nil {
		return "", err
	}
	savings, err := core.ParseAmount(args[1])
	if err != nil {
		return "", err
	}
	rec, err := h.ledger.RegisterIncome(ctx, userID, amount, ledger.SavingsAmount(savings))
	if err != nil {
		return "", err
	}
	return renderIncome(rec), nil
}

func (h *Handler) expense(ctx context.Context, userID int64, args []string) (string, error) {
	description, raw, ok := splitExpense(args)
	if !ok {
		return usageExpense, nil
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		return "", err
	}
	rec, err := h.ledger.AddExpense(ctx, userID, description, amount)
	if err != nil {
		return "", err
	}
	return renderExpense(rec), nil
}

func errorIsInternal(err error) bool {
	return replyForError(err) == replyInternal || replyForError(err) == replyUnavailable
}
