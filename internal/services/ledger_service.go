package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
)

// Publisher delivers ledger events to the worker side.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.LedgerEvent) error
	Close() error
}

type Options struct {
	// CacheSize bounds the number of cached summaries.
	CacheSize int
	// CacheTTL of zero disables the summary cache.
	CacheTTL time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// LedgerService orchestrates the ledger engine, the summary cache and event
// publishing. A write is acknowledged once the store accepted it; publishing
// happens afterwards and never fails the write.
type LedgerService struct {
	engine    *ledger.Engine
	store     core.Store
	publisher Publisher
	logger    *slog.Logger

	summaries *cache.LRUCache[int64, ledger.Summary]
	flights   singleflight.Group
	// epoch changes on every write so reads never join or cache a
	// computation that started before an acknowledged write.
	epoch atomic.Uint64
	// cacheMu makes a write's epoch bump and cache delete atomic with a
	// read's epoch check and cache set.
	cacheMu sync.Mutex
}

func NewLedgerService(store core.Store, publisher Publisher, opts Options) *LedgerService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &LedgerService{
		engine:    ledger.NewEngine(store),
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 1024
		}
		s.summaries = cache.NewLRUCache[int64, ledger.Summary](size, opts.CacheTTL)
	}
	return s
}

// Cache exposes the summary cache for periodic cleanup; nil when disabled.
func (s *LedgerService) Cache() cache.Cleaner {
	if s.summaries == nil {
		return nil
	}
	return s.summaries
}

func (s *LedgerService) RegisterIncome(ctx context.Context, userID int64, income decimal.Decimal, savings ledger.Savings) (core.IncomeRecord, error) {
	rec, err := s.engine.RegisterIncome(ctx, userID, income, savings)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("register income: %w", err)
	}
	s.invalidate(userID)
	s.logger.DebugContext(ctx, "Income registered", log.NewFields().
		WithOperation(log.OpRegisterIncome).
		WithUser(userID).
		ToSlice()...)
	s.publish(ctx, amqp.NewIncomeRegisteredEvent(userID))
	return rec, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, userID int64, description string, amount decimal.Decimal) (core.ExpenseRecord, error) {
	rec, err := s.engine.AddExpense(ctx, userID, description, amount)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("add expense: %w", err)
	}
	s.invalidate(userID)
	s.logger.DebugContext(ctx, "Expense added", log.NewFields().
		WithOperation(log.OpAddExpense).
		WithUser(userID).
		WithExpense(rec.ID, rec.Amount.String()).
		ToSlice()...)
	s.publish(ctx, amqp.NewExpenseAddedEvent(userID, rec.ID, rec.Description, rec.Amount.String()))
	return rec, nil
}

func (s *LedgerService) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.engine.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.invalidate(userID)
	s.logger.InfoContext(ctx, "User ledger deleted", log.NewFields().
		WithOperation(log.OpDeleteUser).
		WithUser(userID).
		ToSlice()...)
	s.publish(ctx, amqp.NewUserDeletedEvent(userID))
	return nil
}

func (s *LedgerService) FinancialState(ctx context.Context, userID int64) (core.FinancialState, error) {
	state, err := s.engine.GetFinancialState(ctx, userID)
	if err != nil {
		return core.FinancialState{}, fmt.Errorf("financial state: %w", err)
	}
	return state, nil
}

// Summary returns the user's summary, served from the cache when a fresh
// entry exists. Concurrent misses for the same user share one store read.
func (s *LedgerService) Summary(ctx context.Context, userID int64) (ledger.Summary, error) {
	if s.summaries == nil {
		sum, err := s.engine.ComputeSummary(ctx, userID)
		if err != nil {
			return ledger.Summary{}, fmt.Errorf("summary: %w", err)
		}
		return sum, nil
	}

	if sum, ok := s.summaries.Get(userID); ok {
		return cloneSummary(sum), nil
	}

	epoch := s.epoch.Load()
	key := strconv.FormatInt(userID, 10) + ":" + strconv.FormatUint(epoch, 10)
	v, err, shared := s.flights.Do(key, func() (any, error) {
		sum, err := s.engine.ComputeSummary(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.cacheMu.Lock()
		if s.epoch.Load() == epoch {
			s.summaries.Set(userID, sum)
		}
		s.cacheMu.Unlock()
		return sum, nil
	})
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("summary: %w", err)
	}
	if shared {
		s.logger.DebugContext(ctx, "Summary read shared", log.FieldUserID, userID)
	}
	return cloneSummary(v.(ledger.Summary)), nil
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.engine.Ping(ctx)
}

func (s *LedgerService) invalidate(userID int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.epoch.Add(1)
	if s.summaries != nil {
		s.summaries.Delete(userID)
	}
}

func (s *LedgerService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, event.Type,
			log.FieldUserID, event.UserID,
			log.FieldError, err)
	}
}

// Close closes both the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}

func cloneSummary(sum ledger.Summary) ledger.Summary {
	lines := make([]ledger.ExpenseLine, len(sum.Expenses))
	copy(lines, sum.Expenses)
	sum.Expenses = lines
	return sum
}
