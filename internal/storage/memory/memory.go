// Package memory is an in-process ledger store. Writes for one user are
// serialized by that user's lock; different users never contend beyond the
// map lookup.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"finanzas/internal/core"
)

type Store struct {
	mu     sync.RWMutex
	users  map[int64]*userLedger
	nextID atomic.Int64
	now    func() time.Time
}

type userLedger struct {
	mu       sync.RWMutex
	income   *core.IncomeRecord
	expenses []core.ExpenseRecord
	deleted  bool
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users: make(map[int64]*userLedger),
		now:   time.Now,
	}
}

// ledger returns the user's ledger, creating it when create is set.
func (s *Store) ledger(userID int64, create bool) *userLedger {
	s.mu.RLock()
	l, ok := s.users[userID]
	s.mu.RUnlock()
	if ok || !create {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.users[userID]; ok {
		return l
	}
	l = &userLedger{}
	s.users[userID] = l
	return l
}

// lockLive locks the user's ledger for writing, retrying when a concurrent
// DeleteUser detached it between lookup and lock.
func (s *Store) lockLive(userID int64) *userLedger {
	for {
		l := s.ledger(userID, true)
		l.mu.Lock()
		if !l.deleted {
			return l
		}
		l.mu.Unlock()
	}
}

func (s *Store) UpsertIncome(ctx context.Context, r core.IncomeRecord) (core.IncomeRecord, error) {
	if err := ctx.Err(); err != nil {
		return core.IncomeRecord{}, err
	}
	l := s.lockLive(r.UserID)
	defer l.mu.Unlock()

	r.UpdatedAt = s.now().UTC()
	if r.SavingsRate != nil {
		rate := *r.SavingsRate
		r.SavingsRate = &rate
	}
	l.income = &r
	return r, nil
}

func (s *Store) InsertExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := ctx.Err(); err != nil {
		return core.ExpenseRecord{}, err
	}
	l := s.lockLive(e.UserID)
	defer l.mu.Unlock()

	e.ID = s.nextID.Add(1)
	e.CreatedAt = s.now().UTC()
	l.expenses = append(l.expenses, e)
	return e, nil
}

func (s *Store) FinancialState(ctx context.Context, userID int64) (core.FinancialState, error) {
	state := core.FinancialState{UserID: userID}
	if err := ctx.Err(); err != nil {
		return state, err
	}
	l := s.ledger(userID, false)
	if l == nil {
		return state, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.deleted {
		return state, nil
	}
	if l.income != nil {
		inc := *l.income
		if inc.SavingsRate != nil {
			rate := *inc.SavingsRate
			inc.SavingsRate = &rate
		}
		state.Income = &inc
	}
	state.Expenses = append([]core.ExpenseRecord(nil), l.expenses...)
	return state, nil
}

func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	l, ok := s.users[userID]
	delete(s.users, userID)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	l.mu.Lock()
	l.deleted = true
	l.income = nil
	l.expenses = nil
	l.mu.Unlock()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// Users returns how many users currently hold any ledger state.
func (s *Store) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
