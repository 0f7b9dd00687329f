package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a ledger change.
type EventType string

const (
	IncomeRegistered EventType = "income.registered"
	ExpenseAdded     EventType = "expense.added"
	UserDeleted      EventType = "user.deleted"
)

// LedgerEvent is published after a successful ledger write. Expense fields
// are only set for ExpenseAdded; amounts travel as decimal strings.
type LedgerEvent struct {
	Type        EventType `json:"type"`
	UserID      int64     `json:"user_id"`
	ExpenseID   int64     `json:"expense_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewIncomeRegisteredEvent(userID int64) *LedgerEvent {
	return &LedgerEvent{Type: IncomeRegistered, UserID: userID, Timestamp: time.Now()}
}

func NewExpenseAddedEvent(userID, expenseID int64, description, amount string) *LedgerEvent {
	return &LedgerEvent{
		Type:        ExpenseAdded,
		UserID:      userID,
		ExpenseID:   expenseID,
		Description: description,
		Amount:      amount,
		Timestamp:   time.Now(),
	}
}

func NewUserDeletedEvent(userID int64) *LedgerEvent {
	return &LedgerEvent{Type: UserDeleted, UserID: userID, Timestamp: time.Now()}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event, rejecting unknown types and events
// without a user_id field. Zero is a valid user id.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg struct {
		LedgerEvent
		UserID *int64 `json:"user_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case IncomeRegistered, ExpenseAdded, UserDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.UserID == nil {
		return nil, fmt.Errorf("event %s without user id", msg.Type)
	}
	event := msg.LedgerEvent
	event.UserID = *msg.UserID
	return &event, nil
}
