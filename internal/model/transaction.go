package model

import "time"

// TransactionType describes the direction of money movement.
type TransactionType string

// Transaction types.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// TransactionKind distinguishes ordinary transactions from transfers
// between the user's own accounts.
type TransactionKind string

// Transaction kinds.
const (
	KindNormal   TransactionKind = "normal"
	KindTransfer TransactionKind = "transfer"
)

// Transaction represents a single financial transaction record.
// Soft-deleted transactions are excluded from all aggregation.
type Transaction struct {
	OccurredAt  time.Time
	ID          string
	UserID      string
	AccountID   string
	CategoryID  string // empty for transfers
	Currency    string
	Description string
	Type        TransactionType
	Kind        TransactionKind
	Amount      float64 // non-negative; direction comes from Type
	Deleted     bool
}
