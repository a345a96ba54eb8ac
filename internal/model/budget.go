package model

import "time"

// Budget caps spending for one category in one month. At most one active
// budget exists per (user, category, month).
type Budget struct {
	ID          string
	UserID      string
	CategoryID  string
	Month       string // YYYY-MM
	LimitAmount float64
	Deleted     bool
}

// RecurringCadence is how often a recurring rule fires.
type RecurringCadence string

// Recurring cadences.
const (
	CadenceWeekly  RecurringCadence = "weekly"
	CadenceMonthly RecurringCadence = "monthly"
)

// RecurringRule describes a repeating transaction or transfer.
type RecurringRule struct {
	NextRunAt     time.Time
	ID            string
	UserID        string
	CategoryID    string
	FromAccountID string
	ToAccountID   string
	Kind          TransactionKind
	Type          TransactionType
	Cadence       RecurringCadence
	Amount        float64
	Paused        bool
	Deleted       bool
}

// RiskProfile is the user's stated investment risk appetite.
type RiskProfile string

// Risk profiles.
const (
	RiskLow    RiskProfile = "low"
	RiskMedium RiskProfile = "medium"
	RiskHigh   RiskProfile = "high"
)

// Preferences holds the advisor-relevant user settings.
type Preferences struct {
	UserID            string
	BaseCurrency      string
	RiskProfile       RiskProfile
	SavingsTargetRate float64 // percent, 0-100
}

// DefaultPreferences returns the preference defaults applied when a field
// is unset.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:            userID,
		RiskProfile:       RiskMedium,
		SavingsTargetRate: 20,
	}
}
