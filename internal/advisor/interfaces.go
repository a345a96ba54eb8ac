package advisor

import (
	"context"
	"time"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// Store defines the read-only persistence queries the advisor consumes.
// Implementations exclude soft-deleted records unless noted.
type Store interface {
	// FindUserPreferences returns common.ErrUserNotFound when the user
	// record does not exist.
	FindUserPreferences(ctx context.Context, userID string) (model.Preferences, error)
	FindAccounts(ctx context.Context, userID string) ([]model.Account, error)
	// FindTransactions returns non-deleted normal-kind transactions with
	// from <= occurredAt < to.
	FindTransactions(ctx context.Context, userID string, from, to time.Time) ([]model.Transaction, error)
	FindBudgets(ctx context.Context, userID, month string) ([]model.Budget, error)
	// FindRecurringRules returns non-deleted, non-paused rules that are
	// either normal expenses or transfers.
	FindRecurringRules(ctx context.Context, userID string) ([]model.RecurringRule, error)
	// FindCategories resolves ids against the user's categories plus
	// global ones.
	FindCategories(ctx context.Context, userID string, ids []string) ([]model.Category, error)
	AggregateAccountBalances(ctx context.Context, userID string) ([]model.AccountBalance, error)
}

// Cache memoizes assembled insights per (user, month, language). Entries
// expire lazily on lookup; there is no background sweep.
type Cache interface {
	Get(key string) (*model.AdvisorInsight, bool)
	Set(key string, value *model.AdvisorInsight, ttl time.Duration)
	Clear()
}
