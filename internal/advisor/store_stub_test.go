package advisor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// stubStore is an in-memory Store for tests. Call counts are tracked so
// caching behavior can be asserted.
type stubStore struct {
	prefsErr        error
	prefs           model.Preferences
	accounts        []model.Account
	transactions    []model.Transaction
	budgets         []model.Budget
	rules           []model.RecurringRule
	categories      []model.Category
	balances        []model.AccountBalance
	aggregateCalls  atomic.Int64
	prefsCalls      atomic.Int64
}

func (s *stubStore) FindUserPreferences(_ context.Context, userID string) (model.Preferences, error) {
	s.prefsCalls.Add(1)
	if s.prefsErr != nil {
		return model.Preferences{}, s.prefsErr
	}
	if s.prefs.UserID == "" {
		return model.DefaultPreferences(userID), nil
	}
	return s.prefs, nil
}

func (s *stubStore) FindAccounts(_ context.Context, _ string) ([]model.Account, error) {
	s.aggregateCalls.Add(1)
	return s.accounts, nil
}

func (s *stubStore) FindTransactions(_ context.Context, _ string, from, to time.Time) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range s.transactions {
		if t.Deleted || t.Kind != model.KindNormal {
			continue
		}
		if t.OccurredAt.Before(from) || !t.OccurredAt.Before(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *stubStore) FindBudgets(_ context.Context, _ string, month string) ([]model.Budget, error) {
	var out []model.Budget
	for _, b := range s.budgets {
		if !b.Deleted && b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) FindRecurringRules(_ context.Context, _ string) ([]model.RecurringRule, error) {
	var out []model.RecurringRule
	for _, r := range s.rules {
		if r.Deleted || r.Paused {
			continue
		}
		if r.Kind == model.KindTransfer || (r.Kind == model.KindNormal && r.Type == model.TypeExpense) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) FindCategories(_ context.Context, _ string, ids []string) ([]model.Category, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []model.Category
	for _, c := range s.categories {
		if wanted[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStore) AggregateAccountBalances(_ context.Context, _ string) ([]model.AccountBalance, error) {
	return s.balances, nil
}
