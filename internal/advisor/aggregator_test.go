package advisor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutugur/mintly-advisor/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func expense(id, categoryID, description string, amount float64, occurred time.Time) model.Transaction {
	return model.Transaction{
		ID:          id,
		UserID:      "u1",
		AccountID:   "acc-1",
		CategoryID:  categoryID,
		Currency:    "USD",
		Description: description,
		Type:        model.TypeExpense,
		Kind:        model.KindNormal,
		Amount:      amount,
		OccurredAt:  occurred,
	}
}

func income(id string, amount float64, occurred time.Time) model.Transaction {
	return model.Transaction{
		ID:         id,
		UserID:     "u1",
		AccountID:  "acc-1",
		CategoryID: "cat-salary",
		Currency:   "USD",
		Type:       model.TypeIncome,
		Kind:       model.KindNormal,
		Amount:     amount,
		OccurredAt: occurred,
	}
}

func newTestAggregator(store Store) *Aggregator {
	agg := NewAggregator(store, slog.Default())
	// Pin "today" past the requested month so the 30-day window clamps to
	// the month end deterministically.
	agg.now = func() time.Time { return date(2025, time.September, 15) }
	return agg
}

func TestAggregateBudgetAdherence(t *testing.T) {
	store := &stubStore{
		accounts: []model.Account{{ID: "acc-1", UserID: "u1", Name: "Checking", Currency: "USD"}},
		transactions: []model.Transaction{
			income("t1", 6000, date(2025, time.July, 1)),
			expense("t2", "cat-food", "Supermarket", 1800, date(2025, time.July, 5)),
			expense("t3", "cat-food", "Restaurant", 950, date(2025, time.July, 20)),
		},
		budgets: []model.Budget{
			{ID: "b1", UserID: "u1", CategoryID: "cat-food", Month: "2025-07", LimitAmount: 3000},
		},
		categories: []model.Category{{ID: "cat-food", Name: "Food"}},
	}

	agg, err := newTestAggregator(store).Aggregate(context.Background(), "u1", "2025-07")
	require.NoError(t, err)

	require.Len(t, agg.Budgets, 1)
	b := agg.Budgets[0]
	assert.Equal(t, "Food", b.CategoryName)
	assert.InDelta(t, 2750, b.SpentAmount, 0.001)
	assert.InDelta(t, 250, b.RemainingAmount, 0.001)
	assert.InDelta(t, 91.67, b.PercentUsed, 0.001)
	assert.Equal(t, model.BudgetNearLimit, b.Status)
}

func TestAggregateBudgetStatusBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		status   model.BudgetState
		limit    float64
		spent    float64
	}{
		{name: "under 80 is on track", limit: 1000, spent: 799, status: model.BudgetOnTrack},
		{name: "exactly 80 is near limit", limit: 1000, spent: 800, status: model.BudgetNearLimit},
		{name: "exactly 100 is over limit", limit: 1000, spent: 1000, status: model.BudgetOverLimit},
		{name: "zero limit with spend is over limit", limit: 0, spent: 50, status: model.BudgetOverLimit},
		{name: "zero limit without spend is on track", limit: 0, spent: 0, status: model.BudgetOnTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{
				budgets: []model.Budget{
					{ID: "b1", UserID: "u1", CategoryID: "cat-x", Month: "2025-07", LimitAmount: tt.limit},
				},
			}
			if tt.spent > 0 {
				store.transactions = []model.Transaction{
					expense("t1", "cat-x", "Something", tt.spent, date(2025, time.July, 10)),
				}
			}

			agg, err := newTestAggregator(store).Aggregate(context.Background(), "u1", "2025-07")
			require.NoError(t, err)
			require.Len(t, agg.Budgets, 1)
			assert.Equal(t, tt.status, agg.Budgets[0].Status)
		})
	}
}

func TestAggregateTrendAndHeadlines(t *testing.T) {
	store := &stubStore{
		transactions: []model.Transaction{
			income("i1", 5000, date(2025, time.May, 1)),
			expense("e1", "cat-rent", "Rent", 1500, date(2025, time.May, 3)),
			income("i2", 5000, date(2025, time.June, 1)),
			expense("e2", "cat-rent", "Rent", 1500, date(2025, time.June, 3)),
			income("i3", 5200, date(2025, time.July, 5)),
			expense("e3", "cat-rent", "Rent", 1600, date(2025, time.July, 8)),
		},
		categories: []model.Category{{ID: "cat-rent", Name: "Rent"}},
	}

	agg, err := newTestAggregator(store).Aggregate(context.Background(), "u1", "2025-07")
	require.NoError(t, err)

	require.Len(t, agg.Trend, 3)
	assert.Equal(t, "2025-05", agg.Trend[0].Month)
	assert.Equal(t, "2025-06", agg.Trend[1].Month)
	assert.Equal(t, "2025-07", agg.Trend[2].Month)

	assert.InDelta(t, 5200, agg.MonthIncome, 0.001)
	assert.InDelta(t, 1600, agg.MonthExpense, 0.001)
	assert.InDelta(t, 3600, agg.MonthNet, 0.001)

	// 30-day window clamps to the end of July: June 30 data is outside.
	assert.InDelta(t, 5200, agg.Last30Income, 0.001)
	assert.InDelta(t, 1600, agg.Last30Expense, 0.001)
}

func TestAggregateCategoryBreakdown(t *testing.T) {
	store := &stubStore{
		transactions: []model.Transaction{
			expense("e1", "cat-food", "Groceries", 400, date(2025, time.June, 10)),
			expense("e2", "cat-food", "Groceries", 500, date(2025, time.July, 10)),
			expense("e3", "cat-fun", "Cinema", 100, date(2025, time.July, 12)),
		},
		categories: []model.Category{
			{ID: "cat-food", Name: "Food"},
			{ID: "cat-fun", Name: "Entertainment"},
		},
	}

	agg, err := newTestAggregator(store).Aggregate(context.Background(), "u1", "2025-07")
	require.NoError(t, err)

	require.Len(t, agg.Categories, 2)
	food := agg.Categories[0]
	assert.Equal(t, "Food", food.Name, "sorted by amount descending")
	assert.InDelta(t, 500, food.Amount, 0.001)
	assert.InDelta(t, 400, food.PreviousAmount, 0.001)
	require.NotNil(t, food.MoMPercent)
	assert.InDelta(t, 25, *food.MoMPercent, 0.001)

	fun := agg.Categories[1]
	require.NotNil(t, fun.MoMPercent)
	assert.InDelta(t, 100, *fun.MoMPercent, 0.001, "no previous spend reports flat 100")
}

func TestAggregateMerchantNormalization(t *testing.T) {
	store := &stubStore{
		transactions: []model.Transaction{
			expense("e1", "cat-food", "Café Luna", 40, date(2025, time.July, 2)),
			expense("e2", "cat-food", "  cafe   LUNA ", 60, date(2025, time.July, 9)),
			expense("e3", "cat-food", "One Off Store", 25, date(2025, time.July, 12)),
		},
		categories: []model.Category{{ID: "cat-food", Name: "Food"}},
	}

	agg, err := newTestAggregator(store).Aggregate(context.Background(), "u1", "2025-07")
	require.NoError(t, err)

	require.Len(t, agg.Merchants, 1, "single-occurrence labels are dropped")
	m := agg.Merchants[0]
	assert.Equal(t, "cafe luna", m.Label)
	assert.Equal(t, 2, m.Count)
	assert.InDelta(t, 100, m.Amount, 0.001)
}

func TestAggregateRecurring(t *testing.T) {
	store := &stubStore{
		accounts: []model.Account{
			{ID: "acc-1", UserID: "u1", Name: "Checking", Currency: "USD"},
			{ID: "acc-2", UserID: "u1", Name: "Savings", Currency: "USD"},
		},
		rules: []model.RecurringRule{
			{ID: "r1", UserID: "u1", CategoryID: "cat-rent", Kind: model.KindNormal, Type: model.TypeExpense, Cadence: model.CadenceMonthly, Amount: 1600},
			{ID: "r2", UserID: "u1", CategoryID: "cat-gym", Kind: model.KindNormal, Type: model.TypeExpense, Cadence: model.CadenceWeekly, Amount: 20},
			{ID: "r3", UserID: "u1", FromAccountID: "acc-1", ToAccountID: "acc-2", Kind: model.KindTransfer, Cadence: model.CadenceMonthly, Amount: 500},
		},
		categories: []model.Category{
			{ID: "cat-rent", Name: "Rent"},
			{ID: "cat-gym", Name: "Gym"},
		},
	}

	agg, err := newTestAggregator(store).Aggregate(context.Background(), "u1", "2025-07")
	require.NoError(t, err)

	require.Len(t, agg.Recurring.Items, 3)
	assert.Equal(t, "Rent", agg.Recurring.Items[0].Label, "sorted by monthly amount")

	var gym, transfer model.RecurringItem
	for _, item := range agg.Recurring.Items {
		switch item.Label {
		case "Gym":
			gym = item
		case "Checking → Savings":
			transfer = item
		}
	}
	assert.InDelta(t, 86.9, gym.MonthlyAmount, 0.001, "weekly rules scale by 4.345")
	assert.InDelta(t, 500, transfer.MonthlyAmount, 0.001)
	assert.InDelta(t, 1600+86.9+500, agg.Recurring.MonthlyTotal, 0.001)
}

func TestAggregateTotalBalance(t *testing.T) {
	store := &stubStore{
		accounts: []model.Account{{ID: "acc-1", UserID: "u1", Name: "Checking", Currency: "EUR"}},
		balances: []model.AccountBalance{
			{AccountID: "acc-1", Balance: 1200.405},
			{AccountID: "acc-2", Balance: 99.10},
		},
	}

	agg, err := newTestAggregator(store).Aggregate(context.Background(), "u1", "2025-07")
	require.NoError(t, err)

	assert.Equal(t, "EUR", agg.Currency)
	assert.InDelta(t, 1299.51, agg.TotalBalance, 0.001)
}

func TestAggregateInvalidMonth(t *testing.T) {
	_, err := newTestAggregator(&stubStore{}).Aggregate(context.Background(), "u1", "July 2025")
	require.Error(t, err)
}
