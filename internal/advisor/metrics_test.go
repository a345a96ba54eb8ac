package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutugur/mintly-advisor/internal/model"
)

func TestMoMPercent(t *testing.T) {
	tests := []struct {
		name     string
		expected *float64
		current  float64
		previous float64
	}{
		{name: "normal increase", current: 1200, previous: 1000, expected: floatPtr(20)},
		{name: "normal decrease", current: 800, previous: 1000, expected: floatPtr(-20)},
		{name: "zero previous with current", current: 500, previous: 0, expected: floatPtr(100)},
		{name: "zero previous and current", current: 0, previous: 0, expected: nil},
		{name: "negative previous", current: 0, previous: -10, expected: nil},
		{name: "rounds to cents", current: 1003, previous: 3000, expected: floatPtr(-66.57)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoMPercent(tt.current, tt.previous)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 0.001)
		})
	}
}

func TestRecurringBurdenRatio(t *testing.T) {
	t.Run("normal ratio", func(t *testing.T) {
		assert.InDelta(t, 0.5, RecurringBurdenRatio(500, 1000), 0.001)
	})

	t.Run("zero expense yields zero", func(t *testing.T) {
		assert.Zero(t, RecurringBurdenRatio(500, 0))
	})

	t.Run("clamped at maximum", func(t *testing.T) {
		assert.InDelta(t, MaxBurdenRatio, RecurringBurdenRatio(10000, 100), 0.001)
	})
}

func TestAnomalyThreshold(t *testing.T) {
	t.Run("floor wins for small medians", func(t *testing.T) {
		assert.InDelta(t, AnomalyFloor, AnomalyThreshold([]float64{10, 20, 30}), 0.001)
	})

	t.Run("median scales for large spend", func(t *testing.T) {
		// median 500 * 2.2 = 1100
		assert.InDelta(t, 1100, AnomalyThreshold([]float64{100, 500, 900}), 0.001)
	})

	t.Run("empty input uses floor", func(t *testing.T) {
		assert.InDelta(t, AnomalyFloor, AnomalyThreshold(nil), 0.001)
	})
}

func TestDetectAnomalies(t *testing.T) {
	expenses := []ExpenseRecord{
		{Label: "Rent", Amount: 1600},
		{Label: "Groceries", Amount: 120},
		{Label: "TV", Amount: 900},
		{Label: "Laptop", Amount: 2400},
		{Label: "Sofa", Amount: 1100},
		{Label: "Phone", Amount: 950},
		{Label: "Flight", Amount: 1300},
	}

	anomalies := DetectAnomalies(expenses, 900)

	require.Len(t, anomalies, 5, "capped at five")
	assert.Equal(t, "Laptop", anomalies[0].Label)
	assert.Equal(t, "Rent", anomalies[1].Label)
	for i := 1; i < len(anomalies); i++ {
		assert.GreaterOrEqual(t, anomalies[i-1].Amount, anomalies[i].Amount)
	}
}

func TestIrregularIncome(t *testing.T) {
	trend := func(incomes ...float64) []model.TrendPoint {
		points := make([]model.TrendPoint, len(incomes))
		for i, v := range incomes {
			points[i] = model.TrendPoint{Income: v}
		}
		return points
	}

	tests := []struct {
		name     string
		points   []model.TrendPoint
		expected bool
	}{
		{name: "stable income", points: trend(5000, 5100, 4950), expected: false},
		{name: "ratio at threshold", points: trend(3000, 4500, 4000), expected: true},
		{name: "single month with gaps", points: trend(0, 5000, 0), expected: true},
		{name: "no income at all", points: trend(0, 0, 0), expected: false},
		{name: "single positive month only", points: trend(5000), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IrregularIncome(tt.points))
		})
	}
}

func TestDerive(t *testing.T) {
	agg := &Aggregation{
		MonthIncome:  5000,
		MonthExpense: 4200,
		MonthNet:     800,
		Trend: []model.TrendPoint{
			{Month: "2025-05", Income: 5000, Expense: 4000},
			{Month: "2025-06", Income: 4000, Expense: 3500},
			{Month: "2025-07", Income: 5000, Expense: 4200},
		},
		Recurring: model.RecurringOutflows{MonthlyTotal: 2100},
		Expenses: []ExpenseRecord{
			{Label: "Rent", Amount: 1600},
			{Label: "Groceries", Amount: 300},
			{Label: "Utilities", Amount: 150},
		},
	}
	prefs := model.DefaultPreferences("u1")

	m := Derive(agg, prefs)

	require.NotNil(t, m.MoMIncomePercent)
	assert.InDelta(t, 25, *m.MoMIncomePercent, 0.001)
	require.NotNil(t, m.MoMExpensePercent)
	assert.InDelta(t, 20, *m.MoMExpensePercent, 0.001)

	assert.InDelta(t, 0.5, m.BurdenRatio, 0.001)
	assert.InDelta(t, 16, m.SavingsRate, 0.001)
	assert.True(t, m.LowSavingsRate, "16%% is under the 20%% target")
	assert.False(t, m.NegativeCashflow)
	assert.False(t, m.IrregularIncome, "5000/4000 stays under the 1.5x ratio")

	assert.InDelta(t, 660, m.AnomalyThreshold, 0.001)
	require.Len(t, m.Anomalies, 1)
	assert.Equal(t, "Rent", m.Anomalies[0].Label)
}

func floatPtr(v float64) *float64 {
	return &v
}
