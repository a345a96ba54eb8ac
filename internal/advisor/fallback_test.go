package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutugur/mintly-advisor/internal/model"
)

func TestSynthesizeCompleteOnEmptyData(t *testing.T) {
	synth := NewSynthesizer()
	agg := &Aggregation{Month: "2025-07", Currency: "USD"}
	prefs := model.DefaultPreferences("u1")

	advice := synth.Synthesize(agg, Metrics{}, prefs, "en")

	require.NoError(t, ValidateAdvice(advice), "fallback advice must always be schema-valid")
	assert.NotEmpty(t, advice.Summary)
	assert.NotEmpty(t, advice.TopFindings)
	assert.GreaterOrEqual(t, len(advice.SuggestedActions), 3)
	assert.Len(t, advice.Investment.Profiles, 3)
	assert.NotEmpty(t, advice.Tips)
}

func TestSynthesizeConditionalContent(t *testing.T) {
	synth := NewSynthesizer()
	agg := &Aggregation{
		Month:        "2025-07",
		Currency:     "USD",
		MonthIncome:  4000,
		MonthExpense: 5000,
		MonthNet:     -1000,
		Categories: []model.CategoryAmount{
			{CategoryID: "cat-food", Name: "Food", Amount: 1200},
		},
		Budgets: []model.BudgetAdherence{
			{CategoryID: "cat-food", CategoryName: "Food", Status: model.BudgetOverLimit},
		},
	}
	m := Metrics{
		MoMExpensePercent: floatPtr(25),
		NegativeCashflow:  true,
		LowSavingsRate:    true,
		BurdenRatio:       0.5,
		Anomalies:         []Anomaly{{Label: "Concert", Amount: 640}},
	}
	prefs := model.DefaultPreferences("u1")

	advice := synth.Synthesize(agg, m, prefs, "en")

	require.NoError(t, ValidateAdvice(advice))

	assert.Contains(t, advice.Summary, "in the red")
	assert.Contains(t, advice.Warnings, "You spent more than you earned this month.")
	assert.Contains(t, advice.Warnings, "Budget exceeded: Food.")
	assert.Contains(t, advice.Warnings, "Recurring payments consume a very large share of your spending.")
	assert.Contains(t, advice.SuggestedActions, "Set a hard spending cap for Food until the month ends.")
	assert.Contains(t, advice.SuggestedActions, "Review your subscriptions and cancel the ones you no longer use.")
	assert.NotEmpty(t, advice.ExpenseOptimization.CutCandidates)
	assert.Equal(t, "Food", advice.ExpenseOptimization.CutCandidates[0].Label)
}

func TestSynthesizeTurkish(t *testing.T) {
	synth := NewSynthesizer()
	agg := &Aggregation{Month: "2025-07", Currency: "TRY", MonthIncome: 50000, MonthExpense: 30000, MonthNet: 20000}
	prefs := model.DefaultPreferences("u1")

	advice := synth.Synthesize(agg, Metrics{SavingsRate: 40}, prefs, "tr")

	require.NoError(t, ValidateAdvice(advice))
	assert.Contains(t, advice.Summary, "kazandınız")
	assert.Contains(t, advice.Tips[0], "kontrol edin")
}

func TestSynthesizeUnknownLanguageFallsBackToEnglish(t *testing.T) {
	synth := NewSynthesizer()
	agg := &Aggregation{Month: "2025-07", Currency: "USD"}
	prefs := model.DefaultPreferences("u1")

	advice := synth.Synthesize(agg, Metrics{}, prefs, "de")

	assert.Contains(t, advice.Summary, "you earned")
}

func TestSynthesizeInvestmentOrdering(t *testing.T) {
	synth := NewSynthesizer()
	agg := &Aggregation{Month: "2025-07", Currency: "USD"}

	tests := []struct {
		name     string
		profile  model.RiskProfile
		expected model.RiskProfile
	}{
		{name: "high risk first", profile: model.RiskHigh, expected: model.RiskHigh},
		{name: "low risk first", profile: model.RiskLow, expected: model.RiskLow},
		{name: "unknown defaults to medium", profile: "aggressive", expected: model.RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := model.Preferences{UserID: "u1", RiskProfile: tt.profile, SavingsTargetRate: 20}
			advice := synth.Synthesize(agg, Metrics{}, prefs, "en")

			require.Len(t, advice.Investment.Profiles, 3)
			assert.Equal(t, tt.expected, advice.Investment.Profiles[0].RiskLevel)

			seen := map[model.RiskProfile]bool{}
			for _, p := range advice.Investment.Profiles {
				seen[p.RiskLevel] = true
			}
			assert.Len(t, seen, 3, "all three levels present")
		})
	}
}
