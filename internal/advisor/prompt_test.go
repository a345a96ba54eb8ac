package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutugur/mintly-advisor/internal/model"
)

func TestBuildSystemPrompt(t *testing.T) {
	t.Run("names the output language", func(t *testing.T) {
		assert.Contains(t, BuildSystemPrompt("tr"), "Turkish")
		assert.Contains(t, BuildSystemPrompt("en"), "English")
	})

	t.Run("unknown language defaults to English", func(t *testing.T) {
		assert.Contains(t, BuildSystemPrompt("xx"), "English")
	})

	t.Run("demands a bare JSON object", func(t *testing.T) {
		prompt := BuildSystemPrompt("en")
		assert.Contains(t, prompt, "ONLY a valid JSON object")
	})
}

func TestBuildUserPrompt(t *testing.T) {
	agg := &Aggregation{
		Month:        "2025-07",
		Currency:     "USD",
		MonthIncome:  5000,
		MonthExpense: 4200,
		Categories: []model.CategoryAmount{
			{CategoryID: "cat-food", Name: "Food", Amount: 1200},
		},
	}
	prefs := model.DefaultPreferences("u1")
	payload := NewPromptPayload(agg, Derive(agg, prefs), prefs)

	prompt, err := BuildUserPrompt(payload)
	require.NoError(t, err)

	assert.Contains(t, prompt, `"month": "2025-07"`)
	assert.Contains(t, prompt, `"Food"`)
	assert.Contains(t, prompt, "topFindings")
	assert.Contains(t, prompt, "investment")
	assert.NotContains(t, prompt, "u1", "no user identifiers reach the provider")

	t.Run("deterministic for identical input", func(t *testing.T) {
		again, err := BuildUserPrompt(payload)
		require.NoError(t, err)
		assert.Equal(t, prompt, again)
	})
}

func TestPromptPayloadSnapshot(t *testing.T) {
	agg := &Aggregation{Month: "2025-07", Currency: "USD", MonthIncome: 100, MonthNet: 100}
	prefs := model.Preferences{UserID: "u1", RiskProfile: model.RiskHigh, SavingsTargetRate: 25}
	m := Derive(agg, prefs)

	payload := NewPromptPayload(agg, m, prefs)

	assert.Equal(t, model.RiskHigh, payload.RiskProfile)
	assert.InDelta(t, 25, payload.SavingsTargetRate, 0.001)
	assert.InDelta(t, 100, payload.SavingsRate, 0.001, "net equals income")
	assert.False(t, payload.LowSavingsRate)
}
