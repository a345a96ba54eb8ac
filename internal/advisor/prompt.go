package advisor

import (
	"encoding/json"
	"fmt"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// PromptPayload is the immutable snapshot of aggregated and derived figures
// serialized into the provider prompt. Built fresh per invocation, never
// mutated after construction.
type PromptPayload struct {
	MoMIncomePercent  *float64                 `json:"momIncomePercent"`
	MoMExpensePercent *float64                 `json:"momExpensePercent"`
	Month             string                   `json:"month"`
	Currency          string                   `json:"currency"`
	RiskProfile       model.RiskProfile        `json:"riskProfile"`
	Categories        []model.CategoryAmount   `json:"categories"`
	Merchants         []MerchantTotal          `json:"merchants"`
	Budgets           []model.BudgetAdherence  `json:"budgets"`
	Trend             []model.TrendPoint       `json:"cashflowTrend"`
	Anomalies         []Anomaly                `json:"anomalies"`
	Recurring         model.RecurringOutflows  `json:"recurring"`
	MonthIncome       float64                  `json:"monthIncome"`
	MonthExpense      float64                  `json:"monthExpense"`
	MonthNet          float64                  `json:"monthNet"`
	Last30Income      float64                  `json:"last30Income"`
	Last30Expense     float64                  `json:"last30Expense"`
	Last30Net         float64                  `json:"last30Net"`
	TotalBalance      float64                  `json:"totalBalance"`
	SavingsRate       float64                  `json:"savingsRate"`
	SavingsTargetRate float64                  `json:"savingsTargetRate"`
	RecurringBurden   float64                  `json:"recurringBurdenRatio"`
	NegativeCashflow  bool                     `json:"negativeCashflow"`
	LowSavingsRate    bool                     `json:"lowSavingsRate"`
	IrregularIncome   bool                     `json:"irregularIncome"`
}

// NewPromptPayload snapshots an aggregation plus derived metrics.
func NewPromptPayload(agg *Aggregation, m Metrics, prefs model.Preferences) PromptPayload {
	return PromptPayload{
		Month:             agg.Month,
		Currency:          agg.Currency,
		RiskProfile:       prefs.RiskProfile,
		Categories:        agg.Categories,
		Merchants:         agg.Merchants,
		Budgets:           agg.Budgets,
		Trend:             agg.Trend,
		Anomalies:         m.Anomalies,
		Recurring:         agg.Recurring,
		MonthIncome:       agg.MonthIncome,
		MonthExpense:      agg.MonthExpense,
		MonthNet:          agg.MonthNet,
		Last30Income:      agg.Last30Income,
		Last30Expense:     agg.Last30Expense,
		Last30Net:         agg.Last30Net,
		TotalBalance:      agg.TotalBalance,
		SavingsRate:       m.SavingsRate,
		SavingsTargetRate: prefs.SavingsTargetRate,
		RecurringBurden:   m.BurdenRatio,
		MoMIncomePercent:  m.MoMIncomePercent,
		MoMExpensePercent: m.MoMExpensePercent,
		NegativeCashflow:  m.NegativeCashflow,
		LowSavingsRate:    m.LowSavingsRate,
		IrregularIncome:   m.IrregularIncome,
	}
}

var languageNames = map[string]string{
	"en": "English",
	"tr": "Turkish",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

// BuildSystemPrompt returns the role statement and output discipline for
// the provider call. Deterministic for identical inputs.
func BuildSystemPrompt(language string) string {
	return fmt.Sprintf(`You are a personal finance advisor. You analyze a user's aggregated financial figures and produce practical, neutral advice.

You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, markdown formatting, or code fences before or after the JSON. Start your response directly with { and end with }.

You MUST write every human-readable string in %s. Never include names, emails, account numbers, or any other personally identifying information in your output.`, languageName(language))
}

// BuildUserPrompt serializes the payload and states the exact output shape
// and content rules. Pure string construction, no side effects.
func BuildUserPrompt(payload PromptPayload) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal prompt payload: %w", err)
	}

	return fmt.Sprintf(`Analyze the following monthly financial snapshot and produce advice.

Financial data:
%s

Respond with EXACTLY this JSON shape (field names and types must match):
{
  "summary": "2-4 sentence overview of the month",
  "topFindings": ["finding 1", "finding 2"],
  "suggestedActions": ["action 1", "action 2", "action 3"],
  "warnings": ["warning 1"],
  "savings": {
    "recommendation": "one sentence",
    "targetRate": 20,
    "currentRate": 12.5,
    "monthlyTargetAmount": 500
  },
  "investment": {
    "profiles": [
      {"riskLevel": "low", "rationale": "...", "options": ["...", "..."]},
      {"riskLevel": "medium", "rationale": "...", "options": ["...", "..."]},
      {"riskLevel": "high", "rationale": "...", "options": ["...", "..."]}
    ]
  },
  "expenseOptimization": {
    "cutCandidates": [{"label": "category or merchant name", "currentAmount": 0, "reductionPercent": 15}],
    "estimatedMonthlySavings": 0
  },
  "tips": ["tip 1", "tip 2"]
}

Content rules:
1. topFindings: 3 to 8 items, each under 320 characters. Cover the month-over-month trend, the largest expense driver, budget pressure, the recurring spending burden, and anomalies when present.
2. suggestedActions: 3 to 10 concrete, measurable actions.
3. warnings: 0 to 8 items; include one per genuine risk signal (negative cashflow, savings below target, budgets over limit, heavy recurring burden, anomalous expenses).
4. investment.profiles: exactly three profiles with riskLevel "low", "medium" and "high", the user's preferred risk profile first.
5. reductionPercent values must be between 0 and 100.
6. Every list field MUST be a JSON array, never a bare string.
7. Use only figures present in the data above; do not invent amounts.`, string(data)), nil
}
