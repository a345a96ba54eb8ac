package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/umutugur/mintly-advisor/internal/llm"
	"github.com/umutugur/mintly-advisor/internal/model"
)

// ManualTemplateProvider serves templated advice through the provider
// contract, without any network calls. It recovers the payload embedded in
// the user prompt and renders the synthesizer output as the assistant
// text, so the downstream validation path stays identical to a real
// provider.
type ManualTemplateProvider struct {
	synth *Synthesizer
}

// NewManualTemplateProvider creates a template-backed provider.
func NewManualTemplateProvider() *ManualTemplateProvider {
	return &ManualTemplateProvider{synth: NewSynthesizer()}
}

// Name identifies the provider in insight metadata.
func (p *ManualTemplateProvider) Name() string {
	return "manual"
}

// Complete parses the financial payload out of the prompt and returns
// synthesized advice as a JSON document.
func (p *ManualTemplateProvider) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	raw, err := ExtractJSON(req.UserPrompt)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("failed to locate prompt payload: %w", err)
	}

	var payload PromptPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("failed to decode prompt payload: %w", err)
	}

	agg, metrics, prefs := payload.reconstruct()
	advice := p.synth.Synthesize(agg, metrics, prefs, req.Language)

	text, err := json.Marshal(advice)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("failed to encode advice: %w", err)
	}

	return llm.CompletionResponse{
		Text:  string(text),
		RayID: uuid.NewString(),
	}, nil
}

// reconstruct rebuilds the aggregation and metric views the synthesizer
// consumes from a serialized payload.
func (p PromptPayload) reconstruct() (*Aggregation, Metrics, model.Preferences) {
	agg := &Aggregation{
		Month:         p.Month,
		Currency:      p.Currency,
		Categories:    p.Categories,
		Merchants:     p.Merchants,
		Budgets:       p.Budgets,
		Trend:         p.Trend,
		Recurring:     p.Recurring,
		MonthIncome:   p.MonthIncome,
		MonthExpense:  p.MonthExpense,
		MonthNet:      p.MonthNet,
		Last30Income:  p.Last30Income,
		Last30Expense: p.Last30Expense,
		Last30Net:     p.Last30Net,
		TotalBalance:  p.TotalBalance,
	}

	metrics := Metrics{
		MoMIncomePercent:  p.MoMIncomePercent,
		MoMExpensePercent: p.MoMExpensePercent,
		Anomalies:         p.Anomalies,
		BurdenRatio:       p.RecurringBurden,
		SavingsRate:       p.SavingsRate,
		NegativeCashflow:  p.NegativeCashflow,
		LowSavingsRate:    p.LowSavingsRate,
		IrregularIncome:   p.IrregularIncome,
	}

	prefs := model.Preferences{
		RiskProfile:       p.RiskProfile,
		SavingsTargetRate: p.SavingsTargetRate,
	}

	return agg, metrics, prefs
}
