package advisor

import (
	"strings"
	"time"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// EmergencyFundMonths is how many months of expenses the emergency fund
// target covers.
var EmergencyFundMonths = 3.0

// ProviderInfo records which engine produced the advice and why.
type ProviderInfo struct {
	Mode       model.InsightMode
	ModeReason string
	Provider   string
	Status     int
}

// Assembler merges aggregated figures, derived metrics, and an advice
// section into the final insight document.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an assembler stamping generation time with
// time.Now.
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Assemble builds the complete insight. The advice section is normalized
// in place: rates and percentages are clamped to their valid ranges and
// cut candidate amounts are resolved against the computed breakdowns.
func (a *Assembler) Assemble(agg *Aggregation, m Metrics, prefs model.Preferences, advice *model.Advice, language string, info ProviderInfo) *model.AdvisorInsight {
	normalized := normalizeAdvice(advice, agg)

	return &model.AdvisorInsight{
		GeneratedAt:    a.now().UTC(),
		Month:          agg.Month,
		Language:       language,
		Mode:           info.Mode,
		ModeReason:     info.ModeReason,
		Provider:       info.Provider,
		Currency:       agg.Currency,
		ProviderStatus: info.Status,
		Preferences: model.InsightPreferences{
			RiskProfile:       prefs.RiskProfile,
			SavingsTargetRate: clamp(prefs.SavingsTargetRate, 0, 100),
		},
		Overview: model.Overview{
			MoMIncomePercent:  m.MoMIncomePercent,
			MoMExpensePercent: m.MoMExpensePercent,
			MonthIncome:       agg.MonthIncome,
			MonthExpense:      agg.MonthExpense,
			MonthNet:          agg.MonthNet,
			Last30Income:      agg.Last30Income,
			Last30Expense:     agg.Last30Expense,
			Last30Net:         agg.Last30Net,
			TotalBalance:      agg.TotalBalance,
			SavingsRate:       m.SavingsRate,
			EmergencyFund:     emergencyFund(agg),
		},
		CategoryBreakdown: agg.Categories,
		CashflowTrend:     agg.Trend,
		BudgetAdherence:   agg.Budgets,
		RecurringOutflows: model.RecurringOutflows{
			Items:        agg.Recurring.Items,
			MonthlyTotal: agg.Recurring.MonthlyTotal,
			BurdenRatio:  m.BurdenRatio,
		},
		Flags: model.Flags{
			NegativeCashflow: m.NegativeCashflow,
			LowSavingsRate:   m.LowSavingsRate,
			IrregularIncome:  m.IrregularIncome,
			AnomalyCount:     len(m.Anomalies),
		},
		Advice: normalized,
	}
}

// emergencyFund targets EmergencyFundMonths times the current month's
// expense.
func emergencyFund(agg *Aggregation) model.EmergencyFund {
	target := round2(agg.MonthExpense * EmergencyFundMonths)

	status := model.FundNotStarted
	switch {
	case target > 0 && agg.TotalBalance >= target:
		status = model.FundReady
	case agg.TotalBalance > 0:
		status = model.FundBuilding
	}

	return model.EmergencyFund{Status: status, TargetAmount: target}
}

// normalizeAdvice clamps out-of-range numbers and resolves cut candidate
// amounts. The input advice is copied, not mutated.
func normalizeAdvice(advice *model.Advice, agg *Aggregation) model.Advice {
	out := *advice

	out.Savings.TargetRate = clamp(out.Savings.TargetRate, 0, 100)
	out.Savings.CurrentRate = clamp(out.Savings.CurrentRate, -100, 100)
	if out.Savings.MonthlyTargetAmount < 0 {
		out.Savings.MonthlyTargetAmount = 0
	}

	out.ExpenseOptimization = resolveCutCandidates(out.ExpenseOptimization, agg)

	return out
}

// resolveCutCandidates fills in each candidate's current amount from the
// category and merchant breakdowns and recomputes the estimated savings.
func resolveCutCandidates(opt model.ExpenseOptimization, agg *Aggregation) model.ExpenseOptimization {
	candidates := make([]model.CutCandidate, 0, len(opt.CutCandidates))
	total := 0.0

	for _, c := range opt.CutCandidates {
		c.ReductionPercent = clamp(c.ReductionPercent, 0, 100)
		if c.CurrentAmount <= 0 {
			c.CurrentAmount = lookupAmount(c.Label, agg)
		}
		total += c.CurrentAmount * c.ReductionPercent / 100
		candidates = append(candidates, c)
	}

	opt.CutCandidates = candidates
	opt.EstimatedMonthlySavings = round2(total)
	return opt
}

// lookupAmount matches a candidate label against category names first,
// then merchant labels. Exact case-insensitive match wins; otherwise
// substring containment in either direction.
func lookupAmount(label string, agg *Aggregation) float64 {
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return 0
	}

	var partial float64
	partialFound := false

	for _, cat := range agg.Categories {
		name := strings.ToLower(cat.Name)
		if name == needle {
			return cat.Amount
		}
		if !partialFound && (strings.Contains(name, needle) || strings.Contains(needle, name)) {
			partial = cat.Amount
			partialFound = true
		}
	}
	for _, merchant := range agg.Merchants {
		name := strings.ToLower(merchant.Label)
		if name == needle {
			return merchant.Amount
		}
		if !partialFound && (strings.Contains(name, needle) || strings.Contains(needle, name)) {
			partial = merchant.Amount
			partialFound = true
		}
	}

	return partial
}
