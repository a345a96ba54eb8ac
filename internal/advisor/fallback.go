package advisor

import (
	"fmt"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// Burden thresholds for conditional fallback content.
var (
	// SubscriptionReviewBurden is the recurring burden ratio above which a
	// subscription-review action is suggested.
	SubscriptionReviewBurden = 0.35
	// HighBurdenWarning is the recurring burden ratio above which a
	// warning is emitted.
	HighBurdenWarning = 0.45
)

// fragments holds the pre-authored template text for one language.
type fragments struct {
	investment         map[model.RiskProfile]investmentFragment
	summaryPositive    string
	summaryNegative    string
	findingIncomeMoM   string
	findingExpenseMoM  string
	findingTopDriver   string
	findingBurden      string
	findingOverBudget  string
	findingNearBudget  string
	findingAnomalies   string
	findingQuietMonth  string
	actionBudgetCap    string
	actionReviewSubs   string
	actionVerifyLarge  string
	warnNegativeCash   string
	warnLowSavings     string
	warnOverBudget     string
	warnHighBurden     string
	warnAnomalies      string
	savingsOnTrack     string
	savingsBelowTarget string
	genericActions     []string
	tips               []string
}

type investmentFragment struct {
	rationale string
	options   []string
}

var fragmentsByLanguage = map[string]fragments{
	"en": {
		summaryPositive:   "In %s you earned %.2f %s and spent %.2f %s, ending the month %.2f %s ahead.",
		summaryNegative:   "In %s you earned %.2f %s but spent %.2f %s, leaving you %.2f %s in the red.",
		findingIncomeMoM:  "Income changed by %+.1f%% compared with the previous month.",
		findingExpenseMoM: "Spending changed by %+.1f%% compared with the previous month.",
		findingTopDriver:  "Your largest expense category was %[1]s at %[2]s.",
		findingBurden:     "Recurring payments account for %.0f%% of this month's spending.",
		findingOverBudget: "You went over your %s budget this month.",
		findingNearBudget: "Your %s budget is close to its limit.",
		findingAnomalies:  "%d unusually large expense(s) stood out this month.",
		findingQuietMonth: "No spending activity was recorded for this month.",
		genericActions: []string{
			"Set aside a fixed amount on payday before any discretionary spending.",
			"Review your three largest expense categories for quick reductions.",
			"Automate transfers to a separate savings account.",
		},
		actionBudgetCap:   "Set a hard spending cap for %s until the month ends.",
		actionReviewSubs:  "Review your subscriptions and cancel the ones you no longer use.",
		actionVerifyLarge: "Verify the unusually large transactions flagged this month.",
		warnNegativeCash:  "You spent more than you earned this month.",
		warnLowSavings:    "Your savings rate of %.1f%% is below your %.0f%% target.",
		warnOverBudget:    "Budget exceeded: %s.",
		warnHighBurden:    "Recurring payments consume a very large share of your spending.",
		warnAnomalies:     "Some expenses this month are far above your usual amounts.",
		savingsOnTrack:     "You are meeting your savings target; consider raising it gradually.",
		savingsBelowTarget: "Aim to save %[1]s per month to reach your %[2]s%% target.",
		investment: map[model.RiskProfile]investmentFragment{
			model.RiskLow: {
				rationale: "Capital preservation first: liquid, low-volatility instruments suit a cautious profile.",
				options:   []string{"High-yield savings account", "Government bonds", "Money market funds"},
			},
			model.RiskMedium: {
				rationale: "A balanced mix captures market growth while limiting drawdowns.",
				options:   []string{"Index funds", "Balanced mutual funds", "Corporate bonds"},
			},
			model.RiskHigh: {
				rationale: "A long horizon can absorb volatility in exchange for higher expected returns.",
				options:   []string{"Equity ETFs", "Growth stocks", "Emerging market funds"},
			},
		},
		tips: []string{
			"Check your budgets weekly rather than at the end of the month.",
			"Label transactions consistently so category reports stay meaningful.",
			"Keep an emergency fund of about three months of expenses.",
		},
	},
	"tr": {
		summaryPositive:   "%s ayında %.2f %s kazandınız, %.2f %s harcadınız ve ayı %.2f %s artıda kapattınız.",
		summaryNegative:   "%s ayında %.2f %s kazandınız ancak %.2f %s harcadınız; ay %.2f %s ekside kapandı.",
		findingIncomeMoM:  "Gelir bir önceki aya göre %%%+.1f değişti.",
		findingExpenseMoM: "Harcama bir önceki aya göre %%%+.1f değişti.",
		findingTopDriver:  "En büyük harcama kategoriniz %[2]s ile %[1]s oldu.",
		findingBurden:     "Düzenli ödemeler bu ayki harcamanızın %%%.0f'ini oluşturuyor.",
		findingOverBudget: "Bu ay %s bütçenizi aştınız.",
		findingNearBudget: "%s bütçeniz sınırına yaklaştı.",
		findingAnomalies:  "Bu ay %d olağandışı büyük harcama dikkat çekti.",
		findingQuietMonth: "Bu ay için harcama hareketi kaydedilmedi.",
		genericActions: []string{
			"Maaş gününde, harcamalardan önce sabit bir tutarı kenara ayırın.",
			"En büyük üç harcama kategorinizi hızlı tasarruf için gözden geçirin.",
			"Ayrı bir birikim hesabına otomatik transfer tanımlayın.",
		},
		actionBudgetCap:   "Ay sonuna kadar %s için kesin bir harcama limiti belirleyin.",
		actionReviewSubs:  "Aboneliklerinizi gözden geçirin ve kullanmadıklarınızı iptal edin.",
		actionVerifyLarge: "Bu ay işaretlenen olağandışı büyük işlemleri doğrulayın.",
		warnNegativeCash:  "Bu ay kazandığınızdan fazlasını harcadınız.",
		warnLowSavings:    "%%%.1f'lik tasarruf oranınız %%%.0f hedefinizin altında.",
		warnOverBudget:    "Bütçe aşıldı: %s.",
		warnHighBurden:    "Düzenli ödemeler harcamanızın çok büyük bölümünü tüketiyor.",
		warnAnomalies:     "Bu ayki bazı harcamalar olağan tutarlarınızın çok üzerinde.",
		savingsOnTrack:     "Tasarruf hedefinizi tutturuyorsunuz; hedefi kademeli olarak yükseltmeyi düşünün.",
		savingsBelowTarget: "%%%[2]s hedefinize ulaşmak için ayda %[1]s biriktirmeyi hedefleyin.",
		investment: map[model.RiskProfile]investmentFragment{
			model.RiskLow: {
				rationale: "Önce anaparayı korumak: likit ve düşük oynaklıklı araçlar temkinli profile uygundur.",
				options:   []string{"Vadeli mevduat", "Devlet tahvili", "Para piyasası fonları"},
			},
			model.RiskMedium: {
				rationale: "Dengeli bir dağılım, kayıpları sınırlarken piyasa büyümesinden pay almayı sağlar.",
				options:   []string{"Endeks fonları", "Dengeli yatırım fonları", "Özel sektör tahvilleri"},
			},
			model.RiskHigh: {
				rationale: "Uzun vade, daha yüksek beklenen getiri karşılığında oynaklığı tolere edebilir.",
				options:   []string{"Hisse senedi fonları", "Büyüme hisseleri", "Gelişen piyasa fonları"},
			},
		},
		tips: []string{
			"Bütçelerinizi ay sonunda değil, her hafta kontrol edin.",
			"Kategori raporları anlamlı kalsın diye işlemleri tutarlı etiketleyin.",
			"Yaklaşık üç aylık gideri karşılayacak bir acil durum fonu bulundurun.",
		},
	},
}

func fragmentsFor(language string) fragments {
	if f, ok := fragmentsByLanguage[language]; ok {
		return f
	}
	return fragmentsByLanguage["en"]
}

// Synthesizer deterministically produces complete, schema-valid advice from
// locally computed metrics. It never performs I/O and must return valid
// output for every input, including all-zero aggregates.
type Synthesizer struct{}

// NewSynthesizer creates a fallback advice synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize builds the fallback advice for one aggregation.
func (s *Synthesizer) Synthesize(agg *Aggregation, m Metrics, prefs model.Preferences, language string) *model.Advice {
	f := fragmentsFor(language)

	advice := &model.Advice{
		Summary:             s.summary(f, agg),
		TopFindings:         s.findings(f, agg, m),
		SuggestedActions:    s.actions(f, agg, m),
		Warnings:            s.warnings(f, agg, m, prefs),
		Savings:             s.savings(f, agg, m, prefs),
		Investment:          s.investment(f, prefs),
		ExpenseOptimization: s.expenseOptimization(agg),
		Tips:                append([]string(nil), f.tips...),
	}

	return advice
}

func (s *Synthesizer) summary(f fragments, agg *Aggregation) string {
	if agg.MonthNet < 0 {
		return fmt.Sprintf(f.summaryNegative, agg.Month, agg.MonthIncome, agg.Currency, agg.MonthExpense, agg.Currency, -agg.MonthNet, agg.Currency)
	}
	return fmt.Sprintf(f.summaryPositive, agg.Month, agg.MonthIncome, agg.Currency, agg.MonthExpense, agg.Currency, agg.MonthNet, agg.Currency)
}

func (s *Synthesizer) findings(f fragments, agg *Aggregation, m Metrics) []string {
	var findings []string

	if m.MoMIncomePercent != nil {
		findings = append(findings, fmt.Sprintf(f.findingIncomeMoM, *m.MoMIncomePercent))
	}
	if m.MoMExpensePercent != nil {
		findings = append(findings, fmt.Sprintf(f.findingExpenseMoM, *m.MoMExpensePercent))
	}
	if len(agg.Categories) > 0 && agg.Categories[0].Amount > 0 {
		top := agg.Categories[0]
		amount := fmt.Sprintf("%.2f %s", top.Amount, agg.Currency)
		findings = append(findings, fmt.Sprintf(f.findingTopDriver, top.Name, amount))
	}
	if m.BurdenRatio > 0 {
		findings = append(findings, fmt.Sprintf(f.findingBurden, m.BurdenRatio*100))
	}
	if name, state := worstBudget(agg.Budgets); state == model.BudgetOverLimit {
		findings = append(findings, fmt.Sprintf(f.findingOverBudget, name))
	} else if state == model.BudgetNearLimit {
		findings = append(findings, fmt.Sprintf(f.findingNearBudget, name))
	}
	if len(m.Anomalies) > 0 {
		findings = append(findings, fmt.Sprintf(f.findingAnomalies, len(m.Anomalies)))
	}

	findings = dedupe(findings)
	if len(findings) == 0 {
		findings = []string{f.findingQuietMonth}
	}
	if len(findings) > maxFindings {
		findings = findings[:maxFindings]
	}
	return findings
}

func (s *Synthesizer) actions(f fragments, agg *Aggregation, m Metrics) []string {
	actions := append([]string(nil), f.genericActions...)

	if name, state := worstBudget(agg.Budgets); state == model.BudgetOverLimit {
		actions = append(actions, fmt.Sprintf(f.actionBudgetCap, name))
	}
	if m.BurdenRatio >= SubscriptionReviewBurden {
		actions = append(actions, f.actionReviewSubs)
	}
	if len(m.Anomalies) > 0 {
		actions = append(actions, f.actionVerifyLarge)
	}

	actions = dedupe(actions)
	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}
	return actions
}

func (s *Synthesizer) warnings(f fragments, agg *Aggregation, m Metrics, prefs model.Preferences) []string {
	var warnings []string

	if m.NegativeCashflow {
		warnings = append(warnings, f.warnNegativeCash)
	}
	if m.LowSavingsRate {
		warnings = append(warnings, fmt.Sprintf(f.warnLowSavings, m.SavingsRate, prefs.SavingsTargetRate))
	}
	for _, b := range agg.Budgets {
		if b.Status == model.BudgetOverLimit {
			warnings = append(warnings, fmt.Sprintf(f.warnOverBudget, b.CategoryName))
		}
	}
	if m.BurdenRatio >= HighBurdenWarning {
		warnings = append(warnings, f.warnHighBurden)
	}
	if len(m.Anomalies) > 0 {
		warnings = append(warnings, f.warnAnomalies)
	}

	warnings = dedupe(warnings)
	if len(warnings) > maxWarnings {
		warnings = warnings[:maxWarnings]
	}
	return warnings
}

func (s *Synthesizer) savings(f fragments, agg *Aggregation, m Metrics, prefs model.Preferences) model.SavingsAdvice {
	target := clamp(prefs.SavingsTargetRate, 0, 100)
	monthlyTarget := round2(agg.MonthIncome * target / 100)

	recommendation := f.savingsOnTrack
	if m.LowSavingsRate || agg.MonthIncome <= 0 {
		amount := fmt.Sprintf("%.2f %s", monthlyTarget, agg.Currency)
		recommendation = fmt.Sprintf(f.savingsBelowTarget, amount, fmt.Sprintf("%.0f", target))
	}

	return model.SavingsAdvice{
		Recommendation:      recommendation,
		TargetRate:          target,
		CurrentRate:         clamp(m.SavingsRate, -100, 100),
		MonthlyTargetAmount: monthlyTarget,
	}
}

// investment always emits all three risk profiles, the user's preferred
// level first.
func (s *Synthesizer) investment(f fragments, prefs model.Preferences) model.InvestmentAdvice {
	order := []model.RiskProfile{model.RiskLow, model.RiskMedium, model.RiskHigh}

	preferred := prefs.RiskProfile
	switch preferred {
	case model.RiskLow, model.RiskMedium, model.RiskHigh:
	default:
		preferred = model.RiskMedium
	}

	profiles := make([]model.InvestmentProfile, 0, len(order))
	appendProfile := func(level model.RiskProfile) {
		frag := f.investment[level]
		profiles = append(profiles, model.InvestmentProfile{
			RiskLevel: level,
			Rationale: frag.rationale,
			Options:   append([]string(nil), frag.options...),
		})
	}

	appendProfile(preferred)
	for _, level := range order {
		if level != preferred {
			appendProfile(level)
		}
	}

	return model.InvestmentAdvice{Profiles: profiles}
}

// expenseOptimization nominates the top expense categories as cut
// candidates. Current amounts are resolved later by the assembler.
func (s *Synthesizer) expenseOptimization(agg *Aggregation) model.ExpenseOptimization {
	reductions := []float64{15, 10, 10}

	var candidates []model.CutCandidate
	for i, cat := range agg.Categories {
		if i >= len(reductions) || cat.Amount <= 0 {
			break
		}
		candidates = append(candidates, model.CutCandidate{
			Label:            cat.Name,
			ReductionPercent: reductions[i],
		})
	}

	return model.ExpenseOptimization{CutCandidates: candidates}
}

// worstBudget returns the category name of the most pressured budget and
// its state, preferring over_limit to near_limit.
func worstBudget(budgets []model.BudgetAdherence) (string, model.BudgetState) {
	var nearName string
	for _, b := range budgets {
		switch b.Status {
		case model.BudgetOverLimit:
			return b.CategoryName, model.BudgetOverLimit
		case model.BudgetNearLimit:
			if nearName == "" {
				nearName = b.CategoryName
			}
		}
	}
	if nearName != "" {
		return nearName, model.BudgetNearLimit
	}
	return "", model.BudgetOnTrack
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
