package model

import "time"

// InsightMode records which engine produced the advice section.
type InsightMode string

// Insight modes.
const (
	ModeAI       InsightMode = "ai"
	ModeFallback InsightMode = "fallback"
	ModeManual   InsightMode = "manual"
)

// BudgetState classifies how far along a budget is for the month.
type BudgetState string

// Budget states. Thresholds: under 80% on_track, 80-99% near_limit,
// 100% and above over_limit.
const (
	BudgetOnTrack   BudgetState = "on_track"
	BudgetNearLimit BudgetState = "near_limit"
	BudgetOverLimit BudgetState = "over_limit"
)

// EmergencyFundStatus describes progress toward the emergency fund target.
type EmergencyFundStatus string

// Emergency fund statuses.
const (
	FundReady      EmergencyFundStatus = "ready"
	FundBuilding   EmergencyFundStatus = "building"
	FundNotStarted EmergencyFundStatus = "not_started"
)

// AdvisorInsight is the complete advisor response for one (user, month,
// language). It is immutable after assembly and safe to cache.
type AdvisorInsight struct {
	GeneratedAt       time.Time          `json:"generatedAt"`
	Month             string             `json:"month"`
	Language          string             `json:"language"`
	Mode              InsightMode        `json:"mode"`
	ModeReason        string             `json:"modeReason,omitempty"`
	Provider          string             `json:"provider"`
	Currency          string             `json:"currency"`
	ProviderStatus    int                `json:"providerStatus,omitempty"`
	Preferences       InsightPreferences `json:"preferences"`
	Overview          Overview           `json:"overview"`
	CategoryBreakdown []CategoryAmount   `json:"categoryBreakdown"`
	CashflowTrend     []TrendPoint       `json:"cashflowTrend"`
	BudgetAdherence   []BudgetAdherence  `json:"budgetAdherence"`
	RecurringOutflows RecurringOutflows  `json:"recurringOutflows"`
	Flags             Flags              `json:"flags"`
	Advice            Advice             `json:"advice"`
}

// InsightPreferences echoes the preferences the advice was computed under.
type InsightPreferences struct {
	RiskProfile       RiskProfile `json:"riskProfile"`
	SavingsTargetRate float64     `json:"savingsTargetRate"`
}

// Overview holds the headline cashflow figures.
type Overview struct {
	MoMIncomePercent  *float64      `json:"momIncomePercent"`
	MoMExpensePercent *float64      `json:"momExpensePercent"`
	MonthIncome       float64       `json:"monthIncome"`
	MonthExpense      float64       `json:"monthExpense"`
	MonthNet          float64       `json:"monthNet"`
	Last30Income      float64       `json:"last30Income"`
	Last30Expense     float64       `json:"last30Expense"`
	Last30Net         float64       `json:"last30Net"`
	TotalBalance      float64       `json:"totalBalance"`
	SavingsRate       float64       `json:"savingsRate"`
	EmergencyFund     EmergencyFund `json:"emergencyFund"`
}

// EmergencyFund is the 3x-monthly-expense reserve target.
type EmergencyFund struct {
	Status       EmergencyFundStatus `json:"status"`
	TargetAmount float64             `json:"targetAmount"`
}

// CategoryAmount is one category's expense total for the current month,
// with the preceding month for month-over-month comparison.
type CategoryAmount struct {
	MoMPercent     *float64 `json:"momPercent"`
	CategoryID     string   `json:"categoryId"`
	Name           string   `json:"name"`
	Amount         float64  `json:"amount"`
	PreviousAmount float64  `json:"previousAmount"`
}

// TrendPoint is one month of the cashflow trend series.
type TrendPoint struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// BudgetAdherence reports spend against one budget.
type BudgetAdherence struct {
	CategoryID      string      `json:"categoryId"`
	CategoryName    string      `json:"categoryName"`
	Month           string      `json:"month"`
	Status          BudgetState `json:"status"`
	LimitAmount     float64     `json:"limitAmount"`
	SpentAmount     float64     `json:"spentAmount"`
	RemainingAmount float64     `json:"remainingAmount"`
	PercentUsed     float64     `json:"percentUsed"`
}

// RecurringOutflows summarizes monthly-normalized recurring spend.
type RecurringOutflows struct {
	Items        []RecurringItem `json:"items"`
	MonthlyTotal float64         `json:"monthlyTotal"`
	BurdenRatio  float64         `json:"burdenRatio"`
}

// RecurringItem is one recurring rule normalized to a monthly amount.
type RecurringItem struct {
	Label         string           `json:"label"`
	Cadence       RecurringCadence `json:"cadence"`
	Amount        float64          `json:"amount"`
	MonthlyAmount float64          `json:"monthlyAmount"`
}

// Flags carries the derived boolean signals.
type Flags struct {
	NegativeCashflow bool `json:"negativeCashflow"`
	LowSavingsRate   bool `json:"lowSavingsRate"`
	IrregularIncome  bool `json:"irregularIncome"`
	AnomalyCount     int  `json:"anomalyCount"`
}

// Advice is the narrative section of the insight. It is produced either by
// the validated provider output or by the deterministic synthesizer; both
// paths emit this exact shape.
type Advice struct {
	Summary             string              `json:"summary"`
	TopFindings         []string            `json:"topFindings"`
	SuggestedActions    []string            `json:"suggestedActions"`
	Warnings            []string            `json:"warnings"`
	Savings             SavingsAdvice       `json:"savings"`
	Investment          InvestmentAdvice    `json:"investment"`
	ExpenseOptimization ExpenseOptimization `json:"expenseOptimization"`
	Tips                []string            `json:"tips"`
}

// SavingsAdvice compares the user's savings rate against their target.
type SavingsAdvice struct {
	Recommendation      string  `json:"recommendation"`
	TargetRate          float64 `json:"targetRate"`
	CurrentRate         float64 `json:"currentRate"`
	MonthlyTargetAmount float64 `json:"monthlyTargetAmount"`
}

// InvestmentAdvice always carries all three risk profiles, the user's
// preferred profile first.
type InvestmentAdvice struct {
	Profiles []InvestmentProfile `json:"profiles"`
}

// InvestmentProfile is one risk level's options and rationale.
type InvestmentProfile struct {
	RiskLevel RiskProfile `json:"riskLevel"`
	Rationale string      `json:"rationale"`
	Options   []string    `json:"options"`
}

// ExpenseOptimization lists concrete places to cut spending.
type ExpenseOptimization struct {
	CutCandidates           []CutCandidate `json:"cutCandidates"`
	EstimatedMonthlySavings float64        `json:"estimatedMonthlySavings"`
}

// CutCandidate names a category or merchant worth trimming. CurrentAmount
// is resolved by the assembler against the computed breakdowns.
type CutCandidate struct {
	Label            string  `json:"label"`
	CurrentAmount    float64 `json:"currentAmount"`
	ReductionPercent float64 `json:"reductionPercent"`
}
