package advisor

import (
	"sort"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// Heuristic constants. Kept as variables so deployments can tune them; the
// defaults match observed behavior, not a derived model.
var (
	// WeeksPerMonth normalizes weekly recurring rules to monthly amounts.
	WeeksPerMonth = 4.345
	// MaxBurdenRatio caps the recurring burden ratio.
	MaxBurdenRatio = 5.0
	// AnomalyFloor is the minimum anomaly threshold.
	AnomalyFloor = 200.0
	// AnomalyMedianMultiplier scales the expense median into a threshold.
	AnomalyMedianMultiplier = 2.2
	// IrregularIncomeRatio is the max/min income ratio that flags income
	// as irregular.
	IrregularIncomeRatio = 1.5
)

// maxAnomalies bounds how many anomalous expenses are reported.
const maxAnomalies = 5

// Anomaly is one unusually large expense.
type Anomaly struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Metrics holds the derived figures computed from an aggregation. All
// computation here is pure; no I/O.
type Metrics struct {
	MoMIncomePercent  *float64
	MoMExpensePercent *float64
	Anomalies         []Anomaly
	BurdenRatio       float64
	AnomalyThreshold  float64
	SavingsRate       float64
	NegativeCashflow  bool
	LowSavingsRate    bool
	IrregularIncome   bool
}

// MoMPercent computes the month-over-month change percentage. A previous
// value of zero (or less) yields nil, except when current is positive,
// which reports a flat 100.
func MoMPercent(current, previous float64) *float64 {
	if previous <= 0 {
		if current > 0 {
			v := 100.0
			return &v
		}
		return nil
	}
	v := round2((current - previous) / previous * 100)
	return &v
}

// RecurringBurdenRatio divides monthly-normalized recurring outflow by the
// current-month expense, clamped to [0, MaxBurdenRatio].
func RecurringBurdenRatio(monthlyRecurring, monthExpense float64) float64 {
	if monthExpense <= 0 {
		return 0
	}
	ratio := monthlyRecurring / monthExpense
	if ratio < 0 {
		return 0
	}
	if ratio > MaxBurdenRatio {
		return MaxBurdenRatio
	}
	return ratio
}

// AnomalyThreshold returns max(AnomalyFloor, median(amounts) * multiplier).
func AnomalyThreshold(amounts []float64) float64 {
	threshold := median(amounts) * AnomalyMedianMultiplier
	if threshold < AnomalyFloor {
		threshold = AnomalyFloor
	}
	return threshold
}

// DetectAnomalies returns the current-month expenses at or above the
// threshold, largest first, capped at maxAnomalies.
func DetectAnomalies(expenses []ExpenseRecord, threshold float64) []Anomaly {
	var anomalies []Anomaly
	for _, e := range expenses {
		if e.Amount >= threshold {
			anomalies = append(anomalies, Anomaly{Label: e.Label, Amount: e.Amount})
		}
	}
	sort.Slice(anomalies, func(i, j int) bool {
		return anomalies[i].Amount > anomalies[j].Amount
	})
	if len(anomalies) > maxAnomalies {
		anomalies = anomalies[:maxAnomalies]
	}
	return anomalies
}

// IrregularIncome reports whether the trend-month incomes look unstable:
// either the max/min ratio of positive months reaches the configured ratio,
// or exactly one month had income while another had none.
func IrregularIncome(trend []model.TrendPoint) bool {
	var positive []float64
	zeros := 0
	for _, p := range trend {
		if p.Income > 0 {
			positive = append(positive, p.Income)
		} else {
			zeros++
		}
	}

	if len(positive) >= 2 {
		minIncome, maxIncome := positive[0], positive[0]
		for _, v := range positive[1:] {
			if v < minIncome {
				minIncome = v
			}
			if v > maxIncome {
				maxIncome = v
			}
		}
		return maxIncome/minIncome >= IrregularIncomeRatio
	}

	return len(positive) == 1 && zeros > 0
}

// Derive computes all metrics from an aggregation and the user preferences.
func Derive(agg *Aggregation, prefs model.Preferences) Metrics {
	m := Metrics{
		NegativeCashflow: agg.MonthNet < 0,
		BurdenRatio:      RecurringBurdenRatio(agg.Recurring.MonthlyTotal, agg.MonthExpense),
	}

	if len(agg.Trend) >= 2 {
		prev := agg.Trend[len(agg.Trend)-2]
		m.MoMIncomePercent = MoMPercent(agg.MonthIncome, prev.Income)
		m.MoMExpensePercent = MoMPercent(agg.MonthExpense, prev.Expense)
	}

	amounts := make([]float64, len(agg.Expenses))
	for i, e := range agg.Expenses {
		amounts[i] = e.Amount
	}
	m.AnomalyThreshold = AnomalyThreshold(amounts)
	m.Anomalies = DetectAnomalies(agg.Expenses, m.AnomalyThreshold)

	if agg.MonthIncome > 0 {
		m.SavingsRate = round2(agg.MonthNet / agg.MonthIncome * 100)
		m.LowSavingsRate = m.SavingsRate < prefs.SavingsTargetRate
	}

	m.IrregularIncome = IrregularIncome(agg.Trend)

	return m
}

// median returns the middle value of the inputs, 0 for an empty slice.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
