package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// trailingMonths is the aggregation window: the requested month plus the
// two before it.
const trailingMonths = 3

// minMerchantOccurrences is the cutoff below which a normalized merchant
// label is not worth reporting.
const minMerchantOccurrences = 2

// ExpenseRecord is one current-month expense kept for anomaly detection.
type ExpenseRecord struct {
	OccurredAt time.Time
	Label      string
	Amount     float64
}

// MerchantTotal is aggregated spend for one normalized merchant label.
type MerchantTotal struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// Aggregation is an immutable snapshot of all computed figures for one
// (user, month) pair. It is built fresh on every non-cached invocation.
type Aggregation struct {
	MonthStart   time.Time
	MonthEnd     time.Time
	Month        string
	Currency     string
	Categories   []model.CategoryAmount
	Merchants    []MerchantTotal
	Budgets      []model.BudgetAdherence
	Trend        []model.TrendPoint
	Expenses     []ExpenseRecord
	Recurring    model.RecurringOutflows
	MonthIncome  float64
	MonthExpense float64
	MonthNet     float64
	Last30Income  float64
	Last30Expense float64
	Last30Net     float64
	TotalBalance  float64
}

// Aggregator reads raw financial records and produces normalized totals.
type Aggregator struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger, now: time.Now}
}

// Aggregate fetches all records in the trailing window and computes the
// monthly and 30-day totals, category and merchant breakdowns, budget
// adherence, recurring outflows and the cashflow trend.
func (a *Aggregator) Aggregate(ctx context.Context, userID, month string) (*Aggregation, error) {
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q: %w", month, err)
	}
	monthEnd := monthStart.AddDate(0, 1, 0)
	windowStart := monthStart.AddDate(0, -(trailingMonths - 1), 0)

	var (
		accounts []model.Account
		txns     []model.Transaction
		budgets  []model.Budget
		rules    []model.RecurringRule
		balances []model.AccountBalance
	)

	// The five base queries are independent; fan out and join.
	var wg sync.WaitGroup
	errs := make([]error, 5)
	wg.Add(5)
	go func() { defer wg.Done(); accounts, errs[0] = a.store.FindAccounts(ctx, userID) }()
	go func() { defer wg.Done(); txns, errs[1] = a.store.FindTransactions(ctx, userID, windowStart, monthEnd) }()
	go func() { defer wg.Done(); budgets, errs[2] = a.store.FindBudgets(ctx, userID, month) }()
	go func() { defer wg.Done(); rules, errs[3] = a.store.FindRecurringRules(ctx, userID) }()
	go func() { defer wg.Done(); balances, errs[4] = a.store.AggregateAccountBalances(ctx, userID) }()
	wg.Wait()

	for _, qerr := range errs {
		if qerr != nil {
			return nil, fmt.Errorf("aggregation query failed: %w", qerr)
		}
	}

	// Category lookup is deferred until the referenced IDs are known.
	categoryNames, err := a.resolveCategoryNames(ctx, userID, txns, budgets, rules)
	if err != nil {
		return nil, err
	}
	accountNames := make(map[string]string, len(accounts))
	for _, acct := range accounts {
		accountNames[acct.ID] = acct.Name
	}

	agg := &Aggregation{
		Month:      month,
		MonthStart: monthStart,
		MonthEnd:   monthEnd,
		Currency:   firstCurrency(accounts),
	}

	a.computeTrend(agg, txns)
	a.computeLast30(agg, txns)
	a.computeCategories(agg, txns, categoryNames)
	a.computeMerchants(agg, txns)
	a.computeBudgets(agg, txns, budgets, categoryNames)
	a.computeRecurring(agg, rules, categoryNames, accountNames)
	a.collectExpenses(agg, txns, categoryNames)

	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(decimal.NewFromFloat(b.Balance))
	}
	agg.TotalBalance = round2d(total)

	a.logger.Debug("aggregation complete",
		"user_id", userID,
		"month", month,
		"transactions", len(txns),
		"budgets", len(budgets),
		"recurring_rules", len(rules))

	return agg, nil
}

func (a *Aggregator) resolveCategoryNames(ctx context.Context, userID string, txns []model.Transaction, budgets []model.Budget, rules []model.RecurringRule) (map[string]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, t := range txns {
		add(t.CategoryID)
	}
	for _, b := range budgets {
		add(b.CategoryID)
	}
	for _, r := range rules {
		add(r.CategoryID)
	}

	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	categories, err := a.store.FindCategories(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("category lookup failed: %w", err)
	}
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

// computeTrend fills the per-month cashflow series, oldest first; the last
// point is the requested month and feeds the headline figures.
func (a *Aggregator) computeTrend(agg *Aggregation, txns []model.Transaction) {
	for i := -(trailingMonths - 1); i <= 0; i++ {
		start := agg.MonthStart.AddDate(0, i, 0)
		end := start.AddDate(0, 1, 0)

		income, expense := decimal.Zero, decimal.Zero
		for _, t := range txns {
			if t.OccurredAt.Before(start) || !t.OccurredAt.Before(end) {
				continue
			}
			switch t.Type {
			case model.TypeIncome:
				income = income.Add(decimal.NewFromFloat(t.Amount))
			case model.TypeExpense:
				expense = expense.Add(decimal.NewFromFloat(t.Amount))
			}
		}

		agg.Trend = append(agg.Trend, model.TrendPoint{
			Month:   start.Format("2006-01"),
			Income:  round2d(income),
			Expense: round2d(expense),
			Net:     round2d(income.Sub(expense)),
		})
	}

	current := agg.Trend[len(agg.Trend)-1]
	agg.MonthIncome = current.Income
	agg.MonthExpense = current.Expense
	agg.MonthNet = current.Net
}

// computeLast30 anchors the 30-day window at "today", clamped to the end of
// the requested month when that month is already in the past.
func (a *Aggregator) computeLast30(agg *Aggregation, txns []model.Transaction) {
	anchor := a.now().UTC()
	if agg.MonthEnd.Before(anchor) {
		anchor = agg.MonthEnd
	}
	from := anchor.AddDate(0, 0, -30)

	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txns {
		if t.OccurredAt.Before(from) || !t.OccurredAt.Before(anchor) {
			continue
		}
		switch t.Type {
		case model.TypeIncome:
			income = income.Add(decimal.NewFromFloat(t.Amount))
		case model.TypeExpense:
			expense = expense.Add(decimal.NewFromFloat(t.Amount))
		}
	}

	agg.Last30Income = round2d(income)
	agg.Last30Expense = round2d(expense)
	agg.Last30Net = round2d(income.Sub(expense))
}

// computeCategories produces the current-month expense breakdown with the
// preceding month alongside for month-over-month driver detection.
func (a *Aggregator) computeCategories(agg *Aggregation, txns []model.Transaction, names map[string]string) {
	prevStart := agg.MonthStart.AddDate(0, -1, 0)

	current := make(map[string]decimal.Decimal)
	previous := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Type != model.TypeExpense {
			continue
		}
		switch {
		case !t.OccurredAt.Before(agg.MonthStart) && t.OccurredAt.Before(agg.MonthEnd):
			current[t.CategoryID] = current[t.CategoryID].Add(decimal.NewFromFloat(t.Amount))
		case !t.OccurredAt.Before(prevStart) && t.OccurredAt.Before(agg.MonthStart):
			previous[t.CategoryID] = previous[t.CategoryID].Add(decimal.NewFromFloat(t.Amount))
		}
	}

	seen := make(map[string]struct{})
	for id := range current {
		seen[id] = struct{}{}
	}
	for id := range previous {
		seen[id] = struct{}{}
	}

	for id := range seen {
		amount := round2d(current[id])
		prev := round2d(previous[id])
		agg.Categories = append(agg.Categories, model.CategoryAmount{
			CategoryID:     id,
			Name:           categoryLabel(id, names),
			Amount:         amount,
			PreviousAmount: prev,
			MoMPercent:     MoMPercent(amount, prev),
		})
	}

	sort.Slice(agg.Categories, func(i, j int) bool {
		if agg.Categories[i].Amount != agg.Categories[j].Amount {
			return agg.Categories[i].Amount > agg.Categories[j].Amount
		}
		return agg.Categories[i].Name < agg.Categories[j].Name
	})
}

// computeMerchants aggregates current-month expenses by normalized
// description. Labels occurring fewer than twice are dropped.
func (a *Aggregator) computeMerchants(agg *Aggregation, txns []model.Transaction) {
	totals := make(map[string]*MerchantTotal)
	sums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Type != model.TypeExpense || t.OccurredAt.Before(agg.MonthStart) || !t.OccurredAt.Before(agg.MonthEnd) {
			continue
		}
		label := normalizeLabel(t.Description)
		if label == "" {
			continue
		}
		if _, ok := totals[label]; !ok {
			totals[label] = &MerchantTotal{Label: label}
		}
		totals[label].Count++
		sums[label] = sums[label].Add(decimal.NewFromFloat(t.Amount))
	}

	for label, mt := range totals {
		if mt.Count < minMerchantOccurrences {
			continue
		}
		mt.Amount = round2d(sums[label])
		agg.Merchants = append(agg.Merchants, *mt)
	}

	sort.Slice(agg.Merchants, func(i, j int) bool {
		if agg.Merchants[i].Amount != agg.Merchants[j].Amount {
			return agg.Merchants[i].Amount > agg.Merchants[j].Amount
		}
		return agg.Merchants[i].Label < agg.Merchants[j].Label
	})
}

func (a *Aggregator) computeBudgets(agg *Aggregation, txns []model.Transaction, budgets []model.Budget, names map[string]string) {
	spent := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Type != model.TypeExpense || t.OccurredAt.Before(agg.MonthStart) || !t.OccurredAt.Before(agg.MonthEnd) {
			continue
		}
		spent[t.CategoryID] = spent[t.CategoryID].Add(decimal.NewFromFloat(t.Amount))
	}

	for _, b := range budgets {
		limit := round2(b.LimitAmount)
		spentAmount := round2d(spent[b.CategoryID])

		var percent float64
		switch {
		case limit > 0:
			percent = round2(spentAmount / limit * 100)
		case spentAmount > 0:
			percent = 100
		}

		status := model.BudgetOnTrack
		switch {
		case percent >= 100:
			status = model.BudgetOverLimit
		case percent >= 80:
			status = model.BudgetNearLimit
		}

		agg.Budgets = append(agg.Budgets, model.BudgetAdherence{
			CategoryID:      b.CategoryID,
			CategoryName:    categoryLabel(b.CategoryID, names),
			Month:           b.Month,
			LimitAmount:     limit,
			SpentAmount:     spentAmount,
			RemainingAmount: round2(limit - spentAmount),
			PercentUsed:     percent,
			Status:          status,
		})
	}

	sort.Slice(agg.Budgets, func(i, j int) bool {
		return agg.Budgets[i].PercentUsed > agg.Budgets[j].PercentUsed
	})
}

// computeRecurring normalizes recurring outflows to monthly amounts.
// Weekly rules count 4.345 times per month.
func (a *Aggregator) computeRecurring(agg *Aggregation, rules []model.RecurringRule, names, accountNames map[string]string) {
	total := decimal.Zero
	for _, r := range rules {
		outflow := (r.Kind == model.KindNormal && r.Type == model.TypeExpense) || r.Kind == model.KindTransfer
		if !outflow {
			continue
		}

		monthly := decimal.NewFromFloat(r.Amount)
		if r.Cadence == model.CadenceWeekly {
			monthly = monthly.Mul(decimal.NewFromFloat(WeeksPerMonth))
		}

		label := categoryLabel(r.CategoryID, names)
		if r.Kind == model.KindTransfer {
			label = fmt.Sprintf("%s → %s", accountLabel(r.FromAccountID, accountNames), accountLabel(r.ToAccountID, accountNames))
		}

		item := model.RecurringItem{
			Label:         label,
			Cadence:       r.Cadence,
			Amount:        round2(r.Amount),
			MonthlyAmount: round2d(monthly),
		}
		agg.Recurring.Items = append(agg.Recurring.Items, item)
		total = total.Add(monthly)
	}

	sort.Slice(agg.Recurring.Items, func(i, j int) bool {
		return agg.Recurring.Items[i].MonthlyAmount > agg.Recurring.Items[j].MonthlyAmount
	})
	agg.Recurring.MonthlyTotal = round2d(total)
}

func (a *Aggregator) collectExpenses(agg *Aggregation, txns []model.Transaction, names map[string]string) {
	for _, t := range txns {
		if t.Type != model.TypeExpense || t.OccurredAt.Before(agg.MonthStart) || !t.OccurredAt.Before(agg.MonthEnd) {
			continue
		}
		label := strings.TrimSpace(t.Description)
		if label == "" {
			label = categoryLabel(t.CategoryID, names)
		}
		agg.Expenses = append(agg.Expenses, ExpenseRecord{
			OccurredAt: t.OccurredAt,
			Label:      label,
			Amount:     round2(t.Amount),
		})
	}
}

func categoryLabel(id string, names map[string]string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "Other"
}

func accountLabel(id string, names map[string]string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "Account"
}

func firstCurrency(accounts []model.Account) string {
	for _, a := range accounts {
		if a.Currency != "" {
			return a.Currency
		}
	}
	return "USD"
}

var diacriticsStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeLabel case-folds a merchant description and strips diacritics so
// "Café Luna" and "cafe luna" aggregate together.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if stripped, _, err := transform.String(diacriticsStripper, s); err == nil {
		s = stripped
	}
	return strings.Join(strings.Fields(s), " ")
}

// round2 rounds to 2 decimal places, half away from zero. All currency
// figures pass through here at every aggregation boundary.
func round2(v float64) float64 {
	return round2d(decimal.NewFromFloat(v))
}

func round2d(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
