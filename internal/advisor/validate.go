package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// MergePolicy controls how provider output that fails validation is handled.
type MergePolicy string

// Merge policies. Strict rejects the whole provider output on any shape
// violation; Merge substitutes only the invalid sections with fallback ones.
const (
	PolicyStrict MergePolicy = "strict"
	PolicyMerge  MergePolicy = "merge"
)

var (
	errAdviceParse = errors.New("advice parse failed")
	errAdviceShape = errors.New("advice validation failed")
)

// Validation bounds for provider output.
const (
	maxSummaryLen   = 1500
	maxFindings     = 8
	maxFindingLen   = 320
	maxActions      = 10
	maxActionLen    = 280
	maxWarnings     = 8
	maxWarningLen   = 280
	maxTips         = 10
	maxTipLen       = 240
	maxRationaleLen = 400
	maxOptionLen    = 120
	maxOptions      = 6
	maxCutLabelLen  = 80
	maxCutCandidates = 6
)

var bulletMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// ExtractJSON pulls a JSON object out of raw provider text, tolerating
// markdown code fences and surrounding prose. Falls back to the first
// balanced {...} span.
func ExtractJSON(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return []byte(s), nil
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	depth, inString, escaped := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := []byte(s[start : i+1])
				if !json.Valid(candidate) {
					return nil, fmt.Errorf("extracted span is not valid JSON")
				}
				return candidate, nil
			}
		}
	}

	return nil, fmt.Errorf("unbalanced JSON object in response")
}

// looseAdvice mirrors model.Advice but leaves list-shaped fields raw so
// bare strings can be coerced into arrays.
type looseAdvice struct {
	Savings             *model.SavingsAdvice       `json:"savings"`
	ExpenseOptimization *model.ExpenseOptimization `json:"expenseOptimization"`
	Investment          *struct {
		Profiles []struct {
			RiskLevel model.RiskProfile `json:"riskLevel"`
			Rationale string            `json:"rationale"`
			Options   json.RawMessage   `json:"options"`
		} `json:"profiles"`
	} `json:"investment"`
	Summary          string          `json:"summary"`
	TopFindings      json.RawMessage `json:"topFindings"`
	SuggestedActions json.RawMessage `json:"suggestedActions"`
	Warnings         json.RawMessage `json:"warnings"`
	Tips             json.RawMessage `json:"tips"`
}

// CoerceAdvice parses provider JSON into the advice shape, converting
// bare-string list fields into arrays of bullet lines.
func CoerceAdvice(data []byte) (*model.Advice, error) {
	var loose looseAdvice
	if err := json.Unmarshal(data, &loose); err != nil {
		return nil, fmt.Errorf("failed to parse advice JSON: %w", err)
	}

	advice := &model.Advice{Summary: strings.TrimSpace(loose.Summary)}

	var err error
	if advice.TopFindings, err = coerceStringList(loose.TopFindings); err != nil {
		return nil, fmt.Errorf("topFindings: %w", err)
	}
	if advice.SuggestedActions, err = coerceStringList(loose.SuggestedActions); err != nil {
		return nil, fmt.Errorf("suggestedActions: %w", err)
	}
	if advice.Warnings, err = coerceStringList(loose.Warnings); err != nil {
		return nil, fmt.Errorf("warnings: %w", err)
	}
	if advice.Tips, err = coerceStringList(loose.Tips); err != nil {
		return nil, fmt.Errorf("tips: %w", err)
	}

	if loose.Savings != nil {
		advice.Savings = *loose.Savings
	}
	if loose.ExpenseOptimization != nil {
		advice.ExpenseOptimization = *loose.ExpenseOptimization
	}
	if loose.Investment != nil {
		for _, p := range loose.Investment.Profiles {
			options, optErr := coerceStringList(p.Options)
			if optErr != nil {
				return nil, fmt.Errorf("investment options: %w", optErr)
			}
			advice.Investment.Profiles = append(advice.Investment.Profiles, model.InvestmentProfile{
				RiskLevel: p.RiskLevel,
				Rationale: strings.TrimSpace(p.Rationale),
				Options:   options,
			})
		}
	}

	return advice, nil
}

// coerceStringList accepts either a JSON string array or a bare string.
// Bare strings are split into bullet lines with leading markers stripped.
func coerceStringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return splitBullets(single), nil
	}

	return nil, fmt.Errorf("expected string array or string, got %s", snippet(raw))
}

func splitBullets(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = bulletMarker.ReplaceAllString(line, "")
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = []string{trimmed}
		}
	}
	return out
}

func snippet(raw json.RawMessage) string {
	s := string(raw)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}

// ValidateAdvice enforces the full schema bounds. Any violation rejects
// the advice under the strict policy.
func ValidateAdvice(a *model.Advice) error {
	if err := validateSummary(a.Summary); err != nil {
		return err
	}
	if err := validateList("topFindings", a.TopFindings, 1, maxFindings, maxFindingLen); err != nil {
		return err
	}
	if err := validateList("suggestedActions", a.SuggestedActions, 1, maxActions, maxActionLen); err != nil {
		return err
	}
	if err := validateList("warnings", a.Warnings, 0, maxWarnings, maxWarningLen); err != nil {
		return err
	}
	if err := validateList("tips", a.Tips, 0, maxTips, maxTipLen); err != nil {
		return err
	}
	if err := validateSavings(&a.Savings); err != nil {
		return err
	}
	if err := validateInvestment(&a.Investment); err != nil {
		return err
	}
	return validateExpenseOptimization(&a.ExpenseOptimization)
}

func validateSummary(summary string) error {
	n := utf8.RuneCountInString(summary)
	if n == 0 {
		return fmt.Errorf("summary is required")
	}
	if n > maxSummaryLen {
		return fmt.Errorf("summary exceeds %d characters", maxSummaryLen)
	}
	return nil
}

func validateList(field string, items []string, minItems, maxItems, maxLen int) error {
	if len(items) < minItems {
		return fmt.Errorf("%s requires at least %d items", field, minItems)
	}
	if len(items) > maxItems {
		return fmt.Errorf("%s exceeds %d items", field, maxItems)
	}
	for i, item := range items {
		n := utf8.RuneCountInString(item)
		if n == 0 {
			return fmt.Errorf("%s[%d] is empty", field, i)
		}
		if n > maxLen {
			return fmt.Errorf("%s[%d] exceeds %d characters", field, i, maxLen)
		}
	}
	return nil
}

func validateSavings(s *model.SavingsAdvice) error {
	if s.Recommendation == "" {
		return fmt.Errorf("savings recommendation is required")
	}
	if s.TargetRate < 0 || s.TargetRate > 100 {
		return fmt.Errorf("savings target rate out of range: %v", s.TargetRate)
	}
	if s.CurrentRate < -100 || s.CurrentRate > 100 {
		return fmt.Errorf("savings current rate out of range: %v", s.CurrentRate)
	}
	if s.MonthlyTargetAmount < 0 {
		return fmt.Errorf("savings monthly target must not be negative")
	}
	return nil
}

func validateInvestment(inv *model.InvestmentAdvice) error {
	if len(inv.Profiles) != 3 {
		return fmt.Errorf("investment requires exactly 3 profiles, got %d", len(inv.Profiles))
	}
	seen := make(map[model.RiskProfile]bool, 3)
	for i, p := range inv.Profiles {
		switch p.RiskLevel {
		case model.RiskLow, model.RiskMedium, model.RiskHigh:
		default:
			return fmt.Errorf("investment profile %d has invalid risk level %q", i, p.RiskLevel)
		}
		if seen[p.RiskLevel] {
			return fmt.Errorf("duplicate investment risk level %q", p.RiskLevel)
		}
		seen[p.RiskLevel] = true

		if p.Rationale == "" || utf8.RuneCountInString(p.Rationale) > maxRationaleLen {
			return fmt.Errorf("investment profile %q rationale out of bounds", p.RiskLevel)
		}
		if len(p.Options) == 0 || len(p.Options) > maxOptions {
			return fmt.Errorf("investment profile %q requires 1-%d options", p.RiskLevel, maxOptions)
		}
		for _, opt := range p.Options {
			if opt == "" || utf8.RuneCountInString(opt) > maxOptionLen {
				return fmt.Errorf("investment profile %q option out of bounds", p.RiskLevel)
			}
		}
	}
	return nil
}

func validateExpenseOptimization(opt *model.ExpenseOptimization) error {
	if len(opt.CutCandidates) > maxCutCandidates {
		return fmt.Errorf("expenseOptimization exceeds %d cut candidates", maxCutCandidates)
	}
	for i, c := range opt.CutCandidates {
		if c.Label == "" || utf8.RuneCountInString(c.Label) > maxCutLabelLen {
			return fmt.Errorf("cut candidate %d label out of bounds", i)
		}
		if c.ReductionPercent < 0 || c.ReductionPercent > 100 {
			return fmt.Errorf("cut candidate %d reduction percent out of range: %v", i, c.ReductionPercent)
		}
		if c.CurrentAmount < 0 {
			return fmt.Errorf("cut candidate %d amount must not be negative", i)
		}
	}
	if opt.EstimatedMonthlySavings < 0 {
		return fmt.Errorf("estimated monthly savings must not be negative")
	}
	return nil
}

// ResolveAdvice turns raw provider text into validated advice. Under the
// strict policy any violation fails the whole output; under the merge
// policy invalid sections are replaced by the fallback's sections and the
// replacement count is reported.
func ResolveAdvice(raw string, fallback *model.Advice, policy MergePolicy) (*model.Advice, int, error) {
	data, err := ExtractJSON(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errAdviceParse, err)
	}

	advice, err := CoerceAdvice(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errAdviceParse, err)
	}

	if policy == PolicyStrict {
		if err := ValidateAdvice(advice); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", errAdviceShape, err)
		}
		return advice, 0, nil
	}

	replaced := 0
	if validateSummary(advice.Summary) != nil {
		advice.Summary = fallback.Summary
		replaced++
	}
	if validateList("topFindings", advice.TopFindings, 1, maxFindings, maxFindingLen) != nil {
		advice.TopFindings = fallback.TopFindings
		replaced++
	}
	if validateList("suggestedActions", advice.SuggestedActions, 1, maxActions, maxActionLen) != nil {
		advice.SuggestedActions = fallback.SuggestedActions
		replaced++
	}
	if validateList("warnings", advice.Warnings, 0, maxWarnings, maxWarningLen) != nil {
		advice.Warnings = fallback.Warnings
		replaced++
	}
	if validateList("tips", advice.Tips, 0, maxTips, maxTipLen) != nil {
		advice.Tips = fallback.Tips
		replaced++
	}
	if validateSavings(&advice.Savings) != nil {
		advice.Savings = fallback.Savings
		replaced++
	}
	if validateInvestment(&advice.Investment) != nil {
		advice.Investment = fallback.Investment
		replaced++
	}
	if validateExpenseOptimization(&advice.ExpenseOptimization) != nil {
		advice.ExpenseOptimization = fallback.ExpenseOptimization
		replaced++
	}

	return advice, replaced, nil
}
