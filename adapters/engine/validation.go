package engine

import (
	"fmt"
	"regexp"
	"strings"

	"surveyclean/adapters/engine/expr"
	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
	"surveyclean/internal"
)

// ValidationEngine evaluates declarative rules against a table, attaching a
// boolean violation column per rule with at least one violation
type ValidationEngine struct {
	log *internal.Logger
}

// NewValidationEngine creates a validation engine. A nil logger falls back to
// the default logger.
func NewValidationEngine(logger *internal.Logger) *ValidationEngine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ValidationEngine{log: logger.Named("validation")}
}

// ValidateData applies the configured rules in order and returns the table
// with violation flag columns plus validation statistics
func (e *ValidationEngine) ValidateData(tbl *table.Table, cfg cleaning.ValidationConfig) (*table.Table, *cleaning.ValidationStats, error) {
	if err := tbl.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate: %w", err)
	}

	out := tbl.Clone()
	n := tbl.NumRows()
	result := &cleaning.ValidationStats{
		RulesApplied: []cleaning.RuleResult{},
		Log:          []string{},
	}

	for idx, rule := range cfg.Rules {
		name := rule.Name
		if name == "" {
			name = fmt.Sprintf("rule_%d", idx)
		}

		ruleType, err := cleaning.ParseRuleType(rule.Type)
		if err != nil {
			e.log.Warn("unknown validation rule type %q for rule %q", rule.Type, name)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: name, Reason: cleaning.SkipUnsupportedRule, Detail: rule.Type,
			})
			continue
		}

		e.log.Info("applying validation rule %q (%s)", name, ruleType)

		violations, skip := e.applyRule(out, ruleType, rule.Params)
		if skip != nil {
			skip.Unit = name
			e.log.Warn("rule %q skipped: %s %s", name, skip.Reason, skip.Detail)
			result.Skipped = append(result.Skipped, *skip)
			continue
		}

		count := 0
		for _, v := range violations {
			if v {
				count++
			}
		}
		if count > 0 {
			flagCol := table.NewColumn(name+"_violation", table.TypeBoolean)
			for _, v := range violations {
				flagCol.Cells = append(flagCol.Cells, table.Boolean(v))
			}
			// Duplicate rule names or a re-run overwrite the existing flag
			if err := out.SetColumn(flagCol); err != nil {
				return nil, nil, fmt.Errorf("validate: %w", err)
			}
		}

		result.RulesApplied = append(result.RulesApplied, cleaning.RuleResult{
			RuleName:      name,
			RuleType:      ruleType,
			Violations:    count,
			ViolationRate: float64(count) / float64(n) * 100,
		})
		result.Log = append(result.Log, fmt.Sprintf("Rule %q: %d violations found", name, count))
		result.TotalViolations += count
	}
	return out, result, nil
}

// applyRule evaluates one rule and returns its per-row violation mask. A
// non-nil skip means the rule could not be evaluated; the reason carries why.
func (e *ValidationEngine) applyRule(tbl *table.Table, ruleType cleaning.RuleType, params cleaning.RuleParams) ([]bool, *cleaning.SkippedUnit) {
	switch ruleType {
	case cleaning.RuleRangeCheck:
		return e.rangeCheck(tbl, params)
	case cleaning.RuleConsistencyCheck:
		return e.consistencyCheck(tbl, params)
	case cleaning.RuleSkipPattern:
		return e.skipPatternCheck(tbl, params)
	case cleaning.RuleFormatCheck:
		return e.formatCheck(tbl, params)
	case cleaning.RuleLogicalCheck:
		return e.logicalCheck(tbl, params)
	case cleaning.RuleCompletenessCheck:
		return e.completenessCheck(tbl, params)
	}
	return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipUnsupportedRule}
}

// rangeCheck flags non-missing values strictly outside [min, max]; either
// bound is optional
func (e *ValidationEngine) rangeCheck(tbl *table.Table, params cleaning.RuleParams) ([]bool, *cleaning.SkippedUnit) {
	col, ok := tbl.Column(params.Column)
	if !ok {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipColumnNotFound, Detail: params.Column}
	}

	violations := make([]bool, col.Len())
	for i, cell := range col.Cells {
		v, present := cell.Float()
		if !present {
			continue
		}
		if params.MinValue != nil && v < *params.MinValue {
			violations[i] = true
		}
		if params.MaxValue != nil && v > *params.MaxValue {
			violations[i] = true
		}
	}
	return violations, nil
}

// consistencyCheck flags rows where the stated relationship between two
// columns fails; rows with either operand missing are exempt
func (e *ValidationEngine) consistencyCheck(tbl *table.Table, params cleaning.RuleParams) ([]bool, *cleaning.SkippedUnit) {
	primary, ok := tbl.Column(params.PrimaryColumn)
	if !ok {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipColumnNotFound, Detail: params.PrimaryColumn}
	}
	related, ok := tbl.Column(params.RelatedColumn)
	if !ok {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipColumnNotFound, Detail: params.RelatedColumn}
	}
	rel, err := cleaning.ParseRelationship(params.Relationship)
	if err != nil {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipEvaluationFailed, Detail: params.Relationship}
	}

	violations := make([]bool, primary.Len())
	for i := range primary.Cells {
		a, b := primary.Cells[i], related.Cells[i]
		if a.IsMissing || b.IsMissing {
			continue
		}
		switch rel {
		case cleaning.RelEqual:
			violations[i] = !a.Equal(b)
		case cleaning.RelNotEqual:
			violations[i] = a.Equal(b)
		case cleaning.RelGreaterThan:
			if cmp, comparable := a.Compare(b); comparable {
				violations[i] = cmp <= 0
			}
		case cleaning.RelLessThan:
			if cmp, comparable := a.Compare(b); comparable {
				violations[i] = cmp >= 0
			}
		}
	}
	return violations, nil
}

// skipPatternCheck enforces conditional applicability: when the condition
// column matches the condition value, the target column must equal the
// expected value, or be missing when no expected value is configured
func (e *ValidationEngine) skipPatternCheck(tbl *table.Table, params cleaning.RuleParams) ([]bool, *cleaning.SkippedUnit) {
	condition, ok := tbl.Column(params.ConditionColumn)
	if !ok {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipColumnNotFound, Detail: params.ConditionColumn}
	}
	target, ok := tbl.Column(params.TargetColumn)
	if !ok {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipColumnNotFound, Detail: params.TargetColumn}
	}

	violations := make([]bool, condition.Len())
	for i := range condition.Cells {
		if !matchValue(condition.Cells[i], params.ConditionValue) {
			continue
		}
		targetCell := target.Cells[i]
		if params.ExpectedValue == nil {
			// Target must be unanswered when the condition applies
			violations[i] = !targetCell.IsMissing
		} else {
			violations[i] = targetCell.IsMissing || !matchValue(targetCell, params.ExpectedValue)
		}
	}
	return violations, nil
}

// formatCheck flags non-missing values that do not fully match the pattern
func (e *ValidationEngine) formatCheck(tbl *table.Table, params cleaning.RuleParams) ([]bool, *cleaning.SkippedUnit) {
	col, ok := tbl.Column(params.Column)
	if !ok {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipColumnNotFound, Detail: params.Column}
	}
	if params.Pattern == "" {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipEvaluationFailed, Detail: "empty pattern"}
	}
	re, err := regexp.Compile("^(?:" + params.Pattern + ")$")
	if err != nil {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipEvaluationFailed, Detail: err.Error()}
	}

	violations := make([]bool, col.Len())
	for i, cell := range col.Cells {
		if cell.IsMissing {
			continue
		}
		violations[i] = !re.MatchString(cell.String())
	}
	return violations, nil
}

// logicalCheck evaluates a boolean expression per row; rows where the
// expression is false or fails to evaluate are violations. A parse failure
// skips the whole rule.
func (e *ValidationEngine) logicalCheck(tbl *table.Table, params cleaning.RuleParams) ([]bool, *cleaning.SkippedUnit) {
	if params.Expression == "" {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipEvaluationFailed, Detail: "empty expression"}
	}
	compiled, err := expr.Parse(params.Expression)
	if err != nil {
		return nil, &cleaning.SkippedUnit{Reason: cleaning.SkipEvaluationFailed, Detail: err.Error()}
	}

	n := tbl.NumRows()
	violations := make([]bool, n)
	for i := 0; i < n; i++ {
		holds, err := compiled.Eval(tbl, i)
		if err != nil || !holds {
			violations[i] = true
		}
	}
	return violations, nil
}

// completenessCheck flags rows meeting the optional condition that are
// missing any of the required columns
func (e *ValidationEngine) completenessCheck(tbl *table.Table, params cleaning.RuleParams) ([]bool, *cleaning.SkippedUnit) {
	n := tbl.NumRows()
	conditionMet := make([]bool, n)
	for i := range conditionMet {
		conditionMet[i] = true
	}

	if params.Condition != "" {
		if compiled, err := expr.Parse(params.Condition); err == nil {
			for i := 0; i < n; i++ {
				holds, evalErr := compiled.Eval(tbl, i)
				// Rows the condition cannot be evaluated on stay required
				conditionMet[i] = evalErr != nil || holds
			}
		} else {
			e.log.Warn("completeness condition %q failed to parse, requiring all rows: %v", params.Condition, err)
		}
	}

	violations := make([]bool, n)
	for _, required := range params.RequiredColumns {
		col, ok := tbl.Column(required)
		if !ok {
			continue
		}
		for i, cell := range col.Cells {
			if conditionMet[i] && cell.IsMissing {
				violations[i] = true
			}
		}
	}
	return violations, nil
}

// Report builds the comprehensive validation report, recounting violations
// from the flag columns attached to the validated table as a cross-check of
// the per-rule stats
func (e *ValidationEngine) Report(validated *table.Table, stats *cleaning.ValidationStats) *cleaning.ValidationReport {
	n := validated.NumRows()
	report := &cleaning.ValidationReport{
		TotalRecords:    n,
		TotalViolations: stats.TotalViolations,
		RulesApplied:    len(stats.RulesApplied),
		RuleDetails:     stats.RulesApplied,
		Log:             stats.Log,
	}
	if n > 0 {
		report.ViolationRate = float64(stats.TotalViolations) / float64(n) * 100
	}

	byRule := make(map[string]cleaning.RuleViolationSummary)
	for _, col := range validated.Columns() {
		if !strings.HasSuffix(col.Name, "_violation") {
			continue
		}
		count := 0
		for _, cell := range col.Cells {
			if cell.BooleanVal != nil && *cell.BooleanVal {
				count++
			}
		}
		summary := cleaning.RuleViolationSummary{Violations: count}
		if n > 0 {
			summary.ViolationRate = float64(count) / float64(n) * 100
		}
		byRule[strings.TrimSuffix(col.Name, "_violation")] = summary
	}
	if len(byRule) > 0 {
		report.ViolationsByRule = byRule
	}
	return report
}

// matchValue compares a cell against a wire-level scalar (JSON decodes
// numbers to float64, everything else to string or bool)
func matchValue(cell table.Value, raw interface{}) bool {
	if raw == nil || cell.IsMissing {
		return false
	}
	switch v := raw.(type) {
	case float64:
		f, ok := cell.Float()
		return ok && f == v
	case int:
		f, ok := cell.Float()
		return ok && f == float64(v)
	case string:
		return cell.StringVal != nil && *cell.StringVal == v
	case bool:
		return cell.BooleanVal != nil && *cell.BooleanVal == v
	}
	return false
}

// SuggestRules proposes common validation rules from the data itself: range
// checks for age-like columns, an income-versus-expense logical check, and
// format checks for ISO-date-looking text columns
func (e *ValidationEngine) SuggestRules(tbl *table.Table, surveyHint string) []cleaning.Rule {
	var suggestions []cleaning.Rule

	for _, col := range tbl.Columns() {
		if strings.Contains(strings.ToLower(col.Name), "age") {
			minVal, maxVal := 0.0, 120.0
			suggestions = append(suggestions, cleaning.Rule{
				Type: string(cleaning.RuleRangeCheck),
				Name: col.Name + "_range_check",
				Params: cleaning.RuleParams{
					Column:   col.Name,
					MinValue: &minVal,
					MaxValue: &maxVal,
				},
				Description: fmt.Sprintf("Age values should be between 0 and 120 for column %s", col.Name),
			})
		}
	}

	income := firstColumnMatching(tbl, []string{"income", "salary", "wage"})
	expense := firstColumnMatching(tbl, []string{"expense", "expenditure", "cost"})
	if income != "" && expense != "" {
		suggestions = append(suggestions, cleaning.Rule{
			Type: string(cleaning.RuleLogicalCheck),
			Name: "income_expense_logic",
			Params: cleaning.RuleParams{
				Expression: fmt.Sprintf("%s >= %s || isnull(%s) || isnull(%s)",
					income, expense, income, expense),
			},
			Description: "Income should generally be greater than or equal to expenses",
		})
	}

	isoDate := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	for _, col := range tbl.Columns() {
		if col.Type != table.TypeCategorical {
			continue
		}
		sampled := 0
		looksLikeDate := false
		for _, cell := range col.Cells {
			if cell.IsMissing {
				continue
			}
			if isoDate.MatchString(cell.String()) {
				looksLikeDate = true
				break
			}
			sampled++
			if sampled >= 10 {
				break
			}
		}
		if looksLikeDate {
			suggestions = append(suggestions, cleaning.Rule{
				Type: string(cleaning.RuleFormatCheck),
				Name: col.Name + "_date_format",
				Params: cleaning.RuleParams{
					Column:  col.Name,
					Pattern: `\d{4}-\d{2}-\d{2}`,
				},
				Description: fmt.Sprintf("Date format validation for column %s", col.Name),
			})
		}
	}
	return suggestions
}

// firstColumnMatching returns the first column whose lowercased name contains
// any of the keywords
func firstColumnMatching(tbl *table.Table, keywords []string) string {
	for _, col := range tbl.Columns() {
		lower := strings.ToLower(col.Name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return col.Name
			}
		}
	}
	return ""
}
