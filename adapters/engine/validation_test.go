package engine

import (
	"math"
	"testing"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
)

func floatPtr(v float64) *float64 { return &v }

func TestValidationEngine_RangeCheck(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(
		table.FromFloats("age", []float64{25, 30, -5, 150, 40}))

	out, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type: "range_check",
			Name: "age_range",
			Params: cleaning.RuleParams{
				Column:   "age",
				MinValue: floatPtr(0),
				MaxValue: floatPtr(120),
			},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stats.TotalViolations != 2 {
		t.Errorf("Expected 2 violations, got %d", stats.TotalViolations)
	}
	if len(stats.RulesApplied) != 1 {
		t.Fatalf("Expected 1 rule applied, got %d", len(stats.RulesApplied))
	}
	if rate := stats.RulesApplied[0].ViolationRate; math.Abs(rate-40) > 1e-12 {
		t.Errorf("Expected 40%% violation rate, got %v", rate)
	}

	flag, ok := out.Column("age_range_violation")
	if !ok {
		t.Fatal("Expected age_range_violation column")
	}
	for i, want := range []bool{false, false, true, true, false} {
		if *flag.Cells[i].BooleanVal != want {
			t.Errorf("Row %d: expected violation %v", i, want)
		}
	}
}

func TestValidationEngine_RangeCheckMissingExempt(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(
		table.FromFloats("age", []float64{25, math.NaN(), 150}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type:   "range_check",
			Params: cleaning.RuleParams{Column: "age", MinValue: floatPtr(0), MaxValue: floatPtr(120)},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.TotalViolations != 1 {
		t.Errorf("Missing cell counted as violation: got %d", stats.TotalViolations)
	}
	if stats.RulesApplied[0].RuleName != "rule_0" {
		t.Errorf("Expected default name rule_0, got %q", stats.RulesApplied[0].RuleName)
	}
}

func TestValidationEngine_ConsistencyCheck(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("income", []float64{5000, 3000, 4000})).
		MustAddColumn(table.FromFloats("expenses", []float64{3000, 3500, 2000}))

	out, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type: "consistency_check",
			Name: "income_exceeds_expenses",
			Params: cleaning.RuleParams{
				PrimaryColumn: "income",
				RelatedColumn: "expenses",
				Relationship:  "greater_than",
			},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stats.TotalViolations != 1 {
		t.Fatalf("Expected exactly 1 violation, got %d", stats.TotalViolations)
	}
	flag, _ := out.Column("income_exceeds_expenses_violation")
	if !*flag.Cells[1].BooleanVal {
		t.Error("Expected the violation at row 1")
	}
	if *flag.Cells[0].BooleanVal || *flag.Cells[2].BooleanVal {
		t.Error("Unexpected violations at rows 0 or 2")
	}
}

func TestValidationEngine_ConsistencyCheckMissingExempt(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("a", []float64{1, math.NaN()})).
		MustAddColumn(table.FromFloats("b", []float64{2, 5}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type: "consistency_check",
			Params: cleaning.RuleParams{
				PrimaryColumn: "a", RelatedColumn: "b", Relationship: "greater_than",
			},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Row 0 violates (1 <= 2); row 1 has a missing operand and is exempt
	if stats.TotalViolations != 1 {
		t.Errorf("Expected 1 violation, got %d", stats.TotalViolations)
	}
}

func TestValidationEngine_SkipPattern(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromStrings("employed", []string{"yes", "no", "no"})).
		MustAddColumn(table.FromFloats("work_hours", []float64{40, 35, math.NaN()}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type: "skip_pattern",
			Name: "unemployed_no_hours",
			Params: cleaning.RuleParams{
				ConditionColumn: "employed",
				ConditionValue:  "no",
				TargetColumn:    "work_hours",
			},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Row 1 answered hours despite being unemployed; row 2 correctly skipped
	if stats.TotalViolations != 1 {
		t.Errorf("Expected 1 violation, got %d", stats.TotalViolations)
	}
}

func TestValidationEngine_SkipPatternExpectedValue(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromStrings("has_children", []string{"yes", "yes", "no"})).
		MustAddColumn(table.FromFloats("num_children", []float64{2, math.NaN(), math.NaN()}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type: "skip_pattern",
			Params: cleaning.RuleParams{
				ConditionColumn: "has_children",
				ConditionValue:  "yes",
				TargetColumn:    "num_children",
				ExpectedValue:   2.0,
			},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Row 1 should have reported two children but is missing
	if stats.TotalViolations != 1 {
		t.Errorf("Expected 1 violation, got %d", stats.TotalViolations)
	}
}

func TestValidationEngine_FormatCheck(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(
		table.FromStrings("survey_date", []string{"2024-01-15", "2024/01/15", "", "2024-12-01"}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type:   "format_check",
			Name:   "date_format",
			Params: cleaning.RuleParams{Column: "survey_date", Pattern: `\d{4}-\d{2}-\d{2}`},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// The slashed date violates; the missing cell is exempt
	if stats.TotalViolations != 1 {
		t.Errorf("Expected 1 violation, got %d", stats.TotalViolations)
	}
}

func TestValidationEngine_FormatCheckRequiresFullMatch(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(
		table.FromStrings("code", []string{"AB12", "AB123"}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type:   "format_check",
			Params: cleaning.RuleParams{Column: "code", Pattern: `[A-Z]{2}\d{2}`},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// AB123 matches as a prefix but not in full
	if stats.TotalViolations != 1 {
		t.Errorf("Expected 1 violation, got %d", stats.TotalViolations)
	}
}

func TestValidationEngine_LogicalCheck(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("income", []float64{5000, 2000, math.NaN()})).
		MustAddColumn(table.FromFloats("expenses", []float64{3000, 3500, 1000}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type: "logical_check",
			Name: "income_expense_logic",
			Params: cleaning.RuleParams{
				Expression: "income >= expenses || isnull(income) || isnull(expenses)",
			},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.TotalViolations != 1 {
		t.Errorf("Expected 1 violation, got %d", stats.TotalViolations)
	}
}

func TestValidationEngine_LogicalCheckParseErrorSkipsRule(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(table.FromFloats("x", []float64{1, 2}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type:   "logical_check",
			Name:   "broken",
			Params: cleaning.RuleParams{Expression: "x >="},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(stats.RulesApplied) != 0 {
		t.Errorf("Broken expression should not count as applied")
	}
	if len(stats.Skipped) != 1 || stats.Skipped[0].Reason != cleaning.SkipEvaluationFailed {
		t.Errorf("Expected evaluation_failed skip, got %+v", stats.Skipped)
	}
}

func TestValidationEngine_CompletenessCheck(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("age", []float64{25, 16, 30})).
		MustAddColumn(table.FromStrings("email", []string{"a@example.com", "", ""}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type: "completeness_check",
			Name: "adult_contact",
			Params: cleaning.RuleParams{
				RequiredColumns: []string{"email"},
				Condition:       "age >= 18",
			},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Row 2 is an adult missing email; row 1 is a minor and exempt
	if stats.TotalViolations != 1 {
		t.Errorf("Expected 1 violation, got %d", stats.TotalViolations)
	}
}

func TestValidationEngine_UnknownRuleType(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(table.FromFloats("x", []float64{1}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{Type: "magic_check", Name: "nope"}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(stats.RulesApplied) != 0 {
		t.Error("Unknown rule type must not count as applied")
	}
	if len(stats.Skipped) != 1 || stats.Skipped[0].Reason != cleaning.SkipUnsupportedRule {
		t.Errorf("Expected unsupported_rule_type skip, got %+v", stats.Skipped)
	}
}

func TestValidationEngine_MissingColumnSkipsRule(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(table.FromFloats("x", []float64{1, 2}))

	_, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type:   "range_check",
			Name:   "ghost",
			Params: cleaning.RuleParams{Column: "ghost_col", MinValue: floatPtr(0)},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(stats.Skipped) != 1 || stats.Skipped[0].Reason != cleaning.SkipColumnNotFound {
		t.Errorf("Expected column_not_found skip, got %+v", stats.Skipped)
	}
}

func TestValidationEngine_Report(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(
		table.FromFloats("age", []float64{25, -5, 150, 40}))

	out, stats, err := engine.ValidateData(tbl, cleaning.ValidationConfig{
		Rules: []cleaning.Rule{{
			Type:   "range_check",
			Name:   "age_range",
			Params: cleaning.RuleParams{Column: "age", MinValue: floatPtr(0), MaxValue: floatPtr(120)},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	report := engine.Report(out, stats)
	if report.TotalRecords != 4 {
		t.Errorf("Expected 4 records, got %d", report.TotalRecords)
	}
	if report.TotalViolations != 2 {
		t.Errorf("Expected 2 violations, got %d", report.TotalViolations)
	}
	recount, ok := report.ViolationsByRule["age_range"]
	if !ok {
		t.Fatal("Expected per-rule recount for age_range")
	}
	if recount.Violations != stats.RulesApplied[0].Violations {
		t.Errorf("Recount %d disagrees with rule stats %d",
			recount.Violations, stats.RulesApplied[0].Violations)
	}
	if math.Abs(report.ViolationRate-50) > 1e-12 {
		t.Errorf("Expected 50%% overall rate, got %v", report.ViolationRate)
	}
}

func TestValidationEngine_SuggestRules(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("age", []float64{25, 40})).
		MustAddColumn(table.FromFloats("household_income", []float64{5000, 4000})).
		MustAddColumn(table.FromFloats("monthly_expenses", []float64{3000, 3500})).
		MustAddColumn(table.FromStrings("interview_date", []string{"2024-01-15", "2024-02-20"}))

	suggestions := engine.SuggestRules(tbl, "")
	byName := map[string]cleaning.Rule{}
	for _, rule := range suggestions {
		byName[rule.Name] = rule
	}

	if _, ok := byName["age_range_check"]; !ok {
		t.Error("Expected an age_range_check suggestion")
	}
	logic, ok := byName["income_expense_logic"]
	if !ok {
		t.Fatal("Expected an income_expense_logic suggestion")
	}
	if logic.Params.Expression == "" {
		t.Error("Logical suggestion has no expression")
	}
	if _, ok := byName["interview_date_date_format"]; !ok {
		t.Error("Expected a date format suggestion for interview_date")
	}
}

func TestValidationEngine_DuplicateRuleNamesOverwriteFlag(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(table.FromFloats("age", []float64{-5, 50}))

	cfg := cleaning.ValidationConfig{Rules: []cleaning.Rule{
		{
			Type:   "range_check",
			Name:   "age_rule",
			Params: cleaning.RuleParams{Column: "age", MinValue: floatPtr(0), MaxValue: floatPtr(120)},
		},
		{
			Type:   "range_check",
			Name:   "age_rule",
			Params: cleaning.RuleParams{Column: "age", MinValue: floatPtr(0), MaxValue: floatPtr(40)},
		},
	}}

	out, stats, err := engine.ValidateData(tbl, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(stats.RulesApplied) != 2 {
		t.Fatalf("Expected both rules applied, got %d", len(stats.RulesApplied))
	}
	if stats.TotalViolations != 3 {
		t.Errorf("Expected 3 violations across both rules, got %d", stats.TotalViolations)
	}

	flag, ok := out.Column("age_rule_violation")
	if !ok {
		t.Fatal("Expected age_rule_violation column")
	}
	// The last rule with the name wins: both rows fall outside [0, 40]
	for i, cell := range flag.Cells {
		if cell.BooleanVal == nil || !*cell.BooleanVal {
			t.Errorf("Row %d: expected violation flag from the last rule", i)
		}
	}
}

func TestValidationEngine_RevalidationOverwritesFlag(t *testing.T) {
	engine := NewValidationEngine(nil)
	tbl := table.New().MustAddColumn(table.FromFloats("age", []float64{-5, 30}))
	cfg := cleaning.ValidationConfig{Rules: []cleaning.Rule{{
		Type:   "range_check",
		Name:   "age_range",
		Params: cleaning.RuleParams{Column: "age", MinValue: floatPtr(0)},
	}}}

	once, _, err := engine.ValidateData(tbl, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	twice, stats, err := engine.ValidateData(once, cfg)
	if err != nil {
		t.Fatalf("Re-validating a flagged table failed: %v", err)
	}
	if stats.TotalViolations != 1 {
		t.Errorf("Expected 1 violation on the second pass, got %d", stats.TotalViolations)
	}
	if twice.NumColumns() != once.NumColumns() {
		t.Errorf("Expected the flag column overwritten, got %d columns", twice.NumColumns())
	}
}
