package app

import (
	"math"
	"testing"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
)

func floatPtr(v float64) *float64 { return &v }

func surveyTable() *table.Table {
	return table.New().
		MustAddColumn(table.FromFloats("age", []float64{25, 30, math.NaN(), 45, 150})).
		MustAddColumn(table.FromFloats("income", []float64{3000, 3200, 3100, 50000, 2900})).
		MustAddColumn(table.FromFloats("weight", []float64{1, 1, 1, 1, 1}))
}

func TestPipelineService_FullRun(t *testing.T) {
	service := NewPipelineService(nil)
	cfg := cleaning.PipelineConfig{
		Imputation: cleaning.ImputationConfig{
			"age": {Method: "mean"},
		},
		Outliers: cleaning.OutlierConfig{
			"income": {Method: "iqr", Action: "flag"},
		},
		Validation: &cleaning.ValidationConfig{
			Rules: []cleaning.Rule{{
				Type:   "range_check",
				Name:   "age_range",
				Params: cleaning.RuleParams{Column: "age", MinValue: floatPtr(0), MaxValue: floatPtr(120)},
			}},
		},
		Weights: &cleaning.WeightConfig{
			WeightColumn: "weight",
			Estimates:    []cleaning.EstimateRequest{{Variable: "income", Statistic: "mean"}},
		},
	}

	out, result, err := service.Run(surveyTable(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Imputation == nil || result.Imputation.TotalImputed != 1 {
		t.Errorf("Expected 1 imputed value, got %+v", result.Imputation)
	}
	if result.Outliers == nil || result.Outliers.TotalOutliersDetected != 1 {
		t.Errorf("Expected 1 outlier, got %+v", result.Outliers)
	}
	if result.Validation == nil || result.Validation.TotalViolations != 1 {
		t.Errorf("Expected 1 violation, got %+v", result.Validation)
	}
	if result.Estimates == nil || !result.Estimates.WeightingApplied {
		t.Fatalf("Expected weighted estimates, got %+v", result.Estimates)
	}
	if result.Summary == nil || result.Summary.Effectiveness == nil {
		t.Error("Expected an estimates summary with effectiveness")
	}
	if result.RowsBefore != 5 || result.RowsAfter != 5 {
		t.Errorf("Expected 5 rows before and after, got %d and %d", result.RowsBefore, result.RowsAfter)
	}

	// The later stages see earlier transformations: the imputed age row and
	// the outlier flag plus violation columns on the output table
	if !out.HasColumn("income_outlier_flag") {
		t.Error("Expected income_outlier_flag on the output table")
	}
	if !out.HasColumn("age_range_violation") {
		t.Error("Expected age_range_violation on the output table")
	}
	age, _ := out.Column("age")
	if age.MissingCount() != 0 {
		t.Errorf("Imputed column still has %d missing values", age.MissingCount())
	}
}

func TestPipelineService_EmptyConfigSkipsAllStages(t *testing.T) {
	service := NewPipelineService(nil)
	tbl := surveyTable()

	out, result, err := service.Run(tbl, cleaning.PipelineConfig{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Imputation != nil || result.Outliers != nil || result.Validation != nil || result.Estimates != nil {
		t.Errorf("Expected all stages skipped, got %+v", result)
	}
	if out.NumRows() != tbl.NumRows() || out.NumColumns() != tbl.NumColumns() {
		t.Error("Table changed without any configured stage")
	}
}

func TestPipelineService_RemoveShrinksRowCounts(t *testing.T) {
	service := NewPipelineService(nil)
	cfg := cleaning.PipelineConfig{
		Outliers: cleaning.OutlierConfig{
			"income": {Method: "iqr", Action: "remove"},
		},
	}

	out, result, err := service.Run(surveyTable(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.RowsBefore != 5 {
		t.Errorf("Expected 5 rows before, got %d", result.RowsBefore)
	}
	if result.RowsAfter != 4 || out.NumRows() != 4 {
		t.Errorf("Expected 4 rows after removal, got %d", result.RowsAfter)
	}
}

type recordingImputer struct {
	calls int
}

func (r *recordingImputer) ImputeMissingValues(tbl *table.Table, _ cleaning.ImputationConfig) (*table.Table, *cleaning.ImputationStats, error) {
	r.calls++
	return tbl, &cleaning.ImputationStats{TotalImputed: 7}, nil
}

func TestPipelineService_EnginesReplaceableThroughPorts(t *testing.T) {
	service := NewPipelineService(nil)
	stub := &recordingImputer{}
	service.imputer = stub

	_, result, err := service.Run(surveyTable(), cleaning.PipelineConfig{
		Imputation: cleaning.ImputationConfig{"age": {Method: "mean"}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("Expected the injected imputer to run once, got %d calls", stub.calls)
	}
	if result.Imputation == nil || result.Imputation.TotalImputed != 7 {
		t.Errorf("Expected the injected imputer's stats, got %+v", result.Imputation)
	}
}

func TestPipelineService_StageFailurePropagates(t *testing.T) {
	service := NewPipelineService(nil)
	empty := table.New()

	_, _, err := service.Run(empty, cleaning.PipelineConfig{
		Imputation: cleaning.ImputationConfig{"x": {Method: "mean"}},
	})
	if err == nil {
		t.Fatal("Expected a stage failure for an empty table")
	}
}
