package cleaning

// SkipReason codes why a unit of work (column or rule) was not processed.
// Skips are expected conditions, not errors; they are carried in the stats so
// the caller can enumerate exactly what was left untouched and why.
type SkipReason string

const (
	SkipColumnNotFound    SkipReason = "column_not_found"
	SkipNotNumeric        SkipReason = "not_numeric"
	SkipNoMissingValues   SkipReason = "no_missing_values"
	SkipNoObservedValues  SkipReason = "no_observed_values"
	SkipUnsupportedMethod SkipReason = "unsupported_method"
	SkipUnsupportedRule   SkipReason = "unsupported_rule_type"
	SkipEvaluationFailed  SkipReason = "evaluation_failed"
)

// SkippedUnit records one skipped column or rule
type SkippedUnit struct {
	Unit   string     `json:"unit"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// ColumnImputationResult is the per-column breakdown of an imputation pass
type ColumnImputationResult struct {
	Column       string           `json:"column"`
	Method       ImputationMethod `json:"method"`
	MissingCount int              `json:"missing_count"`
	ImputedCount int              `json:"imputed_count"`
}

// ImputationStats summarizes an imputation pass. TotalMissingBefore/After
// count missing cells across the whole table, not just configured columns.
type ImputationStats struct {
	TotalMissingBefore int                      `json:"total_missing_before"`
	TotalMissingAfter  int                      `json:"total_missing_after"`
	TotalImputed       int                      `json:"total_imputed"`
	ColumnsProcessed   []ColumnImputationResult `json:"columns_processed"`
	Skipped            []SkippedUnit            `json:"skipped,omitempty"`
	Log                []string                 `json:"imputation_log"`
}

// ColumnOutlierResult is the per-column breakdown of an outlier pass.
// RowsEvaluated records the row count the percentage was computed against:
// detection always runs against the original input table, so remove actions
// on other columns do not shift a column's bounds or percentage base.
type ColumnOutlierResult struct {
	Column            string        `json:"column"`
	Method            OutlierMethod `json:"method"`
	Action            OutlierAction `json:"action"`
	OutlierCount      int           `json:"outlier_count"`
	OutlierPercentage float64       `json:"outlier_percentage"`
	RowsEvaluated     int           `json:"rows_evaluated"`
}

// OutlierStats summarizes an outlier detection pass
type OutlierStats struct {
	TotalOutliersDetected int                   `json:"total_outliers_detected"`
	ColumnsProcessed      []ColumnOutlierResult `json:"columns_processed"`
	Skipped               []SkippedUnit         `json:"skipped,omitempty"`
	Log                   []string              `json:"outlier_log"`
}

// RuleResult is the per-rule breakdown of a validation pass
type RuleResult struct {
	RuleName      string   `json:"rule_name"`
	RuleType      RuleType `json:"rule_type"`
	Violations    int      `json:"violations"`
	ViolationRate float64  `json:"violation_rate"` // percent of rows
}

// ValidationStats summarizes a validation pass
type ValidationStats struct {
	TotalViolations int           `json:"total_violations"`
	RulesApplied    []RuleResult  `json:"rules_applied"`
	Skipped         []SkippedUnit `json:"skipped,omitempty"`
	Log             []string      `json:"validation_log"`
}

// RuleViolationSummary is a per-rule recount derived from the violation flag
// columns attached to a validated table
type RuleViolationSummary struct {
	Violations    int     `json:"violations"`
	ViolationRate float64 `json:"violation_rate"`
}

// ValidationReport is the comprehensive post-validation report
type ValidationReport struct {
	TotalRecords     int                             `json:"total_records"`
	TotalViolations  int                             `json:"total_violations"`
	ViolationRate    float64                         `json:"violation_rate"`
	RulesApplied     int                             `json:"rules_applied"`
	RuleDetails      []RuleResult                    `json:"rule_details"`
	ViolationsByRule map[string]RuleViolationSummary `json:"violation_by_column,omitempty"`
	Log              []string                        `json:"validation_log"`
}

// ColumnMissingDetail is the per-column before/after breakdown of an
// imputation pass
type ColumnMissingDetail struct {
	Column           string  `json:"column"`
	MissingBefore    int     `json:"missing_before"`
	MissingAfter     int     `json:"missing_after"`
	ImputedCount     int     `json:"imputed_count"`
	MissingPctBefore float64 `json:"missing_pct_before"`
	MissingPctAfter  float64 `json:"missing_pct_after"`
}

// ImputationReport compares a table before and after imputation
type ImputationReport struct {
	TotalRows     int                   `json:"total_rows"`
	TotalColumns  int                   `json:"total_columns"`
	MissingBefore int                   `json:"missing_before"`
	MissingAfter  int                   `json:"missing_after"`
	ColumnDetails []ColumnMissingDetail `json:"column_details"`
}

// Estimate is one point estimate with its precision measures. For a zero
// valid sample every numeric field is NaN and SampleSize is 0.
type Estimate struct {
	Estimate            float64    `json:"estimate"`
	StandardError       float64    `json:"standard_error"`
	MarginOfError       float64    `json:"margin_of_error"`
	ConfidenceInterval  [2]float64 `json:"confidence_interval"`
	ConfidenceLevel     float64    `json:"confidence_level"`
	SampleSize          int        `json:"sample_size"`
	EffectiveSampleSize float64    `json:"effective_sample_size,omitempty"` // weighted estimates only
}

// WeightStatistics describes the cleaned weight vector
type WeightStatistics struct {
	Count               int     `json:"count"`
	Mean                float64 `json:"mean"`
	Median              float64 `json:"median"`
	Min                 float64 `json:"min"`
	Max                 float64 `json:"max"`
	Std                 float64 `json:"std"`
	Sum                 float64 `json:"sum"`
	EffectiveSampleSize float64 `json:"effective_sample_size"`
}

// EstimateSet is the full output of the weight/estimation engine. Map keys
// are "<variable>_<statistic>". When no weight column is available only the
// unweighted side is populated and WeightingApplied is false.
type EstimateSet struct {
	WeightingApplied bool                `json:"weighting_applied"`
	Weighted         map[string]Estimate `json:"weighted,omitempty"`
	Unweighted       map[string]Estimate `json:"unweighted"`
	WeightStatistics *WeightStatistics   `json:"weight_statistics,omitempty"`
	Skipped          []SkippedUnit       `json:"skipped,omitempty"`
	Log              []string            `json:"estimates_log"`
}

// EstimateComparison contrasts the weighted and unweighted versions of one estimate
type EstimateComparison struct {
	Key                     string  `json:"variable"`
	WeightedEstimate        float64 `json:"weighted_estimate"`
	UnweightedEstimate      float64 `json:"unweighted_estimate"`
	RelativeDifferencePct   float64 `json:"relative_difference_pct"`
	WeightedMarginOfError   float64 `json:"weighted_margin_of_error"`
	UnweightedMarginOfError float64 `json:"unweighted_margin_of_error"`
}

// WeightEffectiveness grades the weighting scheme from the weight CV and the
// effective-sample-size ratio
type WeightEffectiveness struct {
	CoefficientOfVariation   float64 `json:"coefficient_of_variation"`
	EffectiveSampleSizeRatio float64 `json:"effective_sample_size_ratio"`
	Assessment               string  `json:"assessment"`
}

// EstimatesSummary is the cross-estimate comparison report
type EstimatesSummary struct {
	Comparisons   []EstimateComparison `json:"estimates_comparison"`
	Effectiveness *WeightEffectiveness `json:"weight_effectiveness,omitempty"`
}

// MethodSuggestion recommends a cleaning method for a column. An empty
// Method means no action is recommended.
type MethodSuggestion struct {
	Method string `json:"method,omitempty"`
	Reason string `json:"reason"`
}

// DistributionStats captures the shape of a numeric column's observed values
type DistributionStats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
}

// OutlierSubsetStats summarizes only the flagged values
type OutlierSubsetStats struct {
	Min  float64 `json:"outlier_min"`
	Max  float64 `json:"outlier_max"`
	Mean float64 `json:"outlier_mean"`
	Std  float64 `json:"outlier_std"`
}

// IQRBounds carries the computed fence details for the iqr method
type IQRBounds struct {
	Multiplier float64 `json:"iqr_multiplier"`
	Q1         float64 `json:"q1"`
	Q3         float64 `json:"q3"`
	IQR        float64 `json:"iqr"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// ColumnOutlierStatistics is the detailed per-column accessor result
type ColumnOutlierStatistics struct {
	Method            OutlierMethod       `json:"method"`
	TotalCount        int                 `json:"total_count"` // observed values
	OutlierCount      int                 `json:"outlier_count"`
	OutlierPercentage float64             `json:"outlier_percentage"` // of all rows
	Distribution      DistributionStats   `json:"distribution_stats"`
	OutlierStats      *OutlierSubsetStats `json:"outlier_stats,omitempty"`
	Bounds            *IQRBounds          `json:"method_details,omitempty"` // iqr only
}

// PipelineResult aggregates the stage outputs of one full cleaning run
type PipelineResult struct {
	Imputation *ImputationStats  `json:"imputation,omitempty"`
	Outliers   *OutlierStats     `json:"outliers,omitempty"`
	Validation *ValidationStats  `json:"validation,omitempty"`
	Estimates  *EstimateSet      `json:"estimates,omitempty"`
	Summary    *EstimatesSummary `json:"estimates_summary,omitempty"`
	RowsBefore int               `json:"rows_before"`
	RowsAfter  int               `json:"rows_after"`
}
