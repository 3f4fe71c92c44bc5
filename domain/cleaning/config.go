// Package cleaning defines the declarative configuration consumed by the
// statistical cleaning engines and the structured results they return.
//
// Wire-level configs keep string method/rule fields for serialization
// compatibility; engines parse them into the closed typed variants below at
// the boundary and dispatch over the variant, never the raw string.
package cleaning

import (
	"fmt"

	"surveyclean/domain/core"
)

// ImputationMethod is the closed set of supported imputation methods
type ImputationMethod string

const (
	ImputeMean   ImputationMethod = "mean"
	ImputeMedian ImputationMethod = "median"
	ImputeMode   ImputationMethod = "mode"
	ImputeKNN    ImputationMethod = "knn"
)

// ParseImputationMethod validates a wire-level method string
func ParseImputationMethod(s string) (ImputationMethod, error) {
	switch ImputationMethod(s) {
	case ImputeMean, ImputeMedian, ImputeMode, ImputeKNN:
		return ImputationMethod(s), nil
	}
	return "", fmt.Errorf("%w: imputation method %q", core.ErrUnknownMethod, s)
}

// ColumnImputation configures imputation for a single column
type ColumnImputation struct {
	Method    string `json:"method"`
	Neighbors int    `json:"n_neighbors,omitempty"` // knn only, default 5
}

// ImputationConfig maps column names to their imputation settings
type ImputationConfig map[string]ColumnImputation

// OutlierMethod is the closed set of supported detection methods
type OutlierMethod string

const (
	OutlierIQR            OutlierMethod = "iqr"
	OutlierZScore         OutlierMethod = "zscore"
	OutlierModifiedZScore OutlierMethod = "modified_zscore"
)

// ParseOutlierMethod validates a wire-level method string
func ParseOutlierMethod(s string) (OutlierMethod, error) {
	switch OutlierMethod(s) {
	case OutlierIQR, OutlierZScore, OutlierModifiedZScore:
		return OutlierMethod(s), nil
	}
	return "", fmt.Errorf("%w: outlier method %q", core.ErrUnknownMethod, s)
}

// OutlierAction is the closed set of treatments for flagged rows
type OutlierAction string

const (
	ActionFlag      OutlierAction = "flag"
	ActionRemove    OutlierAction = "remove"
	ActionWinsorize OutlierAction = "winsorize"
)

// ParseOutlierAction validates a wire-level action string; empty defaults to flag
func ParseOutlierAction(s string) (OutlierAction, error) {
	if s == "" {
		return ActionFlag, nil
	}
	switch OutlierAction(s) {
	case ActionFlag, ActionRemove, ActionWinsorize:
		return OutlierAction(s), nil
	}
	return "", fmt.Errorf("%w: outlier action %q", core.ErrUnknownMethod, s)
}

// Detection and treatment defaults
const (
	DefaultNeighbors          = 5
	DefaultIQRMultiplier      = 1.5
	DefaultZScoreThreshold    = 3.0
	DefaultModifiedZThreshold = 3.5
	DefaultLowerPercentile    = 0.05
	DefaultUpperPercentile    = 0.95
	DefaultConfidenceLevel    = 0.95
)

// ColumnOutlier configures outlier detection for a single column
type ColumnOutlier struct {
	Method             string  `json:"method"`
	Action             string  `json:"action,omitempty"`
	IQRMultiplier      float64 `json:"iqr_multiplier,omitempty"`
	ZScoreThreshold    float64 `json:"zscore_threshold,omitempty"`
	ModifiedZThreshold float64 `json:"modified_zscore_threshold,omitempty"`
	LowerPercentile    float64 `json:"lower_percentile,omitempty"`
	UpperPercentile    float64 `json:"upper_percentile,omitempty"`
}

// OutlierConfig maps column names to their outlier settings
type OutlierConfig map[string]ColumnOutlier

// RuleType is the closed set of supported validation rule types
type RuleType string

const (
	RuleRangeCheck        RuleType = "range_check"
	RuleConsistencyCheck  RuleType = "consistency_check"
	RuleSkipPattern       RuleType = "skip_pattern"
	RuleFormatCheck       RuleType = "format_check"
	RuleLogicalCheck      RuleType = "logical_check"
	RuleCompletenessCheck RuleType = "completeness_check"
)

// ParseRuleType validates a wire-level rule type string
func ParseRuleType(s string) (RuleType, error) {
	switch RuleType(s) {
	case RuleRangeCheck, RuleConsistencyCheck, RuleSkipPattern,
		RuleFormatCheck, RuleLogicalCheck, RuleCompletenessCheck:
		return RuleType(s), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownRuleType, s)
}

// Relationship is the closed set of consistency-check comparisons
type Relationship string

const (
	RelGreaterThan Relationship = "greater_than"
	RelLessThan    Relationship = "less_than"
	RelEqual       Relationship = "equal"
	RelNotEqual    Relationship = "not_equal"
)

// ParseRelationship validates a wire-level relationship string
func ParseRelationship(s string) (Relationship, error) {
	switch Relationship(s) {
	case RelGreaterThan, RelLessThan, RelEqual, RelNotEqual:
		return Relationship(s), nil
	}
	return "", fmt.Errorf("%w: relationship %q", core.ErrInvalidConfig, s)
}

// RuleParams carries the union of parameters across rule types. Only the
// fields relevant to a rule's type are consulted.
type RuleParams struct {
	// range_check, format_check
	Column   string   `json:"column,omitempty"`
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`

	// consistency_check
	PrimaryColumn string `json:"primary_column,omitempty"`
	RelatedColumn string `json:"related_column,omitempty"`
	Relationship  string `json:"relationship,omitempty"`

	// skip_pattern
	ConditionColumn string      `json:"condition_column,omitempty"`
	ConditionValue  interface{} `json:"condition_value,omitempty"`
	TargetColumn    string      `json:"target_column,omitempty"`
	ExpectedValue   interface{} `json:"expected_value,omitempty"` // nil means target must be missing

	// logical_check, completeness_check
	Expression      string   `json:"expression,omitempty"`
	RequiredColumns []string `json:"required_columns,omitempty"`
	Condition       string   `json:"condition,omitempty"`
}

// Rule is one named validation rule
type Rule struct {
	Type        string     `json:"type"`
	Name        string     `json:"name,omitempty"`
	Params      RuleParams `json:"params"`
	Description string     `json:"description,omitempty"`
}

// ValidationConfig holds an ordered list of rules
type ValidationConfig struct {
	Rules []Rule `json:"rules"`
}

// Statistic is the closed set of supported estimators
type Statistic string

const (
	StatMean       Statistic = "mean"
	StatTotal      Statistic = "total"
	StatProportion Statistic = "proportion"
)

// ParseStatistic validates a wire-level statistic string; empty defaults to mean
func ParseStatistic(s string) (Statistic, error) {
	if s == "" {
		return StatMean, nil
	}
	switch Statistic(s) {
	case StatMean, StatTotal, StatProportion:
		return Statistic(s), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownStatistic, s)
}

// EstimateRequest asks for one population estimate
type EstimateRequest struct {
	Variable        string  `json:"variable"`
	Statistic       string  `json:"statistic,omitempty"`
	ConfidenceLevel float64 `json:"confidence_level,omitempty"` // default 0.95
}

// WeightConfig configures design-weight estimation
type WeightConfig struct {
	WeightColumn string            `json:"weight_column"`
	Estimates    []EstimateRequest `json:"estimates"`
}

// PipelineConfig partitions the cleaning configuration by stage. Stages with
// a nil/empty section are skipped by the pipeline.
type PipelineConfig struct {
	Imputation ImputationConfig  `json:"imputation,omitempty"`
	Outliers   OutlierConfig     `json:"outliers,omitempty"`
	Validation *ValidationConfig `json:"validation,omitempty"`
	Weights    *WeightConfig     `json:"weights,omitempty"`
}
