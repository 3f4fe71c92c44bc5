package ports

import (
	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
)

// Imputer fills missing values according to a per-column configuration
type Imputer interface {
	ImputeMissingValues(tbl *table.Table, cfg cleaning.ImputationConfig) (*table.Table, *cleaning.ImputationStats, error)
}

// OutlierDetector detects and treats outliers in numeric columns
type OutlierDetector interface {
	DetectOutliers(tbl *table.Table, cfg cleaning.OutlierConfig) (*table.Table, *cleaning.OutlierStats, error)
}

// Validator applies declarative rules and flags violating rows
type Validator interface {
	ValidateData(tbl *table.Table, cfg cleaning.ValidationConfig) (*table.Table, *cleaning.ValidationStats, error)
}

// Estimator produces weighted and unweighted population estimates
type Estimator interface {
	ApplyWeights(tbl *table.Table, cfg cleaning.WeightConfig) (*cleaning.EstimateSet, error)
	Summary(est *cleaning.EstimateSet) *cleaning.EstimatesSummary
}
