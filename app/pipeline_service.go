// Package app wires the cleaning engines into the processing pipeline and
// runs stored jobs against stored surveys.
package app

import (
	"surveyclean/adapters/engine"
	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
	"surveyclean/internal"
	apperrors "surveyclean/internal/errors"
	"surveyclean/ports"
)

// PipelineService runs the cleaning pipeline: imputation, outlier treatment,
// validation, then estimation. Stages with an empty config section are
// skipped. The engines are consumed through their ports, so any conforming
// implementation can be substituted.
type PipelineService struct {
	log       *internal.Logger
	imputer   ports.Imputer
	detector  ports.OutlierDetector
	validator ports.Validator
	estimator ports.Estimator
}

// NewPipelineService creates a pipeline service over the default statistical
// engines. A nil logger falls back to the default logger.
func NewPipelineService(logger *internal.Logger) *PipelineService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	log := logger.Named("pipeline")
	return &PipelineService{
		log:       log,
		imputer:   engine.NewImputationEngine(log),
		detector:  engine.NewOutlierEngine(log),
		validator: engine.NewValidationEngine(log),
		estimator: engine.NewWeightEngine(log),
	}
}

// Run executes the configured stages in order and returns the transformed
// table with the aggregated stage results. The input table is not mutated.
func (s *PipelineService) Run(tbl *table.Table, cfg cleaning.PipelineConfig) (*table.Table, *cleaning.PipelineResult, error) {
	result := &cleaning.PipelineResult{
		RowsBefore: tbl.NumRows(),
	}
	current := tbl

	if len(cfg.Imputation) > 0 {
		s.log.Info("running imputation stage (%d columns configured)", len(cfg.Imputation))
		out, stats, err := s.imputer.ImputeMissingValues(current, cfg.Imputation)
		if err != nil {
			return nil, nil, apperrors.StageFailed("imputation", err)
		}
		current, result.Imputation = out, stats
	}

	if len(cfg.Outliers) > 0 {
		s.log.Info("running outlier stage (%d columns configured)", len(cfg.Outliers))
		out, stats, err := s.detector.DetectOutliers(current, cfg.Outliers)
		if err != nil {
			return nil, nil, apperrors.StageFailed("outliers", err)
		}
		current, result.Outliers = out, stats
	}

	if cfg.Validation != nil && len(cfg.Validation.Rules) > 0 {
		s.log.Info("running validation stage (%d rules configured)", len(cfg.Validation.Rules))
		out, stats, err := s.validator.ValidateData(current, *cfg.Validation)
		if err != nil {
			return nil, nil, apperrors.StageFailed("validation", err)
		}
		current, result.Validation = out, stats
	}

	if cfg.Weights != nil && len(cfg.Weights.Estimates) > 0 {
		s.log.Info("running estimation stage (%d estimates configured)", len(cfg.Weights.Estimates))
		estimates, err := s.estimator.ApplyWeights(current, *cfg.Weights)
		if err != nil {
			return nil, nil, apperrors.StageFailed("weights", err)
		}
		result.Estimates = estimates
		result.Summary = s.estimator.Summary(estimates)
	}

	result.RowsAfter = current.NumRows()
	return current, result, nil
}
