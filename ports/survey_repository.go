package ports

import (
	"context"

	"surveyclean/domain/core"
	"surveyclean/domain/survey"
)

// SurveyRepository defines the interface for survey storage operations
type SurveyRepository interface {
	Create(ctx context.Context, s *survey.Survey) error
	GetByID(ctx context.Context, id core.SurveyID) (*survey.Survey, error)
	List(ctx context.Context, limit, offset int) ([]*survey.Survey, error)
	Update(ctx context.Context, s *survey.Survey) error
	Delete(ctx context.Context, id core.SurveyID) error
	UpdateStatus(ctx context.Context, id core.SurveyID, status survey.SurveyStatus, errorMsg string) error
}
