package ports

import (
	"context"

	"surveyclean/domain/core"
	"surveyclean/domain/survey"
)

// JobRepository defines the interface for processing job storage operations
type JobRepository interface {
	Create(ctx context.Context, job *survey.ProcessingJob) error
	GetByID(ctx context.Context, id core.JobID) (*survey.ProcessingJob, error)
	ListBySurvey(ctx context.Context, surveyID core.SurveyID) ([]*survey.ProcessingJob, error)
	ListByStatus(ctx context.Context, status survey.JobStatus) ([]*survey.ProcessingJob, error)
	Update(ctx context.Context, job *survey.ProcessingJob) error
}
