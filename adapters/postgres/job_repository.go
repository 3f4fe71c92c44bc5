package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/core"
	"surveyclean/domain/survey"
	"surveyclean/ports"
)

// jobRepository implements the JobRepository interface
type jobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new processing job repository
func NewJobRepository(db *sqlx.DB) ports.JobRepository {
	return &jobRepository{db: db}
}

// Create inserts a new processing job
func (r *jobRepository) Create(ctx context.Context, job *survey.ProcessingJob) error {
	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal job config: %w", err)
	}
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	query := `INSERT INTO processing_jobs (
		id, survey_id, config, result, status, error_message,
		created_at, started_at, completed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		job.ID, job.SurveyID, configJSON, resultJSON, job.Status, job.ErrorMessage,
		job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create processing job: %w", err)
	}
	return nil
}

// GetByID retrieves a processing job by its ID
func (r *jobRepository) GetByID(ctx context.Context, id core.JobID) (*survey.ProcessingJob, error) {
	query := `SELECT id, survey_id, config, result, status, error_message,
		created_at, started_at, completed_at
	FROM processing_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("processing job", id.String())
		}
		return nil, fmt.Errorf("failed to get processing job: %w", err)
	}
	return job, nil
}

// ListBySurvey retrieves every job for a survey, newest first
func (r *jobRepository) ListBySurvey(ctx context.Context, surveyID core.SurveyID) ([]*survey.ProcessingJob, error) {
	query := `SELECT id, survey_id, config, result, status, error_message,
		created_at, started_at, completed_at
	FROM processing_jobs WHERE survey_id = $1
	ORDER BY created_at DESC`
	return r.queryJobs(ctx, query, surveyID)
}

// ListByStatus retrieves jobs in a given state, oldest first for fair pickup
func (r *jobRepository) ListByStatus(ctx context.Context, status survey.JobStatus) ([]*survey.ProcessingJob, error) {
	query := `SELECT id, survey_id, config, result, status, error_message,
		created_at, started_at, completed_at
	FROM processing_jobs WHERE status = $1
	ORDER BY created_at ASC`
	return r.queryJobs(ctx, query, status)
}

// Update saves the job's mutable fields
func (r *jobRepository) Update(ctx context.Context, job *survey.ProcessingJob) error {
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	query := `UPDATE processing_jobs SET
		result = $2, status = $3, error_message = $4,
		started_at = $5, completed_at = $6
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		job.ID, resultJSON, job.Status, job.ErrorMessage,
		job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update processing job: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("processing job", job.ID.String())
	}
	return nil
}

func (r *jobRepository) queryJobs(ctx context.Context, query string, arg interface{}) ([]*survey.ProcessingJob, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*survey.ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan processing job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*survey.ProcessingJob, error) {
	var job survey.ProcessingJob
	var configJSON []byte
	var resultJSON []byte

	err := row.Scan(
		&job.ID, &job.SurveyID, &configJSON, &resultJSON, &job.Status, &job.ErrorMessage,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &job.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job config: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		var result cleaning.PipelineResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
		job.Result = &result
	}
	return &job, nil
}

func marshalResult(result *cleaning.PipelineResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job result: %w", err)
	}
	return data, nil
}
