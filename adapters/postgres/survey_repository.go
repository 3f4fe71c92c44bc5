package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"surveyclean/domain/core"
	"surveyclean/domain/survey"
	"surveyclean/ports"
)

// surveyRepository implements the SurveyRepository interface
type surveyRepository struct {
	db *sqlx.DB
}

// NewSurveyRepository creates a new survey repository
func NewSurveyRepository(db *sqlx.DB) ports.SurveyRepository {
	return &surveyRepository{db: db}
}

const surveyColumns = `
	id, name, description, original_filename, file_path, file_size,
	row_count, column_count, missing_rate, status, error_message,
	created_at, updated_at`

// Create inserts a new survey
func (r *surveyRepository) Create(ctx context.Context, s *survey.Survey) error {
	query := `INSERT INTO surveys (
		id, name, description, original_filename, file_path, file_size,
		row_count, column_count, missing_rate, status, error_message,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Description, s.OriginalFilename, s.FilePath, s.FileSize,
		s.RowCount, s.ColumnCount, s.MissingRate, s.Status, s.ErrorMessage,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create survey: %w", err)
	}
	return nil
}

// GetByID retrieves a survey by its ID
func (r *surveyRepository) GetByID(ctx context.Context, id core.SurveyID) (*survey.Survey, error) {
	query := `SELECT` + surveyColumns + ` FROM surveys WHERE id = $1`

	var s survey.Survey
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Description, &s.OriginalFilename, &s.FilePath, &s.FileSize,
		&s.RowCount, &s.ColumnCount, &s.MissingRate, &s.Status, &s.ErrorMessage,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("survey", id.String())
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return &s, nil
}

// List retrieves surveys newest first with pagination
func (r *surveyRepository) List(ctx context.Context, limit, offset int) ([]*survey.Survey, error) {
	query := `SELECT` + surveyColumns + `
	FROM surveys
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	var surveys []*survey.Survey
	for rows.Next() {
		var s survey.Survey
		err := rows.Scan(
			&s.ID, &s.Name, &s.Description, &s.OriginalFilename, &s.FilePath, &s.FileSize,
			&s.RowCount, &s.ColumnCount, &s.MissingRate, &s.Status, &s.ErrorMessage,
			&s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		surveys = append(surveys, &s)
	}
	return surveys, rows.Err()
}

// Update saves every mutable field of a survey
func (r *surveyRepository) Update(ctx context.Context, s *survey.Survey) error {
	query := `UPDATE surveys SET
		name = $2, description = $3, file_path = $4, file_size = $5,
		row_count = $6, column_count = $7, missing_rate = $8,
		status = $9, error_message = $10, updated_at = $11
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Description, s.FilePath, s.FileSize,
		s.RowCount, s.ColumnCount, s.MissingRate,
		s.Status, s.ErrorMessage, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update survey: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("survey", s.ID.String())
	}
	return nil
}

// Delete removes a survey and, via cascade, its jobs
func (r *surveyRepository) Delete(ctx context.Context, id core.SurveyID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM surveys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete survey: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("survey", id.String())
	}
	return nil
}

// UpdateStatus transitions just the status and error message
func (r *surveyRepository) UpdateStatus(ctx context.Context, id core.SurveyID, status survey.SurveyStatus, errorMsg string) error {
	query := `UPDATE surveys SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to update survey status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("survey", id.String())
	}
	return nil
}
