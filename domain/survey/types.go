// Package survey holds the persistent records the service works with: an
// uploaded survey dataset and the processing jobs run against it.
package survey

import (
	"time"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/core"
)

// SurveyStatus represents the lifecycle state of an uploaded survey
type SurveyStatus string

const (
	SurveyUploaded   SurveyStatus = "uploaded"
	SurveyProcessing SurveyStatus = "processing"
	SurveyReady      SurveyStatus = "ready"
	SurveyFailed     SurveyStatus = "failed"
)

// Survey represents an uploaded survey dataset and its file metadata
type Survey struct {
	ID core.SurveyID `json:"id"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// File information
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path,omitempty"`
	FileSize         int64  `json:"file_size"`

	// Dataset statistics captured at ingestion
	RowCount    int     `json:"row_count"`
	ColumnCount int     `json:"column_count"`
	MissingRate float64 `json:"missing_rate"`

	Status       SurveyStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSurvey creates a survey record in the uploaded state
func NewSurvey(name, filename, filePath string, fileSize int64) *Survey {
	now := time.Now().UTC()
	return &Survey{
		ID:               core.SurveyID(core.NewID()),
		Name:             name,
		OriginalFilename: filename,
		FilePath:         filePath,
		FileSize:         fileSize,
		Status:           SurveyUploaded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// RecordIngestion fills the dataset statistics after the file has been parsed
func (s *Survey) RecordIngestion(rows, columns int, missingRate float64) {
	s.RowCount = rows
	s.ColumnCount = columns
	s.MissingRate = missingRate
	s.Status = SurveyReady
	s.UpdatedAt = time.Now().UTC()
}

// MarkFailed records an ingestion or processing failure
func (s *Survey) MarkFailed(msg string) {
	s.Status = SurveyFailed
	s.ErrorMessage = msg
	s.UpdatedAt = time.Now().UTC()
}

// JobStatus represents the lifecycle state of a processing job
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ProcessingJob is one pipeline run against a survey: the stage configuration
// it was created with and, once finished, the aggregated result document.
type ProcessingJob struct {
	ID       core.JobID    `json:"id"`
	SurveyID core.SurveyID `json:"survey_id"`

	Config cleaning.PipelineConfig  `json:"config"`
	Result *cleaning.PipelineResult `json:"result,omitempty"`

	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewProcessingJob creates a pending job for a survey
func NewProcessingJob(surveyID core.SurveyID, cfg cleaning.PipelineConfig) *ProcessingJob {
	return &ProcessingJob{
		ID:        core.JobID(core.NewID()),
		SurveyID:  surveyID,
		Config:    cfg,
		Status:    JobPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Start transitions the job into the processing state
func (j *ProcessingJob) Start() {
	now := time.Now().UTC()
	j.Status = JobProcessing
	j.StartedAt = &now
}

// Complete records the pipeline result and finishes the job
func (j *ProcessingJob) Complete(result *cleaning.PipelineResult) {
	now := time.Now().UTC()
	j.Status = JobCompleted
	j.Result = result
	j.CompletedAt = &now
}

// Fail finishes the job with an error message
func (j *ProcessingJob) Fail(msg string) {
	now := time.Now().UTC()
	j.Status = JobFailed
	j.ErrorMessage = msg
	j.CompletedAt = &now
}

// IsTerminal reports whether the job has finished, successfully or not
func (j *ProcessingJob) IsTerminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
