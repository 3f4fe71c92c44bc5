package ui

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/core"
	"surveyclean/domain/survey"
)

// handleUploadSurvey accepts a multipart survey file, stores it, ingests it
// for dataset statistics, and creates the survey record
func (s *Server) handleUploadSurvey(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = file.Filename
	}

	record := survey.NewSurvey(name, file.Filename, "", file.Size)
	record.FilePath = s.uploadPath(record.ID.String(), file.Filename)

	if err := c.SaveUploadedFile(file, record.FilePath); err != nil {
		s.log.Error("saving upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	tbl, err := s.reader.ReadTable(record.FilePath)
	if err != nil {
		record.MarkFailed(err.Error())
	} else {
		missingRate := 0.0
		if cells := tbl.NumRows() * tbl.NumColumns(); cells > 0 {
			missingRate = float64(tbl.TotalMissing()) / float64(cells)
		}
		record.RecordIngestion(tbl.NumRows(), tbl.NumColumns(), missingRate)
	}

	if err := s.surveys.Create(c.Request.Context(), record); err != nil {
		s.log.Error("persisting survey failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save survey"})
		return
	}

	status := http.StatusCreated
	if record.Status == survey.SurveyFailed {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, record)
}

func (s *Server) handleListSurveys(c *gin.Context) {
	limit, offset := pagination(c)
	surveys, err := s.surveys.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list surveys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"surveys": surveys})
}

func (s *Server) handleGetSurvey(c *gin.Context) {
	id, err := core.ParseSurveyID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := s.surveys.GetByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleDeleteSurvey(c *gin.Context) {
	id, err := core.ParseSurveyID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.surveys.Delete(c.Request.Context(), id); err != nil {
		respondRepoError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListSurveyJobs(c *gin.Context) {
	id, err := core.ParseSurveyID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	jobs, err := s.jobs.ListBySurvey(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// handleCreateJob creates a processing job from the posted pipeline config
// and starts it in the background
func (s *Server) handleCreateJob(c *gin.Context) {
	surveyID, err := core.ParseSurveyID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.surveys.GetByID(c.Request.Context(), surveyID); err != nil {
		respondRepoError(c, err)
		return
	}

	var cfg cleaning.PipelineConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pipeline config: " + err.Error()})
		return
	}

	job := survey.NewProcessingJob(surveyID, cfg)
	if err := s.jobs.Create(c.Request.Context(), job); err != nil {
		s.log.Error("persisting job failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	// The job outlives the request, so it runs under a fresh context
	go func(jobID core.JobID) {
		if err := s.runner.RunJob(context.Background(), jobID); err != nil {
			s.log.Error("job %s failed: %v", jobID, err)
		}
	}(job.ID)

	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleGetJobResult(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	if job.Result == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "job has no result yet",
			"status": job.Status,
		})
		return
	}
	c.JSON(http.StatusOK, job.Result)
}

// handleGetJobReport renders the job's result as an HTML cleaning report
func (s *Server) handleGetJobReport(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	if job.Result == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "job has no result yet",
			"status": job.Status,
		})
		return
	}

	name := job.SurveyID.String()
	if record, err := s.surveys.GetByID(c.Request.Context(), job.SurveyID); err == nil {
		name = record.Name
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.reports.HTML(name, job.Result))
}

func (s *Server) lookupJob(c *gin.Context) (*survey.ProcessingJob, bool) {
	id, err := core.ParseJobID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	job, err := s.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return nil, false
	}
	return job, true
}

func respondRepoError(c *gin.Context, err error) {
	if core.IsNotFoundError(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, offset = 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := parsePositive(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := parsePositive(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}
