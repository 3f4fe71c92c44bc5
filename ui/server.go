// Package ui exposes the HTTP API: survey upload, pipeline job management,
// and report retrieval.
package ui

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"surveyclean/app"
	"surveyclean/internal"
	"surveyclean/internal/reports"
	"surveyclean/ports"
)

// Server represents the web server for the cleaning service
type Server struct {
	router    *gin.Engine
	surveys   ports.SurveyRepository
	jobs      ports.JobRepository
	reader    ports.TableReader
	runner    *app.JobRunner
	reports   *reports.Generator
	uploadDir string
	log       *internal.Logger
}

// NewServer creates a new web server instance
func NewServer(surveys ports.SurveyRepository, jobs ports.JobRepository, reader ports.TableReader, runner *app.JobRunner, uploadDir string, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:    gin.Default(),
		surveys:   surveys,
		jobs:      jobs,
		reader:    reader,
		runner:    runner,
		reports:   reports.NewGenerator(),
		uploadDir: uploadDir,
		log:       logger.Named("http"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/surveys", s.handleUploadSurvey)
		api.GET("/surveys", s.handleListSurveys)
		api.GET("/surveys/:id", s.handleGetSurvey)
		api.DELETE("/surveys/:id", s.handleDeleteSurvey)
		api.GET("/surveys/:id/jobs", s.handleListSurveyJobs)

		api.POST("/surveys/:id/jobs", s.handleCreateJob)
		api.GET("/jobs/:id", s.handleGetJob)
		api.GET("/jobs/:id/result", s.handleGetJobResult)
		api.GET("/jobs/:id/report", s.handleGetJobReport)
	}
}

// Run starts the HTTP server on the given port
func (s *Server) Run(port string) error {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	s.log.Info("listening on :%s", port)
	return s.router.Run(":" + port)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// uploadPath builds the stored path for an uploaded survey file, keeping the
// original extension so the reader can pick a format
func (s *Server) uploadPath(surveyID, originalName string) string {
	return filepath.Join(s.uploadDir, surveyID+filepath.Ext(originalName))
}
