package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"surveyclean/adapters/excel"
	"surveyclean/adapters/postgres"
	"surveyclean/app"
	"surveyclean/internal"
	"surveyclean/internal/config"
	"surveyclean/ui"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	logger := internal.DefaultLogger

	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	surveys := postgres.NewSurveyRepository(db)
	jobs := postgres.NewJobRepository(db)
	reader := excel.NewDataReader(logger)
	pipeline := app.NewPipelineService(logger)
	runner := app.NewJobRunner(surveys, jobs, reader, pipeline, cfg.Jobs.MaxConcurrent, logger)

	server := ui.NewServer(surveys, jobs, reader, runner, cfg.Paths.UploadDir, logger)
	if err := server.Run(cfg.Server.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
