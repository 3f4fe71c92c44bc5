// Command cli runs the cleaning pipeline on a local survey file with a JSON
// pipeline config and prints the report.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"surveyclean/adapters/excel"
	"surveyclean/app"
	"surveyclean/domain/cleaning"
	"surveyclean/internal"
	"surveyclean/internal/reports"
)

func main() {
	_ = godotenv.Load()

	var (
		dataPath   = flag.String("data", "", "survey file (.csv or .xlsx)")
		configPath = flag.String("config", "", "pipeline config JSON file")
		format     = flag.String("format", "markdown", "report format: markdown, html, or json")
	)
	flag.Parse()

	if *dataPath == "" || *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfgBytes, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("reading config: %v", err)
	}
	var cfg cleaning.PipelineConfig
	if err := json.Unmarshal(cfgBytes, &cfg); err != nil {
		log.Fatalf("parsing config: %v", err)
	}

	logger := internal.DefaultLogger
	reader := excel.NewDataReader(logger)
	tbl, err := reader.ReadTable(*dataPath)
	if err != nil {
		log.Fatalf("reading survey: %v", err)
	}

	pipeline := app.NewPipelineService(logger)
	_, result, err := pipeline.Run(tbl, cfg)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	name := filepath.Base(*dataPath)
	gen := reports.NewGenerator()
	switch *format {
	case "json":
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("encoding result: %v", err)
		}
		fmt.Println(string(out))
	case "html":
		os.Stdout.Write(gen.HTML(name, result))
	default:
		fmt.Print(gen.Markdown(name, result))
	}
}
