// Package excel reads survey files (xlsx or csv) into the typed domain table.
// Column types are resolved from the observed cell texts: a column where every
// observed value parses as a number becomes numeric, then boolean, then
// datetime, falling back to categorical.
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"surveyclean/domain/table"
	"surveyclean/internal"
)

// DataReader handles reading Excel and CSV survey files
type DataReader struct {
	log *internal.Logger
}

// NewDataReader creates a reader for both Excel and CSV files
func NewDataReader(logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{log: logger.Named("reader")}
}

// ReadTable reads a survey file into the typed table. The format is chosen
// from the file extension.
func (r *DataReader) ReadTable(filePath string) (*table.Table, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("survey file not found: %s", filePath)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		rows, err = r.readCSVRows(filePath)
	case ".xlsx", ".xlsm":
		rows, err = r.readExcelRows(filePath)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
	if err != nil {
		return nil, err
	}
	return r.buildTable(rows)
}

func (r *DataReader) readExcelRows(filePath string) ([][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	r.log.Info("read %d rows from sheet %q", len(rows), sheets[0])
	return rows, nil
}

func (r *DataReader) readCSVRows(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	r.log.Info("read %d rows from csv", len(rows))
	return rows, nil
}

// buildTable turns header + data rows into a typed table
func (r *DataReader) buildTable(rows [][]string) (*table.Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("survey file must have a header row and at least one data row")
	}
	header := rows[0]
	data := rows[1:]

	tbl := table.New()
	for c, rawName := range header {
		name := strings.TrimSpace(rawName)
		if name == "" {
			name = fmt.Sprintf("column_%d", c+1)
		}

		texts := make([]string, len(data))
		for i, row := range data {
			if c < len(row) {
				texts[i] = strings.TrimSpace(row[c])
			}
		}

		col := coerceColumn(name, texts)
		if err := tbl.AddColumn(col); err != nil {
			return nil, fmt.Errorf("failed to build table: %w", err)
		}
		r.log.Debug("column %q resolved as %s", name, col.Type)
	}
	return tbl, nil
}

// isMissingText reports whether a cell text means "no answer"
func isMissingText(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "n/a", "null", "nan", "none", "missing":
		return true
	}
	return false
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

// coerceColumn resolves a column type from its observed texts and builds the
// typed cells. A column with no observed values stays categorical.
func coerceColumn(name string, texts []string) *table.Column {
	numeric, boolean, datetime := true, true, true
	observed := 0
	for _, s := range texts {
		if isMissingText(s) {
			continue
		}
		observed++
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			numeric = false
		}
		if _, ok := parseBool(s); !ok {
			boolean = false
		}
		if _, ok := parseDatetime(s); !ok {
			datetime = false
		}
	}

	switch {
	case observed > 0 && numeric:
		col := table.NewColumn(name, table.TypeNumeric)
		for _, s := range texts {
			if isMissingText(s) {
				col.Cells = append(col.Cells, table.Missing(table.TypeNumeric))
				continue
			}
			v, _ := strconv.ParseFloat(s, 64)
			col.Cells = append(col.Cells, table.Numeric(v))
		}
		return col

	case observed > 0 && boolean:
		col := table.NewColumn(name, table.TypeBoolean)
		for _, s := range texts {
			if isMissingText(s) {
				col.Cells = append(col.Cells, table.Missing(table.TypeBoolean))
				continue
			}
			v, _ := parseBool(s)
			col.Cells = append(col.Cells, table.Boolean(v))
		}
		return col

	case observed > 0 && datetime:
		col := table.NewColumn(name, table.TypeDatetime)
		for _, s := range texts {
			if isMissingText(s) {
				col.Cells = append(col.Cells, table.Missing(table.TypeDatetime))
				continue
			}
			v, _ := parseDatetime(s)
			col.Cells = append(col.Cells, table.Datetime(v))
		}
		return col
	}

	col := table.NewColumn(name, table.TypeCategorical)
	for _, s := range texts {
		if isMissingText(s) {
			col.Cells = append(col.Cells, table.Missing(table.TypeCategorical))
		} else {
			col.Cells = append(col.Cells, table.Categorical(s))
		}
	}
	return col
}
