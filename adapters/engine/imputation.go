// Package engine implements the four statistical cleaning engines: missing
// value imputation, outlier detection, rule-based validation, and design
// weight estimation. Each engine is a synchronous, single-threaded
// computation: it clones the input table, transforms the clone, and returns
// it with a structured stats record. Expected per-unit problems (a configured
// column missing from the table, an unsupported method) are recorded as skips
// in the stats, never raised as errors; only a malformed table fails a stage.
package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
	"surveyclean/internal"
)

// ImputationEngine fills missing values per column with a configured method.
// The label-encoder cache used by knn imputation is scoped to a single
// ImputeMissingValues call, so encodings never leak across datasets and one
// engine instance is safe to share.
type ImputationEngine struct {
	log *internal.Logger
}

// NewImputationEngine creates an imputation engine. A nil logger falls back
// to the default logger.
func NewImputationEngine(logger *internal.Logger) *ImputationEngine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ImputationEngine{log: logger.Named("imputation")}
}

// ImputeMissingValues fills missing values based on the per-column config and
// returns the transformed table with imputation statistics. The input table
// is never mutated.
func (e *ImputationEngine) ImputeMissingValues(tbl *table.Table, cfg cleaning.ImputationConfig) (*table.Table, *cleaning.ImputationStats, error) {
	if err := tbl.Validate(); err != nil {
		return nil, nil, fmt.Errorf("impute: %w", err)
	}

	out := tbl.Clone()
	encoders := make(map[string]*labelEncoder)
	result := &cleaning.ImputationStats{
		TotalMissingBefore: tbl.TotalMissing(),
		ColumnsProcessed:   []cleaning.ColumnImputationResult{},
		Log:                []string{},
	}

	for _, name := range sortedKeys(cfg) {
		colCfg := cfg[name]

		col, ok := out.Column(name)
		if !ok {
			e.log.Warn("column %q not found in dataset", name)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: name, Reason: cleaning.SkipColumnNotFound,
			})
			continue
		}

		missing := col.MissingCount()
		if missing == 0 {
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: name, Reason: cleaning.SkipNoMissingValues,
			})
			continue
		}

		methodStr := colCfg.Method
		if methodStr == "" {
			methodStr = string(cleaning.ImputeMean)
		}
		method, err := cleaning.ParseImputationMethod(methodStr)
		if err != nil {
			e.log.Warn("unsupported imputation method %q for column %q", methodStr, name)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: name, Reason: cleaning.SkipUnsupportedMethod, Detail: methodStr,
			})
			continue
		}

		e.log.Info("imputing %d missing values in column %q using %s", missing, name, method)

		if skip, ok := e.imputeColumn(out, col, method, colCfg, encoders); !ok {
			e.log.Warn("skipping column %q: %s", name, skip.Reason)
			result.Skipped = append(result.Skipped, skip)
			continue
		}

		imputed := missing - col.MissingCount()
		result.ColumnsProcessed = append(result.ColumnsProcessed, cleaning.ColumnImputationResult{
			Column:       name,
			Method:       method,
			MissingCount: missing,
			ImputedCount: imputed,
		})
		result.Log = append(result.Log,
			fmt.Sprintf("Column %q: Imputed %d values using %s", name, imputed, method))
	}

	result.TotalMissingAfter = out.TotalMissing()
	result.TotalImputed = result.TotalMissingBefore - result.TotalMissingAfter
	return out, result, nil
}

// imputeColumn applies one method to one column of tbl in place. The second
// return is false when the column had to be skipped.
func (e *ImputationEngine) imputeColumn(tbl *table.Table, col *table.Column, method cleaning.ImputationMethod, cfg cleaning.ColumnImputation, encoders map[string]*labelEncoder) (cleaning.SkippedUnit, bool) {
	switch method {
	case cleaning.ImputeMean, cleaning.ImputeMedian:
		if !col.IsNumeric() {
			return cleaning.SkippedUnit{Unit: col.Name, Reason: cleaning.SkipNotNumeric, Detail: string(method)}, false
		}
		values, _ := col.Floats()
		if len(values) == 0 {
			return cleaning.SkippedUnit{Unit: col.Name, Reason: cleaning.SkipNoObservedValues}, false
		}
		var fill float64
		if method == cleaning.ImputeMean {
			fill, _ = stats.Mean(values)
		} else {
			fill, _ = stats.Median(values)
		}
		fillMissing(col, table.Numeric(fill))
		return cleaning.SkippedUnit{}, true

	case cleaning.ImputeMode:
		mode, ok := modeValue(col)
		if !ok {
			return cleaning.SkippedUnit{Unit: col.Name, Reason: cleaning.SkipNoObservedValues, Detail: "no mode"}, false
		}
		fillMissing(col, mode)
		return cleaning.SkippedUnit{}, true

	case cleaning.ImputeKNN:
		neighbors := cfg.Neighbors
		if neighbors <= 0 {
			neighbors = cleaning.DefaultNeighbors
		}
		if !e.knnImpute(tbl, col, neighbors, encoders) {
			return cleaning.SkippedUnit{Unit: col.Name, Reason: cleaning.SkipNoObservedValues, Detail: "cannot encode"}, false
		}
		return cleaning.SkippedUnit{}, true
	}
	return cleaning.SkippedUnit{Unit: col.Name, Reason: cleaning.SkipUnsupportedMethod}, false
}

// knnImpute runs k-nearest-neighbor imputation for one target column using
// every numeric column of the table as the feature space. Categorical targets
// are label-encoded over their observed values first and decoded back after
// imputation (averaged codes round to the nearest code and saturate at the
// encoding range). Returns false when the target cannot be encoded.
func (e *ImputationEngine) knnImpute(tbl *table.Table, col *table.Column, k int, encoders map[string]*labelEncoder) bool {
	numericNames := tbl.NumericColumnNames()

	var enc *labelEncoder
	if !col.IsNumeric() {
		enc = encoders[col.Name]
		if enc == nil {
			var observed []string
			for _, cell := range col.Cells {
				if !cell.IsMissing && cell.StringVal != nil {
					observed = append(observed, *cell.StringVal)
				}
			}
			enc = newLabelEncoder(observed)
			if enc == nil {
				return false
			}
			encoders[col.Name] = enc
		}
	}

	// Assemble the feature matrix: all numeric columns, plus the encoded
	// target appended when the target itself is categorical.
	width := len(numericNames)
	targetIdx := -1
	for f, name := range numericNames {
		if name == col.Name {
			targetIdx = f
		}
	}
	if enc != nil {
		targetIdx = width
		width++
	}
	if targetIdx < 0 {
		return false
	}

	n := tbl.NumRows()
	matrix := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, width)
		for f, name := range numericNames {
			c, _ := tbl.Column(name)
			if v, ok := c.Cells[i].Float(); ok {
				row[f] = v
			} else {
				row[f] = math.NaN()
			}
		}
		if enc != nil {
			row[targetIdx] = math.NaN()
			cell := col.Cells[i]
			if !cell.IsMissing && cell.StringVal != nil {
				if code, ok := enc.encode(*cell.StringVal); ok {
					row[targetIdx] = float64(code)
				}
			}
		}
		matrix[i] = row
	}

	imputed := knnImputeColumn(matrix, targetIdx, k)

	for i := range col.Cells {
		if !col.Cells[i].IsMissing || math.IsNaN(imputed[i]) {
			continue
		}
		if enc != nil {
			code := int(math.Round(imputed[i]))
			col.Cells[i] = table.Categorical(enc.decode(code))
		} else {
			col.Cells[i] = table.Numeric(imputed[i])
		}
	}
	return true
}

// SuggestMethod recommends an imputation method for a column based on its
// missing rate and value distribution
func (e *ImputationEngine) SuggestMethod(tbl *table.Table, column string) cleaning.MethodSuggestion {
	col, ok := tbl.Column(column)
	if !ok {
		return cleaning.MethodSuggestion{Reason: "Column not found"}
	}

	n := col.Len()
	if n == 0 {
		return cleaning.MethodSuggestion{Reason: "No data"}
	}
	missing := col.MissingCount()
	missingPct := float64(missing) / float64(n)

	if missing == 0 {
		return cleaning.MethodSuggestion{Reason: "No missing values"}
	}
	if missingPct > 0.5 {
		return cleaning.MethodSuggestion{
			Method: "drop_column",
			Reason: fmt.Sprintf("Too many missing values (%.1f%%)", missingPct*100),
		}
	}

	if col.IsNumeric() {
		observed := n - missing
		if float64(col.DistinctObserved())/float64(observed) < 0.1 {
			return cleaning.MethodSuggestion{
				Method: string(cleaning.ImputeMode),
				Reason: "Numeric but categorical-like distribution",
			}
		}
		if missingPct < 0.1 {
			return cleaning.MethodSuggestion{
				Method: string(cleaning.ImputeMean),
				Reason: "Low missing percentage, numeric data",
			}
		}
		return cleaning.MethodSuggestion{
			Method: string(cleaning.ImputeKNN),
			Reason: "Higher missing percentage, numeric data",
		}
	}
	return cleaning.MethodSuggestion{
		Method: string(cleaning.ImputeMode),
		Reason: "Categorical data",
	}
}

// Report compares the table before and after an imputation pass, breaking
// missing counts down per column
func (e *ImputationEngine) Report(before, after *table.Table) *cleaning.ImputationReport {
	report := &cleaning.ImputationReport{
		TotalRows:     before.NumRows(),
		TotalColumns:  before.NumColumns(),
		MissingBefore: before.TotalMissing(),
		MissingAfter:  after.TotalMissing(),
	}
	for _, col := range before.Columns() {
		missingBefore := col.MissingCount()
		missingAfter := 0
		if afterCol, ok := after.Column(col.Name); ok {
			missingAfter = afterCol.MissingCount()
		}
		detail := cleaning.ColumnMissingDetail{
			Column:        col.Name,
			MissingBefore: missingBefore,
			MissingAfter:  missingAfter,
			ImputedCount:  missingBefore - missingAfter,
		}
		if before.NumRows() > 0 {
			detail.MissingPctBefore = float64(missingBefore) / float64(before.NumRows())
		}
		if after.NumRows() > 0 {
			detail.MissingPctAfter = float64(missingAfter) / float64(after.NumRows())
		}
		report.ColumnDetails = append(report.ColumnDetails, detail)
	}
	return report
}

// fillMissing replaces every missing cell of col with v
func fillMissing(col *table.Column, v table.Value) {
	for i := range col.Cells {
		if col.Cells[i].IsMissing {
			col.Cells[i] = v
		}
	}
}

// modeValue returns the most frequent observed value. Ties break toward the
// smaller display representation so the result is deterministic.
func modeValue(col *table.Column) (table.Value, bool) {
	counts := make(map[string]int)
	values := make(map[string]table.Value)
	for _, cell := range col.Cells {
		if cell.IsMissing {
			continue
		}
		key := cell.String()
		counts[key]++
		if _, seen := values[key]; !seen {
			values[key] = cell
		}
	}
	if len(counts) == 0 {
		return table.Value{}, false
	}

	best := ""
	for key := range counts {
		if best == "" || counts[key] > counts[best] || (counts[key] == counts[best] && key < best) {
			best = key
		}
	}
	return values[best], true
}

// sortedKeys returns map keys in sorted order for deterministic processing
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
