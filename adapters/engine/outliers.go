package engine

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
	"surveyclean/internal"
)

// OutlierEngine detects and treats outliers in numeric columns
type OutlierEngine struct {
	log *internal.Logger
}

// NewOutlierEngine creates an outlier engine. A nil logger falls back to the
// default logger.
func NewOutlierEngine(logger *internal.Logger) *OutlierEngine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &OutlierEngine{log: logger.Named("outliers")}
}

// DetectOutliers runs detection and treatment per the per-column config and
// returns the transformed table with outlier statistics.
//
// Detection masks for every column are computed from the original input
// table, so a remove action on one column never shifts the bounds of another
// column processed later in the same call. Row removals from all columns are
// combined and applied once.
func (e *OutlierEngine) DetectOutliers(tbl *table.Table, cfg cleaning.OutlierConfig) (*table.Table, *cleaning.OutlierStats, error) {
	if err := tbl.Validate(); err != nil {
		return nil, nil, fmt.Errorf("detect outliers: %w", err)
	}

	out := tbl.Clone()
	n := tbl.NumRows()
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}
	removing := false

	result := &cleaning.OutlierStats{
		ColumnsProcessed: []cleaning.ColumnOutlierResult{},
		Log:              []string{},
	}

	for _, name := range sortedKeys(cfg) {
		colCfg := cfg[name]

		col, ok := tbl.Column(name)
		if !ok {
			e.log.Warn("column %q not found in dataset", name)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: name, Reason: cleaning.SkipColumnNotFound,
			})
			continue
		}
		if !col.IsNumeric() {
			e.log.Warn("column %q is not numeric, skipping outlier detection", name)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: name, Reason: cleaning.SkipNotNumeric,
			})
			continue
		}

		methodStr := colCfg.Method
		if methodStr == "" {
			methodStr = string(cleaning.OutlierIQR)
		}
		method, err := cleaning.ParseOutlierMethod(methodStr)
		if err != nil {
			e.log.Warn("unknown outlier detection method %q for column %q", methodStr, name)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: name, Reason: cleaning.SkipUnsupportedMethod, Detail: methodStr,
			})
			continue
		}
		action, err := cleaning.ParseOutlierAction(colCfg.Action)
		if err != nil {
			e.log.Warn("unknown outlier action %q for column %q", colCfg.Action, name)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: name, Reason: cleaning.SkipUnsupportedMethod, Detail: colCfg.Action,
			})
			continue
		}

		mask := detectColumnOutliers(col, method, colCfg)
		count := 0
		for _, flagged := range mask {
			if flagged {
				count++
			}
		}

		if count > 0 {
			e.log.Info("detected %d outliers in column %q using %s", count, name, method)
			switch action {
			case cleaning.ActionRemove:
				for i, flagged := range mask {
					if flagged {
						keep[i] = false
					}
				}
				removing = true
			case cleaning.ActionWinsorize:
				winsorizeColumn(out, col, colCfg)
			case cleaning.ActionFlag:
				flagCol := table.NewColumn(name+"_outlier_flag", table.TypeBoolean)
				for _, flagged := range mask {
					flagCol.Cells = append(flagCol.Cells, table.Boolean(flagged))
				}
				// Re-running over an already flagged table overwrites the flag
				if err := out.SetColumn(flagCol); err != nil {
					return nil, nil, fmt.Errorf("detect outliers: %w", err)
				}
			}
		}

		result.ColumnsProcessed = append(result.ColumnsProcessed, cleaning.ColumnOutlierResult{
			Column:            name,
			Method:            method,
			Action:            action,
			OutlierCount:      count,
			OutlierPercentage: float64(count) / float64(n) * 100,
			RowsEvaluated:     n,
		})
		result.Log = append(result.Log,
			fmt.Sprintf("Column %q: Detected %d outliers using %s, action: %s", name, count, method, action))
		result.TotalOutliersDetected += count
	}

	if removing {
		filtered, err := out.FilterRows(keep)
		if err != nil {
			return nil, nil, fmt.Errorf("detect outliers: %w", err)
		}
		out = filtered
	}
	return out, result, nil
}

// detectColumnOutliers produces a per-row boolean mask; missing cells are
// never flagged
func detectColumnOutliers(col *table.Column, method cleaning.OutlierMethod, cfg cleaning.ColumnOutlier) []bool {
	mask := make([]bool, col.Len())
	observed, rows := col.Floats()
	if len(observed) == 0 {
		return mask
	}

	switch method {
	case cleaning.OutlierIQR:
		multiplier := cfg.IQRMultiplier
		if multiplier <= 0 {
			multiplier = cleaning.DefaultIQRMultiplier
		}
		q1 := percentile(observed, 25)
		q3 := percentile(observed, 75)
		iqr := q3 - q1
		lower := q1 - multiplier*iqr
		upper := q3 + multiplier*iqr
		for j, v := range observed {
			if v < lower || v > upper {
				mask[rows[j]] = true
			}
		}

	case cleaning.OutlierZScore:
		threshold := cfg.ZScoreThreshold
		if threshold <= 0 {
			threshold = cleaning.DefaultZScoreThreshold
		}
		mean, _ := stats.Mean(observed)
		// Population standard deviation, matching the standard score definition
		std, _ := stats.StandardDeviationPopulation(observed)
		if std == 0 {
			return mask
		}
		for j, v := range observed {
			if math.Abs((v-mean)/std) > threshold {
				mask[rows[j]] = true
			}
		}

	case cleaning.OutlierModifiedZScore:
		threshold := cfg.ModifiedZThreshold
		if threshold <= 0 {
			threshold = cleaning.DefaultModifiedZThreshold
		}
		med := median(observed)
		deviation := mad(observed)
		if deviation == 0 {
			return mask
		}
		for j, v := range observed {
			if math.Abs(0.6745*(v-med)/deviation) > threshold {
				mask[rows[j]] = true
			}
		}
	}
	return mask
}

// winsorizeColumn clips the named column in tbl to percentile bounds computed
// from col's observed values (col is the original, unclipped column)
func winsorizeColumn(tbl *table.Table, col *table.Column, cfg cleaning.ColumnOutlier) {
	lowerPct := cfg.LowerPercentile
	if lowerPct <= 0 {
		lowerPct = cleaning.DefaultLowerPercentile
	}
	upperPct := cfg.UpperPercentile
	if upperPct <= 0 {
		upperPct = cleaning.DefaultUpperPercentile
	}

	observed, _ := col.Floats()
	lower := percentile(observed, lowerPct*100)
	upper := percentile(observed, upperPct*100)

	target, ok := tbl.Column(col.Name)
	if !ok {
		return
	}
	for i := range target.Cells {
		v, present := target.Cells[i].Float()
		if !present {
			continue
		}
		if v < lower {
			target.Cells[i] = table.Numeric(lower)
		} else if v > upper {
			target.Cells[i] = table.Numeric(upper)
		}
	}
}

// SuggestMethod recommends a detection method for a column based on the
// shape of its observed distribution
func (e *OutlierEngine) SuggestMethod(tbl *table.Table, column string) cleaning.MethodSuggestion {
	col, ok := tbl.Column(column)
	if !ok {
		return cleaning.MethodSuggestion{Reason: "Column not found"}
	}
	if !col.IsNumeric() {
		return cleaning.MethodSuggestion{Reason: "Column is not numeric"}
	}
	observed, _ := col.Floats()
	if len(observed) == 0 {
		return cleaning.MethodSuggestion{Reason: "No valid data"}
	}

	skew := math.Abs(sampleSkewness(observed))
	kurt := sampleExcessKurtosis(observed)

	switch {
	case skew > 2 || kurt > 7:
		return cleaning.MethodSuggestion{
			Method: string(cleaning.OutlierModifiedZScore),
			Reason: "Highly skewed or heavy-tailed distribution",
		}
	case skew > 1:
		return cleaning.MethodSuggestion{
			Method: string(cleaning.OutlierIQR),
			Reason: "Moderately skewed distribution",
		}
	}
	return cleaning.MethodSuggestion{
		Method: string(cleaning.OutlierZScore),
		Reason: "Normal-like distribution",
	}
}

// ColumnStatistics computes detailed outlier statistics for one column under
// the given method and config
func (e *OutlierEngine) ColumnStatistics(tbl *table.Table, column string, method cleaning.OutlierMethod, cfg cleaning.ColumnOutlier) (*cleaning.ColumnOutlierStatistics, error) {
	col, ok := tbl.Column(column)
	if !ok {
		return nil, fmt.Errorf("outlier statistics: column %q not found", column)
	}
	if !col.IsNumeric() {
		return nil, fmt.Errorf("outlier statistics: column %q is not numeric", column)
	}
	observed, _ := col.Floats()
	if len(observed) == 0 {
		return nil, fmt.Errorf("outlier statistics: column %q has no valid data", column)
	}

	mask := detectColumnOutliers(col, method, cfg)
	var outliers []float64
	count := 0
	for i, flagged := range mask {
		if flagged {
			count++
			if v, present := col.Cells[i].Float(); present {
				outliers = append(outliers, v)
			}
		}
	}

	mean, _ := stats.Mean(observed)
	std, _ := stats.StandardDeviationSample(observed)
	min, _ := stats.Min(observed)
	max, _ := stats.Max(observed)

	out := &cleaning.ColumnOutlierStatistics{
		Method:            method,
		TotalCount:        len(observed),
		OutlierCount:      count,
		OutlierPercentage: float64(count) / float64(col.Len()) * 100,
		Distribution: cleaning.DistributionStats{
			Mean:     mean,
			Median:   median(observed),
			Std:      std,
			Skewness: sampleSkewness(observed),
			Kurtosis: sampleExcessKurtosis(observed),
			Min:      min,
			Max:      max,
			Q1:       percentile(observed, 25),
			Q3:       percentile(observed, 75),
		},
	}

	if len(outliers) > 0 {
		oMin, _ := stats.Min(outliers)
		oMax, _ := stats.Max(outliers)
		oMean, _ := stats.Mean(outliers)
		oStd, _ := stats.StandardDeviationSample(outliers)
		out.OutlierStats = &cleaning.OutlierSubsetStats{
			Min: oMin, Max: oMax, Mean: oMean, Std: oStd,
		}
	}

	if method == cleaning.OutlierIQR {
		multiplier := cfg.IQRMultiplier
		if multiplier <= 0 {
			multiplier = cleaning.DefaultIQRMultiplier
		}
		q1 := percentile(observed, 25)
		q3 := percentile(observed, 75)
		iqr := q3 - q1
		out.Bounds = &cleaning.IQRBounds{
			Multiplier: multiplier,
			Q1:         q1,
			Q3:         q3,
			IQR:        iqr,
			LowerBound: q1 - multiplier*iqr,
			UpperBound: q3 + multiplier*iqr,
		}
	}
	return out, nil
}
