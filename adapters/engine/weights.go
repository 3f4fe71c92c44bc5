package engine

import (
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
	"surveyclean/internal"
)

// WeightEngine computes weighted and unweighted population estimates with
// their confidence intervals
type WeightEngine struct {
	log *internal.Logger
}

// NewWeightEngine creates a weight engine. A nil logger falls back to the
// default logger.
func NewWeightEngine(logger *internal.Logger) *WeightEngine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &WeightEngine{log: logger.Named("weights")}
}

// ApplyWeights computes the configured estimates. When the weight column is
// absent, empty, or not numeric, only the unweighted side is produced and
// WeightingApplied stays false.
func (e *WeightEngine) ApplyWeights(tbl *table.Table, cfg cleaning.WeightConfig) (*cleaning.EstimateSet, error) {
	if err := tbl.Validate(); err != nil {
		return nil, fmt.Errorf("apply weights: %w", err)
	}

	result := &cleaning.EstimateSet{
		Unweighted: map[string]cleaning.Estimate{},
		Log:        []string{},
	}

	weights := e.cleanedWeights(tbl, cfg.WeightColumn)
	if weights != nil {
		result.WeightingApplied = true
		result.Weighted = map[string]cleaning.Estimate{}
		result.WeightStatistics = weightStatistics(weights)
	} else {
		e.log.Warn("weight column %q not usable, computing unweighted estimates only", cfg.WeightColumn)
		result.Log = append(result.Log, "No weight column found, calculating unweighted estimates only")
	}

	for _, req := range cfg.Estimates {
		statistic, err := cleaning.ParseStatistic(req.Statistic)
		if err != nil {
			e.log.Warn("unknown statistic %q for variable %q", req.Statistic, req.Variable)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: req.Variable, Reason: cleaning.SkipUnsupportedMethod, Detail: req.Statistic,
			})
			continue
		}
		col, ok := tbl.Column(req.Variable)
		if !ok {
			e.log.Warn("variable %q not found in dataset", req.Variable)
			result.Skipped = append(result.Skipped, cleaning.SkippedUnit{
				Unit: req.Variable, Reason: cleaning.SkipColumnNotFound,
			})
			continue
		}

		confidence := req.ConfidenceLevel
		if confidence <= 0 || confidence >= 1 {
			confidence = cleaning.DefaultConfidenceLevel
		}
		key := fmt.Sprintf("%s_%s", req.Variable, statistic)

		values, rows := col.Floats()
		unweighted := unweightedEstimate(values, statistic, confidence)
		result.Unweighted[key] = unweighted
		result.Log = append(result.Log,
			fmt.Sprintf("Unweighted %s for %q: %.4f ± %.4f", statistic, req.Variable, unweighted.Estimate, unweighted.MarginOfError))

		if weights == nil {
			continue
		}
		rowWeights := make([]float64, len(rows))
		for j, r := range rows {
			rowWeights[j] = weights[r]
		}
		weighted := weightedEstimate(values, rowWeights, statistic, confidence)
		result.Weighted[key] = weighted
		result.Log = append(result.Log,
			fmt.Sprintf("Weighted %s for %q: %.4f ± %.4f", statistic, req.Variable, weighted.Estimate, weighted.MarginOfError))
	}
	return result, nil
}

// cleanedWeights extracts the weight vector aligned to the table's rows.
// Missing weights default to 1, negative weights are zeroed. Returns nil when
// the column is absent, not numeric, or entirely missing.
func (e *WeightEngine) cleanedWeights(tbl *table.Table, column string) []float64 {
	if column == "" {
		return nil
	}
	col, ok := tbl.Column(column)
	if !ok || !col.IsNumeric() {
		return nil
	}
	observed, _ := col.Floats()
	if len(observed) == 0 {
		return nil
	}

	weights := make([]float64, col.Len())
	negatives := 0
	for i, cell := range col.Cells {
		v, present := cell.Float()
		if !present {
			weights[i] = 1.0
			continue
		}
		if v < 0 {
			negatives++
			v = 0
		}
		weights[i] = v
	}
	if negatives > 0 {
		e.log.Warn("column %q: %d negative weights set to zero", column, negatives)
	}

	if extremeWeights(observed) {
		e.log.Warn("column %q: extreme weights detected (99th percentile exceeds 10x median)", column)
	}
	return weights
}

// extremeWeights reports whether the 99th percentile of the observed weights
// exceeds ten times their median. Negatives are clamped to zero first, the
// same treatment they receive in the cleaned vector.
func extremeWeights(observed []float64) bool {
	clamped := make([]float64, len(observed))
	for i, v := range observed {
		if v < 0 {
			v = 0
		}
		clamped[i] = v
	}
	med := median(clamped)
	q99 := percentile(clamped, 99)
	return med > 0 && q99 > 10*med
}

// weightStatistics summarizes the cleaned weight vector
func weightStatistics(weights []float64) *cleaning.WeightStatistics {
	n := len(weights)
	mean, _ := mstats.Mean(weights)
	std, _ := mstats.StandardDeviationSample(weights)
	min, _ := mstats.Min(weights)
	max, _ := mstats.Max(weights)
	sum, _ := mstats.Sum(weights)

	return &cleaning.WeightStatistics{
		Count:               n,
		Mean:                mean,
		Median:              median(weights),
		Min:                 min,
		Max:                 max,
		Std:                 std,
		Sum:                 sum,
		EffectiveSampleSize: effectiveSampleSize(weights),
	}
}

// effectiveSampleSize is n squared over the sum of squared weights
func effectiveSampleSize(weights []float64) float64 {
	sumSq := 0.0
	for _, w := range weights {
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	n := float64(len(weights))
	return n * n / sumSq
}

// unweightedEstimate computes one simple-random-sample estimate
func unweightedEstimate(values []float64, statistic cleaning.Statistic, confidence float64) cleaning.Estimate {
	n := len(values)
	if n == 0 {
		return emptyEstimate(confidence)
	}

	mean, _ := mstats.Mean(values)
	std, _ := mstats.StandardDeviationSample(values)
	fn := float64(n)

	var estimate, se float64
	switch statistic {
	case cleaning.StatTotal:
		estimate, _ = mstats.Sum(values)
		se = std * math.Sqrt(fn)
	case cleaning.StatProportion:
		estimate = mean
		se = math.Sqrt(estimate * (1 - estimate) / fn)
	default:
		estimate = mean
		se = std / math.Sqrt(fn)
	}

	t := tCritical(fn-1, confidence)
	moe := t * se
	return cleaning.Estimate{
		Estimate:           estimate,
		StandardError:      se,
		MarginOfError:      moe,
		ConfidenceInterval: [2]float64{estimate - moe, estimate + moe},
		ConfidenceLevel:    confidence,
		SampleSize:         n,
	}
}

// weightedEstimate computes one design-weighted estimate; values and weights
// are aligned and cover only the rows where the variable is observed
func weightedEstimate(values, weights []float64, statistic cleaning.Statistic, confidence float64) cleaning.Estimate {
	n := len(values)
	if n == 0 {
		return emptyEstimate(confidence)
	}

	wsum := 0.0
	for _, w := range weights {
		wsum += w
	}
	if wsum == 0 {
		return emptyEstimate(confidence)
	}

	mean := stat.Mean(values, weights)
	wvar := 0.0
	for i, v := range values {
		d := v - mean
		wvar += weights[i] * d * d
	}
	wvar /= wsum
	ess := effectiveSampleSize(weights)

	var estimate, se float64
	switch statistic {
	case cleaning.StatTotal:
		for i, v := range values {
			estimate += v * weights[i]
		}
		se = wsum * math.Sqrt(wvar/ess)
	case cleaning.StatProportion:
		estimate = mean
		se = math.Sqrt(estimate * (1 - estimate) / ess)
	default:
		estimate = mean
		se = math.Sqrt(wvar / ess)
	}

	t := tCritical(ess-1, confidence)
	moe := t * se
	return cleaning.Estimate{
		Estimate:            estimate,
		StandardError:       se,
		MarginOfError:       moe,
		ConfidenceInterval:  [2]float64{estimate - moe, estimate + moe},
		ConfidenceLevel:     confidence,
		SampleSize:          n,
		EffectiveSampleSize: ess,
	}
}

// emptyEstimate is the all-NaN result for a zero valid sample
func emptyEstimate(confidence float64) cleaning.Estimate {
	nan := math.NaN()
	return cleaning.Estimate{
		Estimate:           nan,
		StandardError:      nan,
		MarginOfError:      nan,
		ConfidenceInterval: [2]float64{nan, nan},
		ConfidenceLevel:    confidence,
		SampleSize:         0,
	}
}

// tCritical returns the two-sided Student's t critical value for the given
// degrees of freedom and confidence level; NaN for non-positive df
func tCritical(df, confidence float64) float64 {
	if df <= 0 {
		return math.NaN()
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return dist.Quantile(1 - (1-confidence)/2)
}

// DesignEffect estimates the variance inflation of the weighting scheme for
// one variable: the weighted-to-unweighted variance ratio scaled by the
// sample-to-effective-sample ratio
func (e *WeightEngine) DesignEffect(tbl *table.Table, variable, weightColumn string) (float64, error) {
	col, ok := tbl.Column(variable)
	if !ok {
		return 0, fmt.Errorf("design effect: column %q not found", variable)
	}
	weights := e.cleanedWeights(tbl, weightColumn)
	if weights == nil {
		return 0, fmt.Errorf("design effect: weight column %q not usable", weightColumn)
	}

	values, rows := col.Floats()
	if len(values) < 2 {
		return 0, fmt.Errorf("design effect: column %q has too few observed values", variable)
	}
	rowWeights := make([]float64, len(rows))
	wsum := 0.0
	for j, r := range rows {
		rowWeights[j] = weights[r]
		wsum += weights[r]
	}
	if wsum == 0 {
		return 0, fmt.Errorf("design effect: zero total weight for column %q", variable)
	}

	wmean := stat.Mean(values, rowWeights)
	wvar := 0.0
	for i, v := range values {
		d := v - wmean
		wvar += rowWeights[i] * d * d
	}
	wvar /= wsum

	uvar, _ := mstats.SampleVariance(values)
	if uvar == 0 {
		return 0, fmt.Errorf("design effect: column %q has zero variance", variable)
	}

	n := float64(len(values))
	ess := effectiveSampleSize(rowWeights)
	if ess == 0 {
		return 0, fmt.Errorf("design effect: zero effective sample size for column %q", variable)
	}
	return (wvar / uvar) * (n / ess), nil
}

// Summary compares the weighted and unweighted sides of an estimate set and
// grades the weighting scheme
func (e *WeightEngine) Summary(est *cleaning.EstimateSet) *cleaning.EstimatesSummary {
	summary := &cleaning.EstimatesSummary{}
	if est == nil {
		return summary
	}

	var keys []string
	for key := range est.Weighted {
		if _, ok := est.Unweighted[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		w, u := est.Weighted[key], est.Unweighted[key]
		relDiff := 0.0
		if u.Estimate != 0 {
			relDiff = math.Abs(w.Estimate-u.Estimate) / math.Abs(u.Estimate) * 100
		}
		summary.Comparisons = append(summary.Comparisons, cleaning.EstimateComparison{
			Key:                     key,
			WeightedEstimate:        w.Estimate,
			UnweightedEstimate:      u.Estimate,
			RelativeDifferencePct:   relDiff,
			WeightedMarginOfError:   w.MarginOfError,
			UnweightedMarginOfError: u.MarginOfError,
		})
	}

	if est.WeightStatistics != nil {
		ws := est.WeightStatistics
		cv := 0.0
		if ws.Mean > 0 {
			cv = ws.Std / ws.Mean
		}
		essRatio := 0.0
		if ws.Count > 0 {
			essRatio = ws.EffectiveSampleSize / float64(ws.Count)
		}
		summary.Effectiveness = &cleaning.WeightEffectiveness{
			CoefficientOfVariation:   cv,
			EffectiveSampleSizeRatio: essRatio,
			Assessment:               assessWeighting(cv, essRatio),
		}
	}
	return summary
}

// assessWeighting grades a weighting scheme from the weight coefficient of
// variation and the effective-sample-size ratio
func assessWeighting(cv, essRatio float64) string {
	switch {
	case cv < 0.3 && essRatio > 0.8:
		return "Highly effective weighting - low variability and high effective sample size"
	case cv < 0.5 && essRatio > 0.6:
		return "Moderately effective weighting - acceptable variability and effective sample size"
	case cv < 0.7:
		return "Moderately effective weighting - some precision loss due to weight variability"
	}
	return "Low effectiveness - high weight variability leading to substantial precision loss"
}
