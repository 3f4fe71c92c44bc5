package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyclean/domain/cleaning"
	"surveyclean/domain/table"
)

func TestWeightEngine_UniformWeightsMatchUnweighted(t *testing.T) {
	engine := NewWeightEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("income", []float64{100, 200, 300, 400, 500})).
		MustAddColumn(table.FromFloats("weight", []float64{1, 1, 1, 1, 1}))

	result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
		WeightColumn: "weight",
		Estimates:    []cleaning.EstimateRequest{{Variable: "income", Statistic: "mean"}},
	})
	require.NoError(t, err)
	require.True(t, result.WeightingApplied)

	weighted := result.Weighted["income_mean"]
	unweighted := result.Unweighted["income_mean"]

	assert.InDelta(t, 300, weighted.Estimate, 1e-12)
	assert.InDelta(t, unweighted.Estimate, weighted.Estimate, 1e-12)
	assert.InDelta(t, 5, weighted.EffectiveSampleSize, 1e-12)
	assert.Equal(t, 5, weighted.SampleSize)

	require.NotNil(t, result.WeightStatistics)
	assert.InDelta(t, 5, result.WeightStatistics.EffectiveSampleSize, 1e-12)
	assert.InDelta(t, 1, result.WeightStatistics.Mean, 1e-12)
}

func TestWeightEngine_ConfidenceIntervalReconstructs(t *testing.T) {
	engine := NewWeightEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("income", []float64{100, 200, 300, 400, 500})).
		MustAddColumn(table.FromFloats("weight", []float64{2, 1, 1, 1, 2}))

	result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
		WeightColumn: "weight",
		Estimates: []cleaning.EstimateRequest{
			{Variable: "income", Statistic: "mean", ConfidenceLevel: 0.90},
		},
	})
	require.NoError(t, err)

	for side, est := range map[string]cleaning.Estimate{
		"weighted":   result.Weighted["income_mean"],
		"unweighted": result.Unweighted["income_mean"],
	} {
		assert.InDelta(t, est.Estimate-est.MarginOfError, est.ConfidenceInterval[0], 1e-9, side)
		assert.InDelta(t, est.Estimate+est.MarginOfError, est.ConfidenceInterval[1], 1e-9, side)
		assert.Equal(t, 0.90, est.ConfidenceLevel, side)
		assert.Greater(t, est.MarginOfError, 0.0, side)
	}
}

func TestWeightEngine_WeightedMeanShiftsTowardHeavyRows(t *testing.T) {
	engine := NewWeightEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("score", []float64{10, 20})).
		MustAddColumn(table.FromFloats("weight", []float64{3, 1}))

	result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
		WeightColumn: "weight",
		Estimates:    []cleaning.EstimateRequest{{Variable: "score"}},
	})
	require.NoError(t, err)

	assert.InDelta(t, 12.5, result.Weighted["score_mean"].Estimate, 1e-12)
	assert.InDelta(t, 15, result.Unweighted["score_mean"].Estimate, 1e-12)
}

func TestWeightEngine_TotalEstimate(t *testing.T) {
	engine := NewWeightEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("spend", []float64{10, 20, 30})).
		MustAddColumn(table.FromFloats("weight", []float64{2, 2, 2}))

	result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
		WeightColumn: "weight",
		Estimates:    []cleaning.EstimateRequest{{Variable: "spend", Statistic: "total"}},
	})
	require.NoError(t, err)

	assert.InDelta(t, 120, result.Weighted["spend_total"].Estimate, 1e-12)
	assert.InDelta(t, 60, result.Unweighted["spend_total"].Estimate, 1e-12)
}

func TestWeightEngine_ProportionEstimate(t *testing.T) {
	engine := NewWeightEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("employed", []float64{1, 1, 0, 0})).
		MustAddColumn(table.FromFloats("weight", []float64{1, 1, 1, 1}))

	result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
		WeightColumn: "weight",
		Estimates:    []cleaning.EstimateRequest{{Variable: "employed", Statistic: "proportion"}},
	})
	require.NoError(t, err)

	est := result.Weighted["employed_proportion"]
	assert.InDelta(t, 0.5, est.Estimate, 1e-12)
	assert.InDelta(t, 0.25, est.StandardError, 1e-12)
}

func TestWeightEngine_NoWeightColumn(t *testing.T) {
	engine := NewWeightEngine(nil)
	tbl := table.New().MustAddColumn(
		table.FromFloats("income", []float64{100, 200, 300}))

	result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
		WeightColumn: "weight",
		Estimates:    []cleaning.EstimateRequest{{Variable: "income"}},
	})
	require.NoError(t, err)

	assert.False(t, result.WeightingApplied)
	assert.Nil(t, result.Weighted)
	assert.Nil(t, result.WeightStatistics)
	assert.Contains(t, result.Unweighted, "income_mean")

	found := false
	for _, line := range result.Log {
		if strings.Contains(line, "No weight column found") {
			found = true
		}
	}
	assert.True(t, found, "expected unweighted-only log line")
}

func TestWeightEngine_WeightCleaning(t *testing.T) {
	engine := NewWeightEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("v", []float64{10, 20, 30, 40})).
		MustAddColumn(table.FromFloats("weight", []float64{2, math.NaN(), -3, 1}))

	result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
		WeightColumn: "weight",
		Estimates:    []cleaning.EstimateRequest{{Variable: "v"}},
	})
	require.NoError(t, err)
	require.True(t, result.WeightingApplied)

	// Missing weight becomes 1, negative weight becomes 0:
	// weighted mean = (2*10 + 1*20 + 0*30 + 1*40) / 4 = 20
	assert.InDelta(t, 20, result.Weighted["v_mean"].Estimate, 1e-12)

	ws := result.WeightStatistics
	require.NotNil(t, ws)
	assert.Equal(t, 4, ws.Count)
	assert.InDelta(t, 0, ws.Min, 1e-12)
	assert.InDelta(t, 4, ws.Sum, 1e-12)
}

func TestWeightEngine_SkipsAndEdgeCases(t *testing.T) {
	engine := NewWeightEngine(nil)

	t.Run("variable not found", func(t *testing.T) {
		tbl := table.New().MustAddColumn(table.FromFloats("weight", []float64{1, 1}))
		result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
			WeightColumn: "weight",
			Estimates:    []cleaning.EstimateRequest{{Variable: "ghost"}},
		})
		require.NoError(t, err)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, cleaning.SkipColumnNotFound, result.Skipped[0].Reason)
	})

	t.Run("unknown statistic", func(t *testing.T) {
		tbl := table.New().
			MustAddColumn(table.FromFloats("v", []float64{1, 2})).
			MustAddColumn(table.FromFloats("weight", []float64{1, 1}))
		result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
			WeightColumn: "weight",
			Estimates:    []cleaning.EstimateRequest{{Variable: "v", Statistic: "variance"}},
		})
		require.NoError(t, err)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, cleaning.SkipUnsupportedMethod, result.Skipped[0].Reason)
	})

	t.Run("all values missing", func(t *testing.T) {
		tbl := table.New().
			MustAddColumn(table.FromFloats("v", []float64{math.NaN(), math.NaN()})).
			MustAddColumn(table.FromFloats("weight", []float64{1, 1}))
		result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
			WeightColumn: "weight",
			Estimates:    []cleaning.EstimateRequest{{Variable: "v"}},
		})
		require.NoError(t, err)

		est := result.Weighted["v_mean"]
		assert.Equal(t, 0, est.SampleSize)
		assert.True(t, math.IsNaN(est.Estimate))
		assert.True(t, math.IsNaN(est.MarginOfError))
	})
}

func TestWeightEngine_DesignEffect(t *testing.T) {
	engine := NewWeightEngine(nil)
	tbl := table.New().
		MustAddColumn(table.FromFloats("income", []float64{100, 200, 300, 400})).
		MustAddColumn(table.FromFloats("uniform", []float64{1, 1, 1, 1})).
		MustAddColumn(table.FromFloats("varied", []float64{1, 1, 1, 5}))

	t.Run("uniform weights have no design effect on variance ratio", func(t *testing.T) {
		deff, err := engine.DesignEffect(tbl, "income", "uniform")
		require.NoError(t, err)
		// Weighted variance is the population variance; the sample-variance
		// denominator leaves the (n-1)/n factor
		assert.InDelta(t, 0.75, deff, 1e-12)
	})

	t.Run("varied weights inflate the design effect", func(t *testing.T) {
		uniform, err := engine.DesignEffect(tbl, "income", "uniform")
		require.NoError(t, err)
		varied, err := engine.DesignEffect(tbl, "income", "varied")
		require.NoError(t, err)
		assert.Greater(t, varied, uniform)
	})

	t.Run("missing column errors", func(t *testing.T) {
		_, err := engine.DesignEffect(tbl, "ghost", "uniform")
		assert.Error(t, err)
	})
}

func TestWeightEngine_Summary(t *testing.T) {
	engine := NewWeightEngine(nil)

	t.Run("uniform weights grade as highly effective", func(t *testing.T) {
		tbl := table.New().
			MustAddColumn(table.FromFloats("income", []float64{100, 200, 300})).
			MustAddColumn(table.FromFloats("weight", []float64{1, 1, 1}))

		result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
			WeightColumn: "weight",
			Estimates:    []cleaning.EstimateRequest{{Variable: "income"}},
		})
		require.NoError(t, err)

		summary := engine.Summary(result)
		require.Len(t, summary.Comparisons, 1)
		assert.Equal(t, "income_mean", summary.Comparisons[0].Key)
		assert.InDelta(t, 0, summary.Comparisons[0].RelativeDifferencePct, 1e-12)

		require.NotNil(t, summary.Effectiveness)
		assert.InDelta(t, 0, summary.Effectiveness.CoefficientOfVariation, 1e-12)
		assert.InDelta(t, 1, summary.Effectiveness.EffectiveSampleSizeRatio, 1e-12)
		assert.Equal(t,
			"Highly effective weighting - low variability and high effective sample size",
			summary.Effectiveness.Assessment)
	})

	t.Run("extreme weights grade as low effectiveness", func(t *testing.T) {
		weights := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 50}
		values := make([]float64, len(weights))
		for i := range values {
			values[i] = float64(i * 10)
		}
		tbl := table.New().
			MustAddColumn(table.FromFloats("v", values)).
			MustAddColumn(table.FromFloats("weight", weights))

		result, err := engine.ApplyWeights(tbl, cleaning.WeightConfig{
			WeightColumn: "weight",
			Estimates:    []cleaning.EstimateRequest{{Variable: "v"}},
		})
		require.NoError(t, err)

		summary := engine.Summary(result)
		require.NotNil(t, summary.Effectiveness)
		assert.Equal(t,
			"Low effectiveness - high weight variability leading to substantial precision loss",
			summary.Effectiveness.Assessment)
	})

	t.Run("nil set yields empty summary", func(t *testing.T) {
		summary := engine.Summary(nil)
		assert.Empty(t, summary.Comparisons)
		assert.Nil(t, summary.Effectiveness)
	})
}

func TestExtremeWeights(t *testing.T) {
	t.Run("negatives clamp before the quantile check", func(t *testing.T) {
		// Clamped to [0, 0, 2, 50] the median is 1 and the 99th percentile 50
		assert.True(t, extremeWeights([]float64{-2, -2, 2, 50}))
	})

	t.Run("uniform weights are not extreme", func(t *testing.T) {
		assert.False(t, extremeWeights([]float64{1, 1, 1, 1}))
	})

	t.Run("heavy tail is extreme", func(t *testing.T) {
		assert.True(t, extremeWeights([]float64{5, 5, 5, 100}))
	})
}
