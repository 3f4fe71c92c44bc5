package engine

import (
	"math"

	"github.com/montanaflynn/stats"
)

// sampleSkewness computes the adjusted Fisher-Pearson coefficient of skewness
func sampleSkewness(data []float64) float64 {
	if len(data) < 3 {
		return 0
	}
	mean, _ := stats.Mean(data)
	stdDev, _ := stats.StandardDeviation(data)
	if stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubed := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sumCubed += d * d * d
	}
	skew := sumCubed / n

	// Bias correction for sample skewness
	if n > 2 {
		skew *= math.Sqrt(n*(n-1)) / (n - 2)
	}
	return skew
}

// sampleExcessKurtosis computes the adjusted sample excess kurtosis G2
// (0 for a normal distribution):
// G2 = ((n+1)*g2 + 6) * (n-1) / ((n-2)(n-3)), g2 = m4/m2^2 - 3
func sampleExcessKurtosis(data []float64) float64 {
	if len(data) < 4 {
		return 0
	}
	mean, _ := stats.Mean(data)
	stdDev, _ := stats.StandardDeviation(data)
	if stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumFourth := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sumFourth += d * d * d * d
	}
	g2 := sumFourth/n - 3

	return ((n+1)*g2 + 6) * (n - 1) / ((n - 2) * (n - 3))
}

// median returns the median of data, NaN for empty input
func median(data []float64) float64 {
	m, err := stats.Median(data)
	if err != nil {
		return math.NaN()
	}
	return m
}

// percentile returns the given percentile of data, NaN for empty input
func percentile(data []float64, p float64) float64 {
	v, err := stats.Percentile(data, p)
	if err != nil {
		return math.NaN()
	}
	return v
}

// mad computes the median absolute deviation around the data's median
func mad(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	m := median(data)
	devs := make([]float64, len(data))
	for i, x := range data {
		devs[i] = math.Abs(x - m)
	}
	return median(devs)
}
