package engine

import (
	"math"
	"sort"
)

// knnImputeColumn fills the missing entries of the target column using
// k-nearest-neighbor averaging over the rows of a numeric feature matrix.
//
// matrix is row-major with NaN marking missing entries; target is the column
// index to impute. Distance between two rows is the NaN-aware Euclidean
// distance: squared differences over features observed in both rows, scaled
// by totalFeatures/sharedFeatures before the square root. Only rows with an
// observed target value are candidates; when no candidate shares a feature
// with the query row, the observed-target mean is used as a fallback.
func knnImputeColumn(matrix [][]float64, target, k int) []float64 {
	n := len(matrix)
	out := make([]float64, n)

	var candidates []int
	targetSum := 0.0
	for i := 0; i < n; i++ {
		out[i] = matrix[i][target]
		if !math.IsNaN(matrix[i][target]) {
			candidates = append(candidates, i)
			targetSum += matrix[i][target]
		}
	}
	if len(candidates) == 0 {
		return out
	}
	targetMean := targetSum / float64(len(candidates))

	type neighbor struct {
		row  int
		dist float64
	}

	for i := 0; i < n; i++ {
		if !math.IsNaN(matrix[i][target]) {
			continue
		}

		var neighbors []neighbor
		for _, j := range candidates {
			if d, ok := nanEuclidean(matrix[i], matrix[j], target); ok {
				neighbors = append(neighbors, neighbor{row: j, dist: d})
			}
		}
		if len(neighbors) == 0 {
			out[i] = targetMean
			continue
		}

		sort.Slice(neighbors, func(a, b int) bool {
			if neighbors[a].dist != neighbors[b].dist {
				return neighbors[a].dist < neighbors[b].dist
			}
			return neighbors[a].row < neighbors[b].row
		})
		if len(neighbors) > k {
			neighbors = neighbors[:k]
		}

		sum := 0.0
		for _, nb := range neighbors {
			sum += matrix[nb.row][target]
		}
		out[i] = sum / float64(len(neighbors))
	}
	return out
}

// nanEuclidean computes the NaN-aware Euclidean distance between two rows,
// ignoring the target column itself. Returns false when the rows share no
// observed feature.
func nanEuclidean(a, b []float64, target int) (float64, bool) {
	total := 0
	shared := 0
	sumSq := 0.0
	for f := range a {
		if f == target {
			continue
		}
		total++
		if math.IsNaN(a[f]) || math.IsNaN(b[f]) {
			continue
		}
		shared++
		d := a[f] - b[f]
		sumSq += d * d
	}
	if shared == 0 {
		if total == 0 {
			// Single-column matrix: every candidate is equidistant
			return 0, true
		}
		return 0, false
	}
	return math.Sqrt(sumSq * float64(total) / float64(shared)), true
}
