package evaluation

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Silhouette returns the mean silhouette coefficient of a clustering, or
// nil when fewer than two clusters are populated or every row is its own
// cluster.
func Silhouette(X [][]float64, labels []int) *float64 {
	if len(X) == 0 || len(X) != len(labels) {
		return nil
	}
	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) >= len(X) {
		return nil
	}

	var total float64
	for i, xi := range X {
		if sizes[labels[i]] == 1 {
			// singleton clusters score 0
			continue
		}
		sums := make(map[int]float64, len(sizes))
		for j, xj := range X {
			if i == j {
				continue
			}
			sums[labels[j]] += euclidean(xi, xj)
		}

		a := sums[labels[i]] / float64(sizes[labels[i]]-1)
		b := math.Inf(1)
		for c, n := range sizes {
			if c == labels[i] {
				continue
			}
			if d := sums[c] / float64(n); d < b {
				b = d
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	s := total / float64(len(X))
	return &s
}

func euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}
