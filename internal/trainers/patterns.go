package trainers

import (
	"context"
	"math"
	"sort"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/evaluation"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

var patternFeatures = []string{
	"attendance_rate", "late_rate", "absence_rate", "permit_rate", "overtime_hours",
}

// LaborPatterns groups employees by attendance behaviour and flags rows far
// from every centroid.
type LaborPatterns struct {
	base
}

func NewLaborPatterns(deps Deps) *LaborPatterns {
	return &LaborPatterns{base: newBase(IDLaborPatterns, "Labor pattern clustering", "silhouette_score", deps)}
}

func (m *LaborPatterns) LoadTrainingFrame(ctx context.Context, _ trainer.Params) (*frame.Frame, error) {
	return m.fetch(ctx, models.DatasetAttendanceProfiles, attendanceSQL)
}

func (m *LaborPatterns) RunTraining(_ context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	km := estimator.NewKMeans(patternFeatures, params.Int("clusters", 5), int64(params.Int("seed", 14)))
	labels, err := km.Fit(f)
	if err != nil {
		return nil, err
	}
	distances, err := km.Distances(f)
	if err != nil {
		return nil, err
	}
	X, err := km.Encoder.Transform(f)
	if err != nil {
		return nil, err
	}

	// outliers sit more than z standard deviations beyond the mean distance
	z := params.Float("outlier_z", 2)
	mu := mean(distances)
	var ss float64
	for _, d := range distances {
		ss += (d - mu) * (d - mu)
	}
	cutoff := mu + z*math.Sqrt(ss/float64(len(distances)))

	type clusterStats struct {
		employees int
		outliers  int
		distance  float64
		rates     map[string]float64
	}
	stats := make(map[int]*clusterStats)
	outliers := 0
	for i, r := range f.Rows {
		s, ok := stats[labels[i]]
		if !ok {
			s = &clusterStats{rates: make(map[string]float64)}
			stats[labels[i]] = s
		}
		s.employees++
		s.distance += distances[i]
		for _, col := range patternFeatures {
			s.rates[col] += r.FloatOr(col, 0)
		}
		if distances[i] > cutoff {
			s.outliers++
			outliers++
		}
	}

	summary := make([]map[string]interface{}, 0, len(stats))
	for c, s := range stats {
		row := map[string]interface{}{
			"cluster":       c,
			"employees":     s.employees,
			"outliers":      s.outliers,
			"mean_distance": s.distance / float64(s.employees),
		}
		for col, total := range s.rates {
			row[col] = total / float64(s.employees)
		}
		summary = append(summary, row)
	}
	sort.Slice(summary, func(a, b int) bool {
		return summary[a]["absence_rate"].(float64) > summary[b]["absence_rate"].(float64)
	})

	metrics := map[string]interface{}{
		"clusters":            len(stats),
		"employees_clustered": f.Len(),
		"outliers_detected":   outliers,
		"silhouette_score":    evaluation.Silhouette(X, labels),
		"inertia":             km.Inertia,
	}
	artifacts := map[string]interface{}{
		"cluster_summary":  summary,
		"outlier_distance": cutoff,
	}
	return &trainer.Output{Estimator: km, Metrics: metrics, Artifacts: artifacts}, nil
}
