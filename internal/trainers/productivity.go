package trainers

import (
	"context"
	"sort"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/evaluation"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/snapshot"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

var (
	impactNumeric     = []string{"tenure_days", "absences_90d", "permits_90d", "neg_90d", "hour_cost"}
	impactCategorical = []string{"area", "classification", "position"}
)

// ProductivityImpact regresses the monetary cost of upcoming absences.
type ProductivityImpact struct {
	base
}

func NewProductivityImpact(deps Deps) *ProductivityImpact {
	return &ProductivityImpact{base: newBase(IDProductivityImpact, "Productivity impact", "mae", deps)}
}

func (m *ProductivityImpact) LoadTrainingFrame(ctx context.Context, _ trainer.Params) (*frame.Frame, error) {
	return m.fetch(ctx, models.DatasetAbsenceImpact, absenceImpactSQL)
}

func absenceCost(f *frame.Frame) []float64 {
	out := make([]float64, f.Len())
	for i, r := range f.Rows {
		out[i] = r.FloatOr("absence_hours", 0) * r.FloatOr("hour_cost", 0)
	}
	return out
}

func (m *ProductivityImpact) RunTraining(_ context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	y := absenceCost(f)
	// a single-class target turns the stratified split into a plain shuffle
	train, test := evaluation.StratifiedSplit(make([]int, len(y)), params.Float("test_size", 0.2), int64(params.Int("seed", 42)))

	ridge := estimator.NewRidge(impactNumeric, impactCategorical, params.Float("alpha", 1.0))
	if err := ridge.Fit(f.Take(train), evaluation.Subset(y, train)); err != nil {
		return nil, err
	}
	predicted, err := ridge.Predict(f.Take(test))
	if err != nil {
		return nil, err
	}
	report := evaluation.Regress(evaluation.Subset(y, test), predicted)

	all, err := ridge.Predict(f)
	if err != nil {
		return nil, err
	}
	byArea := make(map[string]float64)
	var total float64
	for i, r := range f.Rows {
		byArea[r.String(snapshot.ColArea)] += all[i]
		total += all[i]
	}
	areas := make([]map[string]interface{}, 0, len(byArea))
	for area, cost := range byArea {
		areas = append(areas, map[string]interface{}{"area": area, "projected_cost": round(cost, 2)})
	}
	sort.Slice(areas, func(a, b int) bool {
		return areas[a]["projected_cost"].(float64) > areas[b]["projected_cost"].(float64)
	})

	metrics := map[string]interface{}{
		"mae":            report.MAE,
		"rmse":           report.RMSE,
		"r2":             report.R2,
		"mape":           report.MAPE,
		"test_rows":      report.N,
		"projected_cost": round(total, 2),
	}
	artifacts := map[string]interface{}{
		"cost_by_area":       areas,
		"feature_importance": featureImportance(ridge, 15),
	}
	return &trainer.Output{Estimator: ridge, Metrics: metrics, Artifacts: artifacts}, nil
}
