package trainers

import (
	"context"
	"fmt"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/evaluation"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

const colReasonType = "reason_type"

var (
	causesNumeric     = []string{"tenure_days", "neg_365d", "permits_365d", "absences_365d"}
	causesCategorical = []string{"classification", "area", "shift", "position"}
)

// AttritionCauses classifies the reason type of past terminations.
type AttritionCauses struct {
	base
}

func NewAttritionCauses(deps Deps) *AttritionCauses {
	return &AttritionCauses{base: newBase(IDAttritionCauses, "Attrition causes", "accuracy", deps)}
}

func (m *AttritionCauses) LoadTrainingFrame(ctx context.Context, _ trainer.Params) (*frame.Frame, error) {
	f, err := m.fetch(ctx, models.DatasetTerminationReasons, terminationReasonsSQL)
	if err != nil {
		return nil, err
	}
	return f.Filter(func(r frame.Row) bool { return r.String(colReasonType) != "" }), nil
}

func (m *AttritionCauses) RunTraining(_ context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	reasons := f.Strings(colReasonType)
	codes, classes := classCodes(reasons)
	if len(classes) < 2 {
		return nil, fmt.Errorf("%w: %d reason types, need at least 2", trainer.ErrInsufficientLabels, len(classes))
	}

	train, test := evaluation.StratifiedSplit(codes, params.Float("test_size", 0.25), int64(params.Int("seed", 42)))
	if len(test) == 0 {
		return nil, fmt.Errorf("%w: no rows left for evaluation", trainer.ErrInsufficientLabels)
	}

	ovr := estimator.NewOneVsRest(causesNumeric, causesCategorical)
	if err := ovr.Fit(f.Take(train), evaluation.Subset(reasons, train)); err != nil {
		return nil, err
	}
	predicted, err := ovr.Predict(f.Take(test))
	if err != nil {
		return nil, err
	}
	report := evaluation.MultiClass(evaluation.Subset(reasons, test), predicted)

	metrics := map[string]interface{}{
		"accuracy":     report.Accuracy,
		"macro_f1":     report.MacroF1,
		"classes":      len(ovr.Classes()),
		"observations": f.Len(),
	}
	artifacts := map[string]interface{}{
		"per_class":          report.Classes,
		"reason_share":       distribution(reasons),
		"feature_importance": featureImportance(ovr, 15),
	}
	return &trainer.Output{Estimator: ovr, Metrics: metrics, Artifacts: artifacts}, nil
}
