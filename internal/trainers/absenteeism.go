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

const colRecurrentAbsence = "recurrent_absence_next_30d"

var (
	absenteeismNumeric = []string{
		"tenure_days", "absences_30d", "absences_90d", "absences_365d", "late_30d", "permits_90d",
	}
	absenteeismCategorical = []string{"classification", "shift", "area"}
)

// AbsenteeismRisk predicts recurrent absences over the next 30 days.
type AbsenteeismRisk struct {
	base
}

func NewAbsenteeismRisk(deps Deps) *AbsenteeismRisk {
	return &AbsenteeismRisk{base: newBase(IDAbsenteeismRisk, "Absenteeism risk", "roc_auc", deps)}
}

func (m *AbsenteeismRisk) LoadTrainingFrame(ctx context.Context, _ trainer.Params) (*frame.Frame, error) {
	return m.fetch(ctx, models.DatasetAbsenteeism, absenteeismSQL)
}

func newAbsenteeismClassifier() estimator.Classifier {
	return estimator.NewPipeline(absenteeismNumeric, absenteeismCategorical, true)
}

func (m *AbsenteeismRisk) RunTraining(ctx context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	seed := int64(params.Int("seed", 42))
	threshold := params.Float("threshold", 0.5)
	y := binaryLabels(f, colRecurrentAbsence)

	train, test := evaluation.StratifiedSplit(y, params.Float("test_size", 0.2), seed)
	yTrain := evaluation.Subset(y, train)
	if pos, neg := evaluation.CountClasses(yTrain); pos < minClassExamples || neg < minClassExamples {
		return nil, fmt.Errorf("%w: %d positive and %d negative training rows",
			trainer.ErrInsufficientLabels, pos, neg)
	}

	trainFrame := f.Take(train)
	c := estimator.NewPipeline(absenteeismNumeric, absenteeismCategorical, true)
	if err := c.Fit(trainFrame, yTrain); err != nil {
		return nil, err
	}
	scores, err := c.PredictProba(f.Take(test))
	if err != nil {
		return nil, err
	}
	yTest := evaluation.Subset(y, test)
	r := evaluation.Classify(yTest, scores, threshold)

	cvMean, cvStd, err := evaluation.CrossValAUC(ctx, trainFrame, yTrain,
		params.Int("cv_folds", 5), seed, newAbsenteeismClassifier)
	if err != nil {
		return nil, fmt.Errorf("cross validation: %w", err)
	}

	pos, _ := evaluation.CountClasses(y)
	metrics := map[string]interface{}{
		"roc_auc":           r.ROCAUC,
		"average_precision": r.AveragePrecision,
		"precision":         r.Precision,
		"recall":            r.Recall,
		"f1_score":          r.F1,
		"threshold":         threshold,
		"cv_auc_mean":       cvMean,
		"cv_auc_std":        cvStd,
		"positive_rate":     float64(pos) / float64(len(y)),
		"train_rows":        len(train),
		"test_rows":         len(test),
	}
	artifacts := map[string]interface{}{
		"confusion_matrix":   r.Confusion.Matrix(),
		"roc_curve":          rocCurveMap(evaluation.ROCCurve(yTest, scores)),
		"feature_importance": featureImportance(c, importanceLimit),
	}
	return &trainer.Output{Estimator: c, Metrics: metrics, Artifacts: artifacts}, nil
}
