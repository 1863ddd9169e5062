package trainers

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/evaluation"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/snapshot"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

const (
	colRatioNeg90d      = "ratio_neg_90d"
	colRatioNeg365d     = "ratio_neg_365d"
	colRatioPermits365d = "ratio_permits_365d"

	// each class needs this many training rows on every horizon
	minClassExamples = 2

	importanceLimit = 25
)

var rotationNumeric = []string{
	snapshot.ColTenureDays, snapshot.ColSeniorityDays,
	snapshot.ColNeg30d, snapshot.ColNeg90d, snapshot.ColNeg365d,
	snapshot.ColPermits90d, snapshot.ColPermits365d,
	colRatioNeg90d, colRatioNeg365d, colRatioPermits365d,
}

// Rotation predicts terminations within each horizon from the snapshot
// panel, one balanced logistic pipeline per horizon.
type Rotation struct {
	base
}

func NewRotation(deps Deps) *Rotation {
	return &Rotation{base: newBase(IDRotation, "Employee rotation risk", "roc_auc", deps)}
}

type rotationSettings struct {
	testSize  float64
	folds     int
	seed      int64
	threshold float64
}

func (m *Rotation) settings(p trainer.Params) rotationSettings {
	cfg := m.deps.Rotation
	s := rotationSettings{
		testSize:  p.Float("test_size", cfg.TestSize),
		folds:     p.Int("cv_folds", cfg.CVFolds),
		seed:      int64(p.Int("seed", int(cfg.Seed))),
		threshold: p.Float("threshold", cfg.Threshold),
	}
	if s.testSize <= 0 || s.testSize >= 1 {
		s.testSize = 0.2
	}
	if s.folds < 2 {
		s.folds = 5
	}
	if s.threshold <= 0 || s.threshold >= 1 {
		s.threshold = 0.5
	}
	return s
}

func (m *Rotation) horizons() []int {
	hs := m.deps.Windowing.Horizons
	if len(hs) == 0 {
		hs = snapshot.DefaultHorizons
	}
	out := append([]int(nil), hs...)
	sort.Ints(out)
	return out
}

func (m *Rotation) loadRoster(ctx context.Context) ([]models.EmployeeRecord, error) {
	f, err := m.fetch(ctx, models.DatasetEmployeeRoster, rosterSQL)
	if err != nil {
		return nil, err
	}
	roster, skipped := snapshot.ParseRoster(f)
	if skipped > 0 {
		logger.WithModelCtx(ctx, m.id).Warnf("Skipped %d invalid roster rows", skipped)
	}
	return roster, nil
}

// LoadTrainingFrame builds the snapshot panel. embargo_months and
// lookback_months override the configured window.
func (m *Rotation) LoadTrainingFrame(ctx context.Context, params trainer.Params) (*frame.Frame, error) {
	roster, err := m.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	w := snapshot.NewWindower(snapshot.Options{
		EmbargoMonths:  params.Int("embargo_months", m.deps.Windowing.EmbargoMonths),
		LookbackMonths: params.Int("lookback_months", m.deps.Windowing.LookbackMonths),
		Horizons:       m.horizons(),
		Today:          m.deps.today(),
	})
	panel := w.Build(roster)

	logger.WithModelCtx(ctx, m.id).WithFields(map[string]interface{}{
		"employees":      len(roster),
		"snapshot_dates": len(w.AsOfDates()),
		"panel_rows":     len(panel),
	}).Info("Snapshot panel built")

	return snapshot.ToFrame(panel, w.Options().Horizons), nil
}

func newRotationClassifier() estimator.Classifier {
	return estimator.NewPipeline(rotationNumeric, snapshot.CategoricalColumns, true)
}

// prepareRotationFeatures adds the incident ratio columns.
func prepareRotationFeatures(f *frame.Frame) *frame.Frame {
	added := []string{colRatioNeg90d, colRatioNeg365d, colRatioPermits365d}
	return withColumns(f, added, func(src, dst frame.Row) {
		total90 := src.FloatOr(snapshot.ColTotal90d, 0)
		total365 := src.FloatOr(snapshot.ColTotal365d, 0)
		dst[colRatioNeg90d] = safeRatio(src.FloatOr(snapshot.ColNeg90d, 0), total90)
		dst[colRatioNeg365d] = safeRatio(src.FloatOr(snapshot.ColNeg365d, 0), total365)
		dst[colRatioPermits365d] = safeRatio(src.FloatOr(snapshot.ColPermits365d, 0), total365)
	})
}

type rotationFit struct {
	ensemble *estimator.MultiHorizon
	features *frame.Frame
	labels   map[int][]int
	primary  int
	train    []int
	test     []int
}

// fit splits once on the primary (longest) horizon and fits every horizon
// on the same partition. Label counts are checked for all horizons before
// anything is fitted, so a run either fits every horizon or none.
func (m *Rotation) fit(ctx context.Context, panel *frame.Frame, s rotationSettings) (*rotationFit, error) {
	horizons := m.horizons()
	primary := horizons[len(horizons)-1]

	labels := make(map[int][]int, len(horizons))
	for _, h := range horizons {
		col := snapshot.LabelColumn(h)
		if !panel.HasColumn(col) {
			return nil, fmt.Errorf("%w: panel has no %s column", trainer.ErrInsufficientLabels, col)
		}
		labels[h] = binaryLabels(panel, col)
	}
	if pos, _ := evaluation.CountClasses(labels[primary]); pos == 0 {
		return nil, fmt.Errorf("%w: no positive %dd labels in %d panel rows",
			trainer.ErrInsufficientLabels, primary, panel.Len())
	}

	train, test := evaluation.StratifiedSplit(labels[primary], s.testSize, s.seed)
	for _, h := range horizons {
		pos, neg := evaluation.CountClasses(evaluation.Subset(labels[h], train))
		if pos < minClassExamples || neg < minClassExamples {
			return nil, fmt.Errorf("%w: horizon %dd has %d positive and %d negative training rows",
				trainer.ErrInsufficientLabels, h, pos, neg)
		}
	}

	features := prepareRotationFeatures(panel)
	trainFrame := features.Take(train)
	fitted := make([]estimator.Classifier, len(horizons))

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range horizons {
		i, h := i, h
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := newRotationClassifier()
			if err := c.Fit(trainFrame, evaluation.Subset(labels[h], train)); err != nil {
				return fmt.Errorf("fit horizon %dd: %w", h, err)
			}
			fitted[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ensemble := estimator.NewMultiHorizon(horizons)
	for i, h := range horizons {
		ensemble.Set(h, fitted[i])
	}

	return &rotationFit{
		ensemble: ensemble,
		features: features,
		labels:   labels,
		primary:  primary,
		train:    train,
		test:     test,
	}, nil
}

type horizonEval struct {
	horizon    int
	report     evaluation.ClassificationReport
	cvMean     *float64
	cvStd      *float64
	scores     []float64
	yTest      []int
	importance []map[string]interface{}
}

func (m *Rotation) evaluate(ctx context.Context, fit *rotationFit, h int, s rotationSettings) (horizonEval, error) {
	c := fit.ensemble.Models[h]
	testFrame := fit.features.Take(fit.test)
	scores, err := c.PredictProba(testFrame)
	if err != nil {
		return horizonEval{}, err
	}
	yTest := evaluation.Subset(fit.labels[h], fit.test)

	cvMean, cvStd, err := evaluation.CrossValAUC(ctx, fit.features.Take(fit.train),
		evaluation.Subset(fit.labels[h], fit.train), s.folds, s.seed, newRotationClassifier)
	if err != nil {
		return horizonEval{}, fmt.Errorf("cross validation: %w", err)
	}

	e := horizonEval{
		horizon: h,
		report:  evaluation.Classify(yTest, scores, s.threshold),
		cvMean:  cvMean,
		cvStd:   cvStd,
		scores:  scores,
		yTest:   yTest,
	}
	if imp, ok := c.(estimator.Importancer); ok {
		e.importance = featureImportance(imp, importanceLimit)
	}
	return e, nil
}

func (m *Rotation) RunTraining(ctx context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	s := m.settings(params)
	fit, err := m.fit(ctx, f, s)
	if err != nil {
		return nil, err
	}

	horizons := fit.ensemble.Horizons
	evals := make([]horizonEval, len(horizons))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range horizons {
		i, h := i, h
		g.Go(func() error {
			e, err := m.evaluate(gctx, fit, h, s)
			if err != nil {
				return fmt.Errorf("evaluate horizon %dd: %w", h, err)
			}
			evals[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	perHorizon := make(map[string]interface{}, len(evals))
	rocCurves := make(map[string]interface{}, len(evals))
	prCurves := make(map[string]interface{}, len(evals))
	importances := make(map[string]interface{}, len(evals))
	positives := make(map[string]interface{}, len(evals))
	var primary horizonEval
	for _, e := range evals {
		key := strconv.Itoa(e.horizon)
		perHorizon[key] = horizonMetrics(e)
		rocCurves[key] = rocCurveMap(evaluation.ROCCurve(e.yTest, e.scores))
		prCurves[key] = prCurveMap(evaluation.PRCurve(e.yTest, e.scores))
		importances[key] = e.importance
		pos, _ := evaluation.CountClasses(fit.labels[e.horizon])
		positives[key] = pos
		if e.horizon == fit.primary {
			primary = e
		}
	}

	metrics := horizonMetrics(primary)
	metrics["primary_horizon"] = fit.primary
	metrics["horizons"] = horizons
	metrics["per_horizon"] = perHorizon
	metrics["train_rows"] = len(fit.train)
	metrics["test_rows"] = len(fit.test)
	metrics["panel_rows"] = f.Len()

	segments := classificationSegments(fit.features.Take(fit.test), primary.yTest, primary.scores, s.threshold)
	for name, seg := range segments {
		if _, single := seg["warning"]; single {
			logger.WithModelCtx(ctx, m.id).Warnf("Segment %q has a single class in the test split", name)
		}
	}

	artifacts := map[string]interface{}{
		"roc_curves":           rocCurves,
		"pr_curves":            prCurves,
		"feature_importance":   importances,
		"business_value":       m.businessValue(primary.report.Confusion),
		"metrics_by_segment":   segments,
		"positives_by_horizon": positives,
	}

	return &trainer.Output{Estimator: fit.ensemble, Metrics: metrics, Artifacts: artifacts}, nil
}

func horizonMetrics(e horizonEval) map[string]interface{} {
	r := e.report
	return map[string]interface{}{
		"roc_auc":             r.ROCAUC,
		"average_precision":   r.AveragePrecision,
		"precision":           r.Precision,
		"recall":              r.Recall,
		"f1_score":            r.F1,
		"specificity":         r.Specificity,
		"false_positive_rate": r.FalsePositiveRate,
		"false_negative_rate": r.FalseNegativeRate,
		"threshold":           r.Threshold,
		"confusion_matrix":    r.Confusion.Matrix(),
		"support":             r.Support,
		"positive_rate":       r.PositiveRate,
		"cv_auc_mean":         e.cvMean,
		"cv_auc_std":          e.cvStd,
	}
}

func rocCurveMap(points []evaluation.ROCPoint) map[string]interface{} {
	fpr := make([]float64, len(points))
	tpr := make([]float64, len(points))
	thresholds := make([]float64, len(points))
	for i, p := range points {
		fpr[i], tpr[i], thresholds[i] = p.FPR, p.TPR, p.Threshold
	}
	return map[string]interface{}{"fpr": fpr, "tpr": tpr, "thresholds": thresholds}
}

func prCurveMap(points []evaluation.PRPoint) map[string]interface{} {
	precision := make([]float64, len(points))
	recall := make([]float64, len(points))
	thresholds := make([]float64, len(points))
	for i, p := range points {
		precision[i], recall[i], thresholds[i] = p.Precision, p.Recall, p.Threshold
	}
	return map[string]interface{}{"precision": precision, "recall": recall, "thresholds": thresholds}
}

// businessValue projects retention savings from the primary confusion
// matrix under the configured cost assumptions.
func (m *Rotation) businessValue(c evaluation.Confusion) map[string]interface{} {
	cfg := m.deps.Rotation
	retained := int(float64(c.TP) * cfg.InterventionSuccessRate)
	savings := float64(retained) * cfg.AttritionCost
	cost := float64(c.TP+c.FP) * cfg.InterventionCost

	out := map[string]interface{}{
		"at_risk_detected":          c.TP,
		"missed_terminations":       c.FN,
		"false_alarms":              c.FP,
		"retained_estimate":         retained,
		"potential_savings":         savings,
		"intervention_cost_total":   cost,
		"estimated_roi":             savings - cost,
		"assumed_success_rate":      cfg.InterventionSuccessRate,
		"assumed_attrition_cost":    cfg.AttritionCost,
		"assumed_intervention_cost": cfg.InterventionCost,
	}
	if cost > 0 {
		out["roi_ratio"] = (savings - cost) / cost
	}
	return out
}

// classificationSegments scores the test split per classification segment.
func classificationSegments(test *frame.Frame, y []int, scores []float64, threshold float64) map[string]map[string]interface{} {
	idx := make(map[string][]int)
	for i, r := range test.Rows {
		seg := normalizeSegment(r.String(snapshot.ColClassification))
		idx[seg] = append(idx[seg], i)
	}

	out := make(map[string]map[string]interface{}, len(idx))
	for seg, rows := range idx {
		ys := evaluation.Subset(y, rows)
		r := evaluation.Classify(ys, evaluation.Subset(scores, rows), threshold)
		m := map[string]interface{}{
			"support":           r.Support,
			"positive_rate":     r.PositiveRate,
			"precision":         zeroIfNil(r.Precision),
			"recall":            zeroIfNil(r.Recall),
			"f1_score":          zeroIfNil(r.F1),
			"roc_auc":           r.ROCAUC,
			"average_precision": r.AveragePrecision,
		}
		if pos, neg := evaluation.CountClasses(ys); pos == 0 || neg == 0 {
			m["roc_auc"] = nil
			m["average_precision"] = nil
			m["warning"] = "single class in test split"
		}
		out[seg] = m
	}
	return out
}

func zeroIfNil(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
