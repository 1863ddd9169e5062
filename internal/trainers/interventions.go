package trainers

import (
	"context"
	"fmt"
	"sort"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/evaluation"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/snapshot"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

// Recommended actions, from most to least urgent.
const (
	ActionRetentionPlan = "retention_plan"
	ActionMentoring     = "mentoring_weekly_followup"
	ActionHRReview      = "hr_review"
	ActionDisciplinary  = "disciplinary_coaching"
	ActionRecognition   = "recognition"
)

const (
	colAbsences30d = "absences_30d"
	colAbsences90d = "absences_90d"
)

var (
	interventionNumeric = []string{
		colRotationProbability, snapshot.ColNeg90d, snapshot.ColNeg365d, snapshot.ColPermits365d,
		colAbsences30d, colAbsences90d, colRecurrentAbsence,
	}
	interventionCategorical = []string{
		snapshot.ColArea, snapshot.ColDepartment, snapshot.ColClassification, snapshot.ColCompany,
	}
)

// PreventiveInterventions learns the rule-based action assignment from
// rotation risk and absenteeism signals.
type PreventiveInterventions struct {
	base
	rotation *Rotation
}

func NewPreventiveInterventions(deps Deps) *PreventiveInterventions {
	return &PreventiveInterventions{
		base:     newBase(IDPreventiveInterventions, "Preventive interventions", "accuracy", deps),
		rotation: NewRotation(deps),
	}
}

// LoadTrainingFrame joins active employees with their absenteeism features.
// Employees without absenteeism data get zeros.
func (m *PreventiveInterventions) LoadTrainingFrame(ctx context.Context, _ trainer.Params) (*frame.Frame, error) {
	roster, err := m.rotation.loadRoster(ctx)
	if err != nil {
		return nil, err
	}
	current := snapshot.CurrentFrame(roster, m.deps.today())

	absences, err := m.fetch(ctx, models.DatasetAbsenteeism, absenteeismSQL)
	if err != nil {
		return nil, err
	}
	byEmployee := make(map[string]frame.Row, absences.Len())
	for _, r := range absences.Rows {
		byEmployee[r.String(snapshot.ColEmployeeID)] = r
	}

	added := []string{colAbsences30d, colAbsences90d, colRecurrentAbsence}
	return withColumns(current, added, func(src, dst frame.Row) {
		a := byEmployee[src.String(snapshot.ColEmployeeID)]
		for _, col := range added {
			dst[col] = a.FloatOr(col, 0)
		}
	}), nil
}

// recommendAction applies the first matching rule.
func recommendAction(r frame.Row) string {
	prob := r.FloatOr(colRotationProbability, 0)
	negRecent := r.FloatOr(snapshot.ColNeg90d, 0)
	switch {
	case prob >= 0.75 && negRecent >= 2:
		return ActionRetentionPlan
	case prob >= 0.6 && r.FloatOr(colRecurrentAbsence, 0) >= 1:
		return ActionMentoring
	case prob >= 0.5 && r.FloatOr(colAbsences30d, 0) >= 1:
		return ActionHRReview
	case negRecent >= 3:
		return ActionDisciplinary
	}
	return ActionRecognition
}

func (m *PreventiveInterventions) RunTraining(ctx context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	ens, source, err := m.rotation.resolveEnsemble(ctx)
	if err != nil {
		return nil, err
	}
	scored, err := scoreRotation(ens, f)
	if err != nil {
		return nil, err
	}

	actions := make([]string, scored.Len())
	for i, r := range scored.Rows {
		actions[i] = recommendAction(r)
	}
	codes, classes := classCodes(actions)
	if len(classes) < 2 {
		return nil, fmt.Errorf("%w: every employee maps to %q", trainer.ErrInsufficientLabels, classes[0])
	}

	train, test := evaluation.StratifiedSplit(codes, params.Float("test_size", 0.2), int64(params.Int("seed", 123)))
	ovr := estimator.NewOneVsRest(interventionNumeric, interventionCategorical)
	if err := ovr.Fit(scored.Take(train), evaluation.Subset(actions, train)); err != nil {
		return nil, err
	}
	predicted, err := ovr.Predict(scored.Take(test))
	if err != nil {
		return nil, err
	}
	report := evaluation.MultiClass(evaluation.Subset(actions, test), predicted)

	metrics := map[string]interface{}{
		"accuracy":              report.Accuracy,
		"macro_f1":              report.MacroF1,
		"employees":             scored.Len(),
		"rotation_model_source": source,
	}
	artifacts := map[string]interface{}{
		"action_distribution": distribution(actions),
		"rules_snapshot":      rulesSnapshot(scored, actions),
		"per_class":           report.Classes,
	}
	return &trainer.Output{Estimator: ovr, Metrics: metrics, Artifacts: artifacts}, nil
}

// rulesSnapshot reports the mean rotation probability per action.
func rulesSnapshot(scored *frame.Frame, actions []string) []map[string]interface{} {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, r := range scored.Rows {
		sums[actions[i]] += r.FloatOr(colRotationProbability, 0)
		counts[actions[i]]++
	}
	out := make([]map[string]interface{}, 0, len(counts))
	for a, n := range counts {
		out = append(out, map[string]interface{}{
			"action":                    a,
			"count":                     n,
			"mean_rotation_probability": sums[a] / float64(n),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["action"].(string) < out[j]["action"].(string) })
	return out
}
