package trainers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/snapshot"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

const (
	bundleOverall = "overall"
	segmentPrefix = "segment:"

	// segments with fewer observations are reported but not modelled
	minSegmentSize = 10
)

var retentionMilestones = []int{90, 180, 365, 730}

// EmployeeLifecycle estimates retention curves from hire to exit.
type EmployeeLifecycle struct {
	base
}

func NewEmployeeLifecycle(deps Deps) *EmployeeLifecycle {
	return &EmployeeLifecycle{base: newBase(IDEmployeeLifecycle, "Employee lifecycle", "median_survival_days", deps)}
}

func (m *EmployeeLifecycle) LoadTrainingFrame(ctx context.Context, _ trainer.Params) (*frame.Frame, error) {
	return m.fetch(ctx, models.DatasetEmployeeRoster, rosterSQL)
}

// censorDate reads censor_date (YYYY-MM-DD) from params, defaulting to today.
func (m *EmployeeLifecycle) censorDate(params trainer.Params) (time.Time, error) {
	raw := params.String("censor_date", "")
	if raw == "" {
		return snapshot.Date(m.deps.today()), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid censor_date %q: %w", raw, err)
	}
	return t, nil
}

func (m *EmployeeLifecycle) RunTraining(_ context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	censor, err := m.censorDate(params)
	if err != nil {
		return nil, err
	}
	roster, _ := snapshot.ParseRoster(f)

	type obs struct {
		duration float64
		event    int
		segment  string
	}
	var all []obs
	for _, e := range roster {
		end, event := censor, 0
		if e.TerminationDate != nil && !e.TerminationDate.After(censor) {
			end, event = snapshot.Date(*e.TerminationDate), 1
		}
		d := snapshot.DaysBetween(snapshot.Date(e.HireDate), end)
		if d <= 0 {
			continue
		}
		all = append(all, obs{float64(d), event, normalizeSegment(e.Attributes.Classification)})
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no employees with positive tenure before %s",
			trainer.ErrDataUnavailable, censor.Format("2006-01-02"))
	}

	fitCurve := func(rows []obs) (*estimator.KaplanMeier, int, error) {
		durations := make([]float64, len(rows))
		events := make([]int, len(rows))
		n := 0
		for i, o := range rows {
			durations[i], events[i] = o.duration, o.event
			n += o.event
		}
		km := &estimator.KaplanMeier{}
		return km, n, km.Fit(durations, events)
	}

	bundle := estimator.NewBundle()
	overall, events, err := fitCurve(all)
	if err != nil {
		return nil, err
	}
	bundle.Add(bundleOverall, overall)

	bySegment := make(map[string][]obs)
	for _, o := range all {
		bySegment[o.segment] = append(bySegment[o.segment], o)
	}
	names := make([]string, 0, len(bySegment))
	for s := range bySegment {
		names = append(names, s)
	}
	sort.Strings(names)

	segments := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		rows := bySegment[name]
		entry := map[string]interface{}{"segment": name, "observations": len(rows)}
		if len(rows) >= minSegmentSize {
			km, n, err := fitCurve(rows)
			if err != nil {
				return nil, fmt.Errorf("segment %s: %w", name, err)
			}
			bundle.Add(segmentPrefix+name, km)
			entry["events"] = n
			entry["median_survival_days"] = medianOrNil(km)
			entry["retention"] = retention(km)
		}
		segments = append(segments, entry)
	}

	metrics := map[string]interface{}{
		"observations":         len(all),
		"events":               events,
		"censored":             len(all) - events,
		"median_survival_days": medianOrNil(overall),
		"censor_date":          censor.Format("2006-01-02"),
	}
	for h, s := range retention(overall) {
		metrics["retention_"+h] = s
	}
	artifacts := map[string]interface{}{
		"survival_curve": overall.Curve,
		"segments":       segments,
	}
	return &trainer.Output{Estimator: bundle, Metrics: metrics, Artifacts: artifacts}, nil
}

func medianOrNil(km *estimator.KaplanMeier) *float64 {
	if t, ok := km.MedianSurvival(); ok {
		return &t
	}
	return nil
}

func retention(km *estimator.KaplanMeier) map[string]float64 {
	out := make(map[string]float64, len(retentionMilestones))
	for _, d := range retentionMilestones {
		out[fmt.Sprintf("%dd", d)] = round(km.SurvivalAt(float64(d)), 4)
	}
	return out
}
