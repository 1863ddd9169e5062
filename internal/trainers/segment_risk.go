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
)

var segmentFeatures = []string{"headcount", "risk_mean", "risk_p75", "ratio_negative", "ratio_permits"}

// SegmentRisk clusters (company, area, department) segments on their
// aggregated rotation risk and incident mix.
type SegmentRisk struct {
	base
	rotation *Rotation
}

func NewSegmentRisk(deps Deps) *SegmentRisk {
	return &SegmentRisk{
		base:     newBase(IDSegmentRisk, "Rotation risk by segment", "silhouette_score", deps),
		rotation: NewRotation(deps),
	}
}

// LoadTrainingFrame returns one row per currently active employee.
func (m *SegmentRisk) LoadTrainingFrame(ctx context.Context, _ trainer.Params) (*frame.Frame, error) {
	roster, err := m.rotation.loadRoster(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.CurrentFrame(roster, m.deps.today()), nil
}

func (m *SegmentRisk) RunTraining(ctx context.Context, f *frame.Frame, params trainer.Params) (*trainer.Output, error) {
	ens, source, err := m.rotation.resolveEnsemble(ctx)
	if err != nil {
		return nil, err
	}
	scored, err := scoreRotation(ens, f)
	if err != nil {
		return nil, err
	}

	agg := aggregateSegments(scored)
	k := params.Int("clusters", 4)
	if k > agg.Len() {
		k = agg.Len()
	}
	km := estimator.NewKMeans(segmentFeatures, k, int64(params.Int("seed", 42)))
	labels, err := km.Fit(agg)
	if err != nil {
		return nil, fmt.Errorf("cluster segments: %w", err)
	}

	X, err := km.Encoder.Transform(agg)
	if err != nil {
		return nil, err
	}
	clusters := make(map[int]struct{})
	headcount := 0
	for i, r := range agg.Rows {
		r["cluster"] = labels[i]
		clusters[labels[i]] = struct{}{}
		headcount += int(r.FloatOr("headcount", 0))
	}

	summary := append([]frame.Row(nil), agg.Rows...)
	sort.SliceStable(summary, func(a, b int) bool {
		return summary[a].FloatOr("risk_mean", 0) > summary[b].FloatOr("risk_mean", 0)
	})
	if len(summary) > 10 {
		summary = summary[:10]
	}
	centers := make([]map[string]float64, km.K)
	for c := range centers {
		centers[c] = km.Center(c)
	}

	metrics := map[string]interface{}{
		"segments":              len(clusters),
		"segment_groups":        agg.Len(),
		"headcount_total":       headcount,
		"silhouette_score":      evaluation.Silhouette(X, labels),
		"inertia":               km.Inertia,
		"rotation_model_source": source,
	}
	artifacts := map[string]interface{}{
		"segment_summary": summary,
		"cluster_centers": centers,
	}
	return &trainer.Output{Estimator: km, Metrics: metrics, Artifacts: artifacts}, nil
}

func aggregateSegments(scored *frame.Frame) *frame.Frame {
	keys := []string{snapshot.ColCompany, snapshot.ColArea, snapshot.ColDepartment}
	order, groups := scored.GroupBy(keys...)

	agg := frame.New(append(append([]string(nil), keys...),
		"headcount", "risk_mean", "risk_p75", "neg_90d", "neg_365d",
		"permits_365d", "total_365d", "ratio_negative", "ratio_permits")...)
	for _, key := range order {
		rows := groups[key]
		risk := make([]float64, len(rows))
		var neg90, neg365, permits, total float64
		for i, r := range rows {
			risk[i] = r.FloatOr(colRotationProbability, 0)
			neg90 += r.FloatOr(snapshot.ColNeg90d, 0)
			neg365 += r.FloatOr(snapshot.ColNeg365d, 0)
			permits += r.FloatOr(snapshot.ColPermits365d, 0)
			total += r.FloatOr(snapshot.ColTotal365d, 0)
		}
		agg.Append(frame.Row{
			snapshot.ColCompany:    rows[0].String(snapshot.ColCompany),
			snapshot.ColArea:       rows[0].String(snapshot.ColArea),
			snapshot.ColDepartment: rows[0].String(snapshot.ColDepartment),
			"headcount":            float64(len(rows)),
			"risk_mean":            mean(risk),
			"risk_p75":             percentile(risk, 75),
			"neg_90d":              neg90,
			"neg_365d":             neg365,
			"permits_365d":         permits,
			"total_365d":           total,
			"ratio_negative":       safeRatio(neg365, total),
			"ratio_permits":        safeRatio(permits, total),
		})
	}
	return agg
}
