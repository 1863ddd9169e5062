// Package trainers holds one trainer.Model per model identifier. Each one
// loads its dataset through the data source and fits the estimators from
// internal/estimator.
package trainers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"gonum.org/v1/gonum/stat"

	"github.com/OldStager01/workforce-ml/internal/artifacts"
	"github.com/OldStager01/workforce-ml/internal/datasource"
	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/pkg/config"
)

// Model identifiers.
const (
	IDRotation                = "rotation"
	IDSegmentRisk             = "segment_risk"
	IDAbsenteeismRisk         = "absenteeism_risk"
	IDAbsenceForecast         = "absence_forecast"
	IDLaborPatterns           = "labor_patterns"
	IDAttritionCauses         = "attrition_causes"
	IDProductivityImpact      = "productivity_impact"
	IDPreventiveInterventions = "preventive_interventions"
	IDEmployeeLifecycle       = "employee_lifecycle"
)

const DefaultVersion = "v1"

// Deps are the collaborators shared by every model.
type Deps struct {
	Source    datasource.Source
	Store     *artifacts.Store
	Windowing config.WindowingConfig
	Rotation  config.RotationConfig
	// Today anchors windowing and scoring. Nil means the current UTC time.
	Today func() time.Time
}

func (d Deps) today() time.Time {
	if d.Today == nil {
		return time.Now().UTC()
	}
	return d.Today().UTC()
}

// base implements the identity half of trainer.Model.
type base struct {
	id      string
	name    string
	version string
	primary string
	deps    Deps
}

func newBase(id, name, primary string, deps Deps) base {
	return base{id: id, name: name, version: DefaultVersion, primary: primary, deps: deps}
}

func (b *base) ID() string            { return b.id }
func (b *base) Name() string          { return b.name }
func (b *base) Version() string       { return b.version }
func (b *base) PrimaryMetric() string { return b.primary }

func (b *base) fetch(ctx context.Context, name, sql string) (*frame.Frame, error) {
	f, err := b.deps.Source.FetchTabular(ctx, datasource.Query{Name: name, SQL: sql})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return f, nil
}

// withColumns copies every row of f and lets derive add columns to the copy.
// Frames handed out by a source are never modified in place.
func withColumns(f *frame.Frame, added []string, derive func(src, dst frame.Row)) *frame.Frame {
	cols := append([]string(nil), f.Columns...)
	for _, c := range added {
		if !f.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	out := frame.New(cols...)
	out.Rows = make([]frame.Row, 0, f.Len())
	for _, r := range f.Rows {
		row := make(frame.Row, len(r)+len(added))
		for k, v := range r {
			row[k] = v
		}
		derive(r, row)
		out.Append(row)
	}
	return out
}

// binaryLabels reads a 0/1 column; missing cells count as 0.
func binaryLabels(f *frame.Frame, col string) []int {
	out := make([]int, f.Len())
	for i, r := range f.Rows {
		if r.FloatOr(col, 0) > 0.5 {
			out[i] = 1
		}
	}
	return out
}

func safeRatio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsNaN(num) {
		return 0
	}
	return num / den
}

func featureImportance(imp estimator.Importancer, limit int) []map[string]interface{} {
	names := imp.FeatureNames()
	values := imp.Importances()
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	out := make([]map[string]interface{}, 0, len(idx))
	for _, i := range idx {
		out = append(out, map[string]interface{}{
			"feature":    names[i],
			"importance": values[i],
		})
	}
	return out
}

// normalizeSegment maps raw classification codes to reporting segments.
func normalizeSegment(v string) string {
	v = strings.TrimSpace(v)
	upper := strings.ToUpper(v)
	switch {
	case strings.Contains(upper, "SIND"):
		return "Sindicalizados"
	case strings.Contains(upper, "CONF"):
		return "Confianza"
	case v == "", strings.EqualFold(v, "nan"), strings.EqualFold(v, "none"):
		return "Desconocido"
	}
	words := strings.Fields(strings.ToLower(v))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// percentile uses linear interpolation between closest ranks (R type 7).
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// classCodes maps string labels to sorted integer codes so the stratified
// splitters can be reused for multi-class targets.
func classCodes(labels []string) ([]int, []string) {
	seen := make(map[string]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	code := make(map[string]int, len(classes))
	for i, c := range classes {
		code[c] = i
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = code[l]
	}
	return out, classes
}

func distribution(labels []string) map[string]float64 {
	out := make(map[string]float64)
	if len(labels) == 0 {
		return out
	}
	for _, l := range labels {
		out[l]++
	}
	for k, v := range out {
		out[k] = v / float64(len(labels))
	}
	return out
}
