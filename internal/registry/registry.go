// Package registry maps model identifiers to their trainers and catalog
// metadata.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/internal/trainers"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

var ErrUnknownModel = errors.New("unknown model")

// Entry is the catalog description of one model.
type Entry struct {
	ID               string
	Description      string
	Type             models.ModelType
	DefaultFrequency models.ScheduleFrequency
	DefaultCron      string
	New              func(trainers.Deps) trainer.Model
}

// Catalog lists every model in registration order.
var Catalog = []Entry{
	{
		ID:               trainers.IDRotation,
		Description:      "Multi-horizon (30/60/90 day) attrition ensemble trained on point-in-time employee snapshots.",
		Type:             models.ModelTypeClassification,
		DefaultFrequency: models.FrequencyWeekly,
		DefaultCron:      "0 2 * * 0",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewRotation(d) },
	},
	{
		ID:               trainers.IDSegmentRisk,
		Description:      "Clusters company, area and department segments by rotation risk and incident mix.",
		Type:             models.ModelTypeClustering,
		DefaultFrequency: models.FrequencyWeekly,
		DefaultCron:      "15 2 * * 0",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewSegmentRisk(d) },
	},
	{
		ID:               trainers.IDAbsenteeismRisk,
		Description:      "Logistic classifier of recurrent absenteeism over the next 30 days.",
		Type:             models.ModelTypeClassification,
		DefaultFrequency: models.FrequencyWeekly,
		DefaultCron:      "0 2 * * 1",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewAbsenteeismRisk(d) },
	},
	{
		ID:               trainers.IDAbsenceForecast,
		Description:      "Weekly-seasonal forecast of daily absences with a 30 day projection.",
		Type:             models.ModelTypeTimeSeries,
		DefaultFrequency: models.FrequencyWeekly,
		DefaultCron:      "30 2 * * 0",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewAbsenceForecast(d) },
	},
	{
		ID:               trainers.IDLaborPatterns,
		Description:      "Groups employees into attendance behaviour patterns and flags outliers.",
		Type:             models.ModelTypeClustering,
		DefaultFrequency: models.FrequencyMonthly,
		DefaultCron:      "0 3 1 * *",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewLaborPatterns(d) },
	},
	{
		ID:               trainers.IDAttritionCauses,
		Description:      "One-vs-rest classifier of termination reason types with feature influence.",
		Type:             models.ModelTypeClassification,
		DefaultFrequency: models.FrequencyMonthly,
		DefaultCron:      "30 3 1 * *",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewAttritionCauses(d) },
	},
	{
		ID:               trainers.IDProductivityImpact,
		Description:      "Ridge regression of the monetary impact of upcoming absences.",
		Type:             models.ModelTypeRegression,
		DefaultFrequency: models.FrequencyMonthly,
		DefaultCron:      "0 4 1 * *",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewProductivityImpact(d) },
	},
	{
		ID:               trainers.IDPreventiveInterventions,
		Description:      "Recommends preventive actions from combined rotation and absenteeism risk.",
		Type:             models.ModelTypeRecommender,
		DefaultFrequency: models.FrequencyMonthly,
		DefaultCron:      "30 4 1 * *",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewPreventiveInterventions(d) },
	},
	{
		ID:               trainers.IDEmployeeLifecycle,
		Description:      "Kaplan-Meier retention curves overall and per classification segment.",
		Type:             models.ModelTypeSurvival,
		DefaultFrequency: models.FrequencyQuarterly,
		DefaultCron:      "0 5 1 1,4,7,10 *",
		New:              func(d trainers.Deps) trainer.Model { return trainers.NewEmployeeLifecycle(d) },
	},
}

// Registry holds one trainer per catalog entry. Trainers are built once so
// the per-model training lock is shared by every caller.
type Registry struct {
	entries  map[string]Entry
	order    []string
	trainers map[string]*trainer.Trainer
}

func New(deps trainers.Deps, opts trainer.Options) *Registry {
	return NewWithCatalog(Catalog, deps, opts)
}

func NewWithCatalog(catalog []Entry, deps trainers.Deps, opts trainer.Options) *Registry {
	r := &Registry{
		entries:  make(map[string]Entry, len(catalog)),
		trainers: make(map[string]*trainer.Trainer, len(catalog)),
	}
	for _, e := range catalog {
		r.entries[e.ID] = e
		r.order = append(r.order, e.ID)
		r.trainers[e.ID] = trainer.New(e.New(deps), deps.Store, opts)
	}
	return r
}

func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Entry(id string) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return e, nil
}

func (r *Registry) Get(id string) (*trainer.Trainer, error) {
	t, ok := r.trainers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return t, nil
}

func (r *Registry) DefaultCron(id string) string {
	return r.entries[id].DefaultCron
}

func (r *Registry) Train(ctx context.Context, id string, params trainer.Params) (*models.TrainingResult, error) {
	t, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return t.Train(ctx, params)
}

// Info assembles the API view of a model. job is the scheduler entry, nil
// when the model has no schedule.
func (r *Registry) Info(id string, job *models.ScheduledJob) (models.ModelInfo, error) {
	e, err := r.Entry(id)
	if err != nil {
		return models.ModelInfo{}, err
	}
	t := r.trainers[id]

	info := models.ModelInfo{
		ID:          id,
		Name:        t.Name(),
		Description: e.Description,
		Type:        e.Type,
		Version:     t.Version(),
		Metrics:     map[string]interface{}{},
		Schedule:    &models.ModelSchedule{Frequency: models.FrequencyManual},
	}

	if latest := t.LatestSummary(); !latest.IsEmpty() {
		trainedAt := latest.TrainedAt
		info.LastTrainedAt = &trainedAt
		info.Metrics = latest.Metrics
	}

	if job != nil {
		cron := job.Cron
		info.Schedule = &models.ModelSchedule{
			Frequency:      FrequencyForCron(cron, e.DefaultFrequency),
			CronExpression: &cron,
			NextRun:        job.NextRun,
		}
	}
	return info, nil
}

// FrequencyForCron classifies a five-field cron expression. Shapes it does
// not recognise fall back to def.
func FrequencyForCron(cron string, def models.ScheduleFrequency) models.ScheduleFrequency {
	f := strings.Fields(cron)
	if len(f) != 5 {
		return def
	}
	dom, month, dow := f[2], f[3], f[4]
	switch {
	case dom == "*" && month == "*" && dow == "*":
		return models.FrequencyDaily
	case dom == "*" && month == "*":
		return models.FrequencyWeekly
	case month == "*" && dow == "*":
		return models.FrequencyMonthly
	case month == "1,4,7,10" && dow == "*":
		return models.FrequencyQuarterly
	}
	return def
}
