package trainers_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/workforce-ml/internal/artifacts"
	"github.com/OldStager01/workforce-ml/internal/datasource"
	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/simulator"
	"github.com/OldStager01/workforce-ml/internal/snapshot"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/internal/trainers"
	"github.com/OldStager01/workforce-ml/pkg/config"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

var today = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func newDeps(t *testing.T, src datasource.Source) trainers.Deps {
	t.Helper()
	dir := t.TempDir()
	return trainers.Deps{
		Source: src,
		Store:  artifacts.New(filepath.Join(dir, "models"), filepath.Join(dir, "metrics")),
		Windowing: config.WindowingConfig{
			EmbargoMonths:  3,
			LookbackMonths: 12,
			Horizons:       []int{30, 60, 90},
		},
		Rotation: config.RotationConfig{
			TestSize:                0.2,
			CVFolds:                 5,
			Seed:                    42,
			Threshold:               0.5,
			AttritionCost:           50000,
			InterventionCost:        5000,
			InterventionSuccessRate: 0.3,
		},
		Today: func() time.Time { return today },
	}
}

func syntheticSource() datasource.Source {
	return datasource.NewSyntheticSource(simulator.New(simulator.Config{
		Employees: 300,
		Seed:      11,
		Today:     today,
	}))
}

func rosterFrame(roster []models.EmployeeRecord) *frame.Frame {
	f := frame.New(
		snapshot.ColEmployeeID, snapshot.ColHireDate, snapshot.ColTerminationDate,
		snapshot.ColArea, snapshot.ColClassification, snapshot.ColGender,
		snapshot.ColNeg90d, snapshot.ColNeg365d, snapshot.ColTotal90d,
	)
	for _, e := range roster {
		r := frame.Row{
			snapshot.ColEmployeeID:      e.EmployeeID,
			snapshot.ColHireDate:        e.HireDate,
			snapshot.ColTerminationDate: nil,
			snapshot.ColArea:            e.Attributes.Area,
			snapshot.ColClassification:  e.Attributes.Classification,
			snapshot.ColGender:          e.Attributes.Gender,
			snapshot.ColNeg90d:          e.Incidents.Neg90d,
			snapshot.ColNeg365d:         e.Incidents.Neg365d,
			snapshot.ColTotal90d:        e.Incidents.Total90d,
		}
		if e.TerminationDate != nil {
			r[snapshot.ColTerminationDate] = *e.TerminationDate
		}
		f.Append(r)
	}
	return f
}

// scenarioRoster has 60 employees, 12 of them terminated at offsets spread
// across the lookback window.
func scenarioRoster() []models.EmployeeRecord {
	classes := []string{"SINDICALIZADO", "CONFIANZA", "EVENTUAL"}
	areas := []string{"Produccion", "Almacen", "Calidad"}

	var roster []models.EmployeeRecord
	for i := 0; i < 60; i++ {
		e := models.EmployeeRecord{
			EmployeeID: fmt.Sprintf("S%03d", i),
			HireDate:   today.AddDate(-2, 0, -30*(i%20)),
			Attributes: models.Attributes{
				Area:           areas[i%len(areas)],
				Classification: classes[i%len(classes)],
				Gender:         []string{"M", "F"}[i%2],
			},
			Incidents: models.IncidentAggregate{
				Neg90d:   float64(i % 3),
				Total90d: float64(i%3 + 2),
			},
		}
		if i < 12 {
			term := today.AddDate(0, -4, -25*i)
			e.TerminationDate = &term
			e.Incidents.Neg90d = 4
			e.Incidents.Neg365d = 9
		}
		roster = append(roster, e)
	}
	return roster
}

func TestRotation_ScenarioRoster(t *testing.T) {
	src := datasource.NewStaticSource()
	src.Set(models.DatasetEmployeeRoster, rosterFrame(scenarioRoster()))
	deps := newDeps(t, src)

	tr := trainer.New(trainers.NewRotation(deps), deps.Store, trainer.Options{})
	result, err := tr.Train(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 90, result.Metrics["primary_horizon"])
	perHorizon, ok := result.Metrics["per_horizon"].(map[string]interface{})
	require.True(t, ok)
	for _, h := range []string{"30", "60", "90"} {
		m, ok := perHorizon[h].(map[string]interface{})
		require.True(t, ok, "horizon %s", h)
		if auc, ok := m["roc_auc"].(float64); ok {
			assert.GreaterOrEqual(t, auc, 0.0)
			assert.LessOrEqual(t, auc, 1.0)
		}
	}

	est, err := tr.LoadEstimator()
	require.NoError(t, err)
	ens, ok := est.(*estimator.MultiHorizon)
	require.True(t, ok)
	assert.Equal(t, []int{30, 60, 90}, ens.Horizons)

	bv, ok := result.Artifacts["business_value"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, bv, "estimated_roi")
	assert.Contains(t, result.Artifacts, "metrics_by_segment")
}

func TestRotation_SingleClassHorizonFailsWholeRun(t *testing.T) {
	asOf := snapshot.AddMonths(today, -3)

	var roster []models.EmployeeRecord
	for i := 0; i < 40; i++ {
		e := models.EmployeeRecord{
			EmployeeID: fmt.Sprintf("E%03d", i),
			HireDate:   today.AddDate(-2, 0, -7*i),
			Attributes: models.Attributes{Area: "Produccion", Classification: "SINDICALIZADO"},
		}
		if i < 12 {
			// 45 days out: positive for 60 and 90, never for 30
			term := asOf.AddDate(0, 0, 45)
			e.TerminationDate = &term
		}
		roster = append(roster, e)
	}

	src := datasource.NewStaticSource()
	src.Set(models.DatasetEmployeeRoster, rosterFrame(roster))
	deps := newDeps(t, src)
	deps.Windowing.LookbackMonths = 0

	tr := trainer.New(trainers.NewRotation(deps), deps.Store, trainer.Options{})
	_, err := tr.Train(context.Background(), nil)
	require.ErrorIs(t, err, trainer.ErrInsufficientLabels)
	assert.Contains(t, err.Error(), "horizon 30d")

	assert.False(t, deps.Store.HasEstimator(trainers.IDRotation, trainers.DefaultVersion))
	doc, err := deps.Store.ReadLatest(trainers.IDRotation)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestRotation_EmptyPanel(t *testing.T) {
	src := datasource.NewStaticSource()
	src.Set(models.DatasetEmployeeRoster, rosterFrame(nil))
	deps := newDeps(t, src)

	tr := trainer.New(trainers.NewRotation(deps), deps.Store, trainer.Options{})
	_, err := tr.Train(context.Background(), nil)
	assert.ErrorIs(t, err, trainer.ErrDataUnavailable)
}

func TestDependentModels_RotationEnsembleSource(t *testing.T) {
	deps := newDeps(t, syntheticSource())
	segments := trainer.New(trainers.NewSegmentRisk(deps), deps.Store, trainer.Options{})

	result, err := segments.Train(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "in_memory", result.Metrics["rotation_model_source"])
	assert.False(t, deps.Store.HasEstimator(trainers.IDRotation, trainers.DefaultVersion),
		"in-memory ensemble must not be persisted")

	rotation := trainer.New(trainers.NewRotation(deps), deps.Store, trainer.Options{})
	_, err = rotation.Train(context.Background(), nil)
	require.NoError(t, err)

	result, err = segments.Train(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "persisted", result.Metrics["rotation_model_source"])

	interventions := trainer.New(trainers.NewPreventiveInterventions(deps), deps.Store, trainer.Options{})
	result, err = interventions.Train(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "persisted", result.Metrics["rotation_model_source"])
	dist, ok := result.Artifacts["action_distribution"].(map[string]interface{})
	require.True(t, ok)
	var total float64
	for _, v := range dist {
		total += v.(float64)
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestModels_TrainOnSyntheticData(t *testing.T) {
	deps := newDeps(t, syntheticSource())

	tests := []struct {
		name  string
		model trainer.Model
	}{
		{"absenteeism_risk", trainers.NewAbsenteeismRisk(deps)},
		{"absence_forecast", trainers.NewAbsenceForecast(deps)},
		{"labor_patterns", trainers.NewLaborPatterns(deps)},
		{"attrition_causes", trainers.NewAttritionCauses(deps)},
		{"productivity_impact", trainers.NewProductivityImpact(deps)},
		{"employee_lifecycle", trainers.NewEmployeeLifecycle(deps)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.model.ID())

			tr := trainer.New(tt.model, deps.Store, trainer.Options{})
			result, err := tr.Train(context.Background(), nil)
			require.NoError(t, err)
			assert.Contains(t, result.Metrics, tt.model.PrimaryMetric())

			est, err := tr.LoadEstimator()
			require.NoError(t, err)
			assert.NotEmpty(t, est.Kind())

			latest := tr.LatestSummary()
			assert.Equal(t, tt.name, latest.ModelID)
		})
	}
}

func TestAbsenceForecast_ShortHistory(t *testing.T) {
	f := frame.New("date", "absences", "headcount")
	for d := 0; d < 20; d++ {
		f.Append(frame.Row{"date": today.AddDate(0, 0, -d), "absences": 3.0, "headcount": 100.0})
	}
	src := datasource.NewStaticSource()
	src.Set(models.DatasetDailyAbsences, f)
	deps := newDeps(t, src)

	tr := trainer.New(trainers.NewAbsenceForecast(deps), deps.Store, trainer.Options{})
	_, err := tr.Train(context.Background(), nil)
	assert.ErrorIs(t, err, trainer.ErrDataUnavailable)
}

func TestAbsenceForecast_Projection(t *testing.T) {
	f := frame.New("date", "absences", "headcount")
	for d := 120; d >= 1; d-- {
		day := today.AddDate(0, 0, -d)
		v := 10.0
		if day.Weekday() == time.Monday {
			v = 20
		}
		f.Append(frame.Row{"date": day, "absences": v, "headcount": 200.0})
	}
	src := datasource.NewStaticSource()
	src.Set(models.DatasetDailyAbsences, f)
	deps := newDeps(t, src)

	tr := trainer.New(trainers.NewAbsenceForecast(deps), deps.Store, trainer.Options{})
	result, err := tr.Train(context.Background(), trainer.Params{"horizon_days": 14})
	require.NoError(t, err)

	forecast, ok := result.Artifacts["forecast"].([]interface{})
	require.True(t, ok)
	assert.Len(t, forecast, 14)
	first := forecast[0].(map[string]interface{})
	assert.Equal(t, today.Format("2006-01-02"), first["date"])
	assert.Less(t, result.Metrics["mae"].(float64), 1.0)
}

func TestEmployeeLifecycle_CensorDate(t *testing.T) {
	src := datasource.NewStaticSource()
	src.Set(models.DatasetEmployeeRoster, rosterFrame(scenarioRoster()))
	deps := newDeps(t, src)

	tr := trainer.New(trainers.NewEmployeeLifecycle(deps), deps.Store, trainer.Options{})

	result, err := tr.Train(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 60, result.Metrics["observations"])
	assert.Equal(t, 12, result.Metrics["events"])

	// before any termination every observation is censored
	result, err = tr.Train(context.Background(), trainer.Params{"censor_date": "2025-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Metrics["events"])
	assert.Equal(t, "2025-01-01", result.Metrics["censor_date"])

	_, err = tr.Train(context.Background(), trainer.Params{"censor_date": "01/01/2025"})
	assert.ErrorIs(t, err, trainer.ErrTrainingFailure)
}
