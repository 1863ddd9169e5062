package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveTraining("rotation", 1500*time.Millisecond, time.Unix(1700000000, 0))
	m.ObserveTraining("rotation", time.Second, time.Unix(1700000100, 0))
	m.IncTrainingFailure("rotation", "data_unavailable")
	m.IncScheduledFire("rotation", 1)
	m.IncScheduledFire("rotation", 3)
	m.IncScheduleSkip("rotation", SkipInFlight)

	assert.Equal(t, int64(2), m.TrainingRuns("rotation"))
	assert.Equal(t, int64(1), m.TrainingFailures("rotation", "data_unavailable"))
	assert.Equal(t, int64(2), m.ScheduledFires("rotation"))
	assert.Equal(t, int64(1), m.ScheduleSkips("rotation", SkipInFlight))
	assert.Equal(t, int64(0), m.ScheduleSkips("rotation", SkipMisfire))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTraining("rotation", time.Second, time.Now())
		m.IncTrainingFailure("rotation", "x")
		m.IncScheduledFire("rotation", 1)
		m.IncScheduleSkip("rotation", SkipMisfire)
		m.SetCircuitBreakerState("datasource", 1)
		m.SetPrimaryMetric("rotation", 0.5)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveTraining("rotation", 1500*time.Millisecond, time.Unix(1700000000, 0))
	m.IncScheduledFire("segment_risk", 2)
	m.IncScheduleSkip("rotation", SkipMisfire)
	m.SetCircuitBreakerState("datasource", 1)
	m.SetPrimaryMetric("rotation", 0.75)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `mlservice_training_runs_total{model_id="rotation"} 1`)
	assert.Contains(t, body, `mlservice_training_duration_ms{model_id="rotation"} 1500`)
	assert.Contains(t, body, `mlservice_last_trained_timestamp_seconds{model_id="rotation"} 1700000000`)
	assert.Contains(t, body, `mlservice_model_primary_metric{model_id="rotation"} 0.75`)
	assert.Contains(t, body, `mlservice_scheduler_fires_total{model_id="segment_risk"} 1`)
	assert.Contains(t, body, `mlservice_scheduler_coalesced_fires_total{model_id="segment_risk"} 1`)
	assert.Contains(t, body, `mlservice_scheduler_skips_total{model_id="rotation",reason="misfire"} 1`)
	assert.Contains(t, body, `mlservice_circuit_breaker_state{name="datasource"} 1`)

	lines := strings.Split(strings.TrimSpace(body), "\n")
	for i := 1; i < len(lines); i++ {
		assert.LessOrEqual(t, lines[i-1], lines[i])
	}
}
