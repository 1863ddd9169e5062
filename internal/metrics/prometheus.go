package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OldStager01/workforce-ml/internal/logger"
)

// Skip reasons reported by the scheduler.
const (
	SkipInFlight    = "in_flight"
	SkipMisfire     = "misfire"
	SkipUnavailable = "unavailable"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	trainingRuns     map[string]int64
	trainingFailures map[string]map[string]int64 // model -> error kind -> count
	scheduledFires   map[string]int64
	coalescedFires   map[string]int64
	scheduleSkips    map[string]map[string]int64 // model -> reason -> count

	// Gauges
	lastDuration        map[string]time.Duration
	lastTrainedAt       map[string]time.Time
	primaryMetric       map[string]float64
	circuitBreakerState map[string]int // 0=closed, 1=open, 2=half-open
}

func New() *Metrics {
	return &Metrics{
		trainingRuns:        make(map[string]int64),
		trainingFailures:    make(map[string]map[string]int64),
		scheduledFires:      make(map[string]int64),
		coalescedFires:      make(map[string]int64),
		scheduleSkips:       make(map[string]map[string]int64),
		lastDuration:        make(map[string]time.Duration),
		lastTrainedAt:       make(map[string]time.Time),
		primaryMetric:       make(map[string]float64),
		circuitBreakerState: make(map[string]int),
	}
}

func (m *Metrics) ObserveTraining(modelID string, d time.Duration, trainedAt time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingRuns[modelID]++
	m.lastDuration[modelID] = d
	m.lastTrainedAt[modelID] = trainedAt
}

func (m *Metrics) SetPrimaryMetric(modelID string, v float64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primaryMetric[modelID] = v
}

func (m *Metrics) IncTrainingFailure(modelID, kind string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trainingFailures[modelID] == nil {
		m.trainingFailures[modelID] = make(map[string]int64)
	}
	m.trainingFailures[modelID][kind]++
}

// IncScheduledFire counts one fire; missed > 1 means several occurrences
// were coalesced into it.
func (m *Metrics) IncScheduledFire(modelID string, missed int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduledFires[modelID]++
	if missed > 1 {
		m.coalescedFires[modelID]++
	}
}

func (m *Metrics) IncScheduleSkip(modelID, reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduleSkips[modelID] == nil {
		m.scheduleSkips[modelID] = make(map[string]int64)
	}
	m.scheduleSkips[modelID][reason]++
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitBreakerState[name] = state
}

func (m *Metrics) TrainingRuns(modelID string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trainingRuns[modelID]
}

func (m *Metrics) TrainingFailures(modelID, kind string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trainingFailures[modelID][kind]
}

func (m *Metrics) ScheduledFires(modelID string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scheduledFires[modelID]
}

func (m *Metrics) ScheduleSkips(modelID, reason string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scheduleSkips[modelID][reason]
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		m.WriteTo(w)
	})
}

// WriteTo renders all series in Prometheus text format, sorted by name
// and labels.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var lines []string
	add := func(name string, labels map[string]string, value float64) {
		lines = append(lines, formatMetric(name, labels, value))
	}

	for model, count := range m.trainingRuns {
		add("mlservice_training_runs_total", map[string]string{"model_id": model}, float64(count))
	}
	for model, kinds := range m.trainingFailures {
		for kind, count := range kinds {
			add("mlservice_training_failures_total", map[string]string{"model_id": model, "kind": kind}, float64(count))
		}
	}
	for model, d := range m.lastDuration {
		add("mlservice_training_duration_ms", map[string]string{"model_id": model}, float64(d.Milliseconds()))
	}
	for model, at := range m.lastTrainedAt {
		add("mlservice_last_trained_timestamp_seconds", map[string]string{"model_id": model}, float64(at.Unix()))
	}
	for model, v := range m.primaryMetric {
		add("mlservice_model_primary_metric", map[string]string{"model_id": model}, v)
	}
	for model, count := range m.scheduledFires {
		add("mlservice_scheduler_fires_total", map[string]string{"model_id": model}, float64(count))
	}
	for model, count := range m.coalescedFires {
		add("mlservice_scheduler_coalesced_fires_total", map[string]string{"model_id": model}, float64(count))
	}
	for model, reasons := range m.scheduleSkips {
		for reason, count := range reasons {
			add("mlservice_scheduler_skips_total", map[string]string{"model_id": model, "reason": reason}, float64(count))
		}
	}
	for name, state := range m.circuitBreakerState {
		add("mlservice_circuit_breaker_state", map[string]string{"name": name}, float64(state))
	}

	sort.Strings(lines)
	n, err := io.WriteString(w, strings.Join(lines, ""))
	return int64(n), err
}

func formatMetric(name string, labels map[string]string, value float64) string {
	var b strings.Builder
	b.WriteString(name)
	if len(labels) > 0 {
		keys := make([]string, 0, len(labels))
		for k := range labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%s=%q", k, labels[k])
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
	b.WriteByte('\n')
	return b.String()
}

// StartServer exposes /metrics on a dedicated port. The returned server
// is shut down by the caller.
func StartServer(port int, m *Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("Prometheus metrics server listening on %s", srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
	return srv
}

func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
