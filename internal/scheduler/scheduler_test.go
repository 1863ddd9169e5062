package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/workforce-ml/internal/events"
	"github.com/OldStager01/workforce-ml/internal/metrics"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/config"
	"github.com/OldStager01/workforce-ml/pkg/jsonfile"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

type fakeCatalog struct {
	crons map[string]string
	err   error
	block chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func newFakeCatalog(crons map[string]string) *fakeCatalog {
	return &fakeCatalog{crons: crons, calls: make(map[string]int)}
}

func (c *fakeCatalog) IDs() []string {
	ids := make([]string, 0, len(c.crons))
	for id := range c.crons {
		ids = append(ids, id)
	}
	return ids
}

func (c *fakeCatalog) DefaultCron(id string) string { return c.crons[id] }

func (c *fakeCatalog) Train(ctx context.Context, id string, _ trainer.Params) (*models.TrainingResult, error) {
	c.mu.Lock()
	c.calls[id]++
	c.mu.Unlock()
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return nil, c.err
	}
	return &models.TrainingResult{RunID: models.NewUUID(), ModelID: id}, nil
}

func (c *fakeCatalog) Calls(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func utcConfig() config.SchedulerConfig {
	return config.SchedulerConfig{Timezone: "UTC", MisfireGrace: 300 * time.Second}
}

func newTestScheduler(t *testing.T, catalog Catalog, clk *clock, path string, m *metrics.Metrics) *Scheduler {
	t.Helper()
	s := New(utcConfig(), catalog, Options{StatePath: path, Now: clk.Now, Metrics: m})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func TestScheduleModel_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler_state.json")
	clk := &clock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{"m": ""})
	s := newTestScheduler(t, catalog, clk, path, nil)

	job, err := s.ScheduleModel("m", "30 3 * * *")
	require.NoError(t, err)
	assert.Equal(t, "30 3 * * *", job.Cron)
	assert.Equal(t, time.Date(2026, 3, 16, 3, 30, 0, 0, time.UTC), job.NextRun.UTC())
	assert.Equal(t, "30 3 * * *", s.State()["m"].Cron)

	var doc map[string]persistedJob
	found, err := jsonfile.Read(path, &doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "30 3 * * *", doc["m"].Cron)
	require.NotNil(t, doc["m"].NextRun)

	reloaded := newTestScheduler(t, catalog, clk, path, nil)
	require.NotNil(t, reloaded.Schedule("m"))
	assert.Equal(t, "30 3 * * *", reloaded.Schedule("m").Cron)

	s.RemoveSchedule("m")
	assert.NotContains(t, s.State(), "m")
	assert.Nil(t, s.Schedule("m"))
	s.RemoveSchedule("m")

	doc = nil
	found, err = jsonfile.Read(path, &doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, doc, "m")
}

func TestScheduleModel_ReplacesInPlace(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, newFakeCatalog(map[string]string{"m": ""}), clk, "", nil)

	_, err := s.ScheduleModel("m", "30 3 * * *")
	require.NoError(t, err)
	_, err = s.ScheduleModel("m", "15 1 * * 5")
	require.NoError(t, err)

	state := s.State()
	assert.Len(t, state, 1)
	assert.Equal(t, "15 1 * * 5", state["m"].Cron)
	assert.Equal(t, time.Friday, state["m"].NextRun.Weekday())
}

func TestScheduleModel_Rejects(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, newFakeCatalog(map[string]string{"m": ""}), clk, "", nil)

	tests := []struct {
		name string
		id   string
		cron string
	}{
		{"malformed", "m", "every day"},
		{"out of range", "m", "61 3 * * *"},
		{"empty", "m", "  "},
		{"timezone prefix", "m", "CRON_TZ=UTC 0 3 * * *"},
		{"never fires", "m", "0 0 30 2 *"},
		{"unknown model", "payroll", "0 3 * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ScheduleModel(tt.id, tt.cron)
			assert.ErrorIs(t, err, ErrInvalidSchedule)
		})
	}
	assert.Empty(t, s.State())
}

func TestScheduleModel_UsesConfiguredTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Skip("timezone database unavailable")
	}
	clk := &clock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	cfg := config.SchedulerConfig{Timezone: "America/Mexico_City"}
	s := New(cfg, newFakeCatalog(map[string]string{"m": ""}), Options{Now: clk.Now})

	job, err := s.ScheduleModel("m", "30 3 * * *")
	require.NoError(t, err)
	local := job.NextRun.In(loc)
	assert.Equal(t, 3, local.Hour())
	assert.Equal(t, 30, local.Minute())
}

func TestRegisterDefaultJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	clk := &clock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{
		"weekly":  "0 2 * * 0",
		"monthly": "0 3 1 * *",
		"manual":  "",
	})
	s := newTestScheduler(t, catalog, clk, path, nil)

	require.NoError(t, s.RegisterDefaultJobs())
	state := s.State()
	assert.Len(t, state, 2)
	assert.NotContains(t, state, "manual")
	assert.Equal(t, time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC), state["monthly"].NextRun.UTC())

	var doc map[string]persistedJob
	found, err := jsonfile.Read(path, &doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, doc, 2)
}

func TestRegisterDefaultJobs_BadDefaultLeavesStateUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	clk := &clock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{
		"a": "0 2 * * 0",
		"b": "0 0 30 2 *",
	})
	s := newTestScheduler(t, catalog, clk, path, nil)

	_, err := s.ScheduleModel("a", "30 3 * * *")
	require.NoError(t, err)

	err = s.RegisterDefaultJobs()
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	state := s.State()
	assert.Len(t, state, 1)
	assert.Equal(t, "30 3 * * *", state["a"].Cron)

	reloaded := newTestScheduler(t, catalog, clk, path, nil)
	require.NotNil(t, reloaded.Schedule("a"))
	assert.Equal(t, "30 3 * * *", reloaded.Schedule("a").Cron)
}

func TestLoadState_DropsCronWithoutFutureOccurrence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	clk := &clock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	zero := time.Time{}
	require.NoError(t, jsonfile.Write(path, map[string]persistedJob{
		"feb30": {Cron: "0 0 30 2 *", NextRun: &zero},
		"daily": {Cron: "30 3 * * *", NextRun: &zero},
	}))

	s := newTestScheduler(t, newFakeCatalog(map[string]string{"feb30": "", "daily": ""}), clk, path, nil)

	state := s.State()
	assert.NotContains(t, state, "feb30")
	require.Contains(t, state, "daily")
	assert.Equal(t, time.Date(2026, 3, 16, 3, 30, 0, 0, time.UTC), state["daily"].NextRun.UTC())
}

func TestTick_DropsJobWithoutFutureOccurrence(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{"m": ""})
	s := newTestScheduler(t, catalog, clk, "", nil)

	sched, err := cron.ParseStandard("0 0 30 2 *")
	require.NoError(t, err)
	s.mu.Lock()
	s.jobs["m"] = &job{id: "m", cron: "0 0 30 2 *", schedule: sched, next: clk.Now().Add(-time.Minute)}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.tick(clk.Now())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("tick did not return")
	}

	assert.Empty(t, s.State())
	s.wg.Wait()
	assert.Equal(t, 0, catalog.Calls("m"))
}

// Five occurrences fall inside a ten minute outage; the latest is within
// grace, so resuming fires exactly once.
func TestResume_OutageWithinGraceFiresOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	clk := &clock{t: time.Date(2026, 3, 15, 2, 50, 0, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{"m": "*/2 * * * *"})
	m := metrics.New()

	before := newTestScheduler(t, catalog, clk, path, m)
	require.NoError(t, before.RegisterDefaultJobs())
	before.tick(clk.Now())
	before.wg.Wait()
	require.Equal(t, 0, catalog.Calls("m"))

	// process goes down at 02:51 and comes back ten minutes later
	clk.Set(time.Date(2026, 3, 15, 3, 1, 30, 0, time.UTC))
	after := newTestScheduler(t, catalog, clk, path, m)
	require.NoError(t, after.RegisterDefaultJobs())
	assert.Equal(t, time.Date(2026, 3, 15, 2, 52, 0, 0, time.UTC), after.Schedule("m").NextRun.UTC())

	after.tick(clk.Now())
	after.wg.Wait()

	assert.Equal(t, 1, catalog.Calls("m"))
	assert.Equal(t, int64(1), m.ScheduledFires("m"))
	assert.Equal(t, time.Date(2026, 3, 15, 3, 2, 0, 0, time.UTC), after.Schedule("m").NextRun.UTC())

	after.tick(clk.Now())
	after.wg.Wait()
	assert.Equal(t, 1, catalog.Calls("m"))
}

func TestTick_MisfireBeyondGraceIsSkipped(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 15, 2, 50, 0, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{"m": ""})
	m := metrics.New()
	bus := events.NewEventBus(10)
	skipped := bus.Subscribe(models.EventTypeScheduleSkipped)
	s := New(utcConfig(), catalog, Options{Now: clk.Now, Metrics: m, Publisher: events.NewPublisher(bus)})
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	_, err := s.ScheduleModel("m", "0 3 * * *")
	require.NoError(t, err)

	s.tick(time.Date(2026, 3, 15, 3, 10, 0, 0, time.UTC))
	s.wg.Wait()

	assert.Equal(t, 0, catalog.Calls("m"))
	assert.Equal(t, int64(1), m.ScheduleSkips("m", metrics.SkipMisfire))
	assert.Equal(t, time.Date(2026, 3, 16, 3, 0, 0, 0, time.UTC), s.Schedule("m").NextRun.UTC())

	select {
	case event := <-skipped:
		data, ok := event.Data.(*models.ScheduleFiredData)
		require.True(t, ok)
		assert.Equal(t, metrics.SkipMisfire, data.Reason)
	case <-time.After(time.Second):
		t.Fatal("expected a schedule_skipped event")
	}
}

func TestTick_FailureKeepsJobScheduled(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 15, 2, 50, 0, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{"m": ""})
	catalog.err = errors.New("estimator exploded")
	s := newTestScheduler(t, catalog, clk, "", nil)

	_, err := s.ScheduleModel("m", "0 3 * * *")
	require.NoError(t, err)

	s.tick(time.Date(2026, 3, 15, 3, 0, 5, 0, time.UTC))
	s.wg.Wait()
	require.Equal(t, 1, catalog.Calls("m"))
	require.NotNil(t, s.Schedule("m"))
	assert.Equal(t, time.Date(2026, 3, 16, 3, 0, 0, 0, time.UTC), s.Schedule("m").NextRun.UTC())

	s.tick(time.Date(2026, 3, 16, 3, 0, 1, 0, time.UTC))
	s.wg.Wait()
	assert.Equal(t, 2, catalog.Calls("m"))
}

func TestTick_SkipsWhileRunInFlight(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 15, 2, 50, 0, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{"m": ""})
	catalog.block = make(chan struct{})
	m := metrics.New()
	s := newTestScheduler(t, catalog, clk, "", m)

	_, err := s.ScheduleModel("m", "*/5 * * * *")
	require.NoError(t, err)

	s.tick(time.Date(2026, 3, 15, 2, 55, 0, 0, time.UTC))
	require.Eventually(t, func() bool { return catalog.Calls("m") == 1 }, time.Second, 5*time.Millisecond)

	s.tick(time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, int64(1), m.ScheduleSkips("m", metrics.SkipInFlight))

	close(catalog.block)
	s.wg.Wait()
	assert.Equal(t, 1, catalog.Calls("m"))
	assert.Equal(t, int64(1), m.ScheduledFires("m"))
}

func TestStartShutdown(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 15, 2, 59, 59, 0, time.UTC)}
	catalog := newFakeCatalog(map[string]string{"m": "0 3 * * *"})
	s := New(utcConfig(), catalog, Options{Now: clk.Now, TickInterval: 5 * time.Millisecond})
	require.NoError(t, s.RegisterDefaultJobs())

	s.Start()
	s.Start()
	clk.Set(time.Date(2026, 3, 15, 3, 0, 1, 0, time.UTC))
	require.Eventually(t, func() bool { return catalog.Calls("m") == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	clk.Set(time.Date(2026, 3, 16, 3, 0, 1, 0, time.UTC))
	s.tick(clk.Now())
	assert.Equal(t, 1, catalog.Calls("m"))
}
