package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/workforce-ml/pkg/database/queries"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []queries.TrainingRunRecord
	err     error
}

func (f *fakeRecorder) Insert(_ context.Context, rec queries.TrainingRunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

func (f *fakeRecorder) all() []queries.TrainingRunRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queries.TrainingRunRecord(nil), f.records...)
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	completed := bus.Subscribe(models.EventTypeTrainingCompleted)
	pub := NewPublisher(bus)

	pub.TrainingStarted("rotation", "run-1")
	pub.TrainingCompleted("rotation", &models.TrainingCompletedData{RunID: "run-1"})

	select {
	case ev := <-completed:
		assert.Equal(t, models.EventTypeTrainingCompleted, ev.Type)
		assert.Equal(t, "rotation", ev.ModelID)
	case <-time.After(time.Second):
		t.Fatal("expected completed event")
	}
	assert.Len(t, completed, 0)
}

func TestEventBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewEventBus(20)
	all := bus.SubscribeAll()
	pub := NewPublisher(bus).WithTraceID("trace-1")

	next := time.Date(2026, 1, 4, 8, 0, 0, 0, time.UTC)
	pub.TrainingStarted("rotation", "r")
	pub.TrainingFailed("rotation", &models.TrainingFailedData{RunID: "r", Error: "boom"})
	pub.ScheduleUpdated("rotation", "0 2 * * 0", &next)
	pub.ScheduleRemoved("rotation")
	pub.ScheduleFired("rotation", &models.ScheduleFiredData{})
	pub.ScheduleSkipped("rotation", &models.ScheduleFiredData{Reason: "in_flight"})

	require.Len(t, all, 6)
	first := <-all
	assert.Equal(t, "trace-1", first.TraceID)

	bus.Close()
	for range all {
	}
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeScheduleRemoved)
	pub := NewPublisher(bus)
	pub.ScheduleRemoved("a")
	pub.ScheduleRemoved("b")

	assert.Len(t, ch, 1)
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := NewEventBus(1)
	bus.Close()
	bus.Close()

	assert.NotPanics(t, func() {
		NewPublisher(bus).ScheduleRemoved("rotation")
	})
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var pub *Publisher
	assert.NotPanics(t, func() {
		pub.WithTraceID("x").TrainingStarted("rotation", "r")
	})
}

func TestEventLogger_PersistsTrainingOutcomes(t *testing.T) {
	rec := &fakeRecorder{}
	l := NewEventLogger(rec, nil)

	trainedAt := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	l.processEvent(models.NewEvent(models.EventTypeTrainingCompleted, "rotation", "done").
		WithData(&models.TrainingCompletedData{
			RunID:        "run-1",
			ModelVersion: "v1",
			TrainedAt:    trainedAt,
			DurationMs:   1500,
			Metrics:      map[string]interface{}{"roc_auc": 0.7},
		}))
	l.processEvent(models.NewEvent(models.EventTypeTrainingFailed, "rotation", "failed").
		WithData(&models.TrainingFailedData{RunID: "run-2", ModelVersion: "v1", Error: "no data"}))
	l.processEvent(models.NewEvent(models.EventTypeScheduleRemoved, "rotation", "removed"))

	records := rec.all()
	require.Len(t, records, 2)

	assert.Equal(t, "run-1", records[0].ID)
	assert.Equal(t, "completed", records[0].Status)
	assert.Equal(t, int64(1500), records[0].DurationMs)
	assert.True(t, records[0].TrainedAt.Equal(trainedAt))

	assert.Equal(t, "failed", records[1].Status)
	require.NotNil(t, records[1].Error)
	assert.Equal(t, "no data", *records[1].Error)
}

func TestEventLogger_RecorderErrorIsLogged(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db down")}
	l := NewEventLogger(rec, nil)

	assert.NotPanics(t, func() {
		l.processEvent(models.NewEvent(models.EventTypeTrainingCompleted, "rotation", "done").
			WithData(&models.TrainingCompletedData{RunID: "r"}))
	})
}

func TestEventLogger_RunLoop(t *testing.T) {
	bus := NewEventBus(10)
	rec := &fakeRecorder{}
	l := NewEventLogger(rec, bus.Subscribe(models.EventTypeTrainingCompleted))
	l.Start()

	NewPublisher(bus).TrainingCompleted("rotation", &models.TrainingCompletedData{RunID: "r"})

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 10*time.Millisecond)

	l.Stop()
	bus.Close()
}
