package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/pkg/database/queries"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

// RunRecorder stores finished training runs durably.
type RunRecorder interface {
	Insert(ctx context.Context, rec queries.TrainingRunRecord) error
}

// EventLogger writes every event to the structured log and records
// training outcomes through an optional RunRecorder.
type EventLogger struct {
	runs      RunRecorder
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewEventLogger(runs RunRecorder, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		runs:      runs,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *EventLogger) Start() {
	l.wg.Add(1)
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
	l.wg.Wait()
}

func (l *EventLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"model_id":   event.ModelID,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if l.runs == nil {
		return
	}

	switch event.Type {
	case models.EventTypeTrainingCompleted:
		l.persistCompleted(event)
	case models.EventTypeTrainingFailed:
		l.persistFailed(event)
	}
}

func (l *EventLogger) persistCompleted(event *models.Event) {
	data, ok := event.Data.(*models.TrainingCompletedData)
	if !ok {
		return
	}

	err := l.runs.Insert(l.ctx, queries.TrainingRunRecord{
		ID:           data.RunID,
		ModelID:      event.ModelID,
		ModelVersion: data.ModelVersion,
		TrainedAt:    data.TrainedAt,
		DurationMs:   data.DurationMs,
		Status:       "completed",
		Metrics:      data.Metrics,
	})
	if err != nil {
		logger.WithModel(event.ModelID).Errorf("Failed to persist training run: %v", err)
	}
}

func (l *EventLogger) persistFailed(event *models.Event) {
	data, ok := event.Data.(*models.TrainingFailedData)
	if !ok {
		return
	}

	msg := data.Error
	err := l.runs.Insert(l.ctx, queries.TrainingRunRecord{
		ID:           data.RunID,
		ModelID:      event.ModelID,
		ModelVersion: data.ModelVersion,
		TrainedAt:    data.StartedAt,
		DurationMs:   data.DurationMs,
		Status:       "failed",
		Error:        &msg,
	})
	if err != nil {
		logger.WithModel(event.ModelID).Errorf("Failed to persist training run: %v", err)
	}
}

func (l *EventLogger) LogToJSON(event *models.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}
