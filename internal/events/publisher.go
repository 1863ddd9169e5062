package events

import (
	"time"

	"github.com/OldStager01/workforce-ml/pkg/models"
)

// Publisher builds typed events and hands them to the bus. A nil
// *Publisher discards everything, so components can run without a bus.
type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	if p == nil {
		return nil
	}
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) TrainingStarted(modelID, runID string) {
	event := models.NewEvent(models.EventTypeTrainingStarted, modelID, "Training started").
		WithData(map[string]interface{}{"run_id": runID})
	p.publish(event)
}

func (p *Publisher) TrainingCompleted(modelID string, data *models.TrainingCompletedData) {
	event := models.NewEvent(models.EventTypeTrainingCompleted, modelID, "Training completed").
		WithData(data)
	p.publish(event)
}

func (p *Publisher) TrainingFailed(modelID string, data *models.TrainingFailedData) {
	event := models.NewEvent(models.EventTypeTrainingFailed, modelID, "Training failed: "+data.Error).
		WithSeverity(models.SeverityCritical).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) ScheduleUpdated(modelID, cron string, nextRun *time.Time) {
	event := models.NewEvent(models.EventTypeScheduleUpdated, modelID, "Schedule updated: "+cron).
		WithData(&models.ScheduleUpdatedData{Cron: cron, NextRun: nextRun})
	p.publish(event)
}

func (p *Publisher) ScheduleRemoved(modelID string) {
	event := models.NewEvent(models.EventTypeScheduleRemoved, modelID, "Schedule removed")
	p.publish(event)
}

func (p *Publisher) ScheduleFired(modelID string, data *models.ScheduleFiredData) {
	event := models.NewEvent(models.EventTypeScheduleFired, modelID, "Scheduled training fired").
		WithData(data)
	p.publish(event)
}

func (p *Publisher) ScheduleSkipped(modelID string, data *models.ScheduleFiredData) {
	event := models.NewEvent(models.EventTypeScheduleSkipped, modelID, "Scheduled training skipped: "+data.Reason).
		WithSeverity(models.SeverityWarning).
		WithData(data)
	p.publish(event)
}
