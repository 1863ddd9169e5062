package models

import "time"

type EventType string

const (
	EventTypeTrainingStarted   EventType = "training_started"
	EventTypeTrainingCompleted EventType = "training_completed"
	EventTypeTrainingFailed    EventType = "training_failed"
	EventTypeScheduleUpdated   EventType = "schedule_updated"
	EventTypeScheduleRemoved   EventType = "schedule_removed"
	EventTypeScheduleFired     EventType = "schedule_fired"
	EventTypeScheduleSkipped   EventType = "schedule_skipped"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	ModelID   string        `json:"model_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, modelID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		ModelID:   modelID,
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}

// TrainingCompletedData is attached to training_completed events.
type TrainingCompletedData struct {
	RunID        string                 `json:"run_id"`
	ModelVersion string                 `json:"model_version"`
	TrainedAt    time.Time              `json:"trained_at"`
	DurationMs   int64                  `json:"duration_ms"`
	Metrics      map[string]interface{} `json:"metrics"`
}

// ScheduleFiredData is attached to schedule_fired and schedule_skipped events.
type ScheduleFiredData struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	FiredAt     time.Time `json:"fired_at"`
	Missed      int       `json:"missed"`
	Reason      string    `json:"reason,omitempty"`
}

// TrainingFailedData is attached to training_failed events.
type TrainingFailedData struct {
	RunID        string    `json:"run_id"`
	ModelVersion string    `json:"model_version"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	Error        string    `json:"error"`
}

// ScheduleUpdatedData is attached to schedule_updated events.
type ScheduleUpdatedData struct {
	Cron    string     `json:"cron"`
	NextRun *time.Time `json:"next_run"`
}
