package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/workforce-ml/pkg/models"
)

type MessageType string

const (
	MessageTypeTrainingStarted   MessageType = "training_started"
	MessageTypeTrainingCompleted MessageType = "training_completed"
	MessageTypeTrainingFailed    MessageType = "training_failed"
	MessageTypeScheduleUpdate    MessageType = "schedule_update"
	MessageTypeScheduleFired     MessageType = "schedule_fired"
	MessageTypeScheduleSkipped   MessageType = "schedule_skipped"
	MessageTypeSubscription      MessageType = "subscription_update"
)

// OutgoingMessage is the envelope of every message sent to clients.
type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	ModelID   string      `json:"model_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, modelID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		ModelID:   modelID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// IncomingMessage is a subscription request from a client.
type IncomingMessage struct {
	Type    string `json:"type"`
	ModelID string `json:"model_id,omitempty"`
}

// FromEvent converts a bus event. Event types clients do not see return nil.
func FromEvent(event *models.Event) *OutgoingMessage {
	msgType := mapEventType(event.Type)
	if msgType == "" {
		return nil
	}
	return &OutgoingMessage{
		Type:      msgType,
		ModelID:   event.ModelID,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		TraceID:   event.TraceID,
		Data:      event.Data,
	}
}

func mapEventType(eventType models.EventType) MessageType {
	switch eventType {
	case models.EventTypeTrainingStarted:
		return MessageTypeTrainingStarted
	case models.EventTypeTrainingCompleted:
		return MessageTypeTrainingCompleted
	case models.EventTypeTrainingFailed:
		return MessageTypeTrainingFailed
	case models.EventTypeScheduleUpdated, models.EventTypeScheduleRemoved:
		return MessageTypeScheduleUpdate
	case models.EventTypeScheduleFired:
		return MessageTypeScheduleFired
	case models.EventTypeScheduleSkipped:
		return MessageTypeScheduleSkipped
	default:
		return ""
	}
}
