package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeThermostatStatusChanged MessageType = "thermostat.status_changed"
	TypeCommandResult           MessageType = "thermostat.command_result"
	TypeActionScheduled         MessageType = "action.scheduled"
	TypeActionCompleted         MessageType = "action.completed"
	TypeActionFailed            MessageType = "action.failed"
	TypeFeedSyncCompleted       MessageType = "feed.sync_completed"
	TypeFeedSyncFailed          MessageType = "feed.sync_failed"
	TypeNotification            MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ThermostatStatusPayload is the payload for thermostat.status_changed
// events.
type ThermostatStatusPayload struct {
	ThermostatID       string   `json:"thermostat_id"`
	Online             bool     `json:"online"`
	CurrentTemperature *float64 `json:"current_temperature,omitempty"`
	TargetTemperature  *float64 `json:"target_temperature,omitempty"`
	Mode               string   `json:"mode"`
}

// CommandResultPayload is the payload for thermostat.command_result events.
type CommandResultPayload struct {
	ThermostatID string `json:"thermostat_id"`
	CommandType  string `json:"command_type"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// ActionPayload is the payload for action.* events.
type ActionPayload struct {
	EventID string    `json:"event_id"`
	Kind    string    `json:"kind"`
	ETA     time.Time `json:"eta"`
	Error   string    `json:"error,omitempty"`
}

// FeedSyncPayload is the payload for feed.* events.
type FeedSyncPayload struct {
	PropertyID    string `json:"property_id"`
	PropertyName  string `json:"property_name"`
	EventsFound   int    `json:"events_found"`
	EventsSynced  int    `json:"events_synced"`
	EventsRemoved int    `json:"events_removed"`
	Error         string `json:"error,omitempty"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ErrorPayload is the payload for error responses.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
