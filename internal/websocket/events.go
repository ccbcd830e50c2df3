package websocket

import (
	"log"
	"time"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastThermostatStatus sends a thermostat.status_changed event after a
// status refresh.
func (b *EventBroadcaster) BroadcastThermostatStatus(thermostatID string, online bool, current, target *float64, mode string) {
	b.broadcast(NewMessage(TypeThermostatStatusChanged, ThermostatStatusPayload{
		ThermostatID:       thermostatID,
		Online:             online,
		CurrentTemperature: current,
		TargetTemperature:  target,
		Mode:               mode,
	}))
}

// BroadcastCommandResult sends the terminal outcome of a thermostat command.
func (b *EventBroadcaster) BroadcastCommandResult(thermostatID, commandType, status, errMsg string) {
	b.broadcast(NewMessage(TypeCommandResult, CommandResultPayload{
		ThermostatID: thermostatID,
		CommandType:  commandType,
		Status:       status,
		Error:        errMsg,
	}))
}

// BroadcastActionScheduled announces a newly queued deferred action.
func (b *EventBroadcaster) BroadcastActionScheduled(eventID, kind string, eta time.Time) {
	b.broadcast(NewMessage(TypeActionScheduled, ActionPayload{
		EventID: eventID,
		Kind:    kind,
		ETA:     eta,
	}))
}

// BroadcastActionCompleted announces a deferred action that ran to success.
func (b *EventBroadcaster) BroadcastActionCompleted(eventID, kind string, eta time.Time) {
	b.broadcast(NewMessage(TypeActionCompleted, ActionPayload{
		EventID: eventID,
		Kind:    kind,
		ETA:     eta,
	}))
}

// BroadcastActionFailed announces a deferred action that errored.
func (b *EventBroadcaster) BroadcastActionFailed(eventID, kind string, eta time.Time, err error) {
	payload := ActionPayload{EventID: eventID, Kind: kind, ETA: eta}
	if err != nil {
		payload.Error = err.Error()
	}
	b.broadcast(NewMessage(TypeActionFailed, payload))
}

// BroadcastFeedSyncCompleted announces a finished booking feed sync.
func (b *EventBroadcaster) BroadcastFeedSyncCompleted(payload FeedSyncPayload) {
	b.broadcast(NewMessage(TypeFeedSyncCompleted, payload))
}

// BroadcastFeedSyncFailed announces a booking feed sync that errored.
func (b *EventBroadcaster) BroadcastFeedSyncFailed(propertyID, propertyName string, err error) {
	payload := FeedSyncPayload{PropertyID: propertyID, PropertyName: propertyName}
	if err != nil {
		payload.Error = err.Error()
	}
	b.broadcast(NewMessage(TypeFeedSyncFailed, payload))
}

// BroadcastNotification sends a general notification to UI clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:   level,
		Title:   title,
		Message: message,
	}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Failed to serialize WebSocket message: %v", err)
		return
	}
	b.hub.Broadcast(data)
}
