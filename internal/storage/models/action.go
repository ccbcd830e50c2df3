package models

import (
	"time"
)

// ActionKind identifies the automated HVAC transition anchored to a booking.
type ActionKind string

const (
	ActionPreArrival   ActionKind = "pre_arrival"
	ActionPostCheckout ActionKind = "post_checkout"
)

// Scheduled action status constants
const (
	ActionStatusPending = "pending"
	ActionStatusRunning = "running"
	ActionStatusSuccess = "success"
	ActionStatusFailed  = "failed"
)

// ScheduledAction is a deferred HVAC action waiting in the dispatch queue.
// At most one row exists per (event, kind); re-scanning a booking whose
// dates moved updates the ETA of the pending row instead of duplicating it.
type ScheduledAction struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Kind      ActionKind `json:"kind"`
	ETA       time.Time  `json:"eta"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError *string    `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
