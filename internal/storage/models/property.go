// Package models contains the domain models for the application.
package models

import (
	"time"
)

// Property represents a rental property whose HVAC is managed by the system.
type Property struct {
	ID       string  `json:"id"`
	Owner    string  `json:"owner"`
	Name     string  `json:"name"`
	Timezone *string `json:"timezone,omitempty"`

	// FeedURL is an optional iCal booking feed (Airbnb/VRBO export) that is
	// periodically synced into the property's calendar events.
	FeedURL *string `json:"feed_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CalendarEvent represents a booking synced from an external calendar feed.
// Events are read-only to the scheduling core and may disappear at any time.
type CalendarEvent struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Summary    string    `json:"summary"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`

	// UID is the iCal UID for feed-synced events, nil for events created
	// through the API. Feed syncs upsert by (property, UID).
	UID *string `json:"uid,omitempty"`

	// Floating marks events whose start/end were synced without zone
	// information (iCal floating time). Their clock fields are interpreted
	// in the property's timezone rather than converted into it.
	Floating bool `json:"floating"`

	CreatedAt time.Time `json:"created_at"`
}

// EventWithProperty pairs an event with its owning property, as returned by
// the upcoming-events query used by the calendar scanner.
type EventWithProperty struct {
	Event    CalendarEvent `json:"event"`
	Property Property      `json:"property"`
}
