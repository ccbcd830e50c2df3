package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/smart-thermostat/backend/internal/api/middleware"
	"github.com/smart-thermostat/backend/internal/calendar"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	ws "github.com/smart-thermostat/backend/internal/websocket"
)

// ListProperties returns all managed properties.
func ListProperties(properties *storage.PropertyRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := properties.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query properties")
			return
		}
		if list == nil {
			list = []models.Property{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// CreatePropertyRequest is the body for creating a property.
type CreatePropertyRequest struct {
	Owner    string  `json:"owner"`
	Name     string  `json:"name"`
	Timezone *string `json:"timezone,omitempty"`
	FeedURL  *string `json:"feed_url,omitempty"`
}

// CreateProperty registers a new property.
func CreateProperty(properties *storage.PropertyRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePropertyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "name is required")
			return
		}

		p := &models.Property{Owner: req.Owner, Name: req.Name, Timezone: req.Timezone, FeedURL: req.FeedURL}
		if err := properties.Create(r.Context(), p); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create property")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(p)
	}
}

// GetProperty returns a single property.
func GetProperty(properties *storage.PropertyRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		p, err := properties.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

// UpdatePropertyRequest is the body for updating a property.
type UpdatePropertyRequest struct {
	Name     string  `json:"name"`
	Timezone *string `json:"timezone,omitempty"`
	FeedURL  *string `json:"feed_url,omitempty"`
}

// UpdateProperty changes a property's name, timezone or booking feed.
func UpdateProperty(properties *storage.PropertyRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		p, err := properties.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		var req UpdatePropertyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Name != "" {
			p.Name = req.Name
		}
		if req.Timezone != nil {
			p.Timezone = req.Timezone
		}
		if req.FeedURL != nil {
			p.FeedURL = req.FeedURL
		}

		if err := properties.Update(r.Context(), p); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update property")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

// DeleteProperty removes a property and its thermostats and events.
func DeleteProperty(properties *storage.PropertyRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := properties.Delete(r.Context(), id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete property")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ListPropertyThermostats returns the thermostats of a property.
func ListPropertyThermostats(thermostats *storage.ThermostatRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		list, err := thermostats.ListByProperty(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query thermostats")
			return
		}
		if list == nil {
			list = []models.Thermostat{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// ListPropertyEvents returns the calendar events of a property.
func ListPropertyEvents(events *storage.CalendarRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		list, err := events.ListByProperty(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query events")
			return
		}
		if list == nil {
			list = []models.CalendarEvent{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// CreateEventRequest is the body for creating a calendar event.
type CreateEventRequest struct {
	Summary  string    `json:"summary"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Floating bool      `json:"floating"`
}

// CreatePropertyEvent records a booking event for a property.
func CreatePropertyEvent(properties *storage.PropertyRepository, events *storage.CalendarRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		p, err := properties.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		var req CreateEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if !req.End.After(req.Start) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "end must be after start")
			return
		}

		ev := &models.CalendarEvent{
			PropertyID: id,
			Summary:    req.Summary,
			Start:      req.Start,
			End:        req.End,
			Floating:   req.Floating,
		}
		if err := events.Create(r.Context(), ev); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create event")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ev)
	}
}

// SyncPropertyFeed runs an immediate booking feed sync for a property and
// returns the result.
func SyncPropertyFeed(properties *storage.PropertyRepository, syncService *calendar.SyncService, hub *ws.Hub) http.HandlerFunc {
	var broadcaster *ws.EventBroadcaster
	if hub != nil {
		broadcaster = ws.NewEventBroadcaster(hub)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		p, err := properties.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}
		if p.FeedURL == nil || *p.FeedURL == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Property has no booking feed configured")
			return
		}

		result, err := syncService.SyncProperty(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrInternalError, "Feed sync failed: "+err.Error())
			return
		}

		if broadcaster != nil {
			broadcaster.BroadcastNotification("success", "Feed Synced", "Booking feed sync completed for "+p.Name)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// DeleteEvent removes a calendar event.
func DeleteEvent(events *storage.CalendarRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := events.Delete(r.Context(), id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete event")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
