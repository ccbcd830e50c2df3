package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smart-thermostat/backend/internal/api/middleware"
	"github.com/smart-thermostat/backend/internal/schedule"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
)

// ListPendingActions returns the queued actions ordered by ETA.
func ListPendingActions(actions *storage.ActionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := actions.ListPending(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query actions")
			return
		}
		if list == nil {
			list = []models.ScheduledAction{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// TriggerScan runs a calendar scan immediately, outside the cron schedule.
func TriggerScan(scanner *schedule.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := scanner.Scan(r.Context(), time.Now()); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Calendar scan failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "scan completed"})
	}
}
