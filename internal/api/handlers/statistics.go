package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/smart-thermostat/backend/internal/api/middleware"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
)

// periodStart resolves a named reporting period to its starting instant.
// week is a rolling seven days; month and year are calendar-aligned. An
// unknown period means no restriction.
func periodStart(period string, now time.Time) (time.Time, bool) {
	now = now.UTC()
	switch period {
	case "week":
		return now.AddDate(0, 0, -7), true
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), true
	case "year":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}

// PropertyStatistics returns the property's daily usage rows for the
// requested period, defaulting to the current calendar month.
func PropertyStatistics(properties *storage.PropertyRepository, stats *storage.StatisticsRepository) http.HandlerFunc {
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

		period := r.URL.Query().Get("period")
		if period == "" {
			period = "month"
		}

		var since *time.Time
		if start, ok := periodStart(period, time.Now()); ok {
			since = &start
		}

		list, err := stats.ListByProperty(r.Context(), p.ID, since)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query usage statistics")
			return
		}
		if list == nil {
			list = []models.UsageStatistics{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// ListStatistics returns daily usage rows across all properties. An optional
// thermostat_id narrows the result to the owning property, and an optional
// period restricts the date range; without either every row is returned.
func ListStatistics(thermostats *storage.ThermostatRepository, stats *storage.StatisticsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var since *time.Time
		if start, ok := periodStart(r.URL.Query().Get("period"), time.Now()); ok {
			since = &start
		}

		var list []models.UsageStatistics
		if thermostatID := r.URL.Query().Get("thermostat_id"); thermostatID != "" {
			t, err := thermostats.GetByID(r.Context(), thermostatID)
			if err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query thermostat")
				return
			}
			if t != nil {
				list, err = stats.ListByProperty(r.Context(), t.PropertyID, since)
				if err != nil {
					middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query usage statistics")
					return
				}
			}
		} else {
			var err error
			list, err = stats.List(r.Context(), since)
			if err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query usage statistics")
				return
			}
		}

		if list == nil {
			list = []models.UsageStatistics{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}
