// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	PropertiesCount int    `json:"properties_count"`
	VendorAccounts  int    `json:"vendor_accounts"`
	PendingActions  int    `json:"pending_actions"`
	NextActionETA   string `json:"next_action_eta,omitempty"`
	ClientsOnline   int    `json:"clients_online"`
}

// Status returns a handler that provides system status information.
func Status(db *storage.DB, hub *websocket.Hub, actions *storage.ActionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var resp StatusResponse
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM properties").Scan(&resp.PropertiesCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vendor_accounts").Scan(&resp.VendorAccounts)

		if pending, err := actions.ListPending(ctx); err == nil {
			resp.PendingActions = len(pending)
			if len(pending) > 0 {
				resp.NextActionETA = pending[0].ETA.UTC().Format(time.RFC3339)
			}
		}

		if hub != nil {
			resp.ClientsOnline = hub.ClientCount()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
