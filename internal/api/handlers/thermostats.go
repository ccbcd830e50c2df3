package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/smart-thermostat/backend/internal/api/middleware"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/smart-thermostat/backend/internal/thermostat"
)

// writeVendorFailure maps adapter and vendor-client failures to their
// client-facing envelope. Unrecognized errors fall through to a 502.
func writeVendorFailure(w http.ResponseWriter, err error) {
	var body thermostat.ErrorBody
	var status int

	var vendorErr *thermostat.VendorError
	var configErr *thermostat.ConfigurationError
	switch {
	case errors.As(err, &vendorErr):
		body, status = vendorErr.Response()
	case errors.As(err, &configErr):
		body, status = configErr.Response()
	default:
		body = thermostat.ErrorBody{Error: "vendor_error", Message: err.Error()}
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// CreateThermostatRequest is the body for registering a thermostat.
type CreateThermostatRequest struct {
	PropertyID string `json:"property_id"`
	Name       string `json:"name"`
	DeviceID   string `json:"device_id"`
	VendorType string `json:"vendor_type"`
}

// CreateThermostat registers a thermostat device under a property.
func CreateThermostat(properties *storage.PropertyRepository, thermostats *storage.ThermostatRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateThermostatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.PropertyID == "" || req.DeviceID == "" || req.VendorType == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "property_id, device_id and vendor_type are required")
			return
		}
		switch models.VendorType(req.VendorType) {
		case models.VendorCielo, models.VendorNest, models.VendorPioneer:
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown vendor_type")
			return
		}

		p, err := properties.GetByID(r.Context(), req.PropertyID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		t := &models.Thermostat{
			PropertyID: req.PropertyID,
			Name:       req.Name,
			DeviceID:   req.DeviceID,
			VendorType: models.VendorType(req.VendorType),
		}
		if err := thermostats.Create(r.Context(), t); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create thermostat")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(t)
	}
}

// GetThermostat returns a thermostat with its cached status fields.
func GetThermostat(thermostats *storage.ThermostatRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		t, err := thermostats.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query thermostat")
			return
		}
		if t == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Thermostat not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(t)
	}
}

// GetThermostatStatus reads the thermostat's live status from the vendor
// cloud, refreshing the cached fields on the way.
func GetThermostatStatus(thermostats *storage.ThermostatRepository, manager *thermostat.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		t, err := thermostats.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query thermostat")
			return
		}
		if t == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Thermostat not found")
			return
		}

		status, err := manager.RefreshStatus(r.Context(), t)
		if err != nil {
			writeVendorFailure(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}

// CommandRequest is the body for sending a thermostat command.
type CommandRequest struct {
	Command string                   `json:"command"`
	Params  thermostat.CommandParams `json:"params"`
}

// SendThermostatCommand executes one command against a thermostat.
func SendThermostatCommand(thermostats *storage.ThermostatRepository, manager *thermostat.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		t, err := thermostats.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query thermostat")
			return
		}
		if t == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Thermostat not found")
			return
		}

		var req CommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Command == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "command is required")
			return
		}

		if err := manager.Execute(r.Context(), t, req.Command, req.Params); err != nil {
			writeVendorFailure(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// ListThermostatCommands returns the recent command history of a thermostat.
func ListThermostatCommands(commands *storage.CommandRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, _ = strconv.Atoi(raw)
		}

		list, err := commands.ListByThermostat(r.Context(), id, limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query commands")
			return
		}
		if list == nil {
			list = []models.ThermostatCommand{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// DeleteThermostat removes a thermostat.
func DeleteThermostat(thermostats *storage.ThermostatRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := thermostats.Delete(r.Context(), id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete thermostat")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
