// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"github.com/gorilla/mux"
	"github.com/smart-thermostat/backend/internal/api/handlers"
	"github.com/smart-thermostat/backend/internal/api/middleware"
	"github.com/smart-thermostat/backend/internal/calendar"
	"github.com/smart-thermostat/backend/internal/config"
	"github.com/smart-thermostat/backend/internal/schedule"
	"github.com/smart-thermostat/backend/internal/secrets"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/thermostat"
	"github.com/smart-thermostat/backend/internal/websocket"
)

// Deps bundles the services and repositories the routes are wired to.
type Deps struct {
	Config config.Config
	DB     *storage.DB
	Hub    *websocket.Hub
	Cipher *secrets.Cipher

	Properties  *storage.PropertyRepository
	Events      *storage.CalendarRepository
	Thermostats *storage.ThermostatRepository
	Commands    *storage.CommandRepository
	Accounts    *storage.VendorAccountRepository
	Actions     *storage.ActionRepository
	Stats       *storage.StatisticsRepository

	Manager  *thermostat.Manager
	Scanner  *schedule.Scanner
	FeedSync *calendar.SyncService
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(d.DB, d.Hub, d.Actions)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub)).Methods("GET")

	// Property endpoints
	api.HandleFunc("/properties", handlers.ListProperties(d.Properties)).Methods("GET")
	api.HandleFunc("/properties", handlers.CreateProperty(d.Properties)).Methods("POST")
	api.HandleFunc("/properties/{id}", handlers.GetProperty(d.Properties)).Methods("GET")
	api.HandleFunc("/properties/{id}", handlers.UpdateProperty(d.Properties)).Methods("PUT")
	api.HandleFunc("/properties/{id}", handlers.DeleteProperty(d.Properties)).Methods("DELETE")
	api.HandleFunc("/properties/{id}/sync", handlers.SyncPropertyFeed(d.Properties, d.FeedSync, d.Hub)).Methods("POST")
	api.HandleFunc("/properties/{id}/thermostats", handlers.ListPropertyThermostats(d.Thermostats)).Methods("GET")
	api.HandleFunc("/properties/{id}/events", handlers.ListPropertyEvents(d.Events)).Methods("GET")
	api.HandleFunc("/properties/{id}/events", handlers.CreatePropertyEvent(d.Properties, d.Events)).Methods("POST")
	api.HandleFunc("/properties/{id}/statistics", handlers.PropertyStatistics(d.Properties, d.Stats)).Methods("GET")

	// Usage statistics across properties
	api.HandleFunc("/statistics", handlers.ListStatistics(d.Thermostats, d.Stats)).Methods("GET")

	// Calendar event endpoints
	api.HandleFunc("/events/{id}", handlers.DeleteEvent(d.Events)).Methods("DELETE")

	// Thermostat endpoints
	api.HandleFunc("/thermostats", handlers.CreateThermostat(d.Properties, d.Thermostats)).Methods("POST")
	api.HandleFunc("/thermostats/{id}", handlers.GetThermostat(d.Thermostats)).Methods("GET")
	api.HandleFunc("/thermostats/{id}", handlers.DeleteThermostat(d.Thermostats)).Methods("DELETE")
	api.HandleFunc("/thermostats/{id}/status", handlers.GetThermostatStatus(d.Thermostats, d.Manager)).Methods("GET")
	api.HandleFunc("/thermostats/{id}/commands", handlers.SendThermostatCommand(d.Thermostats, d.Manager)).Methods("POST")
	api.HandleFunc("/thermostats/{id}/commands", handlers.ListThermostatCommands(d.Commands)).Methods("GET")

	// Vendor account endpoints
	api.HandleFunc("/vendor-accounts", handlers.ListVendorAccounts(d.Accounts)).Methods("GET")
	api.HandleFunc("/vendor-accounts", handlers.UpsertVendorAccount(d.Accounts, d.Cipher)).Methods("PUT")
	api.HandleFunc("/vendor-accounts/nethome/connect", handlers.ConnectNetHome(d.Accounts, d.Cipher, d.Config)).Methods("POST")
	api.HandleFunc("/vendor-accounts/nethome/appliances", handlers.DiscoverNetHomeAppliances(d.Accounts, d.Cipher, d.Config)).Methods("GET")

	// Scheduled action endpoints
	api.HandleFunc("/actions", handlers.ListPendingActions(d.Actions)).Methods("GET")
	api.HandleFunc("/actions/scan", handlers.TriggerScan(d.Scanner)).Methods("POST")

	return r
}
