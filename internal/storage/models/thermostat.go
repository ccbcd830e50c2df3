package models

import (
	"time"
)

// VendorType identifies the cloud vendor a thermostat is controlled through.
type VendorType string

const (
	VendorCielo   VendorType = "cielo"
	VendorNest    VendorType = "nest"
	VendorPioneer VendorType = "pioneer"

	// VendorNetHome is the account key for the NetHome/Midea cloud that
	// Pioneer units are controlled through. Thermostats carry
	// VendorPioneer; the stored credentials live under this name.
	VendorNetHome VendorType = "nethome"
)

// Thermostat represents a thermostat device attached to a property.
// The cached temperature/mode/online fields are opportunistically updated by
// status calls and are not authoritative.
type Thermostat struct {
	ID                 string     `json:"id"`
	PropertyID         string     `json:"property_id"`
	Name               string     `json:"name"`
	DeviceID           string     `json:"device_id"`
	VendorType         VendorType `json:"vendor_type"`
	CurrentTemperature *float64   `json:"current_temperature,omitempty"`
	TargetTemperature  *float64   `json:"target_temperature,omitempty"`
	CurrentHumidity    *float64   `json:"current_humidity,omitempty"`
	Mode               string     `json:"mode"`
	IsOnline           bool       `json:"is_online"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Command status constants
const (
	CommandStatusPending = "pending"
	CommandStatusSuccess = "success"
	CommandStatusFailed  = "failed"
)

// ThermostatCommand is the audit record for a single command attempt against
// a thermostat. Immutable once terminal, except for status and result.
type ThermostatCommand struct {
	ID           string    `json:"id"`
	ThermostatID string    `json:"thermostat_id"`
	CommandType  string    `json:"command_type"`
	Parameters   string    `json:"parameters"`
	Status       string    `json:"status"`
	Result       *string   `json:"result,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
