package models

import (
	"time"
)

// UsageStatistics is one day of aggregated conditioning activity for a
// property. Rows accumulate from status refreshes: each sample bumps the
// counters for the mode observed and folds any readings into the averages.
type UsageStatistics struct {
	ID                 string    `json:"id"`
	PropertyID         string    `json:"property_id"`
	Date               time.Time `json:"date"`
	SampleCount        int       `json:"sample_count"`
	HeatingSamples     int       `json:"heating_samples"`
	CoolingSamples     int       `json:"cooling_samples"`
	IdleSamples        int       `json:"idle_samples"`
	AverageTemperature *float64  `json:"average_temperature,omitempty"`
	AverageHumidity    *float64  `json:"average_humidity,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
