// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// Config holds the runtime configuration for the thermostat manager.
type Config struct {
	// Addr is the HTTP server listen address.
	Addr string

	// DataDir is the directory holding the SQLite database.
	DataDir string

	// DefaultTimezone is the fallback IANA timezone for properties that do
	// not declare one. Invalid or missing names fall through to UTC.
	DefaultTimezone string

	// PreArrivalHours is how long before check-in the property is
	// pre-conditioned.
	PreArrivalHours int

	// PostCheckoutHours is how long after checkout the HVAC is relaxed.
	PostCheckoutHours int

	// DefaultCoolTemp is the occupied cooling setpoint in Fahrenheit.
	DefaultCoolTemp float64

	// DefaultEcoCoolTemp is the vacant/eco cooling setpoint in Fahrenheit.
	DefaultEcoCoolTemp float64

	// DefaultEcoHeatTemp is the vacant/eco heating setpoint in Fahrenheit.
	DefaultEcoHeatTemp float64

	// CipherKey encrypts vendor credentials at rest. Required.
	CipherKey string

	// ScanSpec is the cron expression (with seconds field) for the calendar
	// scan.
	ScanSpec string

	// DispatchSpec is the cron expression for draining due actions.
	DispatchSpec string

	// FeedSyncSpec is the cron expression for syncing booking feeds.
	FeedSyncSpec string

	// NetHome cloud parameters for Pioneer units.
	NetHomeBaseURL    string
	NetHomeAppID      string
	NetHomeClientType string
	NetHomeLang       string

	// NetHomeTempUnit is the unit the NetHome cloud reports in, "C" or "F".
	NetHomeTempUnit string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		Addr:               getEnv("ADDR", ":8098"),
		DataDir:            getEnv("DATA_DIR", "/data"),
		DefaultTimezone:    getEnv("DEFAULT_PROPERTY_TIME_ZONE", "America/Chicago"),
		PreArrivalHours:    getEnvInt("PRE_ARRIVAL_HOURS", 2),
		PostCheckoutHours:  getEnvInt("POST_CHECKOUT_HOURS", 2),
		DefaultCoolTemp:    getEnvFloat("DEFAULT_COOL_TEMP", 72),
		DefaultEcoCoolTemp: getEnvFloat("DEFAULT_ECO_COOL_TEMP", 78),
		DefaultEcoHeatTemp: getEnvFloat("DEFAULT_ECO_HEAT_TEMP", 62),
		CipherKey:          getEnv("SECRET_BOX_KEY", ""),
		ScanSpec:           getEnv("CALENDAR_SCAN_SPEC", "0 0 * * * *"),
		DispatchSpec:       getEnv("ACTION_DISPATCH_SPEC", "@every 30s"),
		FeedSyncSpec:       getEnv("FEED_SYNC_SPEC", "@every 15m"),
		NetHomeBaseURL:     getEnv("NETHOME_BASE_URL", "https://mapp.appsmb.com"),
		NetHomeAppID:       getEnv("NETHOME_APP_ID", "1117"),
		NetHomeClientType:  getEnv("NETHOME_CLIENT_TYPE", "1"),
		NetHomeLang:        getEnv("NETHOME_LANG", "en_US"),
		NetHomeTempUnit:    getEnv("NETHOME_TEMP_UNIT", "C"),
	}
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
