package thermostat

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/smart-thermostat/backend/internal/storage/models"
)

// defaultCelsiusReadingCeiling is the unit heuristic for NetHome readings:
// when the cloud is configured for Celsius, raw values at or below this
// ceiling are taken as Celsius and converted to Fahrenheit; larger values
// are assumed to already be Fahrenheit and pass through. Borderline readings
// between 45 and 50 are a known inaccuracy of the heuristic. Override per
// account with the "celsius_ceiling" extra.
const defaultCelsiusReadingCeiling = 45.0

// PioneerAPI adapts Pioneer units on the NetHome/Midea cloud to the uniform
// capability set. The thermostat's device id is the NetHome applianceId.
//
// Unlike Nest, the token lives on the stored account rather than in process
// memory: before every operation an expired token is synchronously refreshed
// and the new triple persisted, encrypted, back to the account row.
type PioneerAPI struct {
	thermostat *models.Thermostat
	env        *Env
	acct       *models.VendorAccount
	client     *NetHomeClient

	tempUnit   string
	celsiusMax float64
	now        func() time.Time
}

// NewPioneerAPI builds the Pioneer adapter for a thermostat from the stored
// NetHome account.
func NewPioneerAPI(ctx context.Context, env *Env, t *models.Thermostat) (Adapter, error) {
	acct, err := env.account(ctx, models.VendorNetHome)
	if err != nil {
		return nil, err
	}
	if acct.AccessToken == nil {
		return nil, &ConfigurationError{
			Vendor:  string(models.VendorNetHome),
			Message: "no NetHome account connected",
		}
	}

	celsiusMax := defaultCelsiusReadingCeiling
	if v := acct.ExtraValue("celsius_ceiling", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			celsiusMax = f
		}
	}

	cfg := env.Config
	return &PioneerAPI{
		thermostat: t,
		env:        env,
		acct:       acct,
		client: NewNetHomeClient(NetHomeConfig{
			BaseURL:    cfg.NetHomeBaseURL,
			AppID:      cfg.NetHomeAppID,
			ClientType: cfg.NetHomeClientType,
			Lang:       cfg.NetHomeLang,
		}),
		tempUnit:   strings.ToUpper(cfg.NetHomeTempUnit),
		celsiusMax: celsiusMax,
		now:        time.Now,
	}, nil
}

// freshAccessToken returns a usable plaintext access token, refreshing and
// persisting the stored triple first when it has expired.
func (a *PioneerAPI) freshAccessToken(ctx context.Context) (string, error) {
	return freshNetHomeToken(ctx, a.env, a.client, a.acct, a.now())
}

// statusKeys are the possible field names different NetHome firmwares use
// for the same reading.
var (
	ambientKeys  = []string{"tempIndoor", "indoorTemp", "currentTemperature", "temperature"}
	setpointKeys = []string{"setTemperature", "targetTemperature", "setpoint"}
	humidityKeys = []string{"humidity", "indoorHumidity", "humidityIndoor"}
	modeKeys     = []string{"mode", "workMode"}
)

func firstNumeric(data map[string]any, keys []string) *float64 {
	for _, k := range keys {
		switch v := data[k].(type) {
		case float64:
			f := v
			return &f
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func firstString(data map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// maybeFahrenheit applies the unit heuristic to a raw reading.
func (a *PioneerAPI) maybeFahrenheit(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if a.tempUnit == "C" && *v <= a.celsiusMax {
		f := CelsiusToFahrenheit(*v)
		return &f
	}
	f := *v
	return &f
}

// GetStatus reads the appliance state and heuristically resolves the varying
// vendor field names and units.
func (a *PioneerAPI) GetStatus(ctx context.Context) (*Status, error) {
	token, err := a.freshAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := a.client.Status(ctx, token, a.thermostat.DeviceID)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		data = envelope.Data
	} else if err := json.Unmarshal(raw, &data); err != nil {
		return nil, newVendorError("nethome", "decoding status: %v", err)
	}

	return &Status{
		Online:             true,
		CurrentTemperature: a.maybeFahrenheit(firstNumeric(data, ambientKeys)),
		TargetTemperature:  a.maybeFahrenheit(firstNumeric(data, setpointKeys)),
		CurrentHumidity:    firstNumeric(data, humidityKeys),
		Mode:               strings.ToLower(firstString(data, modeKeys)),
		Raw:                raw,
	}, nil
}

// SetTemperature sets the target temperature, converting to Celsius when the
// cloud expects it.
func (a *PioneerAPI) SetTemperature(ctx context.Context, tempF float64, isCooling bool) error {
	token, err := a.freshAccessToken(ctx)
	if err != nil {
		return err
	}

	value := tempF
	if a.tempUnit == "C" {
		value = FahrenheitToCelsius(tempF)
	}

	return a.client.Command(ctx, token, a.thermostat.DeviceID, "temperature", value)
}

// SetMode sets the HVAC mode directly; the NetHome cloud exposes it as a
// plain command.
func (a *PioneerAPI) SetMode(ctx context.Context, mode string) error {
	token, err := a.freshAccessToken(ctx)
	if err != nil {
		return err
	}
	return a.client.Command(ctx, token, a.thermostat.DeviceID, "mode", strings.ToLower(mode))
}

// TurnOn powers the unit on.
func (a *PioneerAPI) TurnOn(ctx context.Context) error {
	token, err := a.freshAccessToken(ctx)
	if err != nil {
		return err
	}
	return a.client.Command(ctx, token, a.thermostat.DeviceID, "power", "on")
}

// TurnOff powers the unit off.
func (a *PioneerAPI) TurnOff(ctx context.Context) error {
	token, err := a.freshAccessToken(ctx)
	if err != nil {
		return err
	}
	return a.client.Command(ctx, token, a.thermostat.DeviceID, "power", "off")
}
