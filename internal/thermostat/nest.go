package thermostat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smart-thermostat/backend/internal/storage/models"
)

const (
	googleTokenURL = "https://oauth2.googleapis.com/token"
	sdmBaseURL     = "https://smartdevicemanagement.googleapis.com/v1"

	// tokenExpirySkew is the safety margin subtracted from a token's stated
	// expiry before treating it as expired.
	tokenExpirySkew = 30 * time.Second
)

// NestAuth manages the OAuth2 refresh-token flow for the Google Smart Device
// Management API. The access token and its expiry are cached in memory,
// per process; no cross-process coordination is attempted.
type NestAuth struct {
	clientID     string
	clientSecret string
	refreshToken string

	tokenURL string
	http     *resty.Client
	now      func() time.Time

	mu     sync.Mutex
	access string
	expiry time.Time
}

// NewNestAuth creates a token source from the OAuth client credentials and a
// long-lived refresh token.
func NewNestAuth(clientID, clientSecret, refreshToken string) *NestAuth {
	return &NestAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		tokenURL:     googleTokenURL,
		http:         NewSession(defaultTimeout),
		now:          time.Now,
	}
}

// AccessToken returns the cached access token, refreshing it when less than
// the skew margin remains. A failed refresh is an auth error, not a
// transient one.
func (a *NestAuth) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.access != "" && now.Before(a.expiry.Add(-tokenExpirySkew)) {
		return a.access, nil
	}

	resp, err := a.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     a.clientID,
			"client_secret": a.clientSecret,
			"refresh_token": a.refreshToken,
			"grant_type":    "refresh_token",
		}).
		Post(a.tokenURL)
	if err != nil {
		return "", newAuthError("nest", "token refresh failed: %v", err)
	}
	if resp.StatusCode() >= 400 {
		return "", newAuthError("nest", "token refresh failed: %s", resp.Body())
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.AccessToken == "" {
		return "", newAuthError("nest", "token refresh returned no access token")
	}

	expiresIn := body.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	a.access = body.AccessToken
	a.expiry = now.Add(time.Duration(expiresIn) * time.Second)

	return a.access, nil
}

// NestClient speaks the SDM device API for one enterprise project.
type NestClient struct {
	projectID string
	auth      *NestAuth
	http      *resty.Client
}

// NewNestClient creates an SDM client bound to a project and token source.
func NewNestClient(projectID string, auth *NestAuth) *NestClient {
	return &NestClient{
		projectID: projectID,
		auth:      auth,
		http:      NewSession(defaultTimeout).SetBaseURL(sdmBaseURL),
	}
}

// deviceName returns the fully qualified SDM resource name for a device id.
func (c *NestClient) deviceName(deviceID string) string {
	return fmt.Sprintf("enterprises/%s/devices/%s", c.projectID, deviceID)
}

// NestDevice is an SDM device read, traits left raw for per-trait decoding.
type NestDevice struct {
	Name   string                     `json:"name"`
	Traits map[string]json.RawMessage `json:"traits"`
}

// GetDevice reads a device with its traits.
func (c *NestClient) GetDevice(ctx context.Context, deviceID string) (*NestDevice, json.RawMessage, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get("/" + c.deviceName(deviceID))
	if err != nil {
		return nil, nil, newVendorError("nest", "reading device: %v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, nil, upstreamError("nest", resp)
	}

	var device NestDevice
	if err := json.Unmarshal(resp.Body(), &device); err != nil {
		return nil, nil, newVendorError("nest", "decoding device: %v", err)
	}

	return &device, resp.Body(), nil
}

// Exec invokes a trait command on a device.
func (c *NestClient) Exec(ctx context.Context, deviceID, command string, params map[string]any) error {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{"command": command, "params": params}).
		Post("/" + c.deviceName(deviceID) + ":executeCommand")
	if err != nil {
		return newVendorError("nest", "executing %s: %v", command, err)
	}
	if resp.StatusCode() >= 400 {
		return upstreamError("nest", resp)
	}

	return nil
}

// NestAPI adapts a Nest thermostat to the uniform capability set. The SDM
// API is Celsius-native; conversion happens here and nowhere above.
type NestAPI struct {
	thermostat *models.Thermostat
	client     *NestClient
}

// NewNestAPI builds the Nest adapter for a thermostat from the stored
// account.
func NewNestAPI(ctx context.Context, env *Env, t *models.Thermostat) (Adapter, error) {
	acct, err := env.account(ctx, models.VendorNest)
	if err != nil {
		return nil, err
	}

	refreshToken, err := env.credential(models.VendorNest, "refresh token", acct.RefreshToken)
	if err != nil {
		return nil, err
	}

	auth := NewNestAuth(
		acct.ExtraValue("client_id", ""),
		acct.ExtraValue("client_secret", ""),
		refreshToken,
	)

	return &NestAPI{
		thermostat: t,
		client:     NewNestClient(acct.ExtraValue("project_id", ""), auth),
	}, nil
}

// Trait and command names from the SDM device model.
const (
	traitTemperature = "sdm.devices.traits.Temperature"
	traitHumidity    = "sdm.devices.traits.Humidity"
	traitSetpoint    = "sdm.devices.traits.ThermostatTemperatureSetpoint"
	traitMode        = "sdm.devices.traits.ThermostatMode"

	cmdSetCool = "sdm.devices.commands.ThermostatTemperatureSetpoint.SetCool"
	cmdSetHeat = "sdm.devices.commands.ThermostatTemperatureSetpoint.SetHeat"
	cmdSetMode = "sdm.devices.commands.ThermostatMode.SetMode"
)

// GetStatus reads the device traits and normalizes them to Fahrenheit. The
// active setpoint is the cooling one when the device is in COOL mode, the
// heating one otherwise.
func (a *NestAPI) GetStatus(ctx context.Context) (*Status, error) {
	device, raw, err := a.client.GetDevice(ctx, a.thermostat.DeviceID)
	if err != nil {
		return nil, err
	}

	var ambient struct {
		AmbientTemperatureCelsius *float64 `json:"ambientTemperatureCelsius"`
	}
	if t, ok := device.Traits[traitTemperature]; ok {
		_ = json.Unmarshal(t, &ambient)
	}

	var humidity struct {
		AmbientHumidityPercent *float64 `json:"ambientHumidityPercent"`
	}
	if t, ok := device.Traits[traitHumidity]; ok {
		_ = json.Unmarshal(t, &humidity)
	}

	var setpoint struct {
		CoolCelsius *float64 `json:"coolCelsius"`
		HeatCelsius *float64 `json:"heatCelsius"`
	}
	if t, ok := device.Traits[traitSetpoint]; ok {
		_ = json.Unmarshal(t, &setpoint)
	}

	mode := "OFF"
	var modeTrait struct {
		Mode string `json:"mode"`
	}
	if t, ok := device.Traits[traitMode]; ok {
		if err := json.Unmarshal(t, &modeTrait); err == nil && modeTrait.Mode != "" {
			mode = modeTrait.Mode
		}
	}

	targetC := setpoint.HeatCelsius
	if mode == "COOL" {
		targetC = setpoint.CoolCelsius
	}

	status := &Status{
		Online:          true,
		Mode:            strings.ToLower(mode),
		CurrentHumidity: humidity.AmbientHumidityPercent,
		Raw:             raw,
	}
	if ambient.AmbientTemperatureCelsius != nil {
		f := CelsiusToFahrenheit(*ambient.AmbientTemperatureCelsius)
		status.CurrentTemperature = &f
	}
	if targetC != nil {
		f := CelsiusToFahrenheit(*targetC)
		status.TargetTemperature = &f
	}

	return status, nil
}

// SetTemperature sets the cool or heat setpoint in Celsius.
func (a *NestAPI) SetTemperature(ctx context.Context, tempF float64, isCooling bool) error {
	c := FahrenheitToCelsius(tempF)
	if isCooling {
		return a.client.Exec(ctx, a.thermostat.DeviceID, cmdSetCool, map[string]any{"coolCelsius": c})
	}
	return a.client.Exec(ctx, a.thermostat.DeviceID, cmdSetHeat, map[string]any{"heatCelsius": c})
}

// SetMode switches the thermostat mode through the SDM mode trait. Modes the
// SDM API does not know collapse to OFF.
func (a *NestAPI) SetMode(ctx context.Context, mode string) error {
	sdmMode := strings.ToUpper(mode)
	switch sdmMode {
	case "HEAT", "COOL", "HEATCOOL", "OFF":
	default:
		sdmMode = "OFF"
	}
	return a.client.Exec(ctx, a.thermostat.DeviceID, cmdSetMode, map[string]any{"mode": sdmMode})
}

// TurnOn enables the thermostat in heating mode.
func (a *NestAPI) TurnOn(ctx context.Context) error {
	return a.client.Exec(ctx, a.thermostat.DeviceID, cmdSetMode, map[string]any{"mode": "HEAT"})
}

// TurnOff disables the thermostat.
func (a *NestAPI) TurnOff(ctx context.Context) error {
	return a.client.Exec(ctx, a.thermostat.DeviceID, cmdSetMode, map[string]any{"mode": "OFF"})
}
