package thermostat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/smart-thermostat/backend/internal/storage/models"
)

const defaultCieloBaseURL = "https://home.cielowigle.com/web"

// CieloClient speaks the Cielo cloud wire protocol. Authentication is a pair
// of static headers; there is no token lifecycle.
type CieloClient struct {
	http *resty.Client
}

// NewCieloClient creates a client against the given base URL (the production
// cloud when empty) with the account's static credentials.
func NewCieloClient(baseURL, authToken, xAPIKey string) *CieloClient {
	if baseURL == "" {
		baseURL = defaultCieloBaseURL
	}

	client := NewSession(defaultTimeout).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("accept", "application/json, text/plain, */*").
		SetHeader("content-type", "application/json;charset=UTF-8").
		SetHeader("auth_token", authToken).
		SetHeader("x-api-key", xAPIKey)

	return &CieloClient{http: client}
}

// flexString accepts a JSON string or number; the Cielo cloud is not
// consistent about which it sends for device ids.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(strings.TrimSpace(string(b)))
	return nil
}

// CieloDevice is one entry from the device listing. The cloud is loose about
// field names, so both id spellings and both ambient temperature keys are
// mapped.
type CieloDevice struct {
	ID          flexString `json:"id"`
	DeviceID    string     `json:"deviceid"`
	CurrentTemp *float64   `json:"currentTemp"`
	AmbientTemp *float64   `json:"ambientTemp"`
	SetPoint    *float64   `json:"setPoint"`
	Humidity    *float64   `json:"humidity"`
	Mode        string     `json:"mode"`
	Fan         string     `json:"fan"`

	// Raw is the device's own listing entry, kept for status reporting.
	Raw json.RawMessage `json:"-"`
}

// ListDevices returns every device on the account.
func (c *CieloClient) ListDevices(ctx context.Context) ([]CieloDevice, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", "200").
		Get("/devices")
	if err != nil {
		return nil, newVendorError("cielo", "listing devices: %v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, upstreamError("cielo", resp)
	}

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, newVendorError("cielo", "decoding device list: %v", err)
	}

	devices := make([]CieloDevice, 0, len(body.Data))
	for _, raw := range body.Data {
		var d CieloDevice
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, newVendorError("cielo", "decoding device: %v", err)
		}
		d.Raw = raw
		devices = append(devices, d)
	}

	return devices, nil
}

// Command posts a command for a device.
func (c *CieloClient) Command(ctx context.Context, deviceID, command string, params map[string]any) error {
	body := map[string]any{
		"deviceid": deviceID,
		"command":  command,
		"params":   params,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/commands")
	if err != nil {
		return newVendorError("cielo", "sending %s command: %v", command, err)
	}
	if resp.StatusCode() >= 400 {
		return upstreamError("cielo", resp)
	}

	return nil
}

// CieloAPI adapts a Cielo-controlled thermostat to the uniform capability
// set.
type CieloAPI struct {
	thermostat *models.Thermostat
	client     *CieloClient
}

// NewCieloAPI builds the Cielo adapter for a thermostat from the stored
// account.
func NewCieloAPI(ctx context.Context, env *Env, t *models.Thermostat) (Adapter, error) {
	acct, err := env.account(ctx, models.VendorCielo)
	if err != nil {
		return nil, err
	}

	authToken, err := env.credential(models.VendorCielo, "auth token", acct.AccessToken)
	if err != nil {
		return nil, err
	}

	return &CieloAPI{
		thermostat: t,
		client: NewCieloClient(
			acct.ExtraValue("base_url", ""),
			authToken,
			acct.ExtraValue("x_api_key", ""),
		),
	}, nil
}

// GetStatus lists the account's devices and matches this thermostat by
// device id. A device missing from the listing reports offline rather than
// erroring.
func (a *CieloAPI) GetStatus(ctx context.Context) (*Status, error) {
	devices, err := a.client.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		if string(d.ID) != a.thermostat.DeviceID && d.DeviceID != a.thermostat.DeviceID {
			continue
		}

		current := d.CurrentTemp
		if current == nil {
			current = d.AmbientTemp
		}
		fan := strings.ToLower(d.Fan)
		if fan == "" {
			fan = "auto"
		}

		return &Status{
			Online:             true,
			CurrentTemperature: current,
			TargetTemperature:  d.SetPoint,
			CurrentHumidity:    d.Humidity,
			Mode:               strings.ToLower(d.Mode),
			Fan:                fan,
			Raw:                d.Raw,
		}, nil
	}

	return &Status{Online: false}, nil
}

// SetTemperature sets the target temperature. Cielo takes Fahrenheit
// natively.
func (a *CieloAPI) SetTemperature(ctx context.Context, tempF float64, isCooling bool) error {
	return a.client.Command(ctx, a.thermostat.DeviceID, "setTemp", map[string]any{
		"temp": tempF,
	})
}

// SetMode approximates mode changes through power commands: Cielo has no
// direct mode endpoint, so "off" powers down and every other mode powers up.
func (a *CieloAPI) SetMode(ctx context.Context, mode string) error {
	if strings.EqualFold(mode, "off") {
		return a.TurnOff(ctx)
	}
	return a.TurnOn(ctx)
}

// TurnOn powers the unit on.
func (a *CieloAPI) TurnOn(ctx context.Context) error {
	return a.client.Command(ctx, a.thermostat.DeviceID, "power", map[string]any{
		"value": "on",
	})
}

// TurnOff powers the unit off.
func (a *CieloAPI) TurnOff(ctx context.Context) error {
	return a.client.Command(ctx, a.thermostat.DeviceID, "power", map[string]any{
		"value": "off",
	})
}
