package thermostat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNestAuthCachesAccessToken(t *testing.T) {
	var refreshes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "client-1", r.Form.Get("client_id"))
		assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
		w.Write([]byte(`{"access_token":"access-1","expires_in":3600}`))
	}))
	defer srv.Close()

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	auth := NewNestAuth("client-1", "secret-1", "refresh-1")
	auth.tokenURL = srv.URL
	auth.now = func() time.Time { return clock }

	token, err := auth.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)

	// Within the expiry window the cached token is reused
	clock = clock.Add(30 * time.Minute)
	token, err = auth.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))

	// Inside the skew margin of expiry the token counts as expired
	clock = clock.Add(30*time.Minute - 10*time.Second)
	_, err = auth.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&refreshes))
}

func TestNestAuthRefreshFailureIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	auth := NewNestAuth("client-1", "secret-1", "revoked")
	auth.tokenURL = srv.URL

	_, err := auth.AccessToken(context.Background())
	require.Error(t, err)

	var vendorErr *VendorError
	require.ErrorAs(t, err, &vendorErr)
	assert.Equal(t, "nest", vendorErr.Vendor)

	_, status := vendorErr.Response()
	assert.Equal(t, 401, status)
}

// newNestTestAPI wires a NestAPI against a fake SDM endpoint with a
// pre-seeded token.
func newNestTestAPI(srvURL, deviceID string) *NestAPI {
	auth := NewNestAuth("client-1", "secret-1", "refresh-1")
	auth.access = "access-1"
	auth.expiry = time.Now().Add(time.Hour)

	client := NewNestClient("project-1", auth)
	client.http = NewSession(5 * time.Second).SetBaseURL(srvURL)

	return &NestAPI{
		thermostat: &models.Thermostat{DeviceID: deviceID, VendorType: models.VendorNest},
		client:     client,
	}
}

func TestNestGetStatusNormalizesTraits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enterprises/project-1/devices/dev-1", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"name": "enterprises/project-1/devices/dev-1",
			"traits": {
				"sdm.devices.traits.Temperature": {"ambientTemperatureCelsius": 22.5},
			"sdm.devices.traits.Humidity": {"ambientHumidityPercent": 35},
				"sdm.devices.traits.ThermostatTemperatureSetpoint": {"coolCelsius": 24, "heatCelsius": 18},
				"sdm.devices.traits.ThermostatMode": {"mode": "COOL"}
			}
		}`))
	}))
	defer srv.Close()

	api := newNestTestAPI(srv.URL, "dev-1")
	status, err := api.GetStatus(context.Background())
	require.NoError(t, err)

	assert.True(t, status.Online)
	assert.Equal(t, "cool", status.Mode)
	require.NotNil(t, status.CurrentTemperature)
	assert.Equal(t, 72.5, *status.CurrentTemperature)
	require.NotNil(t, status.CurrentHumidity)
	assert.Equal(t, 35.0, *status.CurrentHumidity)
	// COOL mode selects the cooling setpoint
	require.NotNil(t, status.TargetTemperature)
	assert.Equal(t, 75.2, *status.TargetTemperature)
}

func TestNestSetTemperatureConvertsToCelsius(t *testing.T) {
	var got struct {
		Command string         `json:"command"`
		Params  map[string]any `json:"params"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enterprises/project-1/devices/dev-1:executeCommand", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	api := newNestTestAPI(srv.URL, "dev-1")
	require.NoError(t, api.SetTemperature(context.Background(), 72, true))

	assert.Equal(t, cmdSetCool, got.Command)
	assert.Equal(t, 22.22, got.Params["coolCelsius"])
}

func TestNestSetModeCollapsesUnknownToOff(t *testing.T) {
	var got struct {
		Command string         `json:"command"`
		Params  map[string]any `json:"params"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	api := newNestTestAPI(srv.URL, "dev-1")

	require.NoError(t, api.SetMode(context.Background(), "cool"))
	assert.Equal(t, "COOL", got.Params["mode"])

	require.NoError(t, api.SetMode(context.Background(), "turbo"))
	assert.Equal(t, "OFF", got.Params["mode"])
}
