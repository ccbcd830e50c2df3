package thermostat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCieloAdapter(t *testing.T, env *Env, accounts *storage.VendorAccountRepository, baseURL, deviceID string) Adapter {
	t.Helper()

	enc, err := env.Cipher.Encrypt("auth-token-1")
	require.NoError(t, err)
	require.NoError(t, accounts.Upsert(context.Background(), &models.VendorAccount{
		Vendor:      models.VendorCielo,
		AccessToken: &enc,
		Extra:       map[string]string{"base_url": baseURL, "x_api_key": "key-1"},
	}))

	adapter, err := NewCieloAPI(context.Background(), env, &models.Thermostat{
		DeviceID:   deviceID,
		VendorType: models.VendorCielo,
	})
	require.NoError(t, err)
	return adapter
}

func TestCieloGetStatusMatchesDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/devices", r.URL.Path)
		assert.Equal(t, "auth-token-1", r.Header.Get("auth_token"))
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		assert.Equal(t, "200", r.URL.Query().Get("limit"))

		// Device ids arrive as numbers for some accounts and strings for
		// others.
		w.Write([]byte(`{"data":[
			{"id":12345,"currentTemp":74.5,"setPoint":72,"humidity":51,"mode":"Cool","fan":"High"},
			{"deviceid":"abc","currentTemp":68}
		]}`))
	}))
	defer srv.Close()

	env, accounts := newTestEnv(t)
	adapter := newCieloAdapter(t, env, accounts, srv.URL, "12345")

	status, err := adapter.GetStatus(context.Background())
	require.NoError(t, err)

	assert.True(t, status.Online)
	require.NotNil(t, status.CurrentTemperature)
	assert.Equal(t, 74.5, *status.CurrentTemperature)
	require.NotNil(t, status.TargetTemperature)
	assert.Equal(t, 72.0, *status.TargetTemperature)
	require.NotNil(t, status.CurrentHumidity)
	assert.Equal(t, 51.0, *status.CurrentHumidity)
	assert.Equal(t, "cool", status.Mode)
	assert.Equal(t, "high", status.Fan)

	// Raw is the matched device's own listing entry, not the whole listing.
	var rawDevice map[string]any
	require.NoError(t, json.Unmarshal(status.Raw, &rawDevice))
	assert.Equal(t, 12345.0, rawDevice["id"])
	assert.NotContains(t, rawDevice, "data")
}

func TestCieloGetStatusUnmatchedDeviceReportsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"other"}]}`))
	}))
	defer srv.Close()

	env, accounts := newTestEnv(t)
	adapter := newCieloAdapter(t, env, accounts, srv.URL, "missing")

	status, err := adapter.GetStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Online)
}

func TestCieloSetTemperature(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/commands", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	env, accounts := newTestEnv(t)
	adapter := newCieloAdapter(t, env, accounts, srv.URL, "dev-9")

	require.NoError(t, adapter.SetTemperature(context.Background(), 72, true))

	assert.Equal(t, "dev-9", got["deviceid"])
	assert.Equal(t, "setTemp", got["command"])
	params := got["params"].(map[string]any)
	assert.Equal(t, 72.0, params["temp"])
}

func TestCieloUpstreamErrorTranslated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad token"}`))
	}))
	defer srv.Close()

	env, accounts := newTestEnv(t)
	adapter := newCieloAdapter(t, env, accounts, srv.URL, "dev-9")

	_, err := adapter.GetStatus(context.Background())
	require.Error(t, err)

	var vendorErr *VendorError
	require.ErrorAs(t, err, &vendorErr)
	assert.Equal(t, "cielo", vendorErr.Vendor)
	assert.Contains(t, vendorErr.Message, "bad token")

	_, httpStatus := vendorErr.Response()
	assert.Equal(t, 502, httpStatus)
}
