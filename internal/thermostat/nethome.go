package thermostat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smart-thermostat/backend/internal/storage/models"
)

// NetHomeConfig carries the app-level parameters of the NetHome/Midea cloud
// that Pioneer units are controlled through.
type NetHomeConfig struct {
	BaseURL    string
	AppID      string
	ClientType string
	Lang       string
}

// NetHomeTokens is the (access, refresh, expiry) triple returned by the
// login and refresh endpoints.
type NetHomeTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// NetHomeClient speaks the NetHome cloud protocol: account-level bearer
// tokens obtained by login and renewed by refresh.
type NetHomeClient struct {
	cfg  NetHomeConfig
	http *resty.Client
}

// NewNetHomeClient creates a client for the configured NetHome cloud.
func NewNetHomeClient(cfg NetHomeConfig) *NetHomeClient {
	return &NetHomeClient{
		cfg:  cfg,
		http: NewSession(nethomeTimeout).SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
	}
}

type nethomeEnvelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *NetHomeClient) tokensFrom(raw json.RawMessage, fallbackRefresh string) (*NetHomeTokens, error) {
	var data struct {
		AccessToken  string `json:"accessToken"`
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int    `json:"expiresIn"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, newVendorError("nethome", "decoding token response: %v", err)
	}

	access := data.AccessToken
	if access == "" {
		access = data.Token
	}
	if access == "" {
		return nil, newVendorError("nethome", "missing token in response")
	}

	refresh := data.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	expires := data.ExpiresIn
	if expires <= 0 {
		expires = 3600
	}

	return &NetHomeTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expires,
	}, nil
}

// Login authenticates with account credentials and returns a fresh token
// triple.
func (c *NetHomeClient) Login(ctx context.Context, email, password string) (*NetHomeTokens, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"appId":        c.cfg.AppID,
			"clientType":   c.cfg.ClientType,
			"format":       2,
			"language":     c.cfg.Lang,
			"loginAccount": email,
			"password":     password,
		}).
		Post("/v1/user/login")
	if err != nil {
		return nil, newAuthError("nethome", "login failed: %v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, newAuthError("nethome", "login failed: %s", resp.Body())
	}

	var env nethomeEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, newVendorError("nethome", "decoding login response: %v", err)
	}

	return c.tokensFrom(env.Data, "")
}

// Refresh exchanges a refresh token for a new token triple. The cloud may
// keep the refresh token unchanged.
func (c *NetHomeClient) Refresh(ctx context.Context, refreshToken string) (*NetHomeTokens, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"appId":        c.cfg.AppID,
			"format":       2,
			"refreshToken": refreshToken,
		}).
		Post("/v1/user/refreshToken")
	if err != nil {
		return nil, newAuthError("nethome", "refresh failed: %v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, newAuthError("nethome", "refresh failed: %s", resp.Body())
	}

	var env nethomeEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, newVendorError("nethome", "decoding refresh response: %v", err)
	}

	return c.tokensFrom(env.Data, refreshToken)
}

// FreshNetHomeToken loads the stored NetHome account and returns a plaintext
// access token, refreshing and persisting the encrypted triple first when
// the stored token has expired.
func FreshNetHomeToken(ctx context.Context, env *Env, client *NetHomeClient) (string, error) {
	acct, err := env.account(ctx, models.VendorNetHome)
	if err != nil {
		return "", err
	}
	return freshNetHomeToken(ctx, env, client, acct, time.Now())
}

// freshNetHomeToken refreshes acct in place, so callers holding the row keep
// seeing the current ciphertexts.
func freshNetHomeToken(ctx context.Context, env *Env, client *NetHomeClient, acct *models.VendorAccount, now time.Time) (string, error) {
	if !acct.TokenExpired(now) {
		return env.credential(models.VendorNetHome, "access token", acct.AccessToken)
	}

	refresh, err := env.credential(models.VendorNetHome, "refresh token", acct.RefreshToken)
	if err != nil {
		return "", err
	}

	tokens, err := client.Refresh(ctx, refresh)
	if err != nil {
		return "", err
	}

	encAccess, err := env.Cipher.Encrypt(tokens.AccessToken)
	if err != nil {
		return "", err
	}
	encRefresh, err := env.Cipher.Encrypt(tokens.RefreshToken)
	if err != nil {
		return "", err
	}
	expiresAt := now.Add(time.Duration(tokens.ExpiresIn) * time.Second)

	if err := env.Accounts.UpdateTokens(ctx, models.VendorNetHome, &encAccess, &encRefresh, &expiresAt); err != nil {
		return "", err
	}

	acct.AccessToken = &encAccess
	acct.RefreshToken = &encRefresh
	acct.TokenExpiresAt = &expiresAt

	return tokens.AccessToken, nil
}

// NetHomeAppliance is one appliance from the account listing, used when
// pairing a thermostat to its applianceId.
type NetHomeAppliance struct {
	ApplianceID string `json:"applianceId"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	OnlineState string `json:"onlineState"`
}

// ListAppliances returns the appliances registered to the account.
func (c *NetHomeClient) ListAppliances(ctx context.Context, accessToken string) ([]NetHomeAppliance, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("authorization", accessToken).
		Get("/v1/appliance/user/listGet")
	if err != nil {
		return nil, newVendorError("nethome", "listing appliances: %v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, upstreamError("nethome", resp)
	}

	var body struct {
		Data struct {
			List []NetHomeAppliance `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, newVendorError("nethome", "decoding appliance list: %v", err)
	}

	return body.Data.List, nil
}

// Status reads the raw operational state of an appliance. Field names vary
// by firmware; interpretation is left to the adapter.
func (c *NetHomeClient) Status(ctx context.Context, accessToken, applianceID string) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("authorization", accessToken).
		SetQueryParam("applianceId", applianceID).
		Get("/v1/appliance/operation/status")
	if err != nil {
		return nil, newVendorError("nethome", "status failed: %v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, upstreamError("nethome", resp)
	}

	return resp.Body(), nil
}

// Command posts a generic {applianceId, command, value} operation.
func (c *NetHomeClient) Command(ctx context.Context, accessToken, applianceID, command string, value any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("authorization", accessToken).
		SetBody(map[string]any{
			"applianceId": applianceID,
			"command":     command,
			"value":       value,
		}).
		Post("/v1/appliance/operation/set")
	if err != nil {
		return newVendorError("nethome", "%s command failed: %v", command, err)
	}
	if resp.StatusCode() >= 400 {
		return upstreamError("nethome", resp)
	}

	return nil
}
