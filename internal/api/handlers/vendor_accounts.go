package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smart-thermostat/backend/internal/api/middleware"
	"github.com/smart-thermostat/backend/internal/config"
	"github.com/smart-thermostat/backend/internal/secrets"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/smart-thermostat/backend/internal/thermostat"
)

// VendorAccountSummary is the redacted view of a stored account. Token
// values never leave the server.
type VendorAccountSummary struct {
	Vendor         models.VendorType `json:"vendor"`
	HasAccessToken bool              `json:"has_access_token"`
	HasRefresh     bool              `json:"has_refresh_token"`
	TokenExpiresAt *time.Time        `json:"token_expires_at,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ListVendorAccounts returns redacted summaries of the configured vendor
// accounts.
func ListVendorAccounts(accounts *storage.VendorAccountRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := accounts.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vendor accounts")
			return
		}

		summaries := make([]VendorAccountSummary, 0, len(list))
		for _, a := range list {
			summaries = append(summaries, VendorAccountSummary{
				Vendor:         a.Vendor,
				HasAccessToken: a.AccessToken != nil && *a.AccessToken != "",
				HasRefresh:     a.RefreshToken != nil && *a.RefreshToken != "",
				TokenExpiresAt: a.TokenExpiresAt,
				UpdatedAt:      a.UpdatedAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

// UpsertVendorAccountRequest is the body for configuring a vendor account.
// Tokens arrive as plaintext and are encrypted before storage.
type UpsertVendorAccountRequest struct {
	Vendor       string            `json:"vendor"`
	AccessToken  string            `json:"access_token,omitempty"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// UpsertVendorAccount stores or replaces the credentials for a vendor.
func UpsertVendorAccount(accounts *storage.VendorAccountRepository, cipher *secrets.Cipher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertVendorAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Vendor == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "vendor is required")
			return
		}

		a := &models.VendorAccount{
			Vendor: models.VendorType(req.Vendor),
			Extra:  req.Extra,
		}
		if a.Extra == nil {
			a.Extra = map[string]string{}
		}

		if req.AccessToken != "" {
			enc, err := cipher.Encrypt(req.AccessToken)
			if err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to encrypt credentials")
				return
			}
			a.AccessToken = &enc
		}
		if req.RefreshToken != "" {
			enc, err := cipher.Encrypt(req.RefreshToken)
			if err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to encrypt credentials")
				return
			}
			a.RefreshToken = &enc
		}

		if err := accounts.Upsert(r.Context(), a); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store vendor account")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(VendorAccountSummary{
			Vendor:         a.Vendor,
			HasAccessToken: a.AccessToken != nil,
			HasRefresh:     a.RefreshToken != nil,
			UpdatedAt:      a.UpdatedAt,
		})
	}
}

// NetHomeConnectRequest is the body for linking a NetHome cloud account with
// username and password.
type NetHomeConnectRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ConnectNetHome logs in to the NetHome cloud, encrypts the returned token
// pair and stores it under the nethome account, which Pioneer thermostats
// authenticate through.
func ConnectNetHome(accounts *storage.VendorAccountRepository, cipher *secrets.Cipher, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NetHomeConnectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "email and password are required")
			return
		}

		client := thermostat.NewNetHomeClient(thermostat.NetHomeConfig{
			BaseURL:    cfg.NetHomeBaseURL,
			AppID:      cfg.NetHomeAppID,
			ClientType: cfg.NetHomeClientType,
			Lang:       cfg.NetHomeLang,
		})

		tokens, err := client.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeVendorFailure(w, err)
			return
		}

		access, err := cipher.Encrypt(tokens.AccessToken)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to encrypt credentials")
			return
		}
		refresh, err := cipher.Encrypt(tokens.RefreshToken)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to encrypt credentials")
			return
		}
		expiresAt := time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)

		a := &models.VendorAccount{
			Vendor:         models.VendorNetHome,
			AccessToken:    &access,
			RefreshToken:   &refresh,
			TokenExpiresAt: &expiresAt,
			Extra:          map[string]string{},
		}
		if err := accounts.Upsert(r.Context(), a); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store vendor account")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(VendorAccountSummary{
			Vendor:         a.Vendor,
			HasAccessToken: true,
			HasRefresh:     true,
			TokenExpiresAt: &expiresAt,
			UpdatedAt:      a.UpdatedAt,
		})
	}
}

// DiscoverNetHomeAppliances lists the appliances on the linked NetHome
// account so an operator can pick applianceIds when registering Pioneer
// thermostats.
func DiscoverNetHomeAppliances(accounts *storage.VendorAccountRepository, cipher *secrets.Cipher, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := thermostat.NewNetHomeClient(thermostat.NetHomeConfig{
			BaseURL:    cfg.NetHomeBaseURL,
			AppID:      cfg.NetHomeAppID,
			ClientType: cfg.NetHomeClientType,
			Lang:       cfg.NetHomeLang,
		})

		env := &thermostat.Env{Accounts: accounts, Cipher: cipher, Config: cfg}
		token, err := thermostat.FreshNetHomeToken(r.Context(), env, client)
		if err != nil {
			writeVendorFailure(w, err)
			return
		}

		appliances, err := client.ListAppliances(r.Context(), token)
		if err != nil {
			writeVendorFailure(w, err)
			return
		}
		if appliances == nil {
			appliances = []thermostat.NetHomeAppliance{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(appliances)
	}
}
