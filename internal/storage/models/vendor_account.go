package models

import (
	"time"
)

// VendorAccount holds the stored credentials for a vendor cloud. Tokens are
// encrypted at rest; the vendor name is the unique lookup key. Extra carries
// vendor-specific configuration such as base URL, API key, OAuth client
// id/secret and project id.
type VendorAccount struct {
	ID             string            `json:"id"`
	Vendor         VendorType        `json:"vendor"`
	AccessToken    *string           `json:"-"`
	RefreshToken   *string           `json:"-"`
	TokenExpiresAt *time.Time        `json:"token_expires_at,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ExtraValue returns a vendor-specific configuration value, or the fallback
// when the key is absent or empty.
func (a *VendorAccount) ExtraValue(key, fallback string) string {
	if a.Extra == nil {
		return fallback
	}
	if v := a.Extra[key]; v != "" {
		return v
	}
	return fallback
}

// TokenExpired reports whether the stored access token has passed its expiry
// at the given instant. Accounts without an expiry never report expired.
func (a *VendorAccount) TokenExpired(now time.Time) bool {
	return a.TokenExpiresAt != nil && !a.TokenExpiresAt.After(now)
}
