package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smart-thermostat/backend/internal/storage/models"
)

// VendorAccountRepository provides data access for stored vendor credentials.
// Token values pass through this layer as opaque ciphertext; encryption and
// decryption happen in the callers that hold the cipher.
type VendorAccountRepository struct {
	BaseRepository
}

// NewVendorAccountRepository creates a new vendor account repository.
func NewVendorAccountRepository(db *DB) *VendorAccountRepository {
	return &VendorAccountRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Upsert inserts or replaces the account for a vendor. The vendor name is
// the unique key; at most one account exists per vendor.
func (r *VendorAccountRepository) Upsert(ctx context.Context, a *models.VendorAccount) error {
	if a.ID == "" {
		a.ID = GenerateID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.Now()
	}
	a.UpdatedAt = r.Now()

	extra, err := json.Marshal(a.Extra)
	if err != nil {
		return fmt.Errorf("encoding vendor extra config: %w", err)
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO vendor_accounts (id, vendor, access_token, refresh_token, token_expires_at, extra, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(vendor) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			extra = excluded.extra,
			updated_at = excluded.updated_at
	`,
		a.ID, a.Vendor, a.AccessToken, a.RefreshToken, a.TokenExpiresAt,
		string(extra), a.CreatedAt, a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("upserting vendor account: %w", err)
	}

	return nil
}

// GetByVendor retrieves the account for a vendor. Returns nil when no
// account is configured.
func (r *VendorAccountRepository) GetByVendor(ctx context.Context, vendor models.VendorType) (*models.VendorAccount, error) {
	a := &models.VendorAccount{}
	var extra string

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, vendor, access_token, refresh_token, token_expires_at, extra, created_at, updated_at
		FROM vendor_accounts WHERE vendor = ?
	`, vendor).Scan(
		&a.ID, &a.Vendor, &a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt,
		&extra, &a.CreatedAt, &a.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying vendor account: %w", err)
	}

	if err := json.Unmarshal([]byte(extra), &a.Extra); err != nil {
		return nil, fmt.Errorf("decoding vendor extra config: %w", err)
	}

	return a, nil
}

// List retrieves all configured vendor accounts.
func (r *VendorAccountRepository) List(ctx context.Context) ([]models.VendorAccount, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, vendor, access_token, refresh_token, token_expires_at, extra, created_at, updated_at
		FROM vendor_accounts
		ORDER BY vendor
	`)
	if err != nil {
		return nil, fmt.Errorf("querying vendor accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.VendorAccount
	for rows.Next() {
		var a models.VendorAccount
		var extra string
		if err := rows.Scan(
			&a.ID, &a.Vendor, &a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt,
			&extra, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning vendor account: %w", err)
		}
		if err := json.Unmarshal([]byte(extra), &a.Extra); err != nil {
			return nil, fmt.Errorf("decoding vendor extra config: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// UpdateTokens persists a refreshed token triple for a vendor. Tokens arrive
// already encrypted.
func (r *VendorAccountRepository) UpdateTokens(ctx context.Context, vendor models.VendorType, accessToken, refreshToken *string, expiresAt *time.Time) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE vendor_accounts
		SET access_token = ?, refresh_token = ?, token_expires_at = ?, updated_at = ?
		WHERE vendor = ?
	`, accessToken, refreshToken, expiresAt, r.Now(), vendor)

	if err != nil {
		return fmt.Errorf("updating vendor tokens: %w", err)
	}

	return nil
}
