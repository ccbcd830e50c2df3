package thermostat

import (
	"context"
	"testing"
	"time"

	"github.com/smart-thermostat/backend/internal/config"
	"github.com/smart-thermostat/backend/internal/secrets"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/stretchr/testify/require"
)

const testCipherKey = "0123456789abcdef0123456789abcdef"

// newTestEnv builds an adapter environment over an in-memory database.
func newTestEnv(t *testing.T) (*Env, *storage.VendorAccountRepository) {
	t.Helper()

	db, err := storage.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))

	cipher, err := secrets.New(testCipherKey)
	require.NoError(t, err)

	accounts := storage.NewVendorAccountRepository(db)
	return &Env{
		Accounts: accounts,
		Cipher:   cipher,
		Config:   config.Load(),
	}, accounts
}

// storeAccount encrypts and stores a token pair for a vendor.
func storeAccount(t *testing.T, env *Env, accounts *storage.VendorAccountRepository, vendor models.VendorType, access, refresh string, expiresAt *time.Time, extra map[string]string) {
	t.Helper()

	a := &models.VendorAccount{Vendor: vendor, TokenExpiresAt: expiresAt, Extra: extra}
	if a.Extra == nil {
		a.Extra = map[string]string{}
	}
	if access != "" {
		enc, err := env.Cipher.Encrypt(access)
		require.NoError(t, err)
		a.AccessToken = &enc
	}
	if refresh != "" {
		enc, err := env.Cipher.Encrypt(refresh)
		require.NoError(t, err)
		a.RefreshToken = &enc
	}
	require.NoError(t, accounts.Upsert(context.Background(), a))
}

func TestRegistryUnknownVendor(t *testing.T) {
	env, _ := newTestEnv(t)
	registry := NewRegistry(env.Accounts, env.Cipher, env.Config)

	_, err := registry.AdapterFor(context.Background(), &models.Thermostat{VendorType: "acme"})
	require.Error(t, err)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, "acme", configErr.Vendor)

	body, status := configErr.Response()
	require.Equal(t, 400, status)
	require.Equal(t, "configuration_error", body.Error)
}

func TestAdapterMissingAccount(t *testing.T) {
	env, _ := newTestEnv(t)
	registry := NewRegistry(env.Accounts, env.Cipher, env.Config)

	_, err := registry.AdapterFor(context.Background(), &models.Thermostat{
		DeviceID:   "dev-1",
		VendorType: models.VendorCielo,
	})
	require.Error(t, err)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, string(models.VendorCielo), configErr.Vendor)

	_, status := configErr.Response()
	require.Equal(t, 400, status)
}

func TestAdapterUndecryptableCredential(t *testing.T) {
	env, accounts := newTestEnv(t)

	// Ciphertext from a different key fails decryption soft
	otherCipher, err := secrets.New("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	foreign, err := otherCipher.Encrypt("token")
	require.NoError(t, err)

	require.NoError(t, accounts.Upsert(context.Background(), &models.VendorAccount{
		Vendor:      models.VendorCielo,
		AccessToken: &foreign,
		Extra:       map[string]string{},
	}))

	registry := NewRegistry(env.Accounts, env.Cipher, env.Config)
	_, err = registry.AdapterFor(context.Background(), &models.Thermostat{
		DeviceID:   "dev-1",
		VendorType: models.VendorCielo,
	})

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
}
