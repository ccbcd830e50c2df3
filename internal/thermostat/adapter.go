package thermostat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smart-thermostat/backend/internal/config"
	"github.com/smart-thermostat/backend/internal/secrets"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
)

// Status is the normalized device state returned by every adapter. All
// temperatures are Fahrenheit; vendor-native units are converted at the
// adapter edge and never leak upward.
type Status struct {
	Online             bool            `json:"online"`
	CurrentTemperature *float64        `json:"current_temperature,omitempty"`
	TargetTemperature  *float64        `json:"target_temperature,omitempty"`
	CurrentHumidity    *float64        `json:"current_humidity,omitempty"`
	Mode               string          `json:"mode"`
	Fan                string          `json:"fan,omitempty"`
	Raw                json.RawMessage `json:"raw,omitempty"`
}

// Adapter is the uniform control surface over heterogeneous thermostat
// vendors. A returned error means the vendor-side effect is unknown: the
// command may or may not have been applied.
type Adapter interface {
	GetStatus(ctx context.Context) (*Status, error)
	SetTemperature(ctx context.Context, tempF float64, isCooling bool) error
	SetMode(ctx context.Context, mode string) error
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
}

// Factory resolves a thermostat to the adapter that can drive it.
type Factory interface {
	AdapterFor(ctx context.Context, t *models.Thermostat) (Adapter, error)
}

// Env bundles the collaborators adapter constructors need: stored vendor
// accounts, the credential cipher, and vendor configuration.
type Env struct {
	Accounts *storage.VendorAccountRepository
	Cipher   *secrets.Cipher
	Config   config.Config
}

// account loads and requires the stored account for a vendor. A missing row
// is a configuration error, not a transient one.
func (e *Env) account(ctx context.Context, vendor models.VendorType) (*models.VendorAccount, error) {
	acct, err := e.Accounts.GetByVendor(ctx, vendor)
	if err != nil {
		return nil, fmt.Errorf("loading %s account: %w", vendor, err)
	}
	if acct == nil {
		return nil, &ConfigurationError{
			Vendor:  string(vendor),
			Message: fmt.Sprintf("no %s account configured", vendor),
		}
	}
	return acct, nil
}

// credential decrypts a stored token column, surfacing an undecryptable or
// absent credential as a configuration error.
func (e *Env) credential(vendor models.VendorType, name string, ciphertext *string) (string, error) {
	plain, ok := e.Cipher.DecryptOptional(ciphertext)
	if !ok {
		return "", &ConfigurationError{
			Vendor:  string(vendor),
			Message: fmt.Sprintf("%s credential unavailable for %s", name, vendor),
		}
	}
	return plain, nil
}

// BuildFunc constructs a concrete adapter for a thermostat.
type BuildFunc func(ctx context.Context, env *Env, t *models.Thermostat) (Adapter, error)

// Registry dispatches thermostats to adapter constructors by vendor type.
// The built-in vendors are registered by NewRegistry; additional vendors can
// be added through Register.
type Registry struct {
	env      Env
	builders map[models.VendorType]BuildFunc
}

// NewRegistry creates an adapter registry with the built-in vendors wired.
func NewRegistry(accounts *storage.VendorAccountRepository, cipher *secrets.Cipher, cfg config.Config) *Registry {
	r := &Registry{
		env:      Env{Accounts: accounts, Cipher: cipher, Config: cfg},
		builders: make(map[models.VendorType]BuildFunc),
	}

	r.Register(models.VendorCielo, NewCieloAPI)
	r.Register(models.VendorNest, NewNestAPI)
	r.Register(models.VendorPioneer, NewPioneerAPI)

	return r
}

// Register adds or replaces the constructor for a vendor type.
func (r *Registry) Register(vendor models.VendorType, build BuildFunc) {
	r.builders[vendor] = build
}

// AdapterFor resolves the thermostat's vendor to a concrete adapter bound to
// that device and the vendor's stored account.
func (r *Registry) AdapterFor(ctx context.Context, t *models.Thermostat) (Adapter, error) {
	build, ok := r.builders[t.VendorType]
	if !ok {
		return nil, &ConfigurationError{
			Vendor:  string(t.VendorType),
			Message: fmt.Sprintf("unsupported vendor type %q", t.VendorType),
		}
	}
	return build(ctx, &r.env, t)
}
