package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smart-thermostat/backend/internal/storage/models"
)

// ThermostatRepository provides data access for thermostats.
type ThermostatRepository struct {
	BaseRepository
}

// NewThermostatRepository creates a new thermostat repository.
func NewThermostatRepository(db *DB) *ThermostatRepository {
	return &ThermostatRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const thermostatColumns = `id, property_id, name, device_id, vendor_type,
	current_temperature, target_temperature, current_humidity, mode, is_online, created_at, updated_at`

func scanThermostat(row interface{ Scan(...any) error }, t *models.Thermostat) error {
	return row.Scan(
		&t.ID, &t.PropertyID, &t.Name, &t.DeviceID, &t.VendorType,
		&t.CurrentTemperature, &t.TargetTemperature, &t.CurrentHumidity, &t.Mode, &t.IsOnline,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

// Create inserts a new thermostat.
func (r *ThermostatRepository) Create(ctx context.Context, t *models.Thermostat) error {
	if t.ID == "" {
		t.ID = GenerateID()
	}
	t.CreatedAt = r.Now()
	t.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO thermostats (
			id, property_id, name, device_id, vendor_type,
			current_temperature, target_temperature, current_humidity, mode, is_online,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.PropertyID, t.Name, t.DeviceID, t.VendorType,
		t.CurrentTemperature, t.TargetTemperature, t.CurrentHumidity, t.Mode, t.IsOnline,
		t.CreatedAt, t.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting thermostat: %w", err)
	}

	return nil
}

// GetByID retrieves a thermostat by its ID. Returns nil when not found.
func (r *ThermostatRepository) GetByID(ctx context.Context, id string) (*models.Thermostat, error) {
	t := &models.Thermostat{}

	row := r.DB().QueryRowContext(ctx,
		"SELECT "+thermostatColumns+" FROM thermostats WHERE id = ?", id)

	err := scanThermostat(row, t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying thermostat: %w", err)
	}

	return t, nil
}

// FirstForProperty returns the property's first thermostat by creation
// order. Automated actions only ever target this device; see the scheduling
// policy notes in the schedule package. Returns nil when the property has no
// thermostats.
func (r *ThermostatRepository) FirstForProperty(ctx context.Context, propertyID string) (*models.Thermostat, error) {
	t := &models.Thermostat{}

	row := r.DB().QueryRowContext(ctx,
		"SELECT "+thermostatColumns+` FROM thermostats
		WHERE property_id = ?
		ORDER BY created_at, id
		LIMIT 1`, propertyID)

	err := scanThermostat(row, t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying first thermostat: %w", err)
	}

	return t, nil
}

// ListByProperty retrieves all thermostats for a property.
func (r *ThermostatRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.Thermostat, error) {
	rows, err := r.DB().QueryContext(ctx,
		"SELECT "+thermostatColumns+` FROM thermostats
		WHERE property_id = ?
		ORDER BY created_at, id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying thermostats: %w", err)
	}
	defer rows.Close()

	var thermostats []models.Thermostat
	for rows.Next() {
		var t models.Thermostat
		if err := scanThermostat(rows, &t); err != nil {
			return nil, fmt.Errorf("scanning thermostat: %w", err)
		}
		thermostats = append(thermostats, t)
	}

	return thermostats, rows.Err()
}

// UpdateCachedStatus writes the opportunistically refreshed status fields.
// Last writer wins; these fields are advisory, not authoritative.
func (r *ThermostatRepository) UpdateCachedStatus(ctx context.Context, t *models.Thermostat) error {
	t.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		UPDATE thermostats
		SET current_temperature = ?, target_temperature = ?, current_humidity = ?, mode = ?, is_online = ?, updated_at = ?
		WHERE id = ?
	`,
		t.CurrentTemperature, t.TargetTemperature, t.CurrentHumidity, t.Mode, t.IsOnline,
		t.UpdatedAt, t.ID,
	)

	if err != nil {
		return fmt.Errorf("updating thermostat status: %w", err)
	}

	return nil
}

// Delete removes a thermostat.
func (r *ThermostatRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM thermostats WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting thermostat: %w", err)
	}
	return nil
}
