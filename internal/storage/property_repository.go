package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smart-thermostat/backend/internal/storage/models"
)

// PropertyRepository provides data access for rental properties.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new property.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	if p.ID == "" {
		p.ID = GenerateID()
	}
	p.CreatedAt = r.Now()
	p.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO properties (id, owner, name, timezone, feed_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Owner, p.Name, p.Timezone, p.FeedURL, p.CreatedAt, p.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}

	return nil
}

// GetByID retrieves a property by its ID. Returns nil when not found.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	p := &models.Property{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, owner, name, timezone, feed_url, created_at, updated_at
		FROM properties WHERE id = ?
	`, id).Scan(
		&p.ID, &p.Owner, &p.Name, &p.Timezone, &p.FeedURL, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}

	return p, nil
}

// List retrieves all properties ordered by name.
func (r *PropertyRepository) List(ctx context.Context) ([]models.Property, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, owner, name, timezone, feed_url, created_at, updated_at
		FROM properties
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(
			&p.ID, &p.Owner, &p.Name, &p.Timezone, &p.FeedURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}

// ListWithFeeds retrieves the properties that have a booking feed configured.
func (r *PropertyRepository) ListWithFeeds(ctx context.Context) ([]models.Property, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, owner, name, timezone, feed_url, created_at, updated_at
		FROM properties
		WHERE feed_url IS NOT NULL AND feed_url != ''
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying feed properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(
			&p.ID, &p.Owner, &p.Name, &p.Timezone, &p.FeedURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}

// Update persists changes to a property's name, timezone and feed URL.
func (r *PropertyRepository) Update(ctx context.Context, p *models.Property) error {
	p.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		UPDATE properties SET name = ?, timezone = ?, feed_url = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Timezone, p.FeedURL, p.UpdatedAt, p.ID)

	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}

	return nil
}

// Delete removes a property and, through foreign keys, its thermostats and
// calendar events.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	return nil
}
