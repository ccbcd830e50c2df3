package storage

import (
	"context"
	"fmt"

	"github.com/smart-thermostat/backend/internal/storage/models"
)

// CommandRepository provides data access for the thermostat command audit
// trail. One row is appended per command attempt.
type CommandRepository struct {
	BaseRepository
}

// NewCommandRepository creates a new command repository.
func NewCommandRepository(db *DB) *CommandRepository {
	return &CommandRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create appends a pending command record.
func (r *CommandRepository) Create(ctx context.Context, c *models.ThermostatCommand) error {
	if c.ID == "" {
		c.ID = GenerateID()
	}
	if c.Status == "" {
		c.Status = models.CommandStatusPending
	}
	if c.Parameters == "" {
		c.Parameters = "{}"
	}
	c.CreatedAt = r.Now()
	c.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO thermostat_commands (id, thermostat_id, command_type, parameters, status, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.ThermostatID, c.CommandType, c.Parameters, c.Status, c.Result,
		c.CreatedAt, c.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting command: %w", err)
	}

	return nil
}

// Finish marks a command terminal with its outcome.
func (r *CommandRepository) Finish(ctx context.Context, id, status string, result *string) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE thermostat_commands SET status = ?, result = ?, updated_at = ?
		WHERE id = ?
	`, status, result, r.Now(), id)

	if err != nil {
		return fmt.Errorf("finishing command: %w", err)
	}

	return nil
}

// ListByThermostat retrieves recent command records for a thermostat, newest
// first.
func (r *CommandRepository) ListByThermostat(ctx context.Context, thermostatID string, limit int) ([]models.ThermostatCommand, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, thermostat_id, command_type, parameters, status, result, created_at, updated_at
		FROM thermostat_commands
		WHERE thermostat_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, thermostatID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	var commands []models.ThermostatCommand
	for rows.Next() {
		var c models.ThermostatCommand
		if err := rows.Scan(
			&c.ID, &c.ThermostatID, &c.CommandType, &c.Parameters,
			&c.Status, &c.Result, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		commands = append(commands, c)
	}

	return commands, rows.Err()
}
