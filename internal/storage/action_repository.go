package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smart-thermostat/backend/internal/storage/models"
)

// ActionRepository provides data access for the scheduled action queue.
//
// The (event_id, kind) pair is unique: re-submitting an action for an event
// whose booking dates moved updates the pending row's ETA instead of
// queueing a duplicate. Rows that already ran are left alone.
type ActionRepository struct {
	BaseRepository
}

// NewActionRepository creates a new scheduled action repository.
func NewActionRepository(db *DB) *ActionRepository {
	return &ActionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Submit queues an action for an event at the given ETA, or moves the ETA of
// an already-pending action for the same (event, kind).
func (r *ActionRepository) Submit(ctx context.Context, eventID string, kind models.ActionKind, eta time.Time) error {
	now := r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO scheduled_actions (id, event_id, kind, eta, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(event_id, kind) DO UPDATE SET
			eta = excluded.eta,
			updated_at = excluded.updated_at
		WHERE scheduled_actions.status = ?
	`,
		GenerateID(), eventID, kind, eta.UTC(), models.ActionStatusPending,
		now, now, models.ActionStatusPending,
	)

	if err != nil {
		return fmt.Errorf("submitting action: %w", err)
	}

	return nil
}

// ClaimDue atomically transitions pending actions whose ETA has passed into
// the running state and returns them. Claimed rows belong to the caller
// until it records a result.
func (r *ActionRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledAction, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.DB().QueryContext(ctx, `
		UPDATE scheduled_actions
		SET status = ?, attempts = attempts + 1, updated_at = ?
		WHERE id IN (
			SELECT id FROM scheduled_actions
			WHERE status = ? AND eta <= ?
			ORDER BY eta
			LIMIT ?
		)
		RETURNING id, event_id, kind, eta, status, attempts, last_error, created_at, updated_at
	`, models.ActionStatusRunning, r.Now(), models.ActionStatusPending, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("claiming due actions: %w", err)
	}
	defer rows.Close()

	var actions []models.ScheduledAction
	for rows.Next() {
		var a models.ScheduledAction
		if err := rows.Scan(
			&a.ID, &a.EventID, &a.Kind, &a.ETA, &a.Status,
			&a.Attempts, &a.LastError, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// Finish records the terminal outcome of a claimed action.
func (r *ActionRepository) Finish(ctx context.Context, id, status string, lastError *string) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE scheduled_actions SET status = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, status, lastError, r.Now(), id)

	if err != nil {
		return fmt.Errorf("finishing action: %w", err)
	}

	return nil
}

// ListPending retrieves queued actions ordered by ETA, for the status API.
func (r *ActionRepository) ListPending(ctx context.Context) ([]models.ScheduledAction, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, event_id, kind, eta, status, attempts, last_error, created_at, updated_at
		FROM scheduled_actions
		WHERE status = ?
		ORDER BY eta
	`, models.ActionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("querying pending actions: %w", err)
	}
	defer rows.Close()

	var actions []models.ScheduledAction
	for rows.Next() {
		var a models.ScheduledAction
		if err := rows.Scan(
			&a.ID, &a.EventID, &a.Kind, &a.ETA, &a.Status,
			&a.Attempts, &a.LastError, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// GetByEvent retrieves the action row for an (event, kind) pair. Returns nil
// when none exists.
func (r *ActionRepository) GetByEvent(ctx context.Context, eventID string, kind models.ActionKind) (*models.ScheduledAction, error) {
	a := &models.ScheduledAction{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, event_id, kind, eta, status, attempts, last_error, created_at, updated_at
		FROM scheduled_actions
		WHERE event_id = ? AND kind = ?
	`, eventID, kind).Scan(
		&a.ID, &a.EventID, &a.Kind, &a.ETA, &a.Status,
		&a.Attempts, &a.LastError, &a.CreatedAt, &a.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying action: %w", err)
	}

	return a, nil
}
