package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/smart-thermostat/backend/internal/storage/models"
)

// CalendarRepository provides data access for booking calendar events.
type CalendarRepository struct {
	BaseRepository
}

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(db *DB) *CalendarRepository {
	return &CalendarRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new calendar event.
func (r *CalendarRepository) Create(ctx context.Context, ev *models.CalendarEvent) error {
	if ev.ID == "" {
		ev.ID = GenerateID()
	}
	ev.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO calendar_events (id, property_id, summary, start_at, end_at, floating, uid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID, ev.PropertyID, ev.Summary, ev.Start, ev.End, ev.Floating, ev.UID, ev.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting calendar event: %w", err)
	}

	return nil
}

// UpsertFeedEvent inserts a feed-synced event or updates the existing row for
// the same (property, UID) when the booking's dates or summary changed.
func (r *CalendarRepository) UpsertFeedEvent(ctx context.Context, ev *models.CalendarEvent) error {
	if ev.UID == nil || *ev.UID == "" {
		return fmt.Errorf("feed event requires a UID")
	}
	if ev.ID == "" {
		ev.ID = GenerateID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.Now()
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO calendar_events (id, property_id, summary, start_at, end_at, floating, uid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, uid) WHERE uid IS NOT NULL DO UPDATE SET
			summary = excluded.summary,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			floating = excluded.floating
	`,
		ev.ID, ev.PropertyID, ev.Summary, ev.Start, ev.End, ev.Floating, ev.UID, ev.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("upserting feed event: %w", err)
	}

	return nil
}

// DeleteVanishedFeedEvents removes feed-synced events of a property whose UID
// is no longer present in the feed. Manually created events (nil UID) are
// never touched. Returns the number of removed events.
func (r *CalendarRepository) DeleteVanishedFeedEvents(ctx context.Context, propertyID string, keepUIDs []string) (int, error) {
	query := "DELETE FROM calendar_events WHERE property_id = ? AND uid IS NOT NULL"
	args := []any{propertyID}

	if len(keepUIDs) > 0 {
		query += " AND uid NOT IN (?" + strings.Repeat(", ?", len(keepUIDs)-1) + ")"
		for _, uid := range keepUIDs {
			args = append(args, uid)
		}
	}

	res, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting vanished feed events: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetWithProperty retrieves an event together with its owning property.
// Returns nil when the event no longer exists.
func (r *CalendarRepository) GetWithProperty(ctx context.Context, id string) (*models.EventWithProperty, error) {
	var ep models.EventWithProperty

	err := r.DB().QueryRowContext(ctx, `
		SELECT e.id, e.property_id, e.summary, e.start_at, e.end_at, e.floating, e.uid, e.created_at,
		       p.id, p.owner, p.name, p.timezone, p.feed_url, p.created_at, p.updated_at
		FROM calendar_events e
		JOIN properties p ON p.id = e.property_id
		WHERE e.id = ?
	`, id).Scan(
		&ep.Event.ID, &ep.Event.PropertyID, &ep.Event.Summary,
		&ep.Event.Start, &ep.Event.End, &ep.Event.Floating, &ep.Event.UID, &ep.Event.CreatedAt,
		&ep.Property.ID, &ep.Property.Owner, &ep.Property.Name,
		&ep.Property.Timezone, &ep.Property.FeedURL, &ep.Property.CreatedAt, &ep.Property.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying calendar event: %w", err)
	}

	return &ep, nil
}

// ListUpcoming retrieves every event that has not fully ended by the given
// instant, paired with its owning property. Events entirely in the past are
// excluded.
func (r *CalendarRepository) ListUpcoming(ctx context.Context, now time.Time) ([]models.EventWithProperty, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT e.id, e.property_id, e.summary, e.start_at, e.end_at, e.floating, e.uid, e.created_at,
		       p.id, p.owner, p.name, p.timezone, p.feed_url, p.created_at, p.updated_at
		FROM calendar_events e
		JOIN properties p ON p.id = e.property_id
		WHERE e.end_at >= ?
		ORDER BY e.start_at
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying upcoming events: %w", err)
	}
	defer rows.Close()

	var events []models.EventWithProperty
	for rows.Next() {
		var ep models.EventWithProperty
		if err := rows.Scan(
			&ep.Event.ID, &ep.Event.PropertyID, &ep.Event.Summary,
			&ep.Event.Start, &ep.Event.End, &ep.Event.Floating, &ep.Event.UID, &ep.Event.CreatedAt,
			&ep.Property.ID, &ep.Property.Owner, &ep.Property.Name,
			&ep.Property.Timezone, &ep.Property.FeedURL, &ep.Property.CreatedAt, &ep.Property.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning calendar event: %w", err)
		}
		events = append(events, ep)
	}

	return events, rows.Err()
}

// ListByProperty retrieves all events for a property ordered by start time.
func (r *CalendarRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.CalendarEvent, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, summary, start_at, end_at, floating, uid, created_at
		FROM calendar_events
		WHERE property_id = ?
		ORDER BY start_at
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying property events: %w", err)
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		if err := rows.Scan(
			&ev.ID, &ev.PropertyID, &ev.Summary,
			&ev.Start, &ev.End, &ev.Floating, &ev.UID, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning calendar event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// Delete removes a calendar event. Actions already queued for the event
// become no-ops when they fire.
func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting calendar event: %w", err)
	}
	return nil
}
