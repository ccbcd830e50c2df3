package calendar

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
)

// SyncResult summarizes one property's feed sync.
type SyncResult struct {
	PropertyID    string    `json:"property_id"`
	PropertyName  string    `json:"property_name"`
	EventsFound   int       `json:"events_found"`
	EventsSynced  int       `json:"events_synced"`
	EventsRemoved int       `json:"events_removed"`
	SyncedAt      time.Time `json:"synced_at"`
}

// SyncService pulls booking feeds into calendar events. Events synced from a
// feed carry the feed's UID; bookings that disappear from the feed are
// removed so their queued actions become no-ops.
type SyncService struct {
	properties *storage.PropertyRepository
	events     *storage.CalendarRepository
	parser     *Parser
}

// NewSyncService creates a new feed sync service.
func NewSyncService(properties *storage.PropertyRepository, events *storage.CalendarRepository) *SyncService {
	return &SyncService{
		properties: properties,
		events:     events,
		parser:     NewParser(),
	}
}

// SyncProperty synchronizes a single property's feed and returns the result.
func (s *SyncService) SyncProperty(ctx context.Context, propertyID string) (*SyncResult, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("getting property: %w", err)
	}
	if property == nil {
		return nil, fmt.Errorf("property not found: %s", propertyID)
	}
	if property.FeedURL == nil || *property.FeedURL == "" {
		return nil, fmt.Errorf("property %s has no booking feed", propertyID)
	}

	result := &SyncResult{
		PropertyID:   property.ID,
		PropertyName: property.Name,
		SyncedAt:     time.Now().UTC(),
	}

	feedEvents, err := s.parser.FetchAndParse(*property.FeedURL)
	if err != nil {
		return result, err
	}

	result.EventsFound = len(feedEvents)

	// Bookings already over are not worth storing
	feedEvents = FilterFutureEvents(feedEvents, time.Now().UTC())

	keepUIDs := make([]string, 0, len(feedEvents))
	for _, fe := range feedEvents {
		if fe.UID == "" {
			log.Printf("Skipping feed event without UID for property %s", property.ID)
			continue
		}

		uid := fe.UID
		ev := &models.CalendarEvent{
			PropertyID: property.ID,
			Summary:    fe.Summary,
			Start:      fe.Start,
			End:        fe.End,
			Floating:   fe.Floating,
			UID:        &uid,
		}
		if err := s.events.UpsertFeedEvent(ctx, ev); err != nil {
			log.Printf("Failed to upsert feed event %s: %v", uid, err)
			continue
		}

		keepUIDs = append(keepUIDs, uid)
		result.EventsSynced++
	}

	removed, err := s.events.DeleteVanishedFeedEvents(ctx, property.ID, keepUIDs)
	if err != nil {
		log.Printf("Failed to remove vanished feed events for property %s: %v", property.ID, err)
	}
	result.EventsRemoved = removed

	return result, nil
}

// SyncAll synchronizes every property that has a booking feed configured.
func (s *SyncService) SyncAll(ctx context.Context) ([]SyncResult, error) {
	properties, err := s.properties.ListWithFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feed properties: %w", err)
	}

	var results []SyncResult
	for _, p := range properties {
		result, err := s.SyncProperty(ctx, p.ID)
		if err != nil {
			log.Printf("Error syncing feed for property %s: %v", p.ID, err)
			continue
		}
		results = append(results, *result)
	}

	return results, nil
}
