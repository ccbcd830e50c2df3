package calendar

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/smart-thermostat/backend/internal/websocket"
)

// Scheduler runs periodic feed syncs across all properties with a booking
// feed. Results are broadcast to UI clients as they land.
type Scheduler struct {
	cron        *cron.Cron
	syncService *SyncService
	broadcaster *websocket.EventBroadcaster
	spec        string
}

// NewScheduler creates a feed sync scheduler running on the given cron spec.
// The hub may be nil.
func NewScheduler(syncService *SyncService, hub *websocket.Hub, spec string) *Scheduler {
	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		syncService: syncService,
		broadcaster: broadcaster,
		spec:        spec,
	}
}

// Start begins the periodic feed sync.
func (s *Scheduler) Start() error {
	log.Println("Starting feed sync scheduler...")

	_, err := s.cron.AddFunc(s.spec, func() {
		s.syncAll(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("Feed sync scheduler started")
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	log.Println("Stopping feed sync scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Feed sync scheduler stopped")
}

// TriggerSync runs an immediate sync for one property in the background.
func (s *Scheduler) TriggerSync(propertyID string) {
	go func() {
		result, err := s.syncService.SyncProperty(context.Background(), propertyID)
		s.report(propertyID, result, err)
	}()
}

// syncAll runs one sync pass over every feed property.
func (s *Scheduler) syncAll(ctx context.Context) {
	results, err := s.syncService.SyncAll(ctx)
	if err != nil {
		log.Printf("Feed sync pass failed: %v", err)
		return
	}

	for i := range results {
		s.report(results[i].PropertyID, &results[i], nil)
	}
}

func (s *Scheduler) report(propertyID string, result *SyncResult, err error) {
	if err != nil {
		log.Printf("Feed sync failed for property %s: %v", propertyID, err)
		if s.broadcaster != nil {
			name := ""
			if result != nil {
				name = result.PropertyName
			}
			s.broadcaster.BroadcastFeedSyncFailed(propertyID, name, err)
		}
		return
	}

	log.Printf("Feed sync completed for property %s: %d events found, %d synced, %d removed",
		result.PropertyID, result.EventsFound, result.EventsSynced, result.EventsRemoved)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastFeedSyncCompleted(websocket.FeedSyncPayload{
			PropertyID:    result.PropertyID,
			PropertyName:  result.PropertyName,
			EventsFound:   result.EventsFound,
			EventsSynced:  result.EventsSynced,
			EventsRemoved: result.EventsRemoved,
		})
	}
}
