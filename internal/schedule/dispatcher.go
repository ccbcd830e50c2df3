package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/smart-thermostat/backend/internal/websocket"
)

// QueueDispatcher is the built-in Dispatcher: scheduled actions persist in
// the database and a periodic poller claims and runs the ones whose ETA has
// passed. Delivery is at-least-once; a crash between claiming and finishing
// leaves the row running, visible for operational follow-up.
type QueueDispatcher struct {
	actions     *storage.ActionRepository
	executor    *Executor
	broadcaster *websocket.EventBroadcaster

	cron *cron.Cron
	spec string
}

// NewQueueDispatcher creates a queue-backed dispatcher draining on the given
// cron spec. The hub may be nil.
func NewQueueDispatcher(
	actions *storage.ActionRepository,
	executor *Executor,
	hub *websocket.Hub,
	spec string,
) *QueueDispatcher {
	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &QueueDispatcher{
		actions:     actions,
		executor:    executor,
		broadcaster: broadcaster,
		cron:        cron.New(cron.WithSeconds()),
		spec:        spec,
	}
}

// Submit queues an action for execution at its ETA. Submitting the same
// (event, kind) again moves the pending row's ETA instead of duplicating it.
func (d *QueueDispatcher) Submit(ctx context.Context, eventID string, kind models.ActionKind, eta time.Time) error {
	if err := d.actions.Submit(ctx, eventID, kind, eta); err != nil {
		return err
	}

	log.Printf("Scheduled %s action for event %s at %s", kind, eventID, eta.Format(time.RFC3339))
	if d.broadcaster != nil {
		d.broadcaster.BroadcastActionScheduled(eventID, string(kind), eta)
	}

	return nil
}

// Start begins draining due actions.
func (d *QueueDispatcher) Start() error {
	log.Println("Starting action dispatcher...")

	_, err := d.cron.AddFunc(d.spec, func() {
		d.DispatchDue(context.Background(), time.Now())
	})
	if err != nil {
		return fmt.Errorf("scheduling action dispatch: %w", err)
	}

	d.cron.Start()
	log.Println("Action dispatcher started")
	return nil
}

// Stop gracefully shuts down the dispatcher.
func (d *QueueDispatcher) Stop() {
	log.Println("Stopping action dispatcher...")
	ctx := d.cron.Stop()
	<-ctx.Done()
	log.Println("Action dispatcher stopped")
}

// DispatchDue claims every action whose ETA has passed and runs it. Each
// action ends in success or failed; executor errors are recorded on the row
// and surfaced to UI clients, never retried here.
func (d *QueueDispatcher) DispatchDue(ctx context.Context, now time.Time) {
	due, err := d.actions.ClaimDue(ctx, now, 20)
	if err != nil {
		log.Printf("Failed to claim due actions: %v", err)
		return
	}

	for _, action := range due {
		err := d.executor.Run(ctx, action.Kind, action.EventID)

		if err != nil {
			log.Printf("Action %s (%s) for event %s failed: %v", action.ID, action.Kind, action.EventID, err)
			msg := err.Error()
			if finishErr := d.actions.Finish(ctx, action.ID, models.ActionStatusFailed, &msg); finishErr != nil {
				log.Printf("Failed to mark action %s failed: %v", action.ID, finishErr)
			}
			if d.broadcaster != nil {
				d.broadcaster.BroadcastActionFailed(action.EventID, string(action.Kind), action.ETA, err)
			}
			continue
		}

		log.Printf("Action %s (%s) for event %s completed", action.ID, action.Kind, action.EventID)
		if finishErr := d.actions.Finish(ctx, action.ID, models.ActionStatusSuccess, nil); finishErr != nil {
			log.Printf("Failed to mark action %s successful: %v", action.ID, finishErr)
		}
		if d.broadcaster != nil {
			d.broadcaster.BroadcastActionCompleted(action.EventID, string(action.Kind), action.ETA)
		}
	}
}
