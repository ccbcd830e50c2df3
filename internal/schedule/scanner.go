// Package schedule converts booking calendar events into deferred HVAC
// actions and executes them when their ETA arrives.
package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smart-thermostat/backend/internal/config"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
)

// Dispatcher is the deferred-action scheduling contract the scanner submits
// into. Delivery is at-least-once with no cross-action ordering.
type Dispatcher interface {
	Submit(ctx context.Context, eventID string, kind models.ActionKind, eta time.Time) error
}

// Scanner periodically walks upcoming calendar events and schedules the
// pre-arrival and post-checkout actions around each booking. It is stateless
// and safe to trigger concurrently with itself; the queue's (event, kind)
// key absorbs duplicate submissions.
type Scanner struct {
	events     *storage.CalendarRepository
	dispatcher Dispatcher

	defaultTimezone string
	preArrival      time.Duration
	postCheckout    time.Duration

	cron *cron.Cron
	spec string
}

// NewScanner creates a calendar scanner.
func NewScanner(events *storage.CalendarRepository, dispatcher Dispatcher, cfg config.Config) *Scanner {
	return &Scanner{
		events:          events,
		dispatcher:      dispatcher,
		defaultTimezone: cfg.DefaultTimezone,
		preArrival:      time.Duration(cfg.PreArrivalHours) * time.Hour,
		postCheckout:    time.Duration(cfg.PostCheckoutHours) * time.Hour,
		cron:            cron.New(cron.WithSeconds()),
		spec:            cfg.ScanSpec,
	}
}

// Start begins the periodic scan.
func (s *Scanner) Start() error {
	log.Println("Starting calendar scanner...")

	_, err := s.cron.AddFunc(s.spec, func() {
		if err := s.Scan(context.Background(), time.Now()); err != nil {
			log.Printf("Calendar scan failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling calendar scan: %w", err)
	}

	s.cron.Start()
	log.Println("Calendar scanner started")
	return nil
}

// Stop gracefully shuts down the scanner.
func (s *Scanner) Stop() {
	log.Println("Stopping calendar scanner...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Calendar scanner stopped")
}

// Scan walks every event that has not ended by now and submits the actions
// whose computed ETA is still in the future. Per-event failures are logged
// and do not abort the scan.
func (s *Scanner) Scan(ctx context.Context, now time.Time) error {
	upcoming, err := s.events.ListUpcoming(ctx, now)
	if err != nil {
		return fmt.Errorf("listing upcoming events: %w", err)
	}

	for _, ep := range upcoming {
		loc := s.resolveLocation(&ep.Property)

		start := localize(ep.Event.Start, ep.Event.Floating, loc)
		end := localize(ep.Event.End, ep.Event.Floating, loc)

		preTime := start.Add(-s.preArrival)
		postTime := end.Add(s.postCheckout)

		if preTime.After(now) {
			if err := s.dispatcher.Submit(ctx, ep.Event.ID, models.ActionPreArrival, preTime); err != nil {
				log.Printf("Failed to submit pre-arrival action for event %s: %v", ep.Event.ID, err)
			}
		}

		if postTime.After(now) {
			if err := s.dispatcher.Submit(ctx, ep.Event.ID, models.ActionPostCheckout, postTime); err != nil {
				log.Printf("Failed to submit post-checkout action for event %s: %v", ep.Event.ID, err)
			}
		}
	}

	return nil
}

// resolveLocation resolves a property's timezone: the property's own entry,
// then the configured default, then UTC. An invalid name falls back to UTC
// rather than failing the scan.
func (s *Scanner) resolveLocation(p *models.Property) *time.Location {
	name := s.defaultTimezone
	if p.Timezone != nil && *p.Timezone != "" {
		name = *p.Timezone
	}
	if name == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Invalid timezone %q for property %s, using UTC", name, p.ID)
		return time.UTC
	}
	return loc
}

// localize interprets an event instant in the property's timezone. Floating
// times keep their clock fields and take on the zone; zoned instants are
// converted into it.
func localize(t time.Time, floating bool, loc *time.Location) time.Time {
	if floating {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return t.In(loc)
}
