package schedule

import (
	"context"
	"fmt"
	"log"

	"github.com/smart-thermostat/backend/internal/config"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/smart-thermostat/backend/internal/thermostat"
)

// Executor runs the deferred HVAC actions when the dispatcher delivers them.
//
// Scheduling policy: only a property's first thermostat (by creation order)
// receives automated actions.
//
// Executors tolerate duplicate and out-of-order delivery: a deleted event or
// a property without a thermostat is a no-op, and the vendor commands they
// send are absolute setpoints, so re-running one converges on the same
// state.
type Executor struct {
	events      *storage.CalendarRepository
	thermostats *storage.ThermostatRepository
	adapters    thermostat.Factory

	occupiedCoolTemp float64
	ecoCoolTemp      float64
	ecoHeatTemp      float64
}

// NewExecutor creates the action executor.
func NewExecutor(
	events *storage.CalendarRepository,
	thermostats *storage.ThermostatRepository,
	adapters thermostat.Factory,
	cfg config.Config,
) *Executor {
	return &Executor{
		events:           events,
		thermostats:      thermostats,
		adapters:         adapters,
		occupiedCoolTemp: cfg.DefaultCoolTemp,
		ecoCoolTemp:      cfg.DefaultEcoCoolTemp,
		ecoHeatTemp:      cfg.DefaultEcoHeatTemp,
	}
}

// Run executes the action of the given kind for an event.
func (e *Executor) Run(ctx context.Context, kind models.ActionKind, eventID string) error {
	switch kind {
	case models.ActionPreArrival:
		return e.PreArrival(ctx, eventID)
	case models.ActionPostCheckout:
		return e.PostCheckout(ctx, eventID)
	default:
		return fmt.Errorf("unknown action kind %q", kind)
	}
}

// PreArrival pre-conditions the property ahead of a booking: cooling mode at
// the occupied setpoint. Adapter errors propagate so the dispatcher marks
// the action failed; there is no compensating state change.
func (e *Executor) PreArrival(ctx context.Context, eventID string) error {
	adapter, _, ok, err := e.resolveAdapter(ctx, eventID)
	if err != nil || !ok {
		return err
	}

	if err := adapter.SetMode(ctx, "cool"); err != nil {
		return err
	}
	return adapter.SetTemperature(ctx, e.occupiedCoolTemp, true)
}

// PostCheckout relaxes the property after a booking: system off with an eco
// setpoint staged for the next power-on. A thermostat that was heating gets
// the eco heating setpoint, anything else the eco cooling one.
func (e *Executor) PostCheckout(ctx context.Context, eventID string) error {
	adapter, device, ok, err := e.resolveAdapter(ctx, eventID)
	if err != nil || !ok {
		return err
	}

	if err := adapter.SetMode(ctx, "off"); err != nil {
		return err
	}

	temp, cooling := e.ecoCoolTemp, true
	if device.Mode == "heat" {
		temp, cooling = e.ecoHeatTemp, false
	}
	return adapter.SetTemperature(ctx, temp, cooling)
}

// resolveAdapter loads the event, its property's first thermostat, and that
// thermostat's adapter. A missing event (deleted before the action fired) or
// a property without thermostats yields ok=false with no error: the action
// is a deliberate no-op.
func (e *Executor) resolveAdapter(ctx context.Context, eventID string) (thermostat.Adapter, *models.Thermostat, bool, error) {
	ep, err := e.events.GetWithProperty(ctx, eventID)
	if err != nil {
		return nil, nil, false, err
	}
	if ep == nil {
		// Event was deleted before the action ran; nothing to do.
		log.Printf("Event %s no longer exists, skipping action", eventID)
		return nil, nil, false, nil
	}

	t, err := e.thermostats.FirstForProperty(ctx, ep.Property.ID)
	if err != nil {
		return nil, nil, false, err
	}
	if t == nil {
		log.Printf("Property %s has no thermostat, skipping action", ep.Property.ID)
		return nil, nil, false, nil
	}

	adapter, err := e.adapters.AdapterFor(ctx, t)
	if err != nil {
		return nil, nil, false, err
	}

	return adapter, t, true, nil
}
