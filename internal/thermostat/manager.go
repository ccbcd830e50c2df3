package thermostat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/smart-thermostat/backend/internal/websocket"
)

// Manager executes commands against thermostats through their adapters,
// keeping the audit trail and the cached device status up to date.
type Manager struct {
	thermostats *storage.ThermostatRepository
	commands    *storage.CommandRepository
	stats       *storage.StatisticsRepository
	factory     Factory
	broadcaster *websocket.EventBroadcaster
}

// NewManager creates a command manager. The statistics repository may be nil
// when no usage aggregation is wanted; the broadcaster may be nil when no UI
// clients need live updates.
func NewManager(
	thermostats *storage.ThermostatRepository,
	commands *storage.CommandRepository,
	stats *storage.StatisticsRepository,
	factory Factory,
	hub *websocket.Hub,
) *Manager {
	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Manager{
		thermostats: thermostats,
		commands:    commands,
		stats:       stats,
		factory:     factory,
		broadcaster: broadcaster,
	}
}

// CommandParams are the recognized parameters of an Execute call.
type CommandParams struct {
	Temperature *float64 `json:"temperature,omitempty"`
	IsCooling   *bool    `json:"is_cooling,omitempty"`
	Mode        string   `json:"mode,omitempty"`
}

// RefreshStatus reads the device's live status and opportunistically updates
// the thermostat's cached fields. Cache writes are last-writer-wins and
// failures to persist them do not fail the read.
func (m *Manager) RefreshStatus(ctx context.Context, t *models.Thermostat) (*Status, error) {
	adapter, err := m.factory.AdapterFor(ctx, t)
	if err != nil {
		return nil, err
	}

	status, err := adapter.GetStatus(ctx)
	if err != nil {
		return nil, err
	}

	t.CurrentTemperature = status.CurrentTemperature
	t.TargetTemperature = status.TargetTemperature
	t.CurrentHumidity = status.CurrentHumidity
	if status.Mode != "" {
		t.Mode = status.Mode
	}
	t.IsOnline = status.Online

	if err := m.thermostats.UpdateCachedStatus(ctx, t); err != nil {
		log.Printf("Failed to update cached status for thermostat %s: %v", t.ID, err)
	}

	if m.stats != nil && status.Online {
		if err := m.stats.RecordSample(ctx, t.PropertyID, status.Mode, status.CurrentTemperature, status.CurrentHumidity); err != nil {
			log.Printf("Failed to record usage sample for property %s: %v", t.PropertyID, err)
		}
	}

	if m.broadcaster != nil {
		m.broadcaster.BroadcastThermostatStatus(t.ID, status.Online, status.CurrentTemperature, status.TargetTemperature, status.Mode)
	}

	return status, nil
}

// Execute runs one named command against a thermostat, recording a command
// audit row that ends in success or failed.
func (m *Manager) Execute(ctx context.Context, t *models.Thermostat, commandType string, params CommandParams) error {
	rawParams, _ := json.Marshal(params)

	record := &models.ThermostatCommand{
		ThermostatID: t.ID,
		CommandType:  commandType,
		Parameters:   string(rawParams),
	}
	if err := m.commands.Create(ctx, record); err != nil {
		return fmt.Errorf("recording command: %w", err)
	}

	err := m.dispatch(ctx, t, commandType, params)

	if err != nil {
		msg := err.Error()
		if finishErr := m.commands.Finish(ctx, record.ID, models.CommandStatusFailed, &msg); finishErr != nil {
			log.Printf("Failed to mark command %s failed: %v", record.ID, finishErr)
		}
		if m.broadcaster != nil {
			m.broadcaster.BroadcastCommandResult(t.ID, commandType, models.CommandStatusFailed, msg)
		}
		return err
	}

	if finishErr := m.commands.Finish(ctx, record.ID, models.CommandStatusSuccess, nil); finishErr != nil {
		log.Printf("Failed to mark command %s successful: %v", record.ID, finishErr)
	}
	if m.broadcaster != nil {
		m.broadcaster.BroadcastCommandResult(t.ID, commandType, models.CommandStatusSuccess, "")
	}

	return nil
}

func (m *Manager) dispatch(ctx context.Context, t *models.Thermostat, commandType string, params CommandParams) error {
	adapter, err := m.factory.AdapterFor(ctx, t)
	if err != nil {
		return err
	}

	switch commandType {
	case "set_temperature":
		if params.Temperature == nil {
			return fmt.Errorf("set_temperature requires a temperature parameter")
		}
		isCooling := true
		if params.IsCooling != nil {
			isCooling = *params.IsCooling
		}
		return adapter.SetTemperature(ctx, *params.Temperature, isCooling)

	case "set_mode":
		if params.Mode == "" {
			return fmt.Errorf("set_mode requires a mode parameter")
		}
		return adapter.SetMode(ctx, params.Mode)

	case "turn_on":
		return adapter.TurnOn(ctx)

	case "turn_off":
		return adapter.TurnOff(ctx)

	default:
		return fmt.Errorf("unknown command type %q", commandType)
	}
}
