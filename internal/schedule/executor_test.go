package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/smart-thermostat/backend/internal/thermostat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter records the calls made against it.
type fakeAdapter struct {
	calls []string
	temps []float64
	modes []string
	fail  error
}

func (f *fakeAdapter) GetStatus(ctx context.Context) (*thermostat.Status, error) {
	f.calls = append(f.calls, "get_status")
	return &thermostat.Status{Online: true}, f.fail
}

func (f *fakeAdapter) SetTemperature(ctx context.Context, tempF float64, isCooling bool) error {
	f.calls = append(f.calls, "set_temperature")
	f.temps = append(f.temps, tempF)
	return f.fail
}

func (f *fakeAdapter) SetMode(ctx context.Context, mode string) error {
	f.calls = append(f.calls, "set_mode")
	f.modes = append(f.modes, mode)
	return f.fail
}

func (f *fakeAdapter) TurnOn(ctx context.Context) error {
	f.calls = append(f.calls, "turn_on")
	return f.fail
}

func (f *fakeAdapter) TurnOff(ctx context.Context) error {
	f.calls = append(f.calls, "turn_off")
	return f.fail
}

// fakeFactory hands out one adapter for every thermostat.
type fakeFactory struct {
	adapter *fakeAdapter
	err     error
}

func (f *fakeFactory) AdapterFor(ctx context.Context, t *models.Thermostat) (thermostat.Adapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.adapter, nil
}

// seedBooking creates a property, thermostats and one booking event.
func seedBooking(t *testing.T, db *storage.DB, thermostatCount int) *models.CalendarEvent {
	t.Helper()
	ctx := context.Background()

	properties := storage.NewPropertyRepository(db)
	p := &models.Property{Owner: "owner", Name: "Cabin"}
	require.NoError(t, properties.Create(ctx, p))

	thermostats := storage.NewThermostatRepository(db)
	for i := 0; i < thermostatCount; i++ {
		require.NoError(t, thermostats.Create(ctx, &models.Thermostat{
			PropertyID: p.ID,
			Name:       "Unit",
			DeviceID:   storage.GenerateID(),
			VendorType: models.VendorCielo,
		}))
	}

	events := storage.NewCalendarRepository(db)
	ev := &models.CalendarEvent{
		PropertyID: p.ID,
		Summary:    "Reserved",
		Start:      time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC),
	}
	require.NoError(t, events.Create(ctx, ev))
	return ev
}

func newTestExecutor(db *storage.DB, factory thermostat.Factory) *Executor {
	return NewExecutor(
		storage.NewCalendarRepository(db),
		storage.NewThermostatRepository(db),
		factory,
		testConfig(),
	)
}

func TestPreArrivalCoolsToOccupiedSetpoint(t *testing.T) {
	db := newTestDB(t)
	ev := seedBooking(t, db, 1)

	adapter := &fakeAdapter{}
	executor := newTestExecutor(db, &fakeFactory{adapter: adapter})

	require.NoError(t, executor.Run(context.Background(), models.ActionPreArrival, ev.ID))

	assert.Equal(t, []string{"set_mode", "set_temperature"}, adapter.calls)
	assert.Equal(t, []string{"cool"}, adapter.modes)
	assert.Equal(t, []float64{72}, adapter.temps)
}

func TestPostCheckoutShutsDownWithEcoSetpoint(t *testing.T) {
	db := newTestDB(t)
	ev := seedBooking(t, db, 1)

	adapter := &fakeAdapter{}
	executor := newTestExecutor(db, &fakeFactory{adapter: adapter})

	require.NoError(t, executor.Run(context.Background(), models.ActionPostCheckout, ev.ID))

	assert.Equal(t, []string{"set_mode", "set_temperature"}, adapter.calls)
	assert.Equal(t, []string{"off"}, adapter.modes)
	assert.Equal(t, []float64{78}, adapter.temps)
}

func TestPostCheckoutStagesEcoHeatWhenHeating(t *testing.T) {
	db := newTestDB(t)
	ev := seedBooking(t, db, 0)

	thermostats := storage.NewThermostatRepository(db)
	require.NoError(t, thermostats.Create(context.Background(), &models.Thermostat{
		PropertyID: ev.PropertyID,
		Name:       "Unit",
		DeviceID:   storage.GenerateID(),
		VendorType: models.VendorCielo,
		Mode:       "heat",
	}))

	adapter := &fakeAdapter{}
	executor := newTestExecutor(db, &fakeFactory{adapter: adapter})

	require.NoError(t, executor.Run(context.Background(), models.ActionPostCheckout, ev.ID))

	assert.Equal(t, []string{"off"}, adapter.modes)
	assert.Equal(t, []float64{62}, adapter.temps)
}

func TestActionForDeletedEventIsNoOp(t *testing.T) {
	db := newTestDB(t)

	adapter := &fakeAdapter{}
	executor := newTestExecutor(db, &fakeFactory{adapter: adapter})

	require.NoError(t, executor.Run(context.Background(), models.ActionPreArrival, "gone"))
	assert.Empty(t, adapter.calls)
}

func TestActionWithoutThermostatIsNoOp(t *testing.T) {
	db := newTestDB(t)
	ev := seedBooking(t, db, 0)

	adapter := &fakeAdapter{}
	executor := newTestExecutor(db, &fakeFactory{adapter: adapter})

	require.NoError(t, executor.Run(context.Background(), models.ActionPreArrival, ev.ID))
	assert.Empty(t, adapter.calls)
}

func TestAdapterErrorPropagates(t *testing.T) {
	db := newTestDB(t)
	ev := seedBooking(t, db, 1)

	adapter := &fakeAdapter{fail: errors.New("cloud down")}
	executor := newTestExecutor(db, &fakeFactory{adapter: adapter})

	err := executor.Run(context.Background(), models.ActionPreArrival, ev.ID)
	require.EqualError(t, err, "cloud down")
}

func TestUnknownActionKind(t *testing.T) {
	db := newTestDB(t)

	executor := newTestExecutor(db, &fakeFactory{adapter: &fakeAdapter{}})
	require.Error(t, executor.Run(context.Background(), "defrost", "ev"))
}
