package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/smart-thermostat/backend/internal/config"
	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher records submissions instead of queueing them.
type fakeDispatcher struct {
	submissions map[models.ActionKind]time.Time
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{submissions: make(map[models.ActionKind]time.Time)}
}

func (f *fakeDispatcher) Submit(ctx context.Context, eventID string, kind models.ActionKind, eta time.Time) error {
	f.submissions[kind] = eta
	return nil
}

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))
	return db
}

func testConfig() config.Config {
	return config.Config{
		DefaultTimezone:    "America/Chicago",
		PreArrivalHours:    2,
		PostCheckoutHours:  2,
		DefaultCoolTemp:    72,
		DefaultEcoCoolTemp: 78,
		DefaultEcoHeatTemp: 62,
		ScanSpec:           "0 0 * * * *",
	}
}

func createEvent(t *testing.T, db *storage.DB, tz *string, start, end time.Time, floating bool) *models.CalendarEvent {
	t.Helper()
	ctx := context.Background()

	properties := storage.NewPropertyRepository(db)
	p := &models.Property{Owner: "owner", Name: "Lakehouse", Timezone: tz}
	require.NoError(t, properties.Create(ctx, p))

	events := storage.NewCalendarRepository(db)
	ev := &models.CalendarEvent{
		PropertyID: p.ID,
		Summary:    "Reserved",
		Start:      start,
		End:        end,
		Floating:   floating,
	}
	require.NoError(t, events.Create(ctx, ev))
	return ev
}

func TestScanSchedulesAroundFloatingBooking(t *testing.T) {
	db := newTestDB(t)

	// Clock fields of a floating booking: check-in 15:00, checkout 11:00,
	// interpreted in the property's timezone.
	start := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)
	createEvent(t, db, nil, start, end, true)

	dispatcher := newFakeDispatcher()
	scanner := NewScanner(storage.NewCalendarRepository(db), dispatcher, testConfig())

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scanner.Scan(context.Background(), now))

	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	wantPre := time.Date(2024, 6, 1, 13, 0, 0, 0, chicago)
	wantPost := time.Date(2024, 6, 3, 13, 0, 0, 0, chicago)

	require.Contains(t, dispatcher.submissions, models.ActionPreArrival)
	require.Contains(t, dispatcher.submissions, models.ActionPostCheckout)
	assert.True(t, dispatcher.submissions[models.ActionPreArrival].Equal(wantPre),
		"pre-arrival ETA = %s, want %s", dispatcher.submissions[models.ActionPreArrival], wantPre)
	assert.True(t, dispatcher.submissions[models.ActionPostCheckout].Equal(wantPost),
		"post-checkout ETA = %s, want %s", dispatcher.submissions[models.ActionPostCheckout], wantPost)
}

func TestScanSkipsElapsedETAs(t *testing.T) {
	db := newTestDB(t)

	start := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)
	createEvent(t, db, nil, start, end, true)

	dispatcher := newFakeDispatcher()
	scanner := NewScanner(storage.NewCalendarRepository(db), dispatcher, testConfig())

	// Guest is already mid-stay: pre-arrival has passed, post-checkout
	// has not.
	now := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scanner.Scan(context.Background(), now))

	assert.NotContains(t, dispatcher.submissions, models.ActionPreArrival)
	assert.Contains(t, dispatcher.submissions, models.ActionPostCheckout)
}

func TestScanZonedEventConvertsInstant(t *testing.T) {
	db := newTestDB(t)

	// A zoned instant keeps its absolute time regardless of property
	// timezone.
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 16, 0, 0, 0, time.UTC)
	createEvent(t, db, nil, start, end, false)

	dispatcher := newFakeDispatcher()
	scanner := NewScanner(storage.NewCalendarRepository(db), dispatcher, testConfig())

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scanner.Scan(context.Background(), now))

	wantPre := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	assert.True(t, dispatcher.submissions[models.ActionPreArrival].Equal(wantPre))
}

func TestScanInvalidTimezoneFallsBackToUTC(t *testing.T) {
	db := newTestDB(t)

	tz := "Mars/Olympus"
	start := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)
	createEvent(t, db, &tz, start, end, true)

	dispatcher := newFakeDispatcher()
	scanner := NewScanner(storage.NewCalendarRepository(db), dispatcher, testConfig())

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scanner.Scan(context.Background(), now))

	wantPre := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	assert.True(t, dispatcher.submissions[models.ActionPreArrival].Equal(wantPre))
}

func TestScanIgnoresFinishedBookings(t *testing.T) {
	db := newTestDB(t)

	start := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 11, 0, 0, 0, time.UTC)
	createEvent(t, db, nil, start, end, true)

	dispatcher := newFakeDispatcher()
	scanner := NewScanner(storage.NewCalendarRepository(db), dispatcher, testConfig())

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scanner.Scan(context.Background(), now))

	assert.Empty(t, dispatcher.submissions)
}
