package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncTestEnv(t *testing.T) (*storage.PropertyRepository, *storage.CalendarRepository, *SyncService) {
	t.Helper()

	db, err := storage.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))

	properties := storage.NewPropertyRepository(db)
	events := storage.NewCalendarRepository(db)
	return properties, events, NewSyncService(properties, events)
}

func createFeedProperty(t *testing.T, properties *storage.PropertyRepository, feedURL string) *models.Property {
	t.Helper()

	p := &models.Property{
		Owner: "owner-1",
		Name:  "Lakeside Cabin",
	}
	if feedURL != "" {
		p.FeedURL = &feedURL
	}
	require.NoError(t, properties.Create(context.Background(), p))
	return p
}

func feedBody(events ...string) string {
	body := "BEGIN:VCALENDAR\nVERSION:2.0\n"
	for _, e := range events {
		body += e
	}
	return body + "END:VCALENDAR\n"
}

func feedEvent(uid, summary string, start, end time.Time) string {
	return fmt.Sprintf(
		"BEGIN:VEVENT\nUID:%s\nSUMMARY:%s\nDTSTART:%s\nDTEND:%s\nEND:VEVENT\n",
		uid, summary,
		start.UTC().Format("20060102T150405Z"),
		end.UTC().Format("20060102T150405Z"),
	)
}

func TestSyncPropertyUpsertsByUID(t *testing.T) {
	properties, events, svc := newSyncTestEnv(t)

	checkIn := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	checkOut := checkIn.Add(48 * time.Hour)

	var body atomic.Value
	body.Store(feedBody(
		feedEvent("booking-1", "Reserved - Jane", checkIn, checkOut),
		feedEvent("booking-2", "Reserved - Omar", checkIn.Add(96*time.Hour), checkOut.Add(96*time.Hour)),
	))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body.Load().(string))
	}))
	defer server.Close()

	property := createFeedProperty(t, properties, server.URL)

	result, err := svc.SyncProperty(context.Background(), property.ID)
	require.NoError(t, err)
	assert.Equal(t, property.ID, result.PropertyID)
	assert.Equal(t, 2, result.EventsFound)
	assert.Equal(t, 2, result.EventsSynced)
	assert.Equal(t, 0, result.EventsRemoved)

	stored, err := events.ListByProperty(context.Background(), property.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// Guest changed their dates: same UID, new times. Re-sync must move the
	// existing row, not create a second one.
	movedIn := checkIn.Add(24 * time.Hour)
	movedOut := checkOut.Add(24 * time.Hour)
	body.Store(feedBody(
		feedEvent("booking-1", "Reserved - Jane", movedIn, movedOut),
		feedEvent("booking-2", "Reserved - Omar", checkIn.Add(96*time.Hour), checkOut.Add(96*time.Hour)),
	))

	result, err = svc.SyncProperty(context.Background(), property.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EventsSynced)

	stored, err = events.ListByProperty(context.Background(), property.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	var jane *models.CalendarEvent
	for i := range stored {
		if stored[i].UID != nil && *stored[i].UID == "booking-1" {
			jane = &stored[i]
		}
	}
	require.NotNil(t, jane)
	assert.True(t, jane.Start.Equal(movedIn), "start should follow the feed, got %v want %v", jane.Start, movedIn)
	assert.True(t, jane.End.Equal(movedOut))
}

func TestSyncPropertyRemovesVanishedBookings(t *testing.T) {
	properties, events, svc := newSyncTestEnv(t)

	checkIn := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	checkOut := checkIn.Add(48 * time.Hour)

	var body atomic.Value
	body.Store(feedBody(
		feedEvent("booking-1", "Reserved", checkIn, checkOut),
		feedEvent("booking-2", "Reserved", checkIn.Add(96*time.Hour), checkOut.Add(96*time.Hour)),
	))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body.Load().(string))
	}))
	defer server.Close()

	property := createFeedProperty(t, properties, server.URL)

	// A manually created event has no UID and must survive feed syncs.
	manual := &models.CalendarEvent{
		PropertyID: property.ID,
		Summary:    "Owner stay",
		Start:      checkIn.Add(240 * time.Hour),
		End:        checkOut.Add(240 * time.Hour),
	}
	require.NoError(t, events.Create(context.Background(), manual))

	_, err := svc.SyncProperty(context.Background(), property.ID)
	require.NoError(t, err)

	// booking-2 cancelled
	body.Store(feedBody(feedEvent("booking-1", "Reserved", checkIn, checkOut)))

	result, err := svc.SyncProperty(context.Background(), property.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EventsSynced)
	assert.Equal(t, 1, result.EventsRemoved)

	stored, err := events.ListByProperty(context.Background(), property.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	uids := make(map[string]bool)
	for _, ev := range stored {
		if ev.UID == nil {
			uids["manual"] = true
		} else {
			uids[*ev.UID] = true
		}
	}
	assert.True(t, uids["booking-1"])
	assert.True(t, uids["manual"])
	assert.False(t, uids["booking-2"])
}

func TestSyncPropertySkipsPastBookings(t *testing.T) {
	properties, events, svc := newSyncTestEnv(t)

	past := time.Now().UTC().Add(-96 * time.Hour)
	future := time.Now().UTC().Add(72 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedBody(
			feedEvent("done", "Reserved", past, past.Add(48*time.Hour)),
			feedEvent("upcoming", "Reserved", future, future.Add(48*time.Hour)),
		))
	}))
	defer server.Close()

	property := createFeedProperty(t, properties, server.URL)

	result, err := svc.SyncProperty(context.Background(), property.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EventsFound)
	assert.Equal(t, 1, result.EventsSynced)

	stored, err := events.ListByProperty(context.Background(), property.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "upcoming", *stored[0].UID)
}

func TestSyncPropertyWithoutFeed(t *testing.T) {
	properties, _, svc := newSyncTestEnv(t)

	property := createFeedProperty(t, properties, "")

	_, err := svc.SyncProperty(context.Background(), property.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no booking feed")
}

func TestSyncPropertyUnknownProperty(t *testing.T) {
	_, _, svc := newSyncTestEnv(t)

	_, err := svc.SyncProperty(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSyncAllCoversOnlyFeedProperties(t *testing.T) {
	properties, _, svc := newSyncTestEnv(t)

	checkIn := time.Now().UTC().Add(72 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedBody(feedEvent("b1", "Reserved", checkIn, checkIn.Add(48*time.Hour))))
	}))
	defer server.Close()

	withFeed := createFeedProperty(t, properties, server.URL)
	createFeedProperty(t, properties, "")

	results, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, withFeed.ID, results[0].PropertyID)
}
