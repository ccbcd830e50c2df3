package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smart-thermostat/backend/internal/storage"
	"github.com/smart-thermostat/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitMovesPendingETA(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	actions := storage.NewActionRepository(db)
	dispatcher := NewQueueDispatcher(actions, nil, nil, "@every 30s")

	eta1 := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	eta2 := time.Date(2024, 6, 2, 18, 0, 0, 0, time.UTC)

	require.NoError(t, dispatcher.Submit(ctx, "ev-1", models.ActionPreArrival, eta1))
	require.NoError(t, dispatcher.Submit(ctx, "ev-1", models.ActionPreArrival, eta2))

	pending, err := actions.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].ETA.Equal(eta2))
}

func TestSubmitLeavesFinishedActionsAlone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	actions := storage.NewActionRepository(db)
	dispatcher := NewQueueDispatcher(actions, nil, nil, "@every 30s")

	eta := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	require.NoError(t, dispatcher.Submit(ctx, "ev-1", models.ActionPreArrival, eta))

	claimed, err := actions.ClaimDue(ctx, eta.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, actions.Finish(ctx, claimed[0].ID, models.ActionStatusSuccess, nil))

	// Re-submitting after the action ran must not resurrect it
	require.NoError(t, dispatcher.Submit(ctx, "ev-1", models.ActionPreArrival, eta.Add(time.Hour)))

	pending, err := actions.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	row, err := actions.GetByEvent(ctx, "ev-1", models.ActionPreArrival)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.ActionStatusSuccess, row.Status)
	assert.True(t, row.ETA.Equal(eta))
}

func TestDispatchDueRunsAndFinishes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ev := seedBooking(t, db, 1)

	adapter := &fakeAdapter{}
	executor := newTestExecutor(db, &fakeFactory{adapter: adapter})

	actions := storage.NewActionRepository(db)
	dispatcher := NewQueueDispatcher(actions, executor, nil, "@every 30s")

	eta := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	require.NoError(t, dispatcher.Submit(ctx, ev.ID, models.ActionPreArrival, eta))

	// Not yet due
	dispatcher.DispatchDue(ctx, eta.Add(-time.Minute))
	assert.Empty(t, adapter.calls)

	dispatcher.DispatchDue(ctx, eta.Add(time.Minute))
	assert.Equal(t, []string{"set_mode", "set_temperature"}, adapter.calls)

	row, err := actions.GetByEvent(ctx, ev.ID, models.ActionPreArrival)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusSuccess, row.Status)
	assert.Equal(t, 1, row.Attempts)
}

func TestDispatchDueRecordsFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ev := seedBooking(t, db, 1)

	adapter := &fakeAdapter{fail: errors.New("vendor timeout")}
	executor := newTestExecutor(db, &fakeFactory{adapter: adapter})

	actions := storage.NewActionRepository(db)
	dispatcher := NewQueueDispatcher(actions, executor, nil, "@every 30s")

	eta := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	require.NoError(t, dispatcher.Submit(ctx, ev.ID, models.ActionPreArrival, eta))

	dispatcher.DispatchDue(ctx, eta.Add(time.Minute))

	row, err := actions.GetByEvent(ctx, ev.ID, models.ActionPreArrival)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusFailed, row.Status)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "vendor timeout")
}
