package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"mentor-agenda/internal/domain/entity"
)

func pendingItem(id int64) entity.PendingSchedule {
	return entity.PendingSchedule{
		ScheduleUpdate: entity.ScheduleUpdate{
			AppointmentID:  id,
			MentorID:       7,
			MeetingLink:    "https://meet.google.com/abc-defg-hij",
			ScheduledAtUTC: time.Date(2025, 1, 7, 15, 0, 0, 0, time.UTC),
		},
		CompanyID: "acme",
		EventID:   fmt.Sprintf("evt-%d", id),
		QueuedAt:  testNow,
	}
}

func newTestReconciler(t *testing.T, queue *fakeQueue, appts *fakeAppointments) *BookingReconciler {
	t.Helper()
	lc := fxtest.NewLifecycle(t)
	return NewBookingReconciler(lc, testConfig(), queue, appts, zap.NewNop())
}

func TestBookingReconciler_AppliesPendingUpdates(t *testing.T) {
	queue := &fakeQueue{items: []entity.PendingSchedule{pendingItem(1), pendingItem(2)}}
	appts := &fakeAppointments{}
	r := newTestReconciler(t, queue, appts)

	n, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, appts.marked, 2)
	assert.Equal(t, int64(1), appts.marked[0].AppointmentID)
	assert.Empty(t, queue.items)
	assert.Empty(t, queue.buried)
}

func TestBookingReconciler_RequeuesThenBuries(t *testing.T) {
	queue := &fakeQueue{items: []entity.PendingSchedule{pendingItem(1)}}
	down := errors.New("database is down")
	appts := &fakeAppointments{markErrs: []error{down, down, down}}
	r := newTestReconciler(t, queue, appts)

	for pass := 1; pass <= 2; pass++ {
		n, err := r.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n, "a requeued item waits for the next pass")
		require.Len(t, queue.items, 1)
		assert.Equal(t, pass, queue.items[0].Attempts)
		assert.Equal(t, "database is down", queue.items[0].LastError)
	}

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queue.items)
	require.Len(t, queue.buried, 1)
	assert.Equal(t, 3, queue.buried[0].Attempts)
	assert.Empty(t, appts.marked)
}

func TestBookingReconciler_BuriesMissingAppointment(t *testing.T) {
	queue := &fakeQueue{items: []entity.PendingSchedule{pendingItem(9)}}
	appts := &fakeAppointments{markErrs: []error{fmt.Errorf("appointment 9: %w", entity.ErrAppointmentNotFound)}}
	r := newTestReconciler(t, queue, appts)

	_, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Empty(t, queue.items)
	require.Len(t, queue.buried, 1)
	assert.Equal(t, 1, queue.buried[0].Attempts)
}

func TestBookingReconciler_Lifecycle(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := testConfig()
	cfg.Agenda.ReconcileInterval = 10 * time.Millisecond

	queue := &fakeQueue{items: []entity.PendingSchedule{pendingItem(1)}}
	appts := &fakeAppointments{}
	NewBookingReconciler(lc, cfg, queue, appts, zap.NewNop())

	lc.RequireStart()
	assert.Eventually(t, func() bool {
		appts.mu.Lock()
		defer appts.mu.Unlock()
		return len(appts.marked) == 1
	}, time.Second, 5*time.Millisecond)
	lc.RequireStop()
}
