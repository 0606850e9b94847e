package usecase

import (
	"context"
	"sync"
	"time"

	_ "time/tzdata"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
)

// Monday 2025-01-06 07:00 in Bogota
var testNow = time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Flow: config.FlowConfig{
			TimeZone:        "America/Bogota",
			DateWindowDays:  7,
			ExcludedWeekday: "sunday",
			FirstHour:       8,
			LastHour:        20,
			LeadTime:        2 * time.Hour,
			SlotDuration:    time.Hour,
			LookaheadDays:   8,
			Blackouts: []config.BlackoutWindow{
				{Weekday: "saturday", FromHour: 13, ToHour: 24},
			},
		},
		Agenda: config.AgendaConfig{
			EventSummaryPrefix:   "Mentoría",
			ReconcileMaxAttempts: 3,
		},
		Security: config.SecurityConfig{FlowSigningSecret: "flow-secret"},
	}
}

func bogota(year int, month time.Month, day, hour, min int) time.Time {
	loc, _ := time.LoadLocation("America/Bogota")
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

type fakeGateway struct {
	mu        sync.Mutex
	events    []entity.CalendarEvent
	listCalls int
	listErr   error
	inserted  []entity.EventDraft
	insertErr error
}

func (g *fakeGateway) ListEvents(_ context.Context, _ string, _, _ time.Time) ([]entity.CalendarEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.events, nil
}

func (g *fakeGateway) InsertEvent(_ context.Context, _ string, draft entity.EventDraft) (*entity.CalendarEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.insertErr != nil {
		return nil, g.insertErr
	}
	g.inserted = append(g.inserted, draft)
	return &entity.CalendarEvent{ID: "evt-1", MeetingLink: "https://meet.google.com/abc-defg-hij"}, nil
}

type fakeMentors struct {
	mentors []entity.Mentor
	err     error
}

func (m *fakeMentors) FindAll(context.Context) ([]entity.Mentor, error) {
	return m.mentors, m.err
}

type fakeAppointments struct {
	mu       sync.Mutex
	byPhone  map[string][]entity.Appointment
	marked   []entity.ScheduleUpdate
	markErrs []error
}

func (a *fakeAppointments) FindByPhone(_ context.Context, phone string) ([]entity.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.byPhone[phone], nil
}

// MarkScheduled fails with the queued errors first, in order
func (a *fakeAppointments) MarkScheduled(_ context.Context, update entity.ScheduleUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.markErrs) > 0 {
		err := a.markErrs[0]
		a.markErrs = a.markErrs[1:]
		if err != nil {
			return err
		}
	}
	a.marked = append(a.marked, update)
	return nil
}

type fakeQueue struct {
	mu     sync.Mutex
	items  []entity.PendingSchedule
	buried []entity.PendingSchedule
}

func (q *fakeQueue) Push(_ context.Context, item entity.PendingSchedule) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

func (q *fakeQueue) Pop(context.Context) (*entity.PendingSchedule, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return &item, nil
}

func (q *fakeQueue) Bury(_ context.Context, item entity.PendingSchedule) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buried = append(q.buried, item)
	return nil
}
