package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/infrastructure/security"
)

type flowHarness struct {
	flow         *flowUsecase
	gateway      *fakeGateway
	mentors      *fakeMentors
	appointments *fakeAppointments
	queue        *fakeQueue
	signer       *security.BookingSigner
}

func newFlowHarness(t *testing.T) *flowHarness {
	t.Helper()
	cfg := testConfig()
	h := &flowHarness{
		gateway: &fakeGateway{},
		mentors: &fakeMentors{mentors: []entity.Mentor{{ID: 7, Name: "Ana", Email: "ana@example.com"}}},
		appointments: &fakeAppointments{byPhone: map[string][]entity.Appointment{
			"573001112233": {
				{ID: 42, CustomerPhone: "573001112233", Status: entity.AppointmentStatusNew, LineOfBusinessTitle: "Finanzas"},
				{ID: 40, CustomerPhone: "573001112233", Status: entity.AppointmentStatusScheduled},
			},
		}},
		queue:  &fakeQueue{},
		signer: security.NewBookingSigner(cfg),
	}

	clock := func() time.Time { return testNow }
	availability := NewAvailabilityUsecase(cfg, h.gateway, h.mentors, zap.NewNop()).(*availabilityUsecase)
	availability.now = clock

	h.flow = NewFlowUsecase(cfg, availability, h.gateway, h.appointments, h.queue, h.signer, zap.NewNop()).(*flowUsecase)
	h.flow.now = clock
	return h
}

func flowRequest(t *testing.T, action, screen string, data interface{}) *entity.FlowRequest {
	t.Helper()
	req := &entity.FlowRequest{Version: "3.0", Action: action, Screen: screen, FlowToken: "573001112233"}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		req.Data = raw
	}
	return req
}

func summaryInput(h *flowHarness, date, slot string) entity.SummaryInput {
	return entity.SummaryInput{
		DetailsInput: entity.DetailsInput{
			Date: date, Time: slot, Name: "Carlos", Email: "carlos@example.com",
			Phone: "573001112233", MoreDetails: "Plan de negocio",
		},
		Appointment:      "Tue Jan 07 2025 at " + slot,
		Details:          "Name: Carlos",
		BookingSignature: h.signer.Sign("573001112233", date, slot),
	}
}

func TestNextScreen_PingAlwaysActive(t *testing.T) {
	h := newFlowHarness(t)

	for _, screen := range []string{"", entity.ScreenSummary, "ANYTHING"} {
		resp, err := h.flow.NextScreen(context.Background(), "acme",
			flowRequest(t, entity.FlowActionPing, screen, map[string]interface{}{"error": "boom"}))
		require.NoError(t, err)
		assert.Empty(t, resp.Screen)
		assert.Equal(t, entity.FlowStatusData{Status: "active"}, resp.Data)
	}
}

func TestNextScreen_ClientErrorIsAcknowledged(t *testing.T) {
	h := newFlowHarness(t)

	resp, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenSummary, map[string]interface{}{"error": "invalid_screen"}))

	require.NoError(t, err)
	assert.Equal(t, entity.FlowAckData{Acknowledged: true}, resp.Data)
	assert.Empty(t, h.gateway.inserted)
}

func TestNextScreen_Init(t *testing.T) {
	h := newFlowHarness(t)

	resp, err := h.flow.NextScreen(context.Background(), "acme", flowRequest(t, entity.FlowActionInit, "", nil))
	require.NoError(t, err)

	assert.Equal(t, entity.ScreenAppointment, resp.Screen)
	data := resp.Data.(entity.AppointmentScreenData)
	assert.True(t, data.IsDateEnabled)
	assert.False(t, data.IsTimeEnabled)

	require.Len(t, data.Date, 7)
	assert.Equal(t, entity.DateOption{ID: "2025-01-06", Title: "Mon Jan 06 2025"}, data.Date[0])
	for _, d := range data.Date {
		assert.NotEqual(t, "2025-01-12", d.ID, "sunday is excluded")
	}
	assert.Equal(t, "2025-01-13", data.Date[6].ID)

	require.Len(t, data.Time, 13)
	assert.Equal(t, entity.TimeOption{ID: "8:00", Title: "8:00 AM", Enabled: true}, data.Time[0])
	assert.Equal(t, entity.TimeOption{ID: "12:00", Title: "12:00 PM", Enabled: true}, data.Time[4])
	assert.Equal(t, entity.TimeOption{ID: "20:00", Title: "8:00 PM", Enabled: true}, data.Time[12])
	assert.Zero(t, h.gateway.listCalls)
}

func TestNextScreen_AppointmentAllFreeExceptLeadTime(t *testing.T) {
	h := newFlowHarness(t)

	resp, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenAppointment, entity.AppointmentInput{Date: "2025-01-06"}))
	require.NoError(t, err)

	data := resp.Data.(entity.AppointmentScreenData)
	assert.True(t, data.IsTimeEnabled)
	require.Len(t, data.Time, 13)

	// now is 07:00 local, the 2h lead time blocks only the 8:00 slot
	for _, slot := range data.Time {
		if slot.ID == "8:00" {
			assert.False(t, slot.Enabled, slot.ID)
		} else {
			assert.True(t, slot.Enabled, slot.ID)
		}
	}
	assert.Equal(t, 1, h.gateway.listCalls, "one snapshot serves every slot")
}

func TestNextScreen_AppointmentDisablesBusyAndBlackoutSlots(t *testing.T) {
	h := newFlowHarness(t)
	h.gateway.events = []entity.CalendarEvent{
		busyEvent(bogota(2025, 1, 7, 9, 30), time.Hour, "ana@example.com"),
		busyEvent(bogota(2025, 1, 7, 15, 0), time.Hour, "someone-else@example.com"),
	}

	resp, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenAppointment, entity.AppointmentInput{Date: "2025-01-07"}))
	require.NoError(t, err)

	enabled := map[string]bool{}
	for _, slot := range resp.Data.(entity.AppointmentScreenData).Time {
		enabled[slot.ID] = slot.Enabled
	}
	assert.True(t, enabled["8:00"])
	assert.False(t, enabled["9:00"])
	assert.False(t, enabled["10:00"])
	assert.True(t, enabled["11:00"])
	assert.True(t, enabled["15:00"])

	resp, err = h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenAppointment, entity.AppointmentInput{Date: "2025-01-11"}))
	require.NoError(t, err)

	enabled = map[string]bool{}
	for _, slot := range resp.Data.(entity.AppointmentScreenData).Time {
		enabled[slot.ID] = slot.Enabled
	}
	assert.True(t, enabled["12:00"])
	assert.False(t, enabled["13:00"], "saturday afternoon is blacked out")
	assert.False(t, enabled["20:00"])
}

func TestNextScreen_AppointmentWithoutDate(t *testing.T) {
	h := newFlowHarness(t)

	resp, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenAppointment, map[string]interface{}{}))
	require.NoError(t, err)

	data := resp.Data.(entity.AppointmentScreenData)
	assert.False(t, data.IsTimeEnabled)
	assert.Zero(t, h.gateway.listCalls)
}

func TestNextScreen_DetailsBuildsSummary(t *testing.T) {
	h := newFlowHarness(t)
	in := entity.DetailsInput{
		Date: "2025-01-07", Time: "10:00", Name: "Carlos", Email: "carlos@example.com",
		Phone: "573001112233", MoreDetails: "Plan de negocio",
	}

	resp, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenDetails, in))
	require.NoError(t, err)

	assert.Equal(t, entity.ScreenSummary, resp.Screen)
	data := resp.Data.(entity.SummaryScreenData)
	assert.Equal(t, "Tue Jan 07 2025 at 10:00", data.Appointment)
	assert.Equal(t, "Name: Carlos\nEmail: carlos@example.com\nPhone: 573001112233\n\"Plan de negocio\"", data.Details)
	assert.Equal(t, in, data.DetailsInput)
	assert.True(t, h.signer.Verify("573001112233", "2025-01-07", "10:00", data.BookingSignature))
}

func TestNextScreen_DetailsRejectsDateNotOffered(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{name: "unparseable", date: "07/01/2025"},
		{name: "excluded sunday", date: "2025-01-12"},
		{name: "past", date: "2025-01-05"},
		{name: "beyond the window", date: "2025-02-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFlowHarness(t)

			_, err := h.flow.NextScreen(context.Background(), "acme",
				flowRequest(t, entity.FlowActionDataExchange, entity.ScreenDetails, entity.DetailsInput{Date: tt.date, Time: "10:00"}))
			assert.ErrorIs(t, err, entity.ErrInvalidFlowInput)
		})
	}
}

func TestNextScreen_SummaryBooks(t *testing.T) {
	h := newFlowHarness(t)

	resp, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenSummary, summaryInput(h, "2025-01-07", "10:00")))
	require.NoError(t, err)

	assert.Equal(t, entity.ScreenSuccess, resp.Screen)
	assert.Equal(t, map[string]string{"flow_token": "573001112233"},
		resp.Data.(entity.SuccessScreenData).ExtensionMessageResponse.Params)

	require.Len(t, h.gateway.inserted, 1)
	draft := h.gateway.inserted[0]
	assert.Equal(t, "Mentoría: Finanzas", draft.Summary)
	assert.Equal(t, "2025-01-07T10:00:00-05:00", draft.StartDateTime)
	assert.Equal(t, "2025-01-07T11:00:00-05:00", draft.EndDateTime)
	assert.Equal(t, []entity.Attendee{{Email: "ana@example.com"}, {Email: "carlos@example.com"}}, draft.Attendees)

	require.Len(t, h.appointments.marked, 1)
	assert.Equal(t, entity.ScheduleUpdate{
		AppointmentID:  42,
		MentorID:       7,
		MeetingLink:    "https://meet.google.com/abc-defg-hij",
		ScheduledAtUTC: time.Date(2025, 1, 7, 15, 0, 0, 0, time.UTC),
	}, h.appointments.marked[0])
	assert.Empty(t, h.queue.items)
}

func TestNextScreen_SummaryDoubleBookedFails(t *testing.T) {
	h := newFlowHarness(t)
	h.gateway.events = []entity.CalendarEvent{busyEvent(bogota(2025, 1, 7, 10, 0), time.Hour, "ana@example.com")}

	_, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenSummary, summaryInput(h, "2025-01-07", "10:00")))

	require.ErrorIs(t, err, entity.ErrNoMentorAvailable)
	assert.Empty(t, h.gateway.inserted)
	assert.Empty(t, h.appointments.marked)
}

func TestNextScreen_SummaryRejectsTamperedSlot(t *testing.T) {
	h := newFlowHarness(t)
	in := summaryInput(h, "2025-01-07", "10:00")
	in.Time = "11:00"

	_, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenSummary, in))

	require.ErrorIs(t, err, entity.ErrTamperedFlow)
	assert.Empty(t, h.gateway.inserted)
}

func TestNextScreen_SummaryWithoutPendingAppointment(t *testing.T) {
	h := newFlowHarness(t)
	h.appointments.byPhone["573001112233"] = []entity.Appointment{{ID: 40, Status: entity.AppointmentStatusScheduled}}

	_, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenSummary, summaryInput(h, "2025-01-07", "10:00")))

	require.ErrorIs(t, err, entity.ErrAppointmentNotFound)
	assert.Empty(t, h.gateway.inserted)
}

func TestNextScreen_SummaryQueuesFailedMark(t *testing.T) {
	h := newFlowHarness(t)
	h.appointments.markErrs = []error{errors.New("connection reset")}

	resp, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenSummary, summaryInput(h, "2025-01-07", "10:00")))

	require.NoError(t, err, "the meeting exists, so the flow still completes")
	assert.Equal(t, entity.ScreenSuccess, resp.Screen)
	require.Len(t, h.queue.items, 1)
	queued := h.queue.items[0]
	assert.Equal(t, int64(42), queued.AppointmentID)
	assert.Equal(t, "evt-1", queued.EventID)
	assert.Equal(t, "acme", queued.CompanyID)
	assert.Equal(t, "connection reset", queued.LastError)
}

func TestNextScreen_SummaryPastSlotFails(t *testing.T) {
	h := newFlowHarness(t)

	_, err := h.flow.NextScreen(context.Background(), "acme",
		flowRequest(t, entity.FlowActionDataExchange, entity.ScreenSummary, summaryInput(h, "2025-01-06", "7:00")))

	require.ErrorIs(t, err, entity.ErrNoMentorAvailable)
	assert.Empty(t, h.gateway.inserted)
}

func TestNextScreen_Unhandled(t *testing.T) {
	h := newFlowHarness(t)

	tests := []*entity.FlowRequest{
		flowRequest(t, entity.FlowActionDataExchange, "TERMS", nil),
		flowRequest(t, "navigate", entity.ScreenAppointment, nil),
		flowRequest(t, "", "", nil),
	}
	for _, req := range tests {
		_, err := h.flow.NextScreen(context.Background(), "acme", req)
		assert.ErrorIs(t, err, entity.ErrUnhandledRequest, "%s/%s", req.Action, req.Screen)
	}
}
