package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/domain/repository"
	"mentor-agenda/internal/infrastructure/calendar"
	"mentor-agenda/internal/infrastructure/security"
)

const (
	dateIDLayout    = "2006-01-02"
	dateTitleLayout = "Mon Jan 02 2006"
	slotIDLayout    = "15:04"
)

type FlowUsecase interface {
	// NextScreen computes the response for one decrypted flow request
	NextScreen(ctx context.Context, companyID string, req *entity.FlowRequest) (*entity.FlowResponse, error)
}

type flowUsecase struct {
	config       *config.Config
	availability AvailabilityUsecase
	gateway      calendar.Gateway
	appointments repository.AppointmentRepository
	pending      repository.PendingScheduleQueue
	signer       *security.BookingSigner
	logger       *zap.Logger
	now          func() time.Time
}

func NewFlowUsecase(
	cfg *config.Config,
	availability AvailabilityUsecase,
	gateway calendar.Gateway,
	appointments repository.AppointmentRepository,
	pending repository.PendingScheduleQueue,
	signer *security.BookingSigner,
	logger *zap.Logger,
) FlowUsecase {
	return &flowUsecase{
		config:       cfg,
		availability: availability,
		gateway:      gateway,
		appointments: appointments,
		pending:      pending,
		signer:       signer,
		logger:       logger,
		now:          time.Now,
	}
}

func (u *flowUsecase) NextScreen(ctx context.Context, companyID string, req *entity.FlowRequest) (*entity.FlowResponse, error) {
	if req.Action == entity.FlowActionPing {
		return &entity.FlowResponse{Data: entity.FlowStatusData{Status: "active"}}, nil
	}

	if clientErr, ok := req.ClientError(); ok {
		u.logger.Warn("Received client error",
			zap.String("company_id", companyID),
			zap.String("screen", req.Screen),
			zap.ByteString("error", clientErr),
		)
		return &entity.FlowResponse{Data: entity.FlowAckData{Acknowledged: true}}, nil
	}

	if req.Action == entity.FlowActionInit {
		return u.initialScreen(), nil
	}

	if req.Action == entity.FlowActionDataExchange {
		switch req.Screen {
		case entity.ScreenAppointment:
			var in entity.AppointmentInput
			if err := req.DecodeData(&in); err != nil {
				return nil, fmt.Errorf("%w: %v", entity.ErrInvalidFlowInput, err)
			}
			return u.appointmentScreen(ctx, companyID, in)

		case entity.ScreenDetails:
			var in entity.DetailsInput
			if err := req.DecodeData(&in); err != nil {
				return nil, fmt.Errorf("%w: %v", entity.ErrInvalidFlowInput, err)
			}
			return u.summaryScreen(req.FlowToken, in)

		case entity.ScreenSummary:
			var in entity.SummaryInput
			if err := req.DecodeData(&in); err != nil {
				return nil, fmt.Errorf("%w: %v", entity.ErrInvalidFlowInput, err)
			}
			return u.completeBooking(ctx, companyID, req.FlowToken, in)
		}
	}

	u.logger.Error("Unhandled flow request",
		zap.String("company_id", companyID),
		zap.String("version", req.Version),
		zap.String("action", req.Action),
		zap.String("screen", req.Screen),
		zap.ByteString("data", req.Data),
	)
	return nil, fmt.Errorf("%w: action=%q screen=%q", entity.ErrUnhandledRequest, req.Action, req.Screen)
}

func (u *flowUsecase) initialScreen() *entity.FlowResponse {
	return &entity.FlowResponse{
		Screen: entity.ScreenAppointment,
		Data: entity.AppointmentScreenData{
			Date:          u.dateOptions(),
			IsDateEnabled: true,
			Time:          u.timeOptions(),
			IsTimeEnabled: false,
		},
	}
}

// appointmentScreen re-renders APPOINTMENT with slot availability for the chosen date
func (u *flowUsecase) appointmentScreen(ctx context.Context, companyID string, in entity.AppointmentInput) (*entity.FlowResponse, error) {
	data := entity.AppointmentScreenData{
		Date:          u.dateOptions(),
		IsDateEnabled: true,
		Time:          u.timeOptions(),
		IsTimeEnabled: in.Date != "",
	}
	if in.Date == "" {
		return &entity.FlowResponse{Screen: entity.ScreenAppointment, Data: data}, nil
	}

	day, err := u.parseDate(in.Date)
	if err != nil {
		return nil, err
	}

	dayEnd := day.AddDate(0, 0, 1)
	snap, err := u.availability.Snapshot(ctx, companyID, day, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}

	now := u.now()
	for i := range data.Time {
		start, err := u.slotStart(in.Date, data.Time[i].ID)
		if err != nil {
			return nil, err
		}
		data.Time[i].Enabled = u.bookable(now, start) &&
			snap.FindAvailableMentor(start, u.config.Flow.SlotDuration) != nil
	}

	return &entity.FlowResponse{Screen: entity.ScreenAppointment, Data: data}, nil
}

func (u *flowUsecase) summaryScreen(flowToken string, in entity.DetailsInput) (*entity.FlowResponse, error) {
	if in.Date == "" || in.Time == "" {
		return nil, fmt.Errorf("%w: date and time are required", entity.ErrInvalidFlowInput)
	}
	title, ok := u.dateTitle(in.Date)
	if !ok {
		return nil, fmt.Errorf("%w: date %q is not offered", entity.ErrInvalidFlowInput, in.Date)
	}

	data := entity.SummaryScreenData{
		DetailsInput: in,
		Appointment:  fmt.Sprintf("%s at %s", title, in.Time),
		Details: fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\n\"%s\"",
			in.Name, in.Email, in.Phone, in.MoreDetails),
	}
	if u.signer.Enabled() {
		data.BookingSignature = u.signer.Sign(flowToken, in.Date, in.Time)
	}

	return &entity.FlowResponse{Screen: entity.ScreenSummary, Data: data}, nil
}

// completeBooking re-checks the slot, creates the meeting and marks the
// appointment scheduled. A failed mark is queued for the reconciler.
func (u *flowUsecase) completeBooking(ctx context.Context, companyID, flowToken string, in entity.SummaryInput) (*entity.FlowResponse, error) {
	if u.signer.Enabled() {
		if !u.signer.Verify(flowToken, in.Date, in.Time, in.BookingSignature) {
			u.logger.Warn("Booking signature mismatch",
				zap.String("company_id", companyID),
				zap.String("date", in.Date),
				zap.String("time", in.Time),
			)
			return nil, entity.ErrTamperedFlow
		}
	} else {
		u.logger.Warn("Flow signing secret is not set, summary fields are not verified")
	}

	start, err := u.slotStart(in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	duration := u.config.Flow.SlotDuration

	if !start.After(u.now()) {
		return nil, fmt.Errorf("%w: slot %s already started", entity.ErrNoMentorAvailable, start.Format(time.RFC3339))
	}

	mentor, err := u.availability.FindAvailableMentor(ctx, companyID, start, duration)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check availability: %w", err)
	}
	if mentor == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrNoMentorAvailable, start.Format(time.RFC3339))
	}

	appt, err := u.pendingAppointment(ctx, flowToken)
	if err != nil {
		return nil, err
	}

	draft := u.eventDraft(mentor, appt, in, start, duration)
	event, err := u.gateway.InsertEvent(ctx, companyID, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}

	update := entity.ScheduleUpdate{
		AppointmentID:  appt.ID,
		MentorID:       mentor.ID,
		MeetingLink:    event.MeetingLink,
		ScheduledAtUTC: start.UTC(),
	}
	if err := u.appointments.MarkScheduled(ctx, update); err != nil {
		u.logger.Error("Failed to mark appointment scheduled, queueing retry",
			zap.String("company_id", companyID),
			zap.Int64("appointment_id", appt.ID),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		item := entity.PendingSchedule{
			ScheduleUpdate: update,
			CompanyID:      companyID,
			EventID:        event.ID,
			LastError:      err.Error(),
			QueuedAt:       u.now(),
		}
		if qerr := u.pending.Push(ctx, item); qerr != nil {
			return nil, fmt.Errorf("appointment %d left unscheduled for event %s: %w", appt.ID, event.ID, errors.Join(err, qerr))
		}
	} else {
		u.logger.Info("Appointment scheduled",
			zap.String("company_id", companyID),
			zap.Int64("appointment_id", appt.ID),
			zap.Int64("mentor_id", mentor.ID),
			zap.Time("scheduled_at", update.ScheduledAtUTC),
		)
	}

	return &entity.FlowResponse{
		Screen: entity.ScreenSuccess,
		Data: entity.SuccessScreenData{
			ExtensionMessageResponse: entity.ExtensionMessageResponse{
				Params: map[string]string{"flow_token": flowToken},
			},
		},
	}, nil
}

// pendingAppointment picks the newest appointment for the phone that is not
// scheduled yet. The store returns newest first.
func (u *flowUsecase) pendingAppointment(ctx context.Context, phone string) (*entity.Appointment, error) {
	appts, err := u.appointments.FindByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	for i := range appts {
		if !appts[i].IsScheduled() {
			return &appts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: phone %s", entity.ErrAppointmentNotFound, phone)
}

func (u *flowUsecase) eventDraft(mentor *entity.Mentor, appt *entity.Appointment, in entity.SummaryInput, start time.Time, duration time.Duration) entity.EventDraft {
	summary := u.config.Agenda.EventSummaryPrefix
	if appt.LineOfBusinessTitle != "" {
		summary = fmt.Sprintf("%s: %s", summary, appt.LineOfBusinessTitle)
	}

	customerEmail := in.Email
	if customerEmail == "" {
		customerEmail = appt.CustomerEmail
	}

	description := in.Details
	if description == "" {
		description = fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\n\"%s\"", in.Name, in.Email, in.Phone, in.MoreDetails)
	}

	return entity.EventDraft{
		Summary:       summary,
		Description:   description,
		StartDateTime: start.Format(time.RFC3339),
		EndDateTime:   start.Add(duration).Format(time.RFC3339),
		TimeZone:      u.config.Flow.TimeZone,
		Attendees: []entity.Attendee{
			{Email: mentor.Email},
			{Email: customerEmail},
		},
	}
}

// dateOptions lists the next DateWindowDays days from today, skipping the excluded weekday
func (u *flowUsecase) dateOptions() []entity.DateOption {
	loc := u.config.Flow.Location()
	now := u.now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	excluded, hasExcluded := u.excludedWeekday()

	options := make([]entity.DateOption, 0, u.config.Flow.DateWindowDays)
	for len(options) < u.config.Flow.DateWindowDays {
		if !hasExcluded || day.Weekday() != excluded {
			options = append(options, entity.DateOption{
				ID:    day.Format(dateIDLayout),
				Title: day.Format(dateTitleLayout),
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return options
}

// dateTitle looks the id up among the dates currently offered
func (u *flowUsecase) dateTitle(id string) (string, bool) {
	for _, opt := range u.dateOptions() {
		if opt.ID == id {
			return opt.Title, true
		}
	}
	return "", false
}

func (u *flowUsecase) timeOptions() []entity.TimeOption {
	options := make([]entity.TimeOption, 0, u.config.Flow.LastHour-u.config.Flow.FirstHour+1)
	for hour := u.config.Flow.FirstHour; hour <= u.config.Flow.LastHour; hour++ {
		display, period := hour, "AM"
		if hour >= 12 {
			period = "PM"
		}
		if hour > 12 {
			display = hour - 12
		}
		options = append(options, entity.TimeOption{
			ID:      fmt.Sprintf("%d:00", hour),
			Title:   fmt.Sprintf("%d:00 %s", display, period),
			Enabled: true,
		})
	}
	return options
}

// bookable applies the lead time, the excluded weekday and the blackout windows
func (u *flowUsecase) bookable(now, start time.Time) bool {
	if start.Before(now.Add(u.config.Flow.LeadTime)) {
		return false
	}

	local := start.In(u.config.Flow.Location())
	if excluded, ok := u.excludedWeekday(); ok && local.Weekday() == excluded {
		return false
	}
	for _, b := range u.config.Flow.Blackouts {
		day, err := config.ParseWeekday(b.Weekday)
		if err != nil {
			continue
		}
		if local.Weekday() == day && local.Hour() >= b.FromHour && local.Hour() < b.ToHour {
			return false
		}
	}
	return true
}

func (u *flowUsecase) excludedWeekday() (time.Weekday, bool) {
	if u.config.Flow.ExcludedWeekday == "" {
		return time.Sunday, false
	}
	day, err := config.ParseWeekday(u.config.Flow.ExcludedWeekday)
	if err != nil {
		return time.Sunday, false
	}
	return day, true
}

func (u *flowUsecase) parseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(dateIDLayout, date, u.config.Flow.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", entity.ErrInvalidFlowInput, date)
	}
	return day, nil
}

// slotStart turns "2025-01-06" and "9:00" into an instant in the flow time zone
func (u *flowUsecase) slotStart(date, slot string) (time.Time, error) {
	day, err := u.parseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse(slotIDLayout, strings.TrimSpace(slot))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", entity.ErrInvalidFlowInput, slot)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}
