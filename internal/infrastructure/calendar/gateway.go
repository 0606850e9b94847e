package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/infrastructure/oauth2"
)

// Gateway reads and writes events on a company's Google calendar.
// A call that hits 401 renews the token once and retries once.
type Gateway interface {
	ListEvents(ctx context.Context, companyID string, start, end time.Time) ([]entity.CalendarEvent, error)
	InsertEvent(ctx context.Context, companyID string, draft entity.EventDraft) (*entity.CalendarEvent, error)
}

type gateway struct {
	config  *config.Config
	tokens  oauth2.TokenManager
	limiter *RateLimiter
	logger  *zap.Logger
}

func NewGateway(cfg *config.Config, tokens oauth2.TokenManager, logger *zap.Logger) Gateway {
	return &gateway{
		config:  cfg,
		tokens:  tokens,
		limiter: NewRateLimiter(cfg.Google.RequestsPerSecond, cfg.Google.Burst),
		logger:  logger,
	}
}

func (g *gateway) ListEvents(ctx context.Context, companyID string, start, end time.Time) ([]entity.CalendarEvent, error) {
	var events []entity.CalendarEvent

	err := g.call(ctx, companyID, "list events", func(svc *gcal.Service) error {
		events = events[:0]
		limit := int(g.maxEvents())
		call := svc.Events.List(g.calendarID()).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			MaxResults(g.maxEvents()).
			SingleEvents(true).
			OrderBy("startTime")

		// follow nextPageToken only until the cap is reached
		for {
			page, err := call.Context(ctx).Do()
			if err != nil {
				return err
			}
			for _, item := range page.Items {
				if item.Status == "cancelled" {
					continue
				}
				events = append(events, toCalendarEvent(item))
				if len(events) >= limit {
					return nil
				}
			}
			if page.NextPageToken == "" {
				return nil
			}
			call.PageToken(page.NextPageToken)
		}
	})
	if err != nil {
		return nil, err
	}

	g.logger.Debug("Calendar events listed",
		zap.String("company_id", companyID),
		zap.Int("count", len(events)),
		zap.Time("from", start),
		zap.Time("to", end),
	)
	return events, nil
}

func (g *gateway) InsertEvent(ctx context.Context, companyID string, draft entity.EventDraft) (*entity.CalendarEvent, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	var created *gcal.Event
	err := g.call(ctx, companyID, "insert event", func(svc *gcal.Service) error {
		// a fresh request id per attempt, the provider dedupes on it
		ev := g.buildEvent(draft, uuid.NewString())
		var err error
		created, err = svc.Events.Insert(g.calendarID(), ev).
			ConferenceDataVersion(1).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	result := toCalendarEvent(created)
	g.logger.Info("Calendar event created",
		zap.String("company_id", companyID),
		zap.String("event_id", result.ID),
		zap.Bool("has_meeting_link", result.MeetingLink != ""),
	)
	return &result, nil
}

// call runs fn with a fresh authorized service, renewing the token once on 401
func (g *gateway) call(ctx context.Context, companyID, op string, fn func(svc *gcal.Service) error) error {
	client, err := g.tokens.GetAuthorizedClient(ctx, companyID)
	if err != nil {
		return err
	}

	err = g.do(ctx, client, fn)
	if err == nil {
		return nil
	}
	if !isUnauthorized(err) {
		return wrapProviderError(op, err)
	}

	g.logger.Warn("Calendar returned 401, forcing token renewal",
		zap.String("company_id", companyID),
		zap.String("op", op),
	)

	client, err = g.tokens.ForceRenew(ctx, companyID)
	if err != nil {
		return err
	}

	err = g.do(ctx, client, fn)
	if err == nil {
		return nil
	}
	if isUnauthorized(err) {
		g.logger.Error("Calendar still unauthorized after renewal",
			zap.String("company_id", companyID),
			zap.String("op", op),
		)
		return fmt.Errorf("%s: %w", op, entity.ErrUnauthorized)
	}
	return wrapProviderError(op, err)
}

func (g *gateway) do(ctx context.Context, client *oauth2.AuthorizedClient, fn func(svc *gcal.Service) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	opts := []option.ClientOption{option.WithHTTPClient(client.HTTPClient)}
	if g.config.Google.CalendarEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.config.Google.CalendarEndpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}

	err = fn(svc)
	if secs := retryAfter(err); secs >= 0 {
		g.limiter.RecordRateLimitError(secs)
	}
	return err
}

func (g *gateway) buildEvent(draft entity.EventDraft, requestID string) *gcal.Event {
	tz := draft.TimeZone
	if tz == "" {
		tz = g.config.Google.DefaultTimeZone
	}

	attendees := make([]*gcal.EventAttendee, 0, len(draft.Attendees))
	for _, a := range draft.Attendees {
		if a.Email == "" {
			continue
		}
		attendees = append(attendees, &gcal.EventAttendee{Email: a.Email})
	}

	return &gcal.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Start:       &gcal.EventDateTime{DateTime: draft.StartDateTime, TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: draft.EndDateTime, TimeZone: tz},
		Attendees:   attendees,
		Visibility:  "public",
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             requestID,
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

func (g *gateway) calendarID() string {
	if g.config.Google.CalendarID == "" {
		return "primary"
	}
	return g.config.Google.CalendarID
}

func (g *gateway) maxEvents() int64 {
	if g.config.Google.MaxEvents <= 0 {
		return 1000
	}
	return g.config.Google.MaxEvents
}

func validateDraft(draft entity.EventDraft) error {
	start, err := time.Parse(time.RFC3339, draft.StartDateTime)
	if err != nil {
		return fmt.Errorf("%w: startDateTime %q", entity.ErrInvalidEventDraft, draft.StartDateTime)
	}
	end, err := time.Parse(time.RFC3339, draft.EndDateTime)
	if err != nil {
		return fmt.Errorf("%w: endDateTime %q", entity.ErrInvalidEventDraft, draft.EndDateTime)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end must be after start", entity.ErrInvalidEventDraft)
	}
	return nil
}

func toCalendarEvent(ev *gcal.Event) entity.CalendarEvent {
	out := entity.CalendarEvent{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Status:      ev.Status,
		HTMLLink:    ev.HtmlLink,
		MeetingLink: meetingLink(ev),
	}

	if ev.Start != nil && ev.Start.DateTime == "" && ev.Start.Date != "" {
		out.AllDay = true
	}
	if ev.Start != nil && ev.Start.DateTime != "" {
		out.Start, _ = time.Parse(time.RFC3339, ev.Start.DateTime)
	}
	if ev.End != nil && ev.End.DateTime != "" {
		out.End, _ = time.Parse(time.RFC3339, ev.End.DateTime)
	}

	for _, a := range ev.Attendees {
		if a.Email != "" {
			out.Attendees = append(out.Attendees, a.Email)
		}
	}
	return out
}

// meetingLink prefers the video entry point and falls back to hangoutLink
func meetingLink(ev *gcal.Event) string {
	if ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ev.HangoutLink
}
