package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/infrastructure/calendar"
)

type EventsUsecase interface {
	// ListUpcoming returns events from now to the end of the lookahead window
	ListUpcoming(ctx context.Context, companyID string) ([]entity.CalendarEvent, error)

	AddEvent(ctx context.Context, companyID string, draft entity.EventDraft) (*entity.CalendarEvent, error)
}

type eventsUsecase struct {
	config  *config.Config
	gateway calendar.Gateway
	logger  *zap.Logger
	now     func() time.Time
}

func NewEventsUsecase(cfg *config.Config, gateway calendar.Gateway, logger *zap.Logger) EventsUsecase {
	return &eventsUsecase{
		config:  cfg,
		gateway: gateway,
		logger:  logger,
		now:     time.Now,
	}
}

func (u *eventsUsecase) ListUpcoming(ctx context.Context, companyID string) ([]entity.CalendarEvent, error) {
	now := u.now()
	return u.gateway.ListEvents(ctx, companyID, now, now.AddDate(0, 0, u.config.Flow.LookaheadDays))
}

func (u *eventsUsecase) AddEvent(ctx context.Context, companyID string, draft entity.EventDraft) (*entity.CalendarEvent, error) {
	u.logger.Info("Adding calendar event",
		zap.String("company_id", companyID),
		zap.String("start", draft.StartDateTime),
		zap.Int("attendees", len(draft.Attendees)),
	)
	return u.gateway.InsertEvent(ctx, companyID, draft)
}
