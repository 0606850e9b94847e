package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/domain/repository"
	"mentor-agenda/internal/infrastructure/calendar"
)

type AvailabilityUsecase interface {
	// FindAvailableMentor returns nil, nil when every mentor is busy
	FindAvailableMentor(ctx context.Context, companyID string, start time.Time, duration time.Duration) (*entity.Mentor, error)

	// Snapshot loads events and roster once so many slots can be checked
	// against the same view. The window always covers [from, to).
	Snapshot(ctx context.Context, companyID string, from, to time.Time) (*AvailabilitySnapshot, error)
}

type availabilityUsecase struct {
	config  *config.Config
	gateway calendar.Gateway
	mentors repository.MentorRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewAvailabilityUsecase(
	cfg *config.Config,
	gateway calendar.Gateway,
	mentors repository.MentorRepository,
	logger *zap.Logger,
) AvailabilityUsecase {
	return &availabilityUsecase{
		config:  cfg,
		gateway: gateway,
		mentors: mentors,
		logger:  logger,
		now:     time.Now,
	}
}

func (u *availabilityUsecase) FindAvailableMentor(ctx context.Context, companyID string, start time.Time, duration time.Duration) (*entity.Mentor, error) {
	end := start.Add(duration)
	snap, err := u.Snapshot(ctx, companyID, start, end)
	if err != nil {
		return nil, err
	}

	mentor := snap.FindAvailableMentor(start, duration)
	if mentor == nil {
		u.logger.Info("No mentor available for slot",
			zap.String("company_id", companyID),
			zap.Time("start", start),
			zap.Int("events_in_window", len(snap.events)),
		)
	}
	return mentor, nil
}

func (u *availabilityUsecase) Snapshot(ctx context.Context, companyID string, from, to time.Time) (*AvailabilitySnapshot, error) {
	windowStart, windowEnd := u.window(from, to)

	var (
		events  []entity.CalendarEvent
		mentors []entity.Mentor
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = u.gateway.ListEvents(gctx, companyID, windowStart, windowEnd)
		return err
	})
	g.Go(func() error {
		var err error
		mentors, err = u.mentors.FindAll(gctx)
		if err != nil {
			return fmt.Errorf("failed to load mentors: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewAvailabilitySnapshot(events, mentors), nil
}

// window is today .. +lookahead in the flow time zone, widened to cover [from, to)
func (u *availabilityUsecase) window(from, to time.Time) (time.Time, time.Time) {
	loc := u.config.Flow.Location()
	now := u.now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, u.config.Flow.LookaheadDays)

	if !from.IsZero() && from.Before(start) {
		start = from
	}
	if to.After(end) {
		end = to
	}
	return start, end
}

// AvailabilitySnapshot is a point-in-time view of the calendar and roster
type AvailabilitySnapshot struct {
	events  []entity.CalendarEvent
	mentors []entity.Mentor
}

func NewAvailabilitySnapshot(events []entity.CalendarEvent, mentors []entity.Mentor) *AvailabilitySnapshot {
	return &AvailabilitySnapshot{events: events, mentors: mentors}
}

// FindAvailableMentor returns the first mentor, in roster order, who is not an
// attendee of any event overlapping [start, start+duration).
func (s *AvailabilitySnapshot) FindAvailableMentor(start time.Time, duration time.Duration) *entity.Mentor {
	end := start.Add(duration)

	busy := make(map[string]struct{})
	for _, ev := range s.events {
		if !ev.Overlaps(start, end) {
			continue
		}
		for _, email := range ev.Attendees {
			busy[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
		}
	}

	for i := range s.mentors {
		email := strings.ToLower(strings.TrimSpace(s.mentors[i].Email))
		if email == "" {
			continue
		}
		if _, taken := busy[email]; !taken {
			m := s.mentors[i]
			return &m
		}
	}
	return nil
}
