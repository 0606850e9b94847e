package repository

import (
	"context"

	"mentor-agenda/internal/domain/entity"
)

type MentorRepository interface {
	// FindAll returns the roster in random order
	FindAll(ctx context.Context) ([]entity.Mentor, error)
}

type AppointmentRepository interface {
	// FindByPhone matches with or without a leading '+'
	FindByPhone(ctx context.Context, phone string) ([]entity.Appointment, error)

	// MarkScheduled sets status, mentor, link and date in one statement
	MarkScheduled(ctx context.Context, update entity.ScheduleUpdate) error
}

// PendingScheduleQueue holds schedule updates that failed after their
// calendar event was created.
type PendingScheduleQueue interface {
	Push(ctx context.Context, item entity.PendingSchedule) error
	// Pop returns nil, nil when the queue is empty
	Pop(ctx context.Context) (*entity.PendingSchedule, error)
	// Bury moves an item that ran out of attempts to the dead-letter list
	Bury(ctx context.Context, item entity.PendingSchedule) error
}
