package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/domain/repository"
)

// BookingReconciler retries schedule updates that failed after their
// calendar event was created, so appointments catch up with the calendar.
type BookingReconciler struct {
	config       *config.Config
	queue        repository.PendingScheduleQueue
	appointments repository.AppointmentRepository
	logger       *zap.Logger

	stop chan struct{}
	done chan struct{}
}

func NewBookingReconciler(
	lc fx.Lifecycle,
	cfg *config.Config,
	queue repository.PendingScheduleQueue,
	appointments repository.AppointmentRepository,
	logger *zap.Logger,
) *BookingReconciler {
	r := &BookingReconciler{
		config:       cfg,
		queue:        queue,
		appointments: appointments,
		logger:       logger.Named("reconciler"),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go r.run()
			r.logger.Info("Booking reconciler started",
				zap.Duration("interval", cfg.Agenda.ReconcileInterval),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(r.stop)
			select {
			case <-r.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			r.logger.Info("Booking reconciler stopped")
			return nil
		},
	})

	return r
}

func (r *BookingReconciler) run() {
	defer close(r.done)

	interval := r.config.Agenda.ReconcileInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("Reconcile pass failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// RunOnce drains the queue once. Items that fail again are pushed back after
// the pass, or buried once they run out of attempts.
func (r *BookingReconciler) RunOnce(ctx context.Context) (int, error) {
	var (
		retry     []entity.PendingSchedule
		processed int
	)

	defer func() {
		for _, item := range retry {
			if err := r.queue.Push(ctx, item); err != nil {
				r.logger.Error("Failed to requeue pending schedule",
					zap.Int64("appointment_id", item.AppointmentID),
					zap.Error(err),
				)
			}
		}
	}()

	for {
		item, err := r.queue.Pop(ctx)
		if err != nil {
			return processed, err
		}
		if item == nil {
			return processed, nil
		}
		processed++

		err = r.appointments.MarkScheduled(ctx, item.ScheduleUpdate)
		if err == nil {
			r.logger.Info("Pending schedule applied",
				zap.String("company_id", item.CompanyID),
				zap.Int64("appointment_id", item.AppointmentID),
				zap.String("event_id", item.EventID),
				zap.Int("attempts", item.Attempts+1),
			)
			continue
		}

		item.Attempts++
		item.LastError = err.Error()

		if errors.Is(err, entity.ErrAppointmentNotFound) || item.Attempts >= r.maxAttempts() {
			r.logger.Error("Giving up on pending schedule, calendar event has no appointment",
				zap.String("company_id", item.CompanyID),
				zap.Int64("appointment_id", item.AppointmentID),
				zap.String("event_id", item.EventID),
				zap.Int("attempts", item.Attempts),
				zap.Error(err),
			)
			if buryErr := r.queue.Bury(ctx, *item); buryErr != nil {
				return processed, buryErr
			}
			continue
		}

		retry = append(retry, *item)
	}
}

func (r *BookingReconciler) maxAttempts() int {
	if r.config.Agenda.ReconcileMaxAttempts <= 0 {
		return 5
	}
	return r.config.Agenda.ReconcileMaxAttempts
}
