package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/domain/repository"
	"mentor-agenda/internal/infrastructure/database"
)

type mentorRepository struct {
	db             *database.Database
	pinnedMentorID int64
}

func NewMentorRepository(cfg *config.Config, db *database.Database) repository.MentorRepository {
	return &mentorRepository{
		db:             db,
		pinnedMentorID: cfg.Agenda.PinnedMentorID,
	}
}

// FindAll shuffles the roster on every call so the first free mentor is not
// always the same one.
func (r *mentorRepository) FindAll(ctx context.Context) ([]entity.Mentor, error) {
	query := `
		SELECT id, "Nombre", "Correo_electronico", "Telefono", "Profesion", "Calendario"
		FROM public.nc_i3jc___mentores
	`
	var args []interface{}
	if r.pinnedMentorID != 0 {
		query += ` WHERE id = $1`
		args = append(args, r.pinnedMentorID)
	}
	query += ` ORDER BY RANDOM()`

	rows, err := r.db.AgendaDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mentors: %w", err)
	}
	defer rows.Close()

	var mentors []entity.Mentor
	for rows.Next() {
		var m entity.Mentor
		var name, email, phone, profession, calendarRef sql.NullString
		if err := rows.Scan(&m.ID, &name, &email, &phone, &profession, &calendarRef); err != nil {
			return nil, fmt.Errorf("failed to scan mentor: %w", err)
		}
		m.Name = name.String
		m.Email = strings.TrimSpace(email.String)
		m.Phone = phone.String
		m.Profession = profession.String
		m.CalendarRef = calendarRef.String
		mentors = append(mentors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mentors: %w", err)
	}

	return mentors, nil
}

type appointmentRepository struct {
	db *database.Database
}

func NewAppointmentRepository(db *database.Database) repository.AppointmentRepository {
	return &appointmentRepository{
		db: db,
	}
}

func (r *appointmentRepository) FindByPhone(ctx context.Context, phone string) ([]entity.Appointment, error) {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")

	query := `
		SELECT a.id, a.id_ticket_cliente, a.nombre_completo, a.telefono, a.correo_electronico,
		       a.estado, a.nc_i3jc___mentores_id, a.link_agenda, a.fecha_agenda,
		       a.nc_i3jc___lineas_atencion_id, l.title, a.created_at
		FROM public."nc_i3jc___Agendamientos" a
		JOIN public.nc_i3jc___lineas_atencion l ON a.nc_i3jc___lineas_atencion_id = l.id
		WHERE a.telefono = $1
		ORDER BY a.id DESC
	`

	rows, err := r.db.AgendaDB.QueryContext(ctx, query, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch appointments by phone: %w", err)
	}
	defer rows.Close()

	var appointments []entity.Appointment
	for rows.Next() {
		var a entity.Appointment
		var ticketID, name, tel, email, status, link, title sql.NullString
		var mentorID sql.NullInt64
		var scheduledAt, createdAt sql.NullTime

		if err := rows.Scan(
			&a.ID, &ticketID, &name, &tel, &email,
			&status, &mentorID, &link, &scheduledAt,
			&a.LineOfBusinessID, &title, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}

		a.TicketID = ticketID.String
		a.CustomerName = name.String
		a.CustomerPhone = tel.String
		a.CustomerEmail = email.String
		a.Status = status.String
		a.LineOfBusinessTitle = title.String
		a.CreatedAt = createdAt.Time
		if mentorID.Valid {
			a.MentorID = &mentorID.Int64
		}
		if link.Valid {
			a.MeetingLink = &link.String
		}
		if scheduledAt.Valid {
			a.ScheduledAtUTC = &scheduledAt.Time
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return appointments, nil
}

func (r *appointmentRepository) MarkScheduled(ctx context.Context, update entity.ScheduleUpdate) error {
	query := `
		UPDATE public."nc_i3jc___Agendamientos"
		SET estado = $1, nc_i3jc___mentores_id = $2, link_agenda = $3, fecha_agenda = $4, updated_at = $5
		WHERE id = $6
	`

	res, err := r.db.AgendaDB.ExecContext(ctx, query,
		entity.AppointmentStatusScheduled,
		update.MentorID,
		update.MeetingLink,
		update.ScheduledAtUTC.UTC(),
		time.Now(),
		update.AppointmentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("appointment %d: %w", update.AppointmentID, entity.ErrAppointmentNotFound)
	}

	return nil
}
