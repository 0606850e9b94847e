package entity

import (
	"strings"
	"time"
)

// AppointmentStatus values as stored in the agenda database
const (
	AppointmentStatusNew       = "Nuevo"
	AppointmentStatusScheduled = "Agendado"
)

// Mentor is one row of the mentor roster
type Mentor struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"Nombre"`
	Email       string `json:"email" db:"Correo_electronico"`
	Phone       string `json:"phone,omitempty" db:"Telefono"`
	Profession  string `json:"profession,omitempty" db:"Profesion"`
	CalendarRef string `json:"calendar,omitempty" db:"Calendario"`
}

// Appointment is a booking request created upstream by the ticketing system
type Appointment struct {
	ID                  int64      `json:"id" db:"id"`
	TicketID            string     `json:"ticket_id,omitempty" db:"id_ticket_cliente"`
	CustomerName        string     `json:"customer_name" db:"nombre_completo"`
	CustomerPhone       string     `json:"customer_phone" db:"telefono"`
	CustomerEmail       string     `json:"customer_email,omitempty" db:"correo_electronico"`
	Status              string     `json:"status" db:"estado"`
	MentorID            *int64     `json:"mentor_id,omitempty" db:"nc_i3jc___mentores_id"`
	MeetingLink         *string    `json:"meeting_link,omitempty" db:"link_agenda"`
	ScheduledAtUTC      *time.Time `json:"scheduled_at,omitempty" db:"fecha_agenda"`
	LineOfBusinessID    int64      `json:"line_of_business_id" db:"nc_i3jc___lineas_atencion_id"`
	LineOfBusinessTitle string     `json:"line_of_business_title" db:"title"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// IsScheduled reports whether a booking flow already completed for this appointment.
func (a *Appointment) IsScheduled() bool {
	return strings.EqualFold(a.Status, AppointmentStatusScheduled)
}

// ScheduleUpdate is the single atomic update applied when a booking completes
type ScheduleUpdate struct {
	AppointmentID  int64     `json:"appointment_id"`
	MentorID       int64     `json:"mentor_id"`
	MeetingLink    string    `json:"meeting_link"`
	ScheduledAtUTC time.Time `json:"scheduled_at_utc"`
}

// PendingSchedule is a ScheduleUpdate whose write failed after the calendar
// event was already created. It waits in the compensation queue.
type PendingSchedule struct {
	ScheduleUpdate
	CompanyID string    `json:"company_id"`
	EventID   string    `json:"event_id"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}
