package entity

import "time"

// EventDraft is what the booking flow and the events API ask the calendar to create
type EventDraft struct {
	Summary       string     `json:"summary"`
	Description   string     `json:"description"`
	StartDateTime string     `json:"startDateTime"` // RFC3339
	EndDateTime   string     `json:"endDateTime"`   // RFC3339
	TimeZone      string     `json:"timeZone,omitempty"`
	Attendees     []Attendee `json:"attendees,omitempty"`
}

type Attendee struct {
	Email string `json:"email"`
}

// CalendarEvent is the provider event reduced to what this service reads
type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	// AllDay events carry only a date and never block an hourly slot
	AllDay      bool     `json:"all_day,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	MeetingLink string   `json:"meeting_link,omitempty"`
	HTMLLink    string   `json:"html_link,omitempty"`
}

// Overlaps is the half-open interval test: back-to-back events do not collide.
func (e CalendarEvent) Overlaps(start, end time.Time) bool {
	if e.AllDay || e.Start.IsZero() || e.End.IsZero() {
		return false
	}
	return e.Start.Before(end) && e.End.After(start)
}
