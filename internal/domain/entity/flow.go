package entity

import (
	"bytes"
	"encoding/json"
)

// Flow actions sent by the WhatsApp client
const (
	FlowActionPing         = "ping"
	FlowActionInit         = "INIT"
	FlowActionDataExchange = "data_exchange"
)

// Flow screens, in booking order
const (
	ScreenAppointment = "APPOINTMENT"
	ScreenDetails     = "DETAILS"
	ScreenSummary     = "SUMMARY"
	ScreenSuccess     = "SUCCESS"
)

// FlowRequest is the decrypted body of a WhatsApp Flow data-exchange call.
// Data stays raw until the screen is known; see the *Input types below.
type FlowRequest struct {
	Version   string          `json:"version"`
	Action    string          `json:"action"`
	Screen    string          `json:"screen"`
	Data      json.RawMessage `json:"data,omitempty"`
	FlowToken string          `json:"flow_token"`
}

// ClientError returns the error the client reported, if any.
// Mirrors a truthiness check: null, false, 0 and "" do not count.
func (r *FlowRequest) ClientError() (json.RawMessage, bool) {
	if len(r.Data) == 0 {
		return nil, false
	}
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(r.Data, &probe); err != nil {
		return nil, false
	}
	v := bytes.TrimSpace(probe.Error)
	switch string(v) {
	case "", "null", "false", "0", `""`:
		return nil, false
	}
	return v, true
}

// DecodeData unmarshals the screen field bag into dst. Missing data is not an error.
func (r *FlowRequest) DecodeData(dst interface{}) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	return json.Unmarshal(r.Data, dst)
}

// AppointmentInput is what the APPOINTMENT screen sends on each selection change
type AppointmentInput struct {
	Date string `json:"date,omitempty"`
}

// DetailsInput is what the DETAILS screen submits
type DetailsInput struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	MoreDetails string `json:"more_details"`
}

// SummaryInput is what the SUMMARY screen submits: the echoed details plus
// the values computed when the summary was rendered.
type SummaryInput struct {
	DetailsInput
	Appointment      string `json:"appointment"`
	Details          string `json:"details"`
	BookingSignature string `json:"booking_signature,omitempty"`
}

// FlowResponse is the next-screen payload before encryption
type FlowResponse struct {
	Screen string      `json:"screen,omitempty"`
	Data   interface{} `json:"data"`
}

type DateOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type TimeOption struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Enabled bool   `json:"enabled"`
}

type AppointmentScreenData struct {
	Date          []DateOption `json:"date"`
	IsDateEnabled bool         `json:"is_date_enabled"`
	Time          []TimeOption `json:"time"`
	IsTimeEnabled bool         `json:"is_time_enabled"`
}

// SummaryScreenData echoes every DETAILS field back so SUMMARY can submit them
type SummaryScreenData struct {
	DetailsInput
	Appointment      string `json:"appointment"`
	Details          string `json:"details"`
	BookingSignature string `json:"booking_signature,omitempty"`
}

type SuccessScreenData struct {
	ExtensionMessageResponse ExtensionMessageResponse `json:"extension_message_response"`
}

type ExtensionMessageResponse struct {
	Params map[string]string `json:"params"`
}

type FlowStatusData struct {
	Status string `json:"status"`
}

type FlowAckData struct {
	Acknowledged bool `json:"acknowledged"`
}
