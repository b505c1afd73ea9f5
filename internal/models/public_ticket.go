package models

import "time"

// PublicTicket is the privacy-safe mirror of a Ticket. It never carries
// clinical fields, the prescription or the full phone number.
type PublicTicket struct {
	ID           string       `json:"id"`
	ClinicID     int64        `json:"clinic_id"`
	DoctorID     int64        `json:"doctor_id"`
	PatientIDRef string       `json:"patient_id_ref"`
	QueueNumber  int          `json:"queue_number"`
	QueueType    QueueType    `json:"queue_type"`
	Status       TicketStatus `json:"status"`
	DisplayName  *string      `json:"display_name,omitempty"`
	PhoneLast4   string       `json:"phone_last4"`
	BookingDay   string       `json:"booking_day"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

func (p PublicTicket) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

type WaitEstimate struct {
	Minutes     int     `json:"minutes"`
	PeopleAhead int     `json:"people_ahead"`
	Paused      bool    `json:"paused"`
	Message     *string `json:"message,omitempty"`
}

type PublicTicketView struct {
	Ticket     PublicTicket `json:"ticket"`
	QueueState QueueState   `json:"queue_state"`
	Estimate   WaitEstimate `json:"estimate"`
}
