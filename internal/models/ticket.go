package models

import (
	"time"
)

type TicketStatus string

const (
	StatusWaiting    TicketStatus = "waiting"
	StatusConsulting TicketStatus = "consulting"
	StatusFinished   TicketStatus = "finished"
)

func (s TicketStatus) Active() bool {
	return s == StatusWaiting || s == StatusConsulting
}

type QueueType string

const (
	QueueConsultation   QueueType = "consultation"
	QueueReConsultation QueueType = "re_consultation"
)

func (t QueueType) Valid() bool {
	return t == QueueConsultation || t == QueueReConsultation
}

// Ticket - satu booking pasien untuk satu kunjungan
type Ticket struct {
	ID                  string       `json:"id"`
	ClinicID            int64        `json:"clinic_id"`
	DoctorID            int64        `json:"doctor_id"`
	PatientName         string       `json:"patient_name"`
	Phone               string       `json:"phone"`
	Age                 *int         `json:"age,omitempty"`
	ChronicDiseases     *string      `json:"chronic_diseases,omitempty"`
	ConsultationReason  *string      `json:"consultation_reason,omitempty"`
	QueueNumber         int          `json:"queue_number"`
	Status              TicketStatus `json:"status"`
	QueueType           QueueType    `json:"queue_type"`
	BookingDay          string       `json:"booking_day"` // YYYY-MM-DD, timezone klinik
	BookingTimestamp    time.Time    `json:"booking_timestamp"`
	ConsultingStartTime *time.Time   `json:"consulting_start_time,omitempty"`
	FinishedAt          *time.Time   `json:"finished_at,omitempty"`
	PrescriptionText    *string      `json:"prescription_text,omitempty"`
	PublicTicketRef     *string      `json:"public_ticket_ref,omitempty"`
}

// ConsultationMinutes returns the observed consultation length, if the
// ticket went through both transitions.
func (t Ticket) ConsultationMinutes() (float64, bool) {
	if t.ConsultingStartTime == nil || t.FinishedAt == nil {
		return 0, false
	}
	d := t.FinishedAt.Sub(*t.ConsultingStartTime)
	if d < 0 {
		return 0, false
	}
	return d.Minutes(), true
}

type CreateTicketRequest struct {
	DoctorID           int64     `json:"doctor_id" validate:"required,gt=0"`
	PatientName        string    `json:"patient_name" validate:"required,min=2,max=100"`
	Phone              string    `json:"phone" validate:"required,clinicphone"`
	Age                *int      `json:"age" validate:"omitempty,min=0,max=130"`
	ChronicDiseases    *string   `json:"chronic_diseases" validate:"omitempty,max=500"`
	ConsultationReason *string   `json:"consultation_reason" validate:"omitempty,max=500"`
	QueueType          QueueType `json:"queue_type" validate:"required,oneof=consultation re_consultation"`
	RecaptchaToken     string    `json:"recaptcha_token"`
}

type FinishRequest struct {
	PrescriptionText *string `json:"prescription_text" validate:"omitempty,max=5000"`
}

type FinishAndCallNextRequest struct {
	NextTicketID     string  `json:"next_ticket_id" validate:"required,uuid"`
	PrescriptionText *string `json:"prescription_text" validate:"omitempty,max=5000"`
}
