package models

import "time"

// QueueState - ringkasan antrian per dokter per hari, aman untuk dibaca publik
type QueueState struct {
	ClinicID                     int64      `json:"clinic_id"`
	DoctorID                     int64      `json:"doctor_id"`
	BookingDay                   string     `json:"booking_day"`
	CurrentConsultingQueueNumber *int       `json:"current_consulting_queue_number"`
	CurrentConsultingStartedAt   *time.Time `json:"current_consulting_started_at"`
	TotalWaitingCount            int        `json:"total_waiting_count"`
	AverageWaitTimeMinutes       *float64   `json:"average_wait_time_minutes"`
	IsOpen                       bool       `json:"is_open"`
	UpdatedAt                    time.Time  `json:"updated_at"`
}
