package models

import "time"

type Clinic struct {
	ID                         int64  `json:"id"`
	Slug                       string `json:"slug"`
	Name                       string `json:"name"`
	IsActive                   bool   `json:"is_active"`
	Timezone                   string `json:"timezone"`
	OpenTime                   string `json:"open_time"`  // format: "HH:MM:SS"
	CloseTime                  string `json:"close_time"` // format: "HH:MM:SS"
	DefaultConsultationMinutes int    `json:"default_consultation_minutes"`
}

// Location falls back to UTC when the stored zone name is unknown.
func (c Clinic) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Doctor struct {
	ID                  int64   `json:"id"`
	ClinicID            int64   `json:"clinic_id"`
	Name                string  `json:"name"`
	IsActive            bool    `json:"is_active"`
	ConsultationPrice   int64   `json:"consultation_price"`
	ReConsultationPrice int64   `json:"re_consultation_price"`
	TotalRevenue        int64   `json:"total_revenue"`
	IsAvailable         bool    `json:"is_available"`
	StatusMessage       *string `json:"status_message,omitempty"`
}

// PriceFor - tarif sesuai jenis antrian
func (d Doctor) PriceFor(t QueueType) int64 {
	if t == QueueReConsultation {
		return d.ReConsultationPrice
	}
	return d.ConsultationPrice
}

type UpdateAvailabilityRequest struct {
	IsAvailable *bool   `json:"is_available" validate:"required"`
	Message     *string `json:"message" validate:"omitempty,max=280"`
}
