package queue

import (
	"math"
	"time"

	"backend-antrian-klinik/internal/models"
)

// PeopleAhead counts the patients still to be seen before queueNumber.
func PeopleAhead(queueNumber int, state models.QueueState) int {
	var ahead int
	if state.CurrentConsultingQueueNumber == nil {
		ahead = queueNumber - 1
	} else if queueNumber <= *state.CurrentConsultingQueueNumber {
		ahead = 0
	} else {
		ahead = queueNumber - *state.CurrentConsultingQueueNumber - 1
	}
	if ahead < 0 {
		return 0
	}
	return ahead
}

// PerPatientMinutes prefers the observed rolling average over the clinic default.
func PerPatientMinutes(state models.QueueState, clinicDefaultMinutes int) float64 {
	if state.AverageWaitTimeMinutes != nil && *state.AverageWaitTimeMinutes > 0 {
		return *state.AverageWaitTimeMinutes
	}
	if clinicDefaultMinutes < 0 {
		return 0
	}
	return float64(clinicDefaultMinutes)
}

// EstimateWaitMinutes is advisory and recomputed on every read.
func EstimateWaitMinutes(status models.TicketStatus, queueNumber int, state models.QueueState, clinicDefaultMinutes int, now time.Time) int {
	if status != models.StatusWaiting {
		return 0
	}

	per := PerPatientMinutes(state, clinicDefaultMinutes)
	total := float64(PeopleAhead(queueNumber, state)) * per

	if state.CurrentConsultingQueueNumber != nil {
		remaining := per
		if state.CurrentConsultingStartedAt != nil {
			remaining -= now.Sub(*state.CurrentConsultingStartedAt).Minutes()
		}
		total += math.Max(remaining, 0)
	}

	if total <= 0 {
		return 0
	}
	return int(math.Ceil(total))
}

// Estimate wraps EstimateWaitMinutes with the doctor's availability flag.
func Estimate(p models.PublicTicket, state models.QueueState, clinic models.Clinic, doctor models.Doctor, now time.Time) models.WaitEstimate {
	est := models.WaitEstimate{
		Minutes: EstimateWaitMinutes(p.Status, p.QueueNumber, state, clinic.DefaultConsultationMinutes, now),
		Paused:  !doctor.IsAvailable,
		Message: doctor.StatusMessage,
	}
	if p.Status == models.StatusWaiting {
		est.PeopleAhead = PeopleAhead(p.QueueNumber, state)
	}
	return est
}
