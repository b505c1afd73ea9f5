package queue

import (
	"context"
	"fmt"
	"time"

	"backend-antrian-klinik/internal/helper"
	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/store"
)

// RollingWindow is how many finished consultations feed the average.
const RollingWindow = 5

// Projector maintains the per-doctor, per-day QueueState. Every value is
// derived from today's tickets, so the stored row can always be rebuilt.
type Projector struct {
	now func() time.Time
}

func NewProjector(now func() time.Time) Projector {
	if now == nil {
		now = time.Now
	}
	return Projector{now: now}
}

// Derive computes the state without writing it.
func (p Projector) Derive(ctx context.Context, tx store.Tx, clinic models.Clinic, doctorID int64, day string) (models.QueueState, error) {
	now := p.now()
	state := models.QueueState{
		ClinicID:   clinic.ID,
		DoctorID:   doctorID,
		BookingDay: day,
		IsOpen:     helper.IsQueueOpen(clinic.OpenTime, clinic.CloseTime, clinic.Location(), now),
		UpdatedAt:  now.UTC(),
	}

	waiting, err := tx.CountWaiting(ctx, clinic.ID, doctorID, day)
	if err != nil {
		return models.QueueState{}, fmt.Errorf("count waiting: %w", err)
	}
	state.TotalWaitingCount = waiting

	current, found, err := tx.FindConsultingTicket(ctx, clinic.ID, doctorID)
	if err != nil {
		return models.QueueState{}, fmt.Errorf("find consulting: %w", err)
	}
	if found && current.BookingDay == day {
		n := current.QueueNumber
		state.CurrentConsultingQueueNumber = &n
		state.CurrentConsultingStartedAt = current.ConsultingStartTime
	}

	recent, err := tx.RecentFinished(ctx, clinic.ID, doctorID, day, RollingWindow)
	if err != nil {
		return models.QueueState{}, fmt.Errorf("recent finished: %w", err)
	}
	state.AverageWaitTimeMinutes = rollingAverage(recent)

	return state, nil
}

// Refresh recomputes and stores the state.
func (p Projector) Refresh(ctx context.Context, tx store.Tx, clinic models.Clinic, doctorID int64, day string) (models.QueueState, error) {
	state, err := p.Derive(ctx, tx, clinic, doctorID, day)
	if err != nil {
		return models.QueueState{}, err
	}
	if err := tx.UpsertQueueState(ctx, state); err != nil {
		return models.QueueState{}, fmt.Errorf("upsert queue state: %w", err)
	}
	return state, nil
}

// OnConsultingStarted records ticket as the one being served. The ticket
// write must already be part of tx.
func (p Projector) OnConsultingStarted(ctx context.Context, tx store.Tx, clinic models.Clinic, ticket models.Ticket) (models.QueueState, error) {
	state, err := p.Derive(ctx, tx, clinic, ticket.DoctorID, ticket.BookingDay)
	if err != nil {
		return models.QueueState{}, err
	}
	n := ticket.QueueNumber
	state.CurrentConsultingQueueNumber = &n
	state.CurrentConsultingStartedAt = ticket.ConsultingStartTime

	if err := tx.UpsertQueueState(ctx, state); err != nil {
		return models.QueueState{}, fmt.Errorf("upsert queue state: %w", err)
	}
	return state, nil
}

func rollingAverage(finished []models.Ticket) *float64 {
	var (
		sum float64
		n   int
	)
	for _, t := range finished {
		if m, ok := t.ConsultationMinutes(); ok {
			sum += m
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
