package queue

import (
	"context"
	"fmt"

	"backend-antrian-klinik/internal/helper"
	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/store"
)

// GetPublicTicket is the anonymous status lookup. It reads only the
// projection, never the clinical ticket, and treats expired projections as
// missing.
func (s *Service) GetPublicTicket(ctx context.Context, id string) (models.PublicTicketView, error) {
	var view models.PublicTicketView
	err := s.store.View(ctx, func(tx store.Tx) error {
		p, err := tx.GetPublicTicket(ctx, id)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		now := s.now()
		if p.Expired(now) {
			return ErrNotFound
		}

		clinic, err := tx.GetClinic(ctx, p.ClinicID)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		doctor, err := tx.GetDoctor(ctx, p.ClinicID, p.DoctorID)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		state, err := s.stateFor(ctx, tx, clinic, doctor.ID, p.BookingDay)
		if err != nil {
			return err
		}

		view = models.PublicTicketView{
			Ticket:     p,
			QueueState: state,
			Estimate:   Estimate(p, state, clinic, doctor, now),
		}
		return nil
	})
	return view, err
}

// GetQueueState returns today's state for a doctor, deriving it when nothing
// has been stored yet.
func (s *Service) GetQueueState(ctx context.Context, clinicID, doctorID int64) (models.QueueState, error) {
	var state models.QueueState
	err := s.store.View(ctx, func(tx store.Tx) error {
		clinic, err := tx.GetClinic(ctx, clinicID)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		if _, err := tx.GetDoctor(ctx, clinicID, doctorID); err != nil {
			return notFound(err, ErrNotFound)
		}
		day := helper.BookingDay(s.now(), clinic.Location())
		state, err = s.stateFor(ctx, tx, clinic, doctorID, day)
		return err
	})
	return state, err
}

func (s *Service) stateFor(ctx context.Context, tx store.Tx, clinic models.Clinic, doctorID int64, day string) (models.QueueState, error) {
	state, found, err := tx.GetQueueState(ctx, clinic.ID, doctorID, day)
	if err != nil {
		return models.QueueState{}, fmt.Errorf("get queue state: %w", err)
	}
	if found {
		// jam buka bisa berubah tanpa ada transisi tiket
		state.IsOpen = helper.IsQueueOpen(clinic.OpenTime, clinic.CloseTime, clinic.Location(), s.now())
		return state, nil
	}
	return s.projector.Derive(ctx, tx, clinic, doctorID, day)
}
