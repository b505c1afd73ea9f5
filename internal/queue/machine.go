package queue

import (
	"context"
	"errors"
	"fmt"

	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/store"

	"go.uber.org/zap"
)

// locked is a ticket together with the rows a transition needs, read after
// the doctor row lock was taken.
type locked struct {
	clinic models.Clinic
	doctor models.Doctor
	ticket models.Ticket
}

// lockTicket takes the doctor lock first and the ticket lock second. Every
// writer uses this order.
func lockTicket(ctx context.Context, tx store.Tx, clinicID int64, ticketID string) (locked, error) {
	t, err := tx.GetTicket(ctx, ticketID)
	if err != nil {
		return locked{}, notFound(err, ErrNotFound)
	}
	// tiket klinik lain diperlakukan seperti tidak ada
	if t.ClinicID != clinicID {
		return locked{}, ErrNotFound
	}

	clinic, err := tx.GetClinic(ctx, clinicID)
	if err != nil {
		return locked{}, notFound(err, ErrNotFound)
	}
	doctor, err := tx.LockDoctor(ctx, clinicID, t.DoctorID)
	if err != nil {
		return locked{}, notFound(err, ErrNotFound)
	}
	t, err = tx.LockTicket(ctx, ticketID)
	if err != nil {
		return locked{}, notFound(err, ErrNotFound)
	}
	return locked{clinic: clinic, doctor: doctor, ticket: t}, nil
}

func setPublicStatus(ctx context.Context, tx store.Tx, t models.Ticket) error {
	if t.PublicTicketRef == nil {
		return nil
	}
	err := tx.UpdatePublicTicketStatus(ctx, *t.PublicTicketRef, t.Status)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("update public ticket: %w", err)
	}
	// proyeksi yang sudah kedaluwarsa boleh hilang
	return nil
}

// StartConsulting moves a Waiting ticket to Consulting. At most one ticket per
// doctor may be Consulting at a time.
func (s *Service) StartConsulting(ctx context.Context, clinicID int64, ticketID string) (models.Ticket, error) {
	var (
		ticket models.Ticket
		state  models.QueueState
		clinic models.Clinic
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := lockTicket(ctx, tx, clinicID, ticketID)
		if err != nil {
			return err
		}
		clinic = l.clinic
		if !ValidTransition(ActionStart, l.ticket.Status) {
			return fmt.Errorf("%w: cannot start a %s ticket", ErrInvalidTransition, l.ticket.Status)
		}

		busy, found, err := tx.FindConsultingTicket(ctx, clinicID, l.doctor.ID)
		if err != nil {
			return fmt.Errorf("find consulting: %w", err)
		}
		if found && busy.ID != l.ticket.ID {
			return ErrDoctorBusy
		}

		ticket, err = s.begin(ctx, tx, l.ticket)
		if err != nil {
			return err
		}
		state, err = s.projector.OnConsultingStarted(ctx, tx, l.clinic, ticket)
		return err
	})

	s.metrics.Transition(string(ActionStart), result(err))
	if err != nil {
		return models.Ticket{}, err
	}
	s.publish(ctx, clinic, state)
	s.log.Info("consultation started", zap.String("ticket_id", ticket.ID), zap.Int("queue_number", ticket.QueueNumber))
	return ticket, nil
}

// FinishConsultation closes a Consulting ticket and accrues the doctor's fee
// for its queue type.
func (s *Service) FinishConsultation(ctx context.Context, clinicID int64, ticketID string, req models.FinishRequest) (models.Ticket, error) {
	if err := Validate(req); err != nil {
		return models.Ticket{}, err
	}

	var (
		ticket models.Ticket
		state  models.QueueState
		clinic models.Clinic
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := lockTicket(ctx, tx, clinicID, ticketID)
		if err != nil {
			return err
		}
		clinic = l.clinic

		ticket, err = s.finish(ctx, tx, l, req.PrescriptionText)
		if err != nil {
			return err
		}
		state, err = s.projector.Refresh(ctx, tx, l.clinic, l.doctor.ID, ticket.BookingDay)
		return err
	})

	s.metrics.Transition(string(ActionFinish), result(err))
	if err != nil {
		return models.Ticket{}, err
	}
	s.publish(ctx, clinic, state)
	s.log.Info("consultation finished", zap.String("ticket_id", ticket.ID), zap.Int("queue_number", ticket.QueueNumber))
	return ticket, nil
}

// FinishAndCallNext finishes currentID and starts the next patient in one
// transaction. Either both changes are visible or neither is.
func (s *Service) FinishAndCallNext(ctx context.Context, clinicID int64, currentID string, req models.FinishAndCallNextRequest) (finished, next models.Ticket, err error) {
	if err := Validate(req); err != nil {
		return models.Ticket{}, models.Ticket{}, err
	}
	if req.NextTicketID == currentID {
		return models.Ticket{}, models.Ticket{}, ErrInvalidNextPatient
	}

	var (
		states []models.QueueState
		clinic models.Clinic
	)
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := lockTicket(ctx, tx, clinicID, currentID)
		if err != nil {
			return err
		}
		clinic = l.clinic
		if !ValidTransition(ActionFinish, l.ticket.Status) {
			return fmt.Errorf("%w: cannot finish a %s ticket", ErrInvalidTransition, l.ticket.Status)
		}

		candidate, err := tx.LockTicket(ctx, req.NextTicketID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidNextPatient
			}
			return fmt.Errorf("lock next ticket: %w", err)
		}
		if candidate.ClinicID != clinicID || candidate.DoctorID != l.doctor.ID ||
			!ValidTransition(ActionStart, candidate.Status) {
			return ErrInvalidNextPatient
		}

		finished, err = s.finish(ctx, tx, l, req.PrescriptionText)
		if err != nil {
			return err
		}
		next, err = s.begin(ctx, tx, candidate)
		if err != nil {
			return err
		}

		if finished.BookingDay != next.BookingDay {
			st, err := s.projector.Refresh(ctx, tx, l.clinic, l.doctor.ID, finished.BookingDay)
			if err != nil {
				return err
			}
			states = append(states, st)
		}
		st, err := s.projector.OnConsultingStarted(ctx, tx, l.clinic, next)
		if err != nil {
			return err
		}
		states = append(states, st)
		return nil
	})

	s.metrics.Transition(string(ActionNext), result(err))
	if err != nil {
		return models.Ticket{}, models.Ticket{}, err
	}
	s.publish(ctx, clinic, states...)
	s.log.Info("consultation handed over",
		zap.String("finished_ticket_id", finished.ID),
		zap.String("next_ticket_id", next.ID),
		zap.Int("queue_number", next.QueueNumber),
	)
	return finished, next, nil
}

// CancelTicket removes a Waiting ticket and its public projection. A stored
// QueueState for the day is refreshed; none is created.
func (s *Service) CancelTicket(ctx context.Context, clinicID int64, ticketID string) error {
	var (
		state     models.QueueState
		clinic    models.Clinic
		refreshed bool
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := lockTicket(ctx, tx, clinicID, ticketID)
		if err != nil {
			return err
		}
		clinic = l.clinic
		if !ValidTransition(ActionCancel, l.ticket.Status) {
			return fmt.Errorf("%w: cannot cancel a %s ticket", ErrInvalidTransition, l.ticket.Status)
		}

		if err := tx.DeleteTicket(ctx, l.ticket.ID); err != nil {
			return fmt.Errorf("delete ticket: %w", err)
		}
		if l.ticket.PublicTicketRef != nil {
			err := tx.DeletePublicTicket(ctx, *l.ticket.PublicTicketRef)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("delete public ticket: %w", err)
			}
		}

		_, exists, err := tx.GetQueueState(ctx, clinicID, l.doctor.ID, l.ticket.BookingDay)
		if err != nil {
			return fmt.Errorf("get queue state: %w", err)
		}
		if !exists {
			return nil
		}
		state, err = s.projector.Refresh(ctx, tx, l.clinic, l.doctor.ID, l.ticket.BookingDay)
		refreshed = err == nil
		return err
	})

	s.metrics.Transition(string(ActionCancel), result(err))
	if err != nil {
		return err
	}
	if refreshed {
		s.publish(ctx, clinic, state)
	}
	s.log.Info("ticket cancelled", zap.String("ticket_id", ticketID))
	return nil
}

func (s *Service) begin(ctx context.Context, tx store.Tx, t models.Ticket) (models.Ticket, error) {
	now := s.now().UTC()
	t.Status = models.StatusConsulting
	t.ConsultingStartTime = &now
	if err := tx.UpdateTicket(ctx, t); err != nil {
		return models.Ticket{}, fmt.Errorf("update ticket: %w", err)
	}
	if err := setPublicStatus(ctx, tx, t); err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

func (s *Service) finish(ctx context.Context, tx store.Tx, l locked, prescription *string) (models.Ticket, error) {
	t := l.ticket
	if !ValidTransition(ActionFinish, t.Status) {
		return models.Ticket{}, fmt.Errorf("%w: cannot finish a %s ticket", ErrInvalidTransition, t.Status)
	}

	now := s.now().UTC()
	t.Status = models.StatusFinished
	t.FinishedAt = &now
	if prescription != nil {
		t.PrescriptionText = prescription
	}
	if err := tx.UpdateTicket(ctx, t); err != nil {
		return models.Ticket{}, fmt.Errorf("update ticket: %w", err)
	}
	if err := setPublicStatus(ctx, tx, t); err != nil {
		return models.Ticket{}, err
	}

	if fee := l.doctor.PriceFor(t.QueueType); fee != 0 {
		if err := tx.AddDoctorRevenue(ctx, l.doctor.ID, fee); err != nil {
			return models.Ticket{}, fmt.Errorf("add revenue: %w", err)
		}
	}
	return t, nil
}
