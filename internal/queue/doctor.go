package queue

import (
	"context"
	"fmt"

	"backend-antrian-klinik/internal/helper"
	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/store"

	"go.uber.org/zap"
)

// SetAvailability stores the doctor's availability flag and message. Tickets
// are left untouched; the estimator reports the queue as paused.
func (s *Service) SetAvailability(ctx context.Context, clinicID, doctorID int64, req models.UpdateAvailabilityRequest) (models.Doctor, error) {
	if err := Validate(req); err != nil {
		return models.Doctor{}, err
	}

	var doctor models.Doctor
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		d, err := tx.LockDoctor(ctx, clinicID, doctorID)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		if err := tx.UpdateDoctorAvailability(ctx, clinicID, doctorID, *req.IsAvailable, req.Message); err != nil {
			return fmt.Errorf("update availability: %w", err)
		}
		d.IsAvailable = *req.IsAvailable
		d.StatusMessage = req.Message
		doctor = d
		return nil
	})
	if err != nil {
		return models.Doctor{}, err
	}

	s.log.Info("doctor availability changed", zap.Int64("doctor_id", doctorID), zap.Bool("available", doctor.IsAvailable))
	return doctor, nil
}

// QueueFilter narrows the staff listing. An empty Day means today in the
// clinic's timezone.
type QueueFilter struct {
	Day       string
	Status    *models.TicketStatus
	QueueType *models.QueueType
}

// ListQueue is the staff view of a doctor's tickets, ordered by queue number.
func (s *Service) ListQueue(ctx context.Context, clinicID, doctorID int64, f QueueFilter) ([]models.Ticket, error) {
	var list []models.Ticket
	err := s.store.View(ctx, func(tx store.Tx) error {
		day, err := s.resolveDay(ctx, tx, clinicID, doctorID, f.Day)
		if err != nil {
			return err
		}
		list, err = tx.ListTickets(ctx, store.TicketFilter{
			ClinicID:  clinicID,
			DoctorID:  doctorID,
			Day:       day,
			Status:    f.Status,
			QueueType: f.QueueType,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Ticket{}
	}
	return list, nil
}

// NextWaiting returns the lowest-numbered Waiting ticket. With per-type lanes
// the lane argument restricts the pick to one queue type.
func (s *Service) NextWaiting(ctx context.Context, clinicID, doctorID int64, day string, lane *models.QueueType) (models.Ticket, error) {
	if s.lanes != LanePerType {
		lane = nil
	}
	if lane != nil && !lane.Valid() {
		return models.Ticket{}, &ValidationError{Fields: []string{"queue_type harus salah satu dari: consultation re_consultation"}}
	}

	var next models.Ticket
	err := s.store.View(ctx, func(tx store.Tx) error {
		d, err := s.resolveDay(ctx, tx, clinicID, doctorID, day)
		if err != nil {
			return err
		}
		waiting := models.StatusWaiting
		list, err := tx.ListTickets(ctx, store.TicketFilter{
			ClinicID:  clinicID,
			DoctorID:  doctorID,
			Day:       d,
			Status:    &waiting,
			QueueType: lane,
			Limit:     1,
		})
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return ErrNotFound
		}
		next = list[0]
		return nil
	})
	return next, err
}

// Reconcile rebuilds the stored QueueState from the day's tickets.
func (s *Service) Reconcile(ctx context.Context, clinicID, doctorID int64, day string) (models.QueueState, error) {
	var (
		state  models.QueueState
		clinic models.Clinic
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		clinic, err = tx.GetClinic(ctx, clinicID)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		if _, err := tx.LockDoctor(ctx, clinicID, doctorID); err != nil {
			return notFound(err, ErrNotFound)
		}
		if day == "" {
			day = helper.BookingDay(s.now(), clinic.Location())
		}
		state, err = s.projector.Refresh(ctx, tx, clinic, doctorID, day)
		return err
	})
	if err != nil {
		return models.QueueState{}, err
	}
	s.publish(ctx, clinic, state)
	return state, nil
}

func (s *Service) resolveDay(ctx context.Context, tx store.Tx, clinicID, doctorID int64, day string) (string, error) {
	clinic, err := tx.GetClinic(ctx, clinicID)
	if err != nil {
		return "", notFound(err, ErrNotFound)
	}
	if _, err := tx.GetDoctor(ctx, clinicID, doctorID); err != nil {
		return "", notFound(err, ErrNotFound)
	}
	if day != "" {
		return day, nil
	}
	return helper.BookingDay(s.now(), clinic.Location()), nil
}

// TicketDoctor returns the doctor a ticket of clinicID is booked with. The
// doctor of a ticket never changes after booking.
func (s *Service) TicketDoctor(ctx context.Context, clinicID int64, ticketID string) (int64, error) {
	var doctorID int64
	err := s.store.View(ctx, func(tx store.Tx) error {
		t, err := tx.GetTicket(ctx, ticketID)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		if t.ClinicID != clinicID {
			return ErrNotFound
		}
		doctorID = t.DoctorID
		return nil
	})
	return doctorID, err
}
