package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-antrian-klinik/internal/helper"
	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/sequence"
	"backend-antrian-klinik/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateTicket books a patient into a doctor's queue for today. Clinic and
// doctor are checked before a number is allocated, and the allocation, the
// ticket and its public projection commit together.
func (s *Service) CreateTicket(ctx context.Context, clinicSlug string, req models.CreateTicketRequest) (models.Ticket, error) {
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.Phone = strings.TrimSpace(req.Phone)

	if err := Validate(req); err != nil {
		s.metrics.Booking(result(err))
		return models.Ticket{}, err
	}

	var ticket models.Ticket
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		clinic, err := tx.GetClinicBySlug(ctx, clinicSlug)
		if err != nil {
			return notFound(err, ErrInvalidTarget)
		}
		if !clinic.IsActive {
			return ErrInvalidTarget
		}

		// kunci baris dokter: booking dan transisi per dokter berjalan berurutan
		doctor, err := tx.LockDoctor(ctx, clinic.ID, req.DoctorID)
		if err != nil {
			return notFound(err, ErrInvalidTarget)
		}
		if !doctor.IsActive {
			return ErrInvalidTarget
		}

		now := s.now()
		loc := clinic.Location()
		day := helper.BookingDay(now, loc)

		existing, found, err := tx.FindActiveTicketByPhone(ctx, clinic.ID, doctor.ID, day, req.Phone)
		if err != nil {
			return fmt.Errorf("check active ticket: %w", err)
		}
		if found {
			return &AlreadyBookedError{TicketID: existing.ID, QueueNumber: existing.QueueNumber}
		}

		number, err := s.alloc.Next(ctx, tx, sequence.Scope{ClinicID: clinic.ID, DoctorID: doctor.ID, Day: day})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAllocationFailure, err)
		}

		id := uuid.NewString()
		ticket = models.Ticket{
			ID:                 id,
			ClinicID:           clinic.ID,
			DoctorID:           doctor.ID,
			PatientName:        req.PatientName,
			Phone:              req.Phone,
			Age:                req.Age,
			ChronicDiseases:    req.ChronicDiseases,
			ConsultationReason: req.ConsultationReason,
			QueueNumber:        number,
			Status:             models.StatusWaiting,
			QueueType:          req.QueueType,
			BookingDay:         day,
			BookingTimestamp:   now.UTC(),
			PublicTicketRef:    &id,
		}
		if err := tx.InsertTicket(ctx, ticket); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: queue number %d already taken", ErrAllocationFailure, number)
			}
			return fmt.Errorf("insert ticket: %w", err)
		}

		if err := tx.InsertPublicTicket(ctx, s.projectTicket(ticket, helper.DayEnd(day, loc))); err != nil {
			return fmt.Errorf("insert public ticket: %w", err)
		}
		return nil
	})

	s.metrics.Booking(result(err))
	if err != nil {
		if Code(err) == "Internal" || errors.Is(err, ErrAllocationFailure) {
			s.log.Error("create ticket failed", zap.String("clinic", clinicSlug), zap.Int64("doctor_id", req.DoctorID), zap.Error(err))
		}
		return models.Ticket{}, err
	}

	s.log.Info("ticket booked",
		zap.String("ticket_id", ticket.ID),
		zap.Int64("clinic_id", ticket.ClinicID),
		zap.Int64("doctor_id", ticket.DoctorID),
		zap.Int("queue_number", ticket.QueueNumber),
		zap.String("booking_day", ticket.BookingDay),
	)
	return ticket, nil
}

// projectTicket builds the privacy-safe mirror of t.
func (s *Service) projectTicket(t models.Ticket, expiresAt time.Time) models.PublicTicket {
	p := models.PublicTicket{
		ID:           *t.PublicTicketRef,
		ClinicID:     t.ClinicID,
		DoctorID:     t.DoctorID,
		PatientIDRef: helper.PatientRef(s.refSecret, t.ClinicID, t.Phone),
		QueueNumber:  t.QueueNumber,
		QueueType:    t.QueueType,
		Status:       t.Status,
		PhoneLast4:   helper.PhoneLast4(t.Phone),
		BookingDay:   t.BookingDay,
		ExpiresAt:    expiresAt.UTC(),
	}
	if name := helper.DisplayName(t.PatientName); name != "" {
		p.DisplayName = &name
	}
	return p
}
