package queue

import (
	"errors"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrAlreadyBooked      = errors.New("patient already has an active ticket for this doctor today")
	ErrInvalidTarget      = errors.New("clinic or doctor not found or inactive")
	ErrInvalidTransition  = errors.New("ticket is not in the required state")
	ErrDoctorBusy         = errors.New("doctor is already consulting another patient")
	ErrInvalidNextPatient = errors.New("next ticket is not a waiting ticket of the same doctor")
	ErrNotFound           = errors.New("not found")
	ErrAllocationFailure  = errors.New("queue number allocation failed")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AlreadyBookedError points the caller at the ticket that blocks the booking.
type AlreadyBookedError struct {
	TicketID    string
	QueueNumber int
}

func (e *AlreadyBookedError) Error() string {
	return ErrAlreadyBooked.Error()
}

func (e *AlreadyBookedError) Is(target error) bool {
	return target == ErrAlreadyBooked
}

// Code is the stable taxonomy name used in API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrAlreadyBooked):
		return "AlreadyBooked"
	case errors.Is(err, ErrInvalidTarget):
		return "InvalidTarget"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrDoctorBusy):
		return "DoctorBusy"
	case errors.Is(err, ErrInvalidNextPatient):
		return "InvalidNextPatient"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrAllocationFailure):
		return "AllocationFailure"
	}
	return "Internal"
}
