package store

import (
	"context"
	"errors"
	"time"

	"backend-antrian-klinik/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type TicketFilter struct {
	ClinicID  int64
	DoctorID  int64
	Day       string
	Status    *models.TicketStatus
	QueueType *models.QueueType
	Limit     int
}

// Tx is the unit of work every queue operation runs in. Lock* methods take a
// row lock for the rest of the transaction; the plain getters do not.
type Tx interface {
	GetClinic(ctx context.Context, clinicID int64) (models.Clinic, error)
	GetClinicBySlug(ctx context.Context, slug string) (models.Clinic, error)
	GetDoctor(ctx context.Context, clinicID, doctorID int64) (models.Doctor, error)
	LockDoctor(ctx context.Context, clinicID, doctorID int64) (models.Doctor, error)
	AddDoctorRevenue(ctx context.Context, doctorID, amount int64) error
	UpdateDoctorAvailability(ctx context.Context, clinicID, doctorID int64, available bool, message *string) error

	NextSequence(ctx context.Context, clinicID, doctorID int64, day string) (int, error)

	InsertTicket(ctx context.Context, t models.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	LockTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	UpdateTicket(ctx context.Context, t models.Ticket) error
	DeleteTicket(ctx context.Context, ticketID string) error
	FindActiveTicketByPhone(ctx context.Context, clinicID, doctorID int64, day, phone string) (models.Ticket, bool, error)
	FindConsultingTicket(ctx context.Context, clinicID, doctorID int64) (models.Ticket, bool, error)
	// ListTickets orders by queue number ascending.
	ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error)
	CountWaiting(ctx context.Context, clinicID, doctorID int64, day string) (int, error)
	// RecentFinished orders by finished_at descending.
	RecentFinished(ctx context.Context, clinicID, doctorID int64, day string, limit int) ([]models.Ticket, error)

	InsertPublicTicket(ctx context.Context, p models.PublicTicket) error
	GetPublicTicket(ctx context.Context, id string) (models.PublicTicket, error)
	UpdatePublicTicketStatus(ctx context.Context, id string, status models.TicketStatus) error
	DeletePublicTicket(ctx context.Context, id string) error
	DeleteExpiredPublicTickets(ctx context.Context, now time.Time) (int64, error)

	GetQueueState(ctx context.Context, clinicID, doctorID int64, day string) (models.QueueState, bool, error)
	UpsertQueueState(ctx context.Context, s models.QueueState) error
}

type Store interface {
	// WithTx commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// View runs read-only work without row locks.
	View(ctx context.Context, fn func(tx Tx) error) error
}
