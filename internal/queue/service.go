// Package queue implements booking, the consultation state machine, the
// queue-state projection and the public read path for a clinic queue.
package queue

import (
	"context"
	"errors"
	"time"

	"backend-antrian-klinik/internal/helper"
	"backend-antrian-klinik/internal/metrics"
	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/sequence"
	"backend-antrian-klinik/internal/store"

	"go.uber.org/zap"
)

// LanePolicy decides how NextWaiting picks among waiting tickets.
type LanePolicy string

const (
	LaneSingle  LanePolicy = "single"
	LanePerType LanePolicy = "per_type"
)

// Notifier receives every QueueState after the transaction that produced it
// has committed.
type Notifier interface {
	PublishQueueState(ctx context.Context, state models.QueueState) error
}

type Options struct {
	Lanes           LanePolicy
	PublicRefSecret []byte
	Now             func() time.Time
}

type Service struct {
	store     store.Store
	alloc     sequence.Allocator
	notifier  Notifier
	projector Projector
	metrics   *metrics.Collector
	log       *zap.Logger

	lanes     LanePolicy
	refSecret []byte
	now       func() time.Time
}

func NewService(st store.Store, alloc sequence.Allocator, notifier Notifier, m *metrics.Collector, log *zap.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Lanes == "" {
		opts.Lanes = LaneSingle
	}
	if alloc == nil {
		alloc = sequence.SQL{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     st,
		alloc:     alloc,
		notifier:  notifier,
		projector: NewProjector(opts.Now),
		metrics:   m,
		log:       log,
		lanes:     opts.Lanes,
		refSecret: opts.PublicRefSecret,
		now:       opts.Now,
	}
}

// publish is best effort: QueueState is recomputable, so a lost notification
// only delays subscribers until the next change. Subscribers follow today's
// queue, so states of other days are not sent.
func (s *Service) publish(ctx context.Context, clinic models.Clinic, states ...models.QueueState) {
	if s.notifier == nil {
		return
	}
	today := helper.BookingDay(s.now(), clinic.Location())
	for _, st := range states {
		if st.BookingDay != today {
			continue
		}
		if err := s.notifier.PublishQueueState(ctx, st); err != nil {
			s.log.Warn("publish queue state failed",
				zap.Int64("clinic_id", st.ClinicID),
				zap.Int64("doctor_id", st.DoctorID),
				zap.Error(err),
			)
		}
	}
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return Code(err)
}

// notFound maps a store miss onto the given domain error.
func notFound(err error, as error) error {
	if errors.Is(err, store.ErrNotFound) {
		return as
	}
	return err
}
