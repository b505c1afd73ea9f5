// Package sequence hands out per-doctor, per-day queue numbers.
package sequence

import (
	"context"
	"fmt"

	"backend-antrian-klinik/internal/store"
)

type Scope struct {
	ClinicID int64
	DoctorID int64
	Day      string
}

func (s Scope) String() string {
	return fmt.Sprintf("clinic:%d:doctor:%d:%s", s.ClinicID, s.DoctorID, s.Day)
}

// Allocator must never hand the same number to two bookings in one scope.
// tx is the booking transaction; allocators that keep their counter
// elsewhere ignore it.
type Allocator interface {
	Next(ctx context.Context, tx store.Tx, scope Scope) (int, error)
}

// SQL keeps the counter in the same database as the tickets, so a rolled
// back booking also rolls back its number.
type SQL struct{}

func (SQL) Next(ctx context.Context, tx store.Tx, scope Scope) (int, error) {
	n, err := tx.NextSequence(ctx, scope.ClinicID, scope.DoctorID, scope.Day)
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", scope, err)
	}
	return n, nil
}
