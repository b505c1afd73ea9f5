package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/store"
)

func ticket(id string, number int, status models.TicketStatus) models.Ticket {
	return models.Ticket{
		ID:          id,
		ClinicID:    1,
		DoctorID:    10,
		Phone:       "0101000000" + id,
		QueueNumber: number,
		Status:      status,
		QueueType:   models.QueueConsultation,
		BookingDay:  "2025-03-10",
	}
}

func TestInsertTicketUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertTicket(ctx, ticket("1", 1, models.StatusWaiting))
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertTicket(ctx, ticket("2", 1, models.StatusWaiting))
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("same queue number: expected ErrDuplicate, got %v", err)
	}

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertTicket(ctx, ticket("1", 2, models.StatusWaiting))
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("same id: expected ErrDuplicate, got %v", err)
	}
}

func TestWithTxRollback(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertTicket(ctx, ticket("1", 1, models.StatusWaiting)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetTicket(ctx, "1")
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rolled back ticket visible: %v", err)
	}
}

func TestViewCannotWrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.View(ctx, func(tx store.Tx) error {
		return tx.InsertTicket(ctx, ticket("1", 1, models.StatusWaiting))
	})
	err := s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetTicket(ctx, "1")
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("write inside View leaked: %v", err)
	}
}

func TestRecentFinishedOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		for i, id := range []string{"a", "b", "c"} {
			tk := ticket(id, i+1, models.StatusFinished)
			finished := base.Add(time.Duration(i) * time.Minute)
			tk.FinishedAt = &finished
			if err := tx.InsertTicket(ctx, tk); err != nil {
				return err
			}
		}
		return tx.InsertTicket(ctx, ticket("d", 4, models.StatusWaiting))
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		list, err := tx.RecentFinished(ctx, 1, 10, "2025-03-10", 2)
		if err != nil {
			t.Fatalf("recent: %v", err)
		}
		if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
			t.Fatalf("unexpected order %+v", list)
		}
		n, err := tx.CountWaiting(ctx, 1, 10, "2025-03-10")
		if err != nil || n != 1 {
			t.Fatalf("waiting = %d, %v", n, err)
		}
		return nil
	})
}
