package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/queue"
	"backend-antrian-klinik/internal/store"

	"github.com/google/uuid"
)

func setupTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	st := NewStore(db)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st, db
}

func TestTransactionsRunAtReadCommitted(t *testing.T) {
	if txOptions == nil || txOptions.Isolation != sql.LevelReadCommitted {
		t.Fatalf("expected READ COMMITTED, got %+v", txOptions)
	}
}

func seedDoctor(t *testing.T, db *sql.DB) (clinicID, doctorID int64) {
	t.Helper()
	clinicID, doctorID, _ = seedClinicDoctor(t, db)
	return clinicID, doctorID
}

// seedClinicDoctor creates a clinic open all day in UTC with one doctor.
func seedClinicDoctor(t *testing.T, db *sql.DB) (clinicID, doctorID int64, slug string) {
	t.Helper()
	ctx := context.Background()
	slug = "uji-" + uuid.NewString()

	res, err := db.ExecContext(ctx, `INSERT INTO clinics (slug, name, timezone, open_time, close_time)
		VALUES (?, 'Klinik Uji', 'UTC', '00:00:00', '23:59:59')`, slug)
	if err != nil {
		t.Fatalf("seed clinic: %v", err)
	}
	clinicID, _ = res.LastInsertId()

	res, err = db.ExecContext(ctx, `INSERT INTO doctors (clinic_id, name, consultation_price) VALUES (?, 'dr. Uji', 50)`, clinicID)
	if err != nil {
		t.Fatalf("seed doctor: %v", err)
	}
	doctorID, _ = res.LastInsertId()
	return clinicID, doctorID, slug
}

func TestNextSequenceConcurrent(t *testing.T) {
	st, db := setupTestStore(t)
	clinicID, doctorID := seedDoctor(t, db)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	got := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := st.WithTx(ctx, func(tx store.Tx) error {
				num, err := tx.NextSequence(ctx, clinicID, doctorID, "2025-03-10")
				if err != nil {
					return err
				}
				got <- num
				return nil
			})
			if err != nil {
				t.Errorf("next sequence: %v", err)
			}
		}()
	}
	wg.Wait()
	close(got)

	seen := make(map[int]bool)
	for num := range got {
		if seen[num] {
			t.Fatalf("number %d issued twice", num)
		}
		seen[num] = true
	}
	for i := 1; i <= n; i++ {
		if !seen[i] {
			t.Fatalf("number %d missing", i)
		}
	}
}

func TestTicketRoundTripAndDuplicate(t *testing.T) {
	st, db := setupTestStore(t)
	clinicID, doctorID := seedDoctor(t, db)
	ctx := context.Background()

	age := 40
	id := uuid.NewString()
	tk := models.Ticket{
		ID:               id,
		ClinicID:         clinicID,
		DoctorID:         doctorID,
		PatientName:      "Mona Ahmed",
		Phone:            "01012345678",
		Age:              &age,
		QueueNumber:      1,
		Status:           models.StatusWaiting,
		QueueType:        models.QueueConsultation,
		BookingDay:       "2025-03-10",
		BookingTimestamp: time.Now().UTC().Truncate(time.Second),
		PublicTicketRef:  &id,
	}
	if err := st.WithTx(ctx, func(tx store.Tx) error { return tx.InsertTicket(ctx, tk) }); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := tk
	dup.ID = uuid.NewString()
	err := st.WithTx(ctx, func(tx store.Tx) error { return tx.InsertTicket(ctx, dup) })
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	err = st.View(ctx, func(tx store.Tx) error {
		got, err := tx.GetTicket(ctx, id)
		if err != nil {
			return err
		}
		if got.Age == nil || *got.Age != 40 || got.QueueNumber != 1 || got.Status != models.StatusWaiting {
			t.Fatalf("unexpected ticket %+v", got)
		}
		active, found, err := tx.FindActiveTicketByPhone(ctx, clinicID, doctorID, "2025-03-10", "01012345678")
		if err != nil || !found || active.ID != id {
			t.Fatalf("active ticket lookup: %v %v %+v", err, found, active)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestQueueStateUpsert(t *testing.T) {
	st, db := setupTestStore(t)
	clinicID, doctorID := seedDoctor(t, db)
	ctx := context.Background()

	current := 3
	avg := 12.5
	state := models.QueueState{
		ClinicID:                     clinicID,
		DoctorID:                     doctorID,
		BookingDay:                   "2025-03-10",
		CurrentConsultingQueueNumber: &current,
		TotalWaitingCount:            4,
		AverageWaitTimeMinutes:       &avg,
		IsOpen:                       true,
		UpdatedAt:                    time.Now().UTC().Truncate(time.Second),
	}
	for i := 0; i < 2; i++ {
		if err := st.WithTx(ctx, func(tx store.Tx) error { return tx.UpsertQueueState(ctx, state) }); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		state.TotalWaitingCount++
	}

	err := st.View(ctx, func(tx store.Tx) error {
		got, found, err := tx.GetQueueState(ctx, clinicID, doctorID, "2025-03-10")
		if err != nil || !found {
			t.Fatalf("get: %v %v", err, found)
		}
		if got.TotalWaitingCount != 5 || got.CurrentConsultingQueueNumber == nil || *got.CurrentConsultingQueueNumber != 3 {
			t.Fatalf("unexpected state %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestServiceStartConsultingConcurrentlyAllowsOne(t *testing.T) {
	st, db := setupTestStore(t)
	clinicID, doctorID, slug := seedClinicDoctor(t, db)
	svc := queue.NewService(st, nil, nil, nil, nil, queue.Options{})
	ctx := context.Background()
	const n = 5

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tk, err := svc.CreateTicket(ctx, slug, models.CreateTicketRequest{
			DoctorID:    doctorID,
			PatientName: "Pasien Uji",
			Phone:       fmt.Sprintf("0101234567%d", i),
			QueueType:   models.QueueConsultation,
		})
		if err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
		ids = append(ids, tk.ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.StartConsulting(ctx, clinicID, id)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var ok, busy int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, queue.ErrDoctorBusy):
			busy++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || busy != n-1 {
		t.Fatalf("ok=%d busy=%d", ok, busy)
	}

	var consulting int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_tickets
		WHERE clinic_id = ? AND doctor_id = ? AND status = ?`, clinicID, doctorID, models.StatusConsulting).Scan(&consulting)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if consulting != 1 {
		t.Fatalf("expected 1 consulting ticket, got %d", consulting)
	}
}

func TestServiceCreateTicketConcurrentDuplicateBooksOnce(t *testing.T) {
	st, db := setupTestStore(t)
	clinicID, doctorID, slug := seedClinicDoctor(t, db)
	svc := queue.NewService(st, nil, nil, nil, nil, queue.Options{})
	ctx := context.Background()
	const n = 8

	req := models.CreateTicketRequest{
		DoctorID:    doctorID,
		PatientName: "Pasien Uji",
		Phone:       "01012345678",
		QueueType:   models.QueueConsultation,
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateTicket(ctx, slug, req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, booked int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, queue.ErrAlreadyBooked):
			booked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || booked != n-1 {
		t.Fatalf("ok=%d already_booked=%d", ok, booked)
	}

	var tickets int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_tickets
		WHERE clinic_id = ? AND doctor_id = ? AND phone = ?`, clinicID, doctorID, req.Phone).Scan(&tickets)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if tickets != 1 {
		t.Fatalf("expected 1 ticket, got %d", tickets)
	}
}
