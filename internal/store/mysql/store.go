package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/store"

	"github.com/go-sql-driver/mysql"
)

//go:embed schema.sql
var schema string

const errDuplicateEntry = 1062

// txOptions runs every unit of work at READ COMMITTED. Checks made after the
// doctor row lock must see rows committed while waiting for it; InnoDB's
// default REPEATABLE READ would keep the snapshot of the first plain read.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&tx{q: sqlTx, locking: true}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(&tx{q: s.db})
}

type tx struct {
	q       queryer
	locking bool
}

func (t *tx) forUpdate() string {
	if t.locking {
		return " FOR UPDATE"
	}
	return ""
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == errDuplicateEntry {
		return store.ErrDuplicate
	}
	return err
}

func yn(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

/*
|--------------------------------------------------------------------------
| Clinic & Doctor
|--------------------------------------------------------------------------
*/

const clinicColumns = `id, slug, name, is_active, timezone, open_time, close_time, default_consultation_minutes`

func scanClinic(row *sql.Row) (models.Clinic, error) {
	var c models.Clinic
	var isActive string
	err := row.Scan(&c.ID, &c.Slug, &c.Name, &isActive, &c.Timezone, &c.OpenTime, &c.CloseTime, &c.DefaultConsultationMinutes)
	if err != nil {
		return models.Clinic{}, mapErr(err)
	}
	c.IsActive = isActive == "y"
	return c, nil
}

func (t *tx) GetClinic(ctx context.Context, clinicID int64) (models.Clinic, error) {
	return scanClinic(t.q.QueryRowContext(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = ?`, clinicID))
}

func (t *tx) GetClinicBySlug(ctx context.Context, slug string) (models.Clinic, error) {
	return scanClinic(t.q.QueryRowContext(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE slug = ?`, slug))
}

const doctorColumns = `id, clinic_id, name, is_active, consultation_price, re_consultation_price, total_revenue, is_available, status_message`

func (t *tx) getDoctor(ctx context.Context, clinicID, doctorID int64, lock bool) (models.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = ? AND clinic_id = ?`
	if lock {
		query += t.forUpdate()
	}

	var (
		d           models.Doctor
		isActive    string
		isAvailable string
		message     sql.NullString
	)
	err := t.q.QueryRowContext(ctx, query, doctorID, clinicID).Scan(
		&d.ID,
		&d.ClinicID,
		&d.Name,
		&isActive,
		&d.ConsultationPrice,
		&d.ReConsultationPrice,
		&d.TotalRevenue,
		&isAvailable,
		&message,
	)
	if err != nil {
		return models.Doctor{}, mapErr(err)
	}
	d.IsActive = isActive == "y"
	d.IsAvailable = isAvailable == "y"
	if message.Valid {
		d.StatusMessage = &message.String
	}
	return d, nil
}

func (t *tx) GetDoctor(ctx context.Context, clinicID, doctorID int64) (models.Doctor, error) {
	return t.getDoctor(ctx, clinicID, doctorID, false)
}

func (t *tx) LockDoctor(ctx context.Context, clinicID, doctorID int64) (models.Doctor, error) {
	return t.getDoctor(ctx, clinicID, doctorID, true)
}

func (t *tx) AddDoctorRevenue(ctx context.Context, doctorID, amount int64) error {
	res, err := t.q.ExecContext(ctx, `UPDATE doctors SET total_revenue = total_revenue + ? WHERE id = ?`, amount, doctorID)
	return affected(res, err)
}

func (t *tx) UpdateDoctorAvailability(ctx context.Context, clinicID, doctorID int64, available bool, message *string) error {
	// cek dulu, UPDATE dengan nilai sama bisa mengembalikan 0 affected rows
	if _, err := t.getDoctor(ctx, clinicID, doctorID, true); err != nil {
		return err
	}
	_, err := t.q.ExecContext(ctx, `
		UPDATE doctors SET is_available = ?, status_message = ?
		WHERE id = ? AND clinic_id = ?
	`, yn(available), nullString(message), doctorID, clinicID)
	return mapErr(err)
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

/*
|--------------------------------------------------------------------------
| Sequence
|--------------------------------------------------------------------------
*/

func (t *tx) NextSequence(ctx context.Context, clinicID, doctorID int64, day string) (int, error) {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO ticket_sequences (clinic_id, doctor_id, booking_day, last_number)
		VALUES (?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE last_number = last_number + 1
	`, clinicID, doctorID, day)
	if err != nil {
		return 0, mapErr(err)
	}

	// baris sudah terkunci oleh upsert di atas sampai commit
	var next int
	err = t.q.QueryRowContext(ctx, `
		SELECT last_number FROM ticket_sequences
		WHERE clinic_id = ? AND doctor_id = ? AND booking_day = ?
	`, clinicID, doctorID, day).Scan(&next)
	if err != nil {
		return 0, mapErr(err)
	}
	return next, nil
}

/*
|--------------------------------------------------------------------------
| Tickets
|--------------------------------------------------------------------------
*/

const ticketColumns = `id, clinic_id, doctor_id, patient_name, phone, age, chronic_diseases,
	consultation_reason, queue_number, status, queue_type, booking_day, booking_timestamp,
	consulting_start_time, finished_at, prescription_text, public_ticket_ref`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (models.Ticket, error) {
	var (
		tk           models.Ticket
		age          sql.NullInt64
		chronic      sql.NullString
		reason       sql.NullString
		startedAt    sql.NullTime
		finishedAt   sql.NullTime
		prescription sql.NullString
		publicRef    sql.NullString
	)
	err := row.Scan(
		&tk.ID,
		&tk.ClinicID,
		&tk.DoctorID,
		&tk.PatientName,
		&tk.Phone,
		&age,
		&chronic,
		&reason,
		&tk.QueueNumber,
		&tk.Status,
		&tk.QueueType,
		&tk.BookingDay,
		&tk.BookingTimestamp,
		&startedAt,
		&finishedAt,
		&prescription,
		&publicRef,
	)
	if err != nil {
		return models.Ticket{}, mapErr(err)
	}
	if age.Valid {
		v := int(age.Int64)
		tk.Age = &v
	}
	tk.ChronicDiseases = stringPtr(chronic)
	tk.ConsultationReason = stringPtr(reason)
	tk.ConsultingStartTime = timePtr(startedAt)
	tk.FinishedAt = timePtr(finishedAt)
	tk.PrescriptionText = stringPtr(prescription)
	tk.PublicTicketRef = stringPtr(publicRef)
	return tk, nil
}

func (t *tx) InsertTicket(ctx context.Context, tk models.Ticket) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO queue_tickets (`+ticketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tk.ID, tk.ClinicID, tk.DoctorID, tk.PatientName, tk.Phone,
		nullInt(tk.Age), nullString(tk.ChronicDiseases), nullString(tk.ConsultationReason),
		tk.QueueNumber, tk.Status, tk.QueueType, tk.BookingDay, tk.BookingTimestamp.UTC(),
		nullTime(tk.ConsultingStartTime), nullTime(tk.FinishedAt),
		nullString(tk.PrescriptionText), nullString(tk.PublicTicketRef),
	)
	return mapErr(err)
}

func (t *tx) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	return scanTicket(t.q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM queue_tickets WHERE id = ?`, ticketID))
}

func (t *tx) LockTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	return scanTicket(t.q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM queue_tickets WHERE id = ?`+t.forUpdate(), ticketID))
}

// UpdateTicket writes the mutable part of a ticket.
func (t *tx) UpdateTicket(ctx context.Context, tk models.Ticket) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE queue_tickets
		SET status = ?, consulting_start_time = ?, finished_at = ?, prescription_text = ?
		WHERE id = ?
	`, tk.Status, nullTime(tk.ConsultingStartTime), nullTime(tk.FinishedAt), nullString(tk.PrescriptionText), tk.ID)
	if err != nil {
		return mapErr(err)
	}
	// MySQL melaporkan 0 affected rows jika nilai tidak berubah
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = t.GetTicket(ctx, tk.ID)
		return err
	}
	return nil
}

func (t *tx) DeleteTicket(ctx context.Context, ticketID string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM queue_tickets WHERE id = ?`, ticketID)
	return affected(res, err)
}

func (t *tx) FindActiveTicketByPhone(ctx context.Context, clinicID, doctorID int64, day, phone string) (models.Ticket, bool, error) {
	tk, err := scanTicket(t.q.QueryRowContext(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE clinic_id = ? AND doctor_id = ? AND booking_day = ? AND phone = ?
		AND status IN ('waiting', 'consulting')
		ORDER BY queue_number ASC
		LIMIT 1
	`, clinicID, doctorID, day, phone))
	return found(tk, err)
}

func (t *tx) FindConsultingTicket(ctx context.Context, clinicID, doctorID int64) (models.Ticket, bool, error) {
	tk, err := scanTicket(t.q.QueryRowContext(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE clinic_id = ? AND doctor_id = ? AND status = 'consulting'
		LIMIT 1
	`, clinicID, doctorID))
	return found(tk, err)
}

func found(tk models.Ticket, err error) (models.Ticket, bool, error) {
	if errors.Is(err, store.ErrNotFound) {
		return models.Ticket{}, false, nil
	}
	if err != nil {
		return models.Ticket{}, false, err
	}
	return tk, true, nil
}

func (t *tx) ListTickets(ctx context.Context, f store.TicketFilter) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM queue_tickets WHERE clinic_id = ? AND doctor_id = ?`
	args := []any{f.ClinicID, f.DoctorID}

	if f.Day != "" {
		query += ` AND booking_day = ?`
		args = append(args, f.Day)
	}
	if f.Status != nil {
		query += ` AND status = ?`
		args = append(args, *f.Status)
	}
	if f.QueueType != nil {
		query += ` AND queue_type = ?`
		args = append(args, *f.QueueType)
	}
	query += ` ORDER BY queue_number ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	return t.queryTickets(ctx, query, args...)
}

func (t *tx) queryTickets(ctx context.Context, query string, args ...any) ([]models.Ticket, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var result []models.Ticket
	for rows.Next() {
		tk, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tk)
	}
	return result, rows.Err()
}

func (t *tx) CountWaiting(ctx context.Context, clinicID, doctorID int64, day string) (int, error) {
	var n int
	err := t.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM queue_tickets
		WHERE clinic_id = ? AND doctor_id = ? AND booking_day = ? AND status = 'waiting'
	`, clinicID, doctorID, day).Scan(&n)
	return n, mapErr(err)
}

func (t *tx) RecentFinished(ctx context.Context, clinicID, doctorID int64, day string, limit int) ([]models.Ticket, error) {
	return t.queryTickets(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE clinic_id = ? AND doctor_id = ? AND booking_day = ? AND status = 'finished'
		ORDER BY finished_at DESC
		LIMIT ?
	`, clinicID, doctorID, day, limit)
}

/*
|--------------------------------------------------------------------------
| Public tickets
|--------------------------------------------------------------------------
*/

func (t *tx) InsertPublicTicket(ctx context.Context, p models.PublicTicket) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO public_tickets
		(id, clinic_id, doctor_id, patient_id_ref, queue_number, queue_type, status,
		 display_name, phone_last4, booking_day, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.ClinicID, p.DoctorID, p.PatientIDRef, p.QueueNumber, p.QueueType, p.Status,
		nullString(p.DisplayName), p.PhoneLast4, p.BookingDay, p.ExpiresAt.UTC())
	return mapErr(err)
}

func (t *tx) GetPublicTicket(ctx context.Context, id string) (models.PublicTicket, error) {
	var (
		p           models.PublicTicket
		displayName sql.NullString
	)
	err := t.q.QueryRowContext(ctx, `
		SELECT id, clinic_id, doctor_id, patient_id_ref, queue_number, queue_type, status,
		       display_name, phone_last4, booking_day, expires_at
		FROM public_tickets
		WHERE id = ?
	`, id).Scan(
		&p.ID,
		&p.ClinicID,
		&p.DoctorID,
		&p.PatientIDRef,
		&p.QueueNumber,
		&p.QueueType,
		&p.Status,
		&displayName,
		&p.PhoneLast4,
		&p.BookingDay,
		&p.ExpiresAt,
	)
	if err != nil {
		return models.PublicTicket{}, mapErr(err)
	}
	p.DisplayName = stringPtr(displayName)
	return p, nil
}

func (t *tx) UpdatePublicTicketStatus(ctx context.Context, id string, status models.TicketStatus) error {
	_, err := t.q.ExecContext(ctx, `UPDATE public_tickets SET status = ? WHERE id = ?`, status, id)
	return mapErr(err)
}

func (t *tx) DeletePublicTicket(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM public_tickets WHERE id = ?`, id)
	return affected(res, err)
}

func (t *tx) DeleteExpiredPublicTickets(ctx context.Context, now time.Time) (int64, error) {
	res, err := t.q.ExecContext(ctx, `DELETE FROM public_tickets WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

/*
|--------------------------------------------------------------------------
| Queue state
|--------------------------------------------------------------------------
*/

func (t *tx) GetQueueState(ctx context.Context, clinicID, doctorID int64, day string) (models.QueueState, bool, error) {
	var (
		s         models.QueueState
		current   sql.NullInt64
		startedAt sql.NullTime
		average   sql.NullFloat64
		isOpen    string
	)
	err := t.q.QueryRowContext(ctx, `
		SELECT clinic_id, doctor_id, booking_day, current_consulting_queue_number,
		       current_consulting_started_at, total_waiting_count, average_wait_time_minutes,
		       is_open, updated_at
		FROM queue_states
		WHERE clinic_id = ? AND doctor_id = ? AND booking_day = ?
	`, clinicID, doctorID, day).Scan(
		&s.ClinicID,
		&s.DoctorID,
		&s.BookingDay,
		&current,
		&startedAt,
		&s.TotalWaitingCount,
		&average,
		&isOpen,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QueueState{}, false, nil
	}
	if err != nil {
		return models.QueueState{}, false, err
	}
	if current.Valid {
		n := int(current.Int64)
		s.CurrentConsultingQueueNumber = &n
	}
	s.CurrentConsultingStartedAt = timePtr(startedAt)
	if average.Valid {
		s.AverageWaitTimeMinutes = &average.Float64
	}
	s.IsOpen = isOpen == "y"
	return s, true, nil
}

func (t *tx) UpsertQueueState(ctx context.Context, s models.QueueState) error {
	var current, average any
	if s.CurrentConsultingQueueNumber != nil {
		current = *s.CurrentConsultingQueueNumber
	}
	if s.AverageWaitTimeMinutes != nil {
		average = *s.AverageWaitTimeMinutes
	}

	_, err := t.q.ExecContext(ctx, `
		INSERT INTO queue_states
		(clinic_id, doctor_id, booking_day, current_consulting_queue_number,
		 current_consulting_started_at, total_waiting_count, average_wait_time_minutes,
		 is_open, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			current_consulting_queue_number = VALUES(current_consulting_queue_number),
			current_consulting_started_at = VALUES(current_consulting_started_at),
			total_waiting_count = VALUES(total_waiting_count),
			average_wait_time_minutes = VALUES(average_wait_time_minutes),
			is_open = VALUES(is_open),
			updated_at = VALUES(updated_at)
	`, s.ClinicID, s.DoctorID, s.BookingDay, current, nullTime(s.CurrentConsultingStartedAt),
		s.TotalWaitingCount, average, yn(s.IsOpen), s.UpdatedAt.UTC())
	return mapErr(err)
}

/*
|--------------------------------------------------------------------------
| Null helpers
|--------------------------------------------------------------------------
*/

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC()
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
