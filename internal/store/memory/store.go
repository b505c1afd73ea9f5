// Package memory is a transactional in-process store. Transactions run one at
// a time against a copy of the data that replaces the live copy on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/store"
)

type data struct {
	clinics   map[int64]models.Clinic
	doctors   map[int64]models.Doctor
	tickets   map[string]models.Ticket
	public    map[string]models.PublicTicket
	states    map[string]models.QueueState
	sequences map[string]int
}

func newData() *data {
	return &data{
		clinics:   make(map[int64]models.Clinic),
		doctors:   make(map[int64]models.Doctor),
		tickets:   make(map[string]models.Ticket),
		public:    make(map[string]models.PublicTicket),
		states:    make(map[string]models.QueueState),
		sequences: make(map[string]int),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.clinics {
		c.clinics[k] = v
	}
	for k, v := range d.doctors {
		c.doctors[k] = v
	}
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	for k, v := range d.public {
		c.public[k] = v
	}
	for k, v := range d.states {
		c.states[k] = v
	}
	for k, v := range d.sequences {
		c.sequences[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	data *data
}

func New() *Store {
	return &Store{data: newData()}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(&tx{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	// salinan supaya fn tidak bisa mengubah data live
	return fn(&tx{d: s.data.clone()})
}

// PutClinic and PutDoctor seed reference data that is provisioned outside
// the queue service.
func (s *Store) PutClinic(c models.Clinic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.clinics[c.ID] = c
}

func (s *Store) PutDoctor(d models.Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.doctors[d.ID] = d
}

type tx struct {
	d *data
}

func stateKey(clinicID, doctorID int64, day string) string {
	return fmt.Sprintf("%d:%d:%s", clinicID, doctorID, day)
}

func (t *tx) GetClinic(_ context.Context, clinicID int64) (models.Clinic, error) {
	c, ok := t.d.clinics[clinicID]
	if !ok {
		return models.Clinic{}, store.ErrNotFound
	}
	return c, nil
}

func (t *tx) GetClinicBySlug(_ context.Context, slug string) (models.Clinic, error) {
	for _, c := range t.d.clinics {
		if c.Slug == slug {
			return c, nil
		}
	}
	return models.Clinic{}, store.ErrNotFound
}

func (t *tx) GetDoctor(_ context.Context, clinicID, doctorID int64) (models.Doctor, error) {
	d, ok := t.d.doctors[doctorID]
	if !ok || d.ClinicID != clinicID {
		return models.Doctor{}, store.ErrNotFound
	}
	return d, nil
}

func (t *tx) LockDoctor(ctx context.Context, clinicID, doctorID int64) (models.Doctor, error) {
	return t.GetDoctor(ctx, clinicID, doctorID)
}

func (t *tx) AddDoctorRevenue(_ context.Context, doctorID, amount int64) error {
	d, ok := t.d.doctors[doctorID]
	if !ok {
		return store.ErrNotFound
	}
	d.TotalRevenue += amount
	t.d.doctors[doctorID] = d
	return nil
}

func (t *tx) UpdateDoctorAvailability(_ context.Context, clinicID, doctorID int64, available bool, message *string) error {
	d, ok := t.d.doctors[doctorID]
	if !ok || d.ClinicID != clinicID {
		return store.ErrNotFound
	}
	d.IsAvailable = available
	d.StatusMessage = message
	t.d.doctors[doctorID] = d
	return nil
}

func (t *tx) NextSequence(_ context.Context, clinicID, doctorID int64, day string) (int, error) {
	key := stateKey(clinicID, doctorID, day)
	t.d.sequences[key]++
	return t.d.sequences[key], nil
}

func (t *tx) InsertTicket(_ context.Context, tk models.Ticket) error {
	if _, ok := t.d.tickets[tk.ID]; ok {
		return store.ErrDuplicate
	}
	for _, other := range t.d.tickets {
		if other.ClinicID == tk.ClinicID && other.DoctorID == tk.DoctorID &&
			other.BookingDay == tk.BookingDay && other.QueueNumber == tk.QueueNumber {
			return store.ErrDuplicate
		}
	}
	t.d.tickets[tk.ID] = tk
	return nil
}

func (t *tx) GetTicket(_ context.Context, ticketID string) (models.Ticket, error) {
	tk, ok := t.d.tickets[ticketID]
	if !ok {
		return models.Ticket{}, store.ErrNotFound
	}
	return tk, nil
}

func (t *tx) LockTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	return t.GetTicket(ctx, ticketID)
}

func (t *tx) UpdateTicket(_ context.Context, tk models.Ticket) error {
	if _, ok := t.d.tickets[tk.ID]; !ok {
		return store.ErrNotFound
	}
	t.d.tickets[tk.ID] = tk
	return nil
}

func (t *tx) DeleteTicket(_ context.Context, ticketID string) error {
	if _, ok := t.d.tickets[ticketID]; !ok {
		return store.ErrNotFound
	}
	delete(t.d.tickets, ticketID)
	return nil
}

func (t *tx) FindActiveTicketByPhone(_ context.Context, clinicID, doctorID int64, day, phone string) (models.Ticket, bool, error) {
	for _, tk := range t.d.tickets {
		if tk.ClinicID == clinicID && tk.DoctorID == doctorID && tk.BookingDay == day &&
			tk.Phone == phone && tk.Status.Active() {
			return tk, true, nil
		}
	}
	return models.Ticket{}, false, nil
}

func (t *tx) FindConsultingTicket(_ context.Context, clinicID, doctorID int64) (models.Ticket, bool, error) {
	for _, tk := range t.d.tickets {
		if tk.ClinicID == clinicID && tk.DoctorID == doctorID && tk.Status == models.StatusConsulting {
			return tk, true, nil
		}
	}
	return models.Ticket{}, false, nil
}

func (t *tx) ListTickets(_ context.Context, f store.TicketFilter) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, tk := range t.d.tickets {
		if tk.ClinicID != f.ClinicID || tk.DoctorID != f.DoctorID {
			continue
		}
		if f.Day != "" && tk.BookingDay != f.Day {
			continue
		}
		if f.Status != nil && tk.Status != *f.Status {
			continue
		}
		if f.QueueType != nil && tk.QueueType != *f.QueueType {
			continue
		}
		out = append(out, tk)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QueueNumber < out[j].QueueNumber
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *tx) CountWaiting(ctx context.Context, clinicID, doctorID int64, day string) (int, error) {
	waiting := models.StatusWaiting
	list, err := t.ListTickets(ctx, store.TicketFilter{ClinicID: clinicID, DoctorID: doctorID, Day: day, Status: &waiting})
	return len(list), err
}

func (t *tx) RecentFinished(ctx context.Context, clinicID, doctorID int64, day string, limit int) ([]models.Ticket, error) {
	finished := models.StatusFinished
	list, err := t.ListTickets(ctx, store.TicketFilter{ClinicID: clinicID, DoctorID: doctorID, Day: day, Status: &finished})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return finishedAt(list[i]).After(finishedAt(list[j]))
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func finishedAt(tk models.Ticket) time.Time {
	if tk.FinishedAt == nil {
		return time.Time{}
	}
	return *tk.FinishedAt
}

func (t *tx) InsertPublicTicket(_ context.Context, p models.PublicTicket) error {
	if _, ok := t.d.public[p.ID]; ok {
		return store.ErrDuplicate
	}
	t.d.public[p.ID] = p
	return nil
}

func (t *tx) GetPublicTicket(_ context.Context, id string) (models.PublicTicket, error) {
	p, ok := t.d.public[id]
	if !ok {
		return models.PublicTicket{}, store.ErrNotFound
	}
	return p, nil
}

func (t *tx) UpdatePublicTicketStatus(_ context.Context, id string, status models.TicketStatus) error {
	p, ok := t.d.public[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	t.d.public[id] = p
	return nil
}

func (t *tx) DeletePublicTicket(_ context.Context, id string) error {
	if _, ok := t.d.public[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.d.public, id)
	return nil
}

func (t *tx) DeleteExpiredPublicTickets(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, p := range t.d.public {
		if p.Expired(now) {
			delete(t.d.public, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) GetQueueState(_ context.Context, clinicID, doctorID int64, day string) (models.QueueState, bool, error) {
	s, ok := t.d.states[stateKey(clinicID, doctorID, day)]
	return s, ok, nil
}

func (t *tx) UpsertQueueState(_ context.Context, s models.QueueState) error {
	t.d.states[stateKey(s.ClinicID, s.DoctorID, s.BookingDay)] = s
	return nil
}
