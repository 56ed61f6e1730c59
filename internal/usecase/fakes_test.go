package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/service"
	"opd-room-tracker/pkg/clock"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errStorage = errors.New("connection reset by peer")

// memStore is an in-memory stand-in for the database shared by all fake repositories.
type memStore struct {
	mu sync.Mutex

	rooms    map[int64]entity.Room
	doctors  map[int64]entity.Doctor
	patients map[int64]entity.Patient
	visits   map[int64]entity.Visit
	audits   []entity.AuditLog

	nextID int64
	// failOn makes the named operation return errStorage.
	failOn map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		rooms:    map[int64]entity.Room{},
		doctors:  map[int64]entity.Doctor{},
		patients: map[int64]entity.Patient{},
		visits:   map[int64]entity.Visit{},
		nextID:   1000,
		failOn:   map[string]bool{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) fail(op string) error {
	if s.failOn[op] {
		return errStorage
	}
	return nil
}

type snapshot struct {
	rooms    map[int64]entity.Room
	doctors  map[int64]entity.Doctor
	patients map[int64]entity.Patient
	visits   map[int64]entity.Visit
	audits   []entity.AuditLog
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		rooms:    map[int64]entity.Room{},
		doctors:  map[int64]entity.Doctor{},
		patients: map[int64]entity.Patient{},
		visits:   map[int64]entity.Visit{},
		audits:   append([]entity.AuditLog(nil), s.audits...),
	}
	for k, v := range s.rooms {
		snap.rooms[k] = v
	}
	for k, v := range s.doctors {
		snap.doctors[k] = v
	}
	for k, v := range s.patients {
		snap.patients[k] = v
	}
	for k, v := range s.visits {
		snap.visits[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms, s.doctors, s.patients, s.visits, s.audits = snap.rooms, snap.doctors, snap.patients, snap.visits, snap.audits
}

func (s *memStore) visitsOf(patientID int64) []entity.Visit {
	var out []entity.Visit
	for _, v := range s.visits {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, a := range s.audits {
		out = append(out, a.Action)
	}
	return out
}

// fakeTx runs fn directly and rolls the store back when fn fails.
type fakeTx struct {
	store *memStore
}

func (f *fakeTx) Conn(ctx context.Context) *gorm.DB { return nil }

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	snap := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

// ---- rooms ----

type fakeRoomRepo struct{ s *memStore }

func (r *fakeRoomRepo) Create(ctx context.Context, db *gorm.DB, room *entity.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("room.create"); err != nil {
		return err
	}
	if r.s.failOn["room.create.unique"] {
		return &pgconn.PgError{Code: "23505", ConstraintName: "uniq_rooms_active_identifier"}
	}
	room.ID = r.s.id()
	r.s.rooms[room.ID] = *room
	return nil
}

func (r *fakeRoomRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (r *fakeRoomRepo) FindActiveByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (*entity.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, room := range r.s.rooms {
		if room.Identifier == identifier && room.IsActive {
			return &room, nil
		}
	}
	return nil, nil
}

func (r *fakeRoomRepo) CountInactiveByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, room := range r.s.rooms {
		if room.Identifier == identifier && !room.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeRoomRepo) FindAll(ctx context.Context, db *gorm.DB, filter *entity.RoomFilter) ([]entity.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Room
	for _, room := range r.s.rooms {
		if filter != nil && filter.Active != nil && room.IsActive != *filter.Active {
			continue
		}
		if filter != nil && filter.Search != "" && !strings.Contains(room.Identifier, filter.Search) {
			continue
		}
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

func (r *fakeRoomRepo) SetActive(ctx context.Context, db *gorm.DB, id int64, active bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[id]
	if !ok {
		return 0, nil
	}
	room.IsActive = active
	r.s.rooms[id] = room
	return 1, nil
}

func (r *fakeRoomRepo) Delete(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("room.delete"); err != nil {
		return 0, err
	}
	if _, ok := r.s.rooms[id]; !ok {
		return 0, nil
	}
	delete(r.s.rooms, id)
	return 1, nil
}

// ---- doctors ----

type fakeDoctorRepo struct{ s *memStore }

func (r *fakeDoctorRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("doctor.find"); err != nil {
		return nil, err
	}
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *fakeDoctorRepo) UpdateRoom(ctx context.Context, db *gorm.DB, id int64, room string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.doctors[id]
	if !ok {
		return 0, nil
	}
	d.CurrentRoom, d.RoomAssignedAt = &room, &at
	r.s.doctors[id] = d
	return 1, nil
}

func (r *fakeDoctorRepo) withRoomBetween(from, to time.Time) []entity.Doctor {
	var out []entity.Doctor
	for _, d := range r.s.doctors {
		if d.CurrentRoom == nil || d.RoomAssignedAt == nil {
			continue
		}
		if d.RoomAssignedAt.Before(from) || !d.RoomAssignedAt.Before(to) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RoomAssignedAt.Equal(*out[j].RoomAssignedAt) {
			return out[i].RoomAssignedAt.After(*out[j].RoomAssignedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *fakeDoctorRepo) FindInRoomBetween(ctx context.Context, db *gorm.DB, room string, from, to time.Time) (*entity.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.withRoomBetween(from, to) {
		if *d.CurrentRoom == room {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *fakeDoctorRepo) FindWithRoomBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.withRoomBetween(from, to), nil
}

func (r *fakeDoctorRepo) CountByCurrentRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, d := range r.s.doctors {
		if d.CurrentRoom != nil && *d.CurrentRoom == room {
			n++
		}
	}
	return n, nil
}

func (r *fakeDoctorRepo) ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, d := range r.s.doctors {
		if d.CurrentRoom != nil && *d.CurrentRoom == room {
			d.CurrentRoom, d.RoomAssignedAt = nil, nil
			r.s.doctors[id] = d
			n++
		}
	}
	return n, nil
}

// ---- patients ----

type fakePatientRepo struct{ s *memStore }

func (r *fakePatientRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakePatientRepo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*entity.Patient, error) {
	return r.FindByID(ctx, db, id)
}

func (r *fakePatientRepo) UpdateBinding(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("patient.update"); err != nil {
		return err
	}
	p := r.s.patients[patient.ID]
	p.AssignedRoom, p.AssignedDoctorID, p.AssignedDoctorName = patient.AssignedRoom, patient.AssignedDoctorID, patient.AssignedDoctorName
	r.s.patients[patient.ID] = p
	return nil
}

func (r *fakePatientRepo) CountByAssignedRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.patients {
		if p.RoomIs(room) {
			n++
		}
	}
	return n, nil
}

func (r *fakePatientRepo) ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.patients {
		if p.RoomIs(room) {
			p.AssignedRoom, p.AssignedDoctorID, p.AssignedDoctorName = nil, nil, nil
			r.s.patients[id] = p
			n++
		}
	}
	return n, nil
}

// ---- visits ----

type fakeVisitRepo struct {
	s   *memStore
	now func() time.Time
}

func (r *fakeVisitRepo) insert(visit *entity.Visit) {
	visit.ID = r.s.id()
	visit.CreatedAt = r.now()
	visit.UpdatedAt = visit.CreatedAt
	r.s.visits[visit.ID] = *visit
}

func (r *fakeVisitRepo) slotTaken(patientID int64, date datatypes.Date) bool {
	for _, v := range r.s.visits {
		if v.PatientID == patientID && clock.SameDay(v.VisitDate, date) {
			return true
		}
	}
	return false
}

func (r *fakeVisitRepo) Create(ctx context.Context, db *gorm.DB, visit *entity.Visit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("visit.create"); err != nil {
		return err
	}
	r.insert(visit)
	return nil
}

func (r *fakeVisitRepo) InsertIfAbsent(ctx context.Context, db *gorm.DB, visit *entity.Visit) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("visit.create"); err != nil {
		return false, err
	}
	if r.slotTaken(visit.PatientID, visit.VisitDate) {
		return false, nil
	}
	r.insert(visit)
	return true, nil
}

func (r *fakeVisitRepo) Update(ctx context.Context, db *gorm.DB, visit *entity.Visit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("visit.update"); err != nil {
		return err
	}
	visit.UpdatedAt = r.now()
	r.s.visits[visit.ID] = *visit
	return nil
}

func (r *fakeVisitRepo) FindForPatientOnDate(ctx context.Context, db *gorm.DB, patientID int64, date datatypes.Date) (*entity.Visit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *entity.Visit
	for _, v := range r.s.visitsOf(patientID) {
		if !clock.SameDay(v.VisitDate, date) {
			continue
		}
		v := v
		if best == nil || v.CreatedAt.After(best.CreatedAt) || (v.CreatedAt.Equal(best.CreatedAt) && v.ID > best.ID) {
			best = &v
		}
	}
	return best, nil
}

func (r *fakeVisitRepo) FindAllOnDate(ctx context.Context, db *gorm.DB, date datatypes.Date) ([]entity.Visit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Visit
	for _, v := range r.s.visits {
		if clock.SameDay(v.VisitDate, date) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeVisitRepo) CountByPatient(ctx context.Context, db *gorm.DB, patientID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.visitsOf(patientID))), nil
}

func (r *fakeVisitRepo) CompleteIfOpen(ctx context.Context, db *gorm.DB, id int64, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.visits[id]
	if !ok || v.IsCompleted() {
		return 0, nil
	}
	v.VisitStatus, v.UpdatedAt = entity.VisitStatusCompleted, at
	r.s.visits[id] = v
	return 1, nil
}

func (r *fakeVisitRepo) CompleteStaleBefore(ctx context.Context, db *gorm.DB, date datatypes.Date, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("visit.sweep"); err != nil {
		return 0, err
	}
	var n int64
	for id, v := range r.s.visits {
		if clock.Before(v.VisitDate, date) && !v.IsCompleted() {
			v.VisitStatus, v.UpdatedAt = entity.VisitStatusCompleted, at
			r.s.visits[id] = v
			n++
		}
	}
	return n, nil
}

func (r *fakeVisitRepo) FindPatientNamesInRoomOnDate(ctx context.Context, db *gorm.DB, room string, date datatypes.Date) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, v := range r.s.visits {
		if v.RoomNo == nil || *v.RoomNo != room || !clock.SameDay(v.VisitDate, date) {
			continue
		}
		name := r.s.patients[v.PatientID].FullName
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeVisitRepo) CountByRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, v := range r.s.visits {
		if v.RoomNo != nil && *v.RoomNo == room {
			n++
		}
	}
	return n, nil
}

func (r *fakeVisitRepo) ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, v := range r.s.visits {
		if v.RoomNo != nil && *v.RoomNo == room {
			v.RoomNo = nil
			r.s.visits[id] = v
			n++
		}
	}
	return n, nil
}

// ---- audit ----

type fakeAuditRepo struct{ s *memStore }

func (r *fakeAuditRepo) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("audit.create"); err != nil {
		return err
	}
	log.ID = r.s.id()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

func (r *fakeAuditRepo) FindAll(ctx context.Context, db *gorm.DB, limit, offset int) ([]entity.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := int64(len(r.s.audits))
	if offset >= len(r.s.audits) {
		return []entity.AuditLog{}, total, nil
	}
	end := offset + limit
	if end > len(r.s.audits) {
		end = len(r.s.audits)
	}
	return append([]entity.AuditLog(nil), r.s.audits[offset:end]...), total, nil
}

func (r *fakeAuditRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.audits {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

// ---- slot locker ----

type fakeSlots struct {
	mu       sync.Mutex
	held     map[string]*sync.Mutex
	acquired int
	err      error
}

func (f *fakeSlots) Lock(ctx context.Context, patientID int64, day datatypes.Date) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	if f.held == nil {
		f.held = map[string]*sync.Mutex{}
	}
	key := fmt.Sprintf("%d:%s", patientID, clock.Format(day))
	m, ok := f.held[key]
	if !ok {
		m = &sync.Mutex{}
		f.held[key] = m
	}
	f.acquired++
	f.mu.Unlock()

	m.Lock()
	var once sync.Once
	return func() { once.Do(m.Unlock) }, nil
}

// ---- fixture ----

var ist = mustLoad("Asia/Kolkata")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type fixture struct {
	store      *memStore
	clock      *clock.Fixed
	slots      *fakeSlots
	rooms      RoomUsecase
	doctorRoom DoctorRoomUsecase
	visits     VisitUsecase
	assign     AssignmentUsecase
	audits     AuditLogUsecase
}

// newFixture starts the clock at 2026-10-17 10:00 IST.
func newFixture() *fixture {
	store := newMemStore()
	clk := clock.NewFixed(time.Date(2026, 10, 17, 10, 0, 0, 0, ist), ist)
	slots := &fakeSlots{}

	log := logrus.New()
	log.SetOutput(io.Discard)

	tx := &fakeTx{store: store}
	roomRepo := &fakeRoomRepo{s: store}
	doctorRepo := &fakeDoctorRepo{s: store}
	patientRepo := &fakePatientRepo{s: store}
	visitRepo := &fakeVisitRepo{s: store, now: clk.Now}
	auditRepo := &fakeAuditRepo{s: store}
	auditSvc := service.NewAuditService(log, auditRepo)

	return &fixture{
		store:      store,
		clock:      clk,
		slots:      slots,
		rooms:      NewRoomUsecase(tx, log, clk, roomRepo, doctorRepo, patientRepo, visitRepo, auditSvc),
		doctorRoom: NewDoctorRoomUsecase(tx, log, clk, doctorRepo, roomRepo, visitRepo, auditSvc),
		visits:     NewVisitUsecase(tx, log, clk, doctorRepo, visitRepo, slots, auditSvc),
		assign:     NewAssignmentUsecase(tx, log, clk, roomRepo, doctorRepo, patientRepo, visitRepo, slots, auditSvc),
		audits:     NewAuditLogUsecase(tx, log, auditRepo),
	}
}

func (f *fixture) addRoom(identifier string, active bool) entity.Room {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	room := entity.Room{ID: f.store.id(), Identifier: identifier, IsActive: active}
	f.store.rooms[room.ID] = room
	return room
}

func (f *fixture) addDoctor(id int64, name string) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.doctors[id] = entity.Doctor{ID: id, FullName: name, IsActive: true}
}

// seatDoctor records a room selection made at the given instant.
func (f *fixture) seatDoctor(id int64, room string, at time.Time) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	d := f.store.doctors[id]
	d.CurrentRoom, d.RoomAssignedAt = &room, &at
	f.store.doctors[id] = d
}

func (f *fixture) addPatient(id int64, name string) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.patients[id] = entity.Patient{ID: id, FullName: name, RecordNumber: "MRN-" + name}
}

func (f *fixture) addVisit(v entity.Visit) entity.Visit {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	v.ID = f.store.id()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Time(v.VisitDate)
	}
	f.store.visits[v.ID] = v
	return v
}

func (f *fixture) patient(id int64) entity.Patient {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.patients[id]
}

func (f *fixture) visit(id int64) entity.Visit {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.visits[id]
}

func (f *fixture) visitCount(patientID int64) int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return len(f.store.visitsOf(patientID))
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }
