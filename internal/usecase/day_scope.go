package usecase

import (
	"context"
	"strings"

	"opd-room-tracker/internal/delivery/http/middleware"
	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/domain/repository"
	"opd-room-tracker/pkg/clock"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SlotLocker serializes writers of one patient's visit slot for one civil day.
// The returned func releases the slot and is safe to call once.
type SlotLocker interface {
	Lock(ctx context.Context, patientID int64, day datatypes.Date) (func(), error)
}

// dayScope holds the "today" lookups shared by the usecases. Every method takes the
// *gorm.DB to run on so coordinator transactions can reuse it.
type dayScope struct {
	clock      clock.Clock
	doctorRepo repository.DoctorRepository
	visitRepo  repository.VisitRepository
}

// doctorRoomToday loads the doctor and resolves the room selected today, if any.
func (s dayScope) doctorRoomToday(ctx context.Context, db *gorm.DB, doctorID int64) (*entity.Doctor, string, bool, error) {
	doctor, err := s.doctorRepo.FindByID(ctx, db, doctorID)
	if err != nil {
		return nil, "", false, internalError("find doctor", err)
	}
	if doctor == nil {
		return nil, "", false, ErrDoctorNotFound
	}
	room, ok := doctor.RoomOn(s.clock.Today(), s.clock.Location())
	return doctor, room, ok, nil
}

// doctorInRoomToday returns whoever selected room during today's civil bounds,
// latest selection first. Nil means the room is unstaffed today.
func (s dayScope) doctorInRoomToday(ctx context.Context, db *gorm.DB, room string) (*entity.Doctor, error) {
	from, to := s.clock.DayBounds(s.clock.Today())
	doctor, err := s.doctorRepo.FindInRoomBetween(ctx, db, room, from, to)
	if err != nil {
		return nil, internalError("find doctor in room", err)
	}
	return doctor, nil
}

// markCompleted completes the visit for (patientID, date), creating it directly as
// completed from the fallbacks when none exists. A nil visit means nothing to do.
func (s dayScope) markCompleted(ctx context.Context, db *gorm.DB, patientID int64, date datatypes.Date, fallbackDoctorID *int64, fallbackRoom *string) (*entity.Visit, error) {
	visit, err := s.visitRepo.FindForPatientOnDate(ctx, db, patientID, date)
	if err != nil {
		return nil, internalError("find visit", err)
	}

	if visit == nil {
		prior, err := s.visitRepo.CountByPatient(ctx, db, patientID)
		if err != nil {
			return nil, internalError("count visits", err)
		}

		visit = &entity.Visit{
			PatientID:        patientID,
			VisitDate:        date,
			RoomNo:           fallbackRoom,
			AssignedDoctorID: fallbackDoctorID,
			VisitType:        entity.VisitTypeFor(prior),
			VisitStatus:      entity.VisitStatusCompleted,
		}
		inserted, err := s.visitRepo.InsertIfAbsent(ctx, db, visit)
		if err != nil {
			return nil, internalError("create completed visit", err)
		}
		if inserted {
			return visit, nil
		}

		// Another writer filled the slot first; complete theirs instead.
		visit, err = s.visitRepo.FindForPatientOnDate(ctx, db, patientID, date)
		if err != nil {
			return nil, internalError("find visit", err)
		}
		if visit == nil {
			return nil, internalError("find visit", gorm.ErrRecordNotFound)
		}
	}

	if visit.IsCompleted() {
		return nil, nil
	}

	now := s.clock.Now()
	affected, err := s.visitRepo.CompleteIfOpen(ctx, db, visit.ID, now)
	if err != nil {
		return nil, internalError("complete visit", err)
	}
	if affected == 0 {
		return nil, nil
	}

	visit.Complete()
	visit.UpdatedAt = now
	return visit, nil
}

// upsertVisit finds today's visit for the patient or creates a scheduled one, then lets
// apply set its room, doctor and notes. created reports whether a new row was written.
func (s dayScope) upsertVisit(ctx context.Context, db *gorm.DB, patientID int64, date datatypes.Date, apply func(v *entity.Visit)) (*entity.Visit, bool, error) {
	visit, err := s.visitRepo.FindForPatientOnDate(ctx, db, patientID, date)
	if err != nil {
		return nil, false, internalError("find visit", err)
	}

	if visit == nil {
		prior, err := s.visitRepo.CountByPatient(ctx, db, patientID)
		if err != nil {
			return nil, false, internalError("count visits", err)
		}

		visit = &entity.Visit{
			PatientID:   patientID,
			VisitDate:   date,
			VisitType:   entity.VisitTypeFor(prior),
			VisitStatus: entity.VisitStatusScheduled,
		}
		apply(visit)

		inserted, err := s.visitRepo.InsertIfAbsent(ctx, db, visit)
		if err != nil {
			return nil, false, internalError("create visit", err)
		}
		if inserted {
			return visit, true, nil
		}

		visit, err = s.visitRepo.FindForPatientOnDate(ctx, db, patientID, date)
		if err != nil {
			return nil, false, internalError("find visit", err)
		}
		if visit == nil {
			return nil, false, internalError("find visit", gorm.ErrRecordNotFound)
		}
	}

	apply(visit)
	if err := s.visitRepo.Update(ctx, db, visit); err != nil {
		return nil, false, internalError("update visit", err)
	}
	return visit, false, nil
}

// actorID returns the authenticated user recorded on audit entries, if any.
func actorID(ctx context.Context) *int64 {
	id, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil
	}
	return &id
}

func normalizeRoom(identifier string) string {
	return strings.TrimSpace(identifier)
}
