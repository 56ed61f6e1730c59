package usecase

import (
	"context"
	"strconv"

	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/domain/repository"
	"opd-room-tracker/internal/service"
	"opd-room-tracker/pkg/clock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RoomUsecase interface {
	Create(ctx context.Context, identifier, description string) (*entity.Room, error)
	GetByID(ctx context.Context, id int64) (*entity.Room, error)
	FindByIdentifier(ctx context.Context, identifier string) (*entity.Room, error)
	List(ctx context.Context, filter *entity.RoomFilter) ([]entity.Room, error)
	SetActive(ctx context.Context, id int64, active bool) (*entity.Room, error)
	Delete(ctx context.Context, id int64, force bool) error
}

type roomUsecase struct {
	txManager   repository.TxManager
	log         *logrus.Logger
	scope       dayScope
	roomRepo    repository.RoomRepository
	patientRepo repository.PatientRepository
	auditSvc    service.AuditService
}

func NewRoomUsecase(
	txManager repository.TxManager,
	log *logrus.Logger,
	clk clock.Clock,
	roomRepo repository.RoomRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	visitRepo repository.VisitRepository,
	auditSvc service.AuditService,
) RoomUsecase {
	return &roomUsecase{
		txManager:   txManager,
		log:         log,
		scope:       dayScope{clock: clk, doctorRepo: doctorRepo, visitRepo: visitRepo},
		roomRepo:    roomRepo,
		patientRepo: patientRepo,
		auditSvc:    auditSvc,
	}
}

// Create registers a room. The identifier must be free among active rooms, and an
// identifier left behind by an inactive room is reusable only once nothing references it.
func (u *roomUsecase) Create(ctx context.Context, identifier, description string) (*entity.Room, error) {
	identifier = normalizeRoom(identifier)
	if identifier == "" {
		return nil, ErrEmptyRoomIdentifier
	}

	room := &entity.Room{
		Identifier:  identifier,
		Description: description,
		IsActive:    true,
	}

	err := u.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := u.roomRepo.FindActiveByIdentifier(ctx, tx, identifier)
		if err != nil {
			return internalError("find room", err)
		}
		if existing != nil {
			return ErrRoomIdentifierTaken
		}

		inactive, err := u.roomRepo.CountInactiveByIdentifier(ctx, tx, identifier)
		if err != nil {
			return internalError("count inactive rooms", err)
		}
		if inactive > 0 {
			refs, err := u.references(ctx, tx, identifier)
			if err != nil {
				return err
			}
			if refs.Any() {
				return ErrRoomIdentifierInUse
			}
		}

		if err := u.roomRepo.Create(ctx, tx, room); err != nil {
			if isUniqueViolation(err) {
				return ErrRoomIdentifierTaken
			}
			return internalError("create room", err)
		}

		return u.auditSvc.LogCreate(ctx, tx, actorID(ctx), entity.AuditActionRoomCreate, "room", strconv.FormatInt(room.ID, 10), room)
	})
	if err != nil {
		logFailure(u.log, "create room "+identifier, err)
		return nil, err
	}

	u.log.Infof("Room created: id=%d, identifier=%s", room.ID, room.Identifier)
	return room, nil
}

func (u *roomUsecase) GetByID(ctx context.Context, id int64) (*entity.Room, error) {
	if id <= 0 {
		return nil, ErrInvalidRoomID
	}

	room, err := u.roomRepo.FindByID(ctx, u.txManager.Conn(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find room %d: %+v", id, err)
		return nil, internalError("find room", err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// FindByIdentifier resolves an active room by its human-assigned identifier.
func (u *roomUsecase) FindByIdentifier(ctx context.Context, identifier string) (*entity.Room, error) {
	identifier = normalizeRoom(identifier)
	if identifier == "" {
		return nil, ErrEmptyRoomIdentifier
	}

	room, err := u.roomRepo.FindActiveByIdentifier(ctx, u.txManager.Conn(ctx), identifier)
	if err != nil {
		u.log.Warnf("Failed to find room %s: %+v", identifier, err)
		return nil, internalError("find room", err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (u *roomUsecase) List(ctx context.Context, filter *entity.RoomFilter) ([]entity.Room, error) {
	rooms, err := u.roomRepo.FindAll(ctx, u.txManager.Conn(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to list rooms: %+v", err)
		return nil, internalError("list rooms", err)
	}
	return rooms, nil
}

// SetActive soft-(de)activates a room. Reactivating fails when another active room
// has taken the identifier in the meantime.
func (u *roomUsecase) SetActive(ctx context.Context, id int64, active bool) (*entity.Room, error) {
	if id <= 0 {
		return nil, ErrInvalidRoomID
	}

	var room *entity.Room
	err := u.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		room, err = u.roomRepo.FindByID(ctx, tx, id)
		if err != nil {
			return internalError("find room", err)
		}
		if room == nil {
			return ErrRoomNotFound
		}
		if room.IsActive == active {
			return nil
		}

		if active {
			other, err := u.roomRepo.FindActiveByIdentifier(ctx, tx, room.Identifier)
			if err != nil {
				return internalError("find room", err)
			}
			if other != nil {
				return ErrRoomIdentifierTaken
			}
		}

		if _, err := u.roomRepo.SetActive(ctx, tx, id, active); err != nil {
			if isUniqueViolation(err) {
				return ErrRoomIdentifierTaken
			}
			return internalError("update room", err)
		}

		action := entity.AuditActionRoomDeactivate
		if active {
			action = entity.AuditActionRoomActivate
		}
		old := room.IsActive
		room.IsActive = active
		return u.auditSvc.LogUpdate(ctx, tx, actorID(ctx), action, "room", strconv.FormatInt(id, 10),
			map[string]interface{}{"is_active": old},
			map[string]interface{}{"is_active": active})
	})
	if err != nil {
		logFailure(u.log, "set room active", err)
		return nil, err
	}

	return room, nil
}

// Delete removes a room. Today's activity always blocks it; historical references block
// it unless force is set, in which case they are cleared in the same transaction.
func (u *roomUsecase) Delete(ctx context.Context, id int64, force bool) error {
	if id <= 0 {
		return ErrInvalidRoomID
	}

	err := u.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		room, err := u.roomRepo.FindByID(ctx, tx, id)
		if err != nil {
			return internalError("find room", err)
		}
		if room == nil {
			return ErrRoomNotFound
		}

		// References are keyed by identifier. When an inactive row shares it with an
		// active room they belong to the active room and must survive.
		if !room.IsActive {
			active, err := u.roomRepo.FindActiveByIdentifier(ctx, tx, room.Identifier)
			if err != nil {
				return internalError("find room", err)
			}
			if active != nil {
				return u.deleteRow(ctx, tx, room, entity.AuditActionRoomDelete, nil)
			}
		}

		refs, err := u.references(ctx, tx, room.Identifier)
		if err != nil {
			return err
		}
		if refs.Live() {
			return &RoomInUseError{Identifier: room.Identifier, References: refs, Forceable: false}
		}
		if refs.Any() && !force {
			return &RoomInUseError{Identifier: room.Identifier, References: refs, Forceable: true}
		}
		if !refs.Any() {
			return u.deleteRow(ctx, tx, room, entity.AuditActionRoomDelete, nil)
		}

		patients, err := u.patientRepo.ClearRoom(ctx, tx, room.Identifier)
		if err != nil {
			return internalError("clear patient rooms", err)
		}
		doctors, err := u.scope.doctorRepo.ClearRoom(ctx, tx, room.Identifier)
		if err != nil {
			return internalError("clear doctor rooms", err)
		}
		visits, err := u.scope.visitRepo.ClearRoom(ctx, tx, room.Identifier)
		if err != nil {
			return internalError("clear visit rooms", err)
		}

		return u.deleteRow(ctx, tx, room, entity.AuditActionRoomForceDelete, map[string]interface{}{
			"cleared_patients": patients,
			"cleared_doctors":  doctors,
			"cleared_visits":   visits,
		})
	})
	if err != nil {
		logFailure(u.log, "delete room", err)
		return err
	}

	u.log.Infof("Room deleted: id=%d, force=%t", id, force)
	return nil
}

func (u *roomUsecase) deleteRow(ctx context.Context, tx *gorm.DB, room *entity.Room, action string, cleared map[string]interface{}) error {
	affected, err := u.roomRepo.Delete(ctx, tx, room.ID)
	if err != nil {
		return internalError("delete room", err)
	}
	if affected == 0 {
		return ErrRoomNotFound
	}

	old := map[string]interface{}{
		"identifier": room.Identifier,
		"is_active":  room.IsActive,
	}
	for k, v := range cleared {
		old[k] = v
	}
	return u.auditSvc.LogDelete(ctx, tx, actorID(ctx), action, "room", strconv.FormatInt(room.ID, 10), old)
}

// references collects everything that still points at identifier.
func (u *roomUsecase) references(ctx context.Context, db *gorm.DB, identifier string) (entity.RoomReferences, error) {
	var refs entity.RoomReferences
	today := u.scope.clock.Today()

	names, err := u.scope.visitRepo.FindPatientNamesInRoomOnDate(ctx, db, identifier, today)
	if err != nil {
		return refs, internalError("find patients in room", err)
	}
	refs.PatientsToday = names

	occupant, err := u.scope.doctorInRoomToday(ctx, db, identifier)
	if err != nil {
		return refs, err
	}
	if occupant != nil {
		refs.OccupyingDoctor = occupant.FullName
	}

	if refs.AssignedPatients, err = u.patientRepo.CountByAssignedRoom(ctx, db, identifier); err != nil {
		return refs, internalError("count assigned patients", err)
	}
	if refs.Visits, err = u.scope.visitRepo.CountByRoom(ctx, db, identifier); err != nil {
		return refs, internalError("count visits", err)
	}
	if refs.DoctorsWithRoomSet, err = u.scope.doctorRepo.CountByCurrentRoom(ctx, db, identifier); err != nil {
		return refs, internalError("count doctors", err)
	}

	return refs, nil
}

