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

// RoomStatus answers "does this doctor have a room today".
type RoomStatus struct {
	HasRoom bool
	Room    *string
}

type DoctorRoomUsecase interface {
	SetRoomForToday(ctx context.Context, doctorID int64, roomIdentifier string) (*entity.Doctor, error)
	HasRoomToday(ctx context.Context, doctorID int64) (*RoomStatus, error)
	FindDoctorInRoomToday(ctx context.Context, roomIdentifier string) (*entity.Doctor, error)
	ListOccupancyToday(ctx context.Context) ([]entity.RoomOccupancy, error)
}

type doctorRoomUsecase struct {
	txManager repository.TxManager
	log       *logrus.Logger
	scope     dayScope
	roomRepo  repository.RoomRepository
	auditSvc  service.AuditService
}

func NewDoctorRoomUsecase(
	txManager repository.TxManager,
	log *logrus.Logger,
	clk clock.Clock,
	doctorRepo repository.DoctorRepository,
	roomRepo repository.RoomRepository,
	visitRepo repository.VisitRepository,
	auditSvc service.AuditService,
) DoctorRoomUsecase {
	return &doctorRoomUsecase{
		txManager: txManager,
		log:       log,
		scope:     dayScope{clock: clk, doctorRepo: doctorRepo, visitRepo: visitRepo},
		roomRepo:  roomRepo,
		auditSvc:  auditSvc,
	}
}

// SetRoomForToday overwrites the doctor's selection. Several doctors may pick the same
// room; readers settle that with the tie-break in FindDoctorInRoomToday.
func (u *doctorRoomUsecase) SetRoomForToday(ctx context.Context, doctorID int64, roomIdentifier string) (*entity.Doctor, error) {
	if doctorID <= 0 {
		return nil, ErrInvalidDoctorID
	}
	roomIdentifier = normalizeRoom(roomIdentifier)
	if roomIdentifier == "" {
		return nil, ErrEmptyRoomIdentifier
	}

	var doctor *entity.Doctor
	err := u.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		room, err := u.roomRepo.FindActiveByIdentifier(ctx, tx, roomIdentifier)
		if err != nil {
			return internalError("find room", err)
		}
		if room == nil {
			return ErrRoomNotFound
		}

		doctor, err = u.scope.doctorRepo.FindByID(ctx, tx, doctorID)
		if err != nil {
			return internalError("find doctor", err)
		}
		if doctor == nil {
			return ErrDoctorNotFound
		}

		previous, _ := doctor.RoomOn(u.scope.clock.Today(), u.scope.clock.Location())
		now := u.scope.clock.Now()

		affected, err := u.scope.doctorRepo.UpdateRoom(ctx, tx, doctorID, room.Identifier, now)
		if err != nil {
			return internalError("update doctor room", err)
		}
		if affected == 0 {
			return ErrDoctorNotFound
		}

		identifier := room.Identifier
		doctor.CurrentRoom = &identifier
		doctor.RoomAssignedAt = &now

		return u.auditSvc.LogUpdate(ctx, tx, actorID(ctx), entity.AuditActionDoctorSelectRoom, "doctor", strconv.FormatInt(doctorID, 10),
			map[string]interface{}{"room_today": previous},
			map[string]interface{}{"room_today": identifier, "assigned_at": now})
	})
	if err != nil {
		logFailure(u.log, "set room for doctor "+strconv.FormatInt(doctorID, 10), err)
		return nil, err
	}

	u.log.Infof("Doctor room selected: doctor=%d, room=%s", doctorID, *doctor.CurrentRoom)
	return doctor, nil
}

// HasRoomToday compares the selection timestamp with today; a stale selection is
// reported as no room and left untouched.
func (u *doctorRoomUsecase) HasRoomToday(ctx context.Context, doctorID int64) (*RoomStatus, error) {
	if doctorID <= 0 {
		return nil, ErrInvalidDoctorID
	}

	_, room, ok, err := u.scope.doctorRoomToday(ctx, u.txManager.Conn(ctx), doctorID)
	if err != nil {
		logFailure(u.log, "check doctor room", err)
		return nil, err
	}
	if !ok {
		return &RoomStatus{HasRoom: false}, nil
	}
	return &RoomStatus{HasRoom: true, Room: &room}, nil
}

// FindDoctorInRoomToday returns nil, nil when the room is unstaffed today.
func (u *doctorRoomUsecase) FindDoctorInRoomToday(ctx context.Context, roomIdentifier string) (*entity.Doctor, error) {
	roomIdentifier = normalizeRoom(roomIdentifier)
	if roomIdentifier == "" {
		return nil, ErrEmptyRoomIdentifier
	}

	doctor, err := u.scope.doctorInRoomToday(ctx, u.txManager.Conn(ctx), roomIdentifier)
	if err != nil {
		logFailure(u.log, "find doctor in room "+roomIdentifier, err)
		return nil, err
	}
	return doctor, nil
}

// ListOccupancyToday pairs every active room with the doctor resolved as sitting in it.
func (u *doctorRoomUsecase) ListOccupancyToday(ctx context.Context) ([]entity.RoomOccupancy, error) {
	db := u.txManager.Conn(ctx)
	active := true

	rooms, err := u.roomRepo.FindAll(ctx, db, &entity.RoomFilter{Active: &active})
	if err != nil {
		u.log.Warnf("Failed to list rooms: %+v", err)
		return nil, internalError("list rooms", err)
	}

	from, to := u.scope.clock.DayBounds(u.scope.clock.Today())
	doctors, err := u.scope.doctorRepo.FindWithRoomBetween(ctx, db, from, to)
	if err != nil {
		u.log.Warnf("Failed to list doctors with rooms: %+v", err)
		return nil, internalError("list doctors with rooms", err)
	}

	occupants := make(map[string]*entity.Doctor, len(doctors))
	for i := range doctors {
		d := &doctors[i]
		if d.CurrentRoom == nil {
			continue
		}
		if cur, ok := occupants[*d.CurrentRoom]; !ok || laterSelection(d, cur) {
			occupants[*d.CurrentRoom] = d
		}
	}

	result := make([]entity.RoomOccupancy, 0, len(rooms))
	for _, room := range rooms {
		result = append(result, entity.RoomOccupancy{Room: room, Doctor: occupants[room.Identifier]})
	}
	return result, nil
}

// laterSelection mirrors the repository tie-break: latest selection, then highest id.
func laterSelection(a, b *entity.Doctor) bool {
	if a.RoomAssignedAt == nil || b.RoomAssignedAt == nil {
		return b.RoomAssignedAt == nil && a.RoomAssignedAt != nil
	}
	if !a.RoomAssignedAt.Equal(*b.RoomAssignedAt) {
		return a.RoomAssignedAt.After(*b.RoomAssignedAt)
	}
	return a.ID > b.ID
}
