package usecase

import (
	"context"
	"fmt"
	"strconv"

	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/domain/repository"
	"opd-room-tracker/internal/service"
	"opd-room-tracker/pkg/clock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RoomChangeResult reports a patient move for display by the caller.
type RoomChangeResult struct {
	Changed       bool
	OldRoom       *string
	NewRoom       string
	OldDoctorID   *int64
	OldDoctorName *string
	NewDoctorID   *int64
	NewDoctorName *string
	Visit         *entity.Visit
}

// AssignmentUsecase places patients into today's room/doctor pairs. Every operation runs
// in one transaction while holding the patient's visit slot for today.
type AssignmentUsecase interface {
	AssignPatientToDoctorRoom(ctx context.Context, patientID, doctorID int64, explicitRoom string) (*entity.Visit, error)
	CreateVisitForExistingPatient(ctx context.Context, patientID, requestingDoctorID int64, explicitRoom string) (*entity.Visit, entity.VisitType, error)
	ChangePatientRoom(ctx context.Context, patientID int64, newRoom string, actor string) (*RoomChangeResult, error)
	MarkVisitComplete(ctx context.Context, patientID, doctorID int64) (*entity.Visit, error)
}

type assignmentUsecase struct {
	txManager   repository.TxManager
	log         *logrus.Logger
	scope       dayScope
	roomRepo    repository.RoomRepository
	patientRepo repository.PatientRepository
	slots       SlotLocker
	auditSvc    service.AuditService
}

func NewAssignmentUsecase(
	txManager repository.TxManager,
	log *logrus.Logger,
	clk clock.Clock,
	roomRepo repository.RoomRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	visitRepo repository.VisitRepository,
	slots SlotLocker,
	auditSvc service.AuditService,
) AssignmentUsecase {
	return &assignmentUsecase{
		txManager:   txManager,
		log:         log,
		scope:       dayScope{clock: clk, doctorRepo: doctorRepo, visitRepo: visitRepo},
		roomRepo:    roomRepo,
		patientRepo: patientRepo,
		slots:       slots,
		auditSvc:    auditSvc,
	}
}

// AssignPatientToDoctorRoom finds or creates today's visit and points it at the doctor and
// the doctor's room, or explicitRoom when given. The patient's cached binding is left alone.
func (u *assignmentUsecase) AssignPatientToDoctorRoom(ctx context.Context, patientID, doctorID int64, explicitRoom string) (*entity.Visit, error) {
	if patientID <= 0 {
		return nil, ErrInvalidPatientID
	}
	if doctorID <= 0 {
		return nil, ErrInvalidDoctorID
	}
	explicitRoom = normalizeRoom(explicitRoom)

	var visit *entity.Visit
	err := u.withSlot(ctx, patientID, func(tx *gorm.DB) error {
		_, room, ok, err := u.scope.doctorRoomToday(ctx, tx, doctorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRoomNotSelected
		}

		if explicitRoom != "" && explicitRoom != room {
			if err := u.requireActiveRoom(ctx, tx, explicitRoom); err != nil {
				return err
			}
			room = explicitRoom
		}

		if err := u.requirePatient(ctx, tx, patientID); err != nil {
			return err
		}

		visit, _, err = u.scope.upsertVisit(ctx, tx, patientID, u.scope.clock.Today(), func(v *entity.Visit) {
			v.AssignTo(room, &doctorID)
		})
		if err != nil {
			return err
		}

		return u.auditSvc.LogUpdate(ctx, tx, actorID(ctx), entity.AuditActionPatientAssign, "patient", strconv.FormatInt(patientID, 10),
			nil, map[string]interface{}{"room": room, "doctor_id": doctorID, "visit_id": visit.ID})
	})
	if err != nil {
		logFailure(u.log, "assign patient "+strconv.FormatInt(patientID, 10), err)
		return nil, err
	}

	u.log.Infof("Patient assigned: patient=%d, doctor=%d, room=%s, visit=%d", patientID, doctorID, *visit.RoomNo, visit.ID)
	return visit, nil
}

// CreateVisitForExistingPatient places a returning patient in the requesting doctor's room
// for today, never the room of an earlier visit. Whoever sits in that room owns the visit.
func (u *assignmentUsecase) CreateVisitForExistingPatient(ctx context.Context, patientID, requestingDoctorID int64, explicitRoom string) (*entity.Visit, entity.VisitType, error) {
	if patientID <= 0 {
		return nil, "", ErrInvalidPatientID
	}
	if requestingDoctorID <= 0 {
		return nil, "", ErrInvalidDoctorID
	}

	var visit *entity.Visit
	err := u.withSlot(ctx, patientID, func(tx *gorm.DB) error {
		requester, room, ok, err := u.scope.doctorRoomToday(ctx, tx, requestingDoctorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRoomNotSelected
		}
		if explicit := normalizeRoom(explicitRoom); explicit != "" && explicit != room {
			u.log.Infof("Ignoring requested room %s for patient %d: doctor %d sits in %s today", explicit, patientID, requestingDoctorID, room)
		}

		patient, err := u.patientRepo.FindByIDForUpdate(ctx, tx, patientID)
		if err != nil {
			return internalError("find patient", err)
		}
		if patient == nil {
			return ErrPatientNotFound
		}

		owner, err := u.scope.doctorInRoomToday(ctx, tx, room)
		if err != nil {
			return err
		}
		if owner == nil {
			owner = requester
		}

		visit, _, err = u.scope.upsertVisit(ctx, tx, patientID, u.scope.clock.Today(), func(v *entity.Visit) {
			v.AssignTo(room, &owner.ID)
		})
		if err != nil {
			return err
		}

		patient.BindTo(room, owner)
		if err := u.patientRepo.UpdateBinding(ctx, tx, patient); err != nil {
			return internalError("update patient binding", err)
		}

		return u.auditSvc.LogCreate(ctx, tx, actorID(ctx), entity.AuditActionPatientNewVisit, "visit", strconv.FormatInt(visit.ID, 10),
			map[string]interface{}{"patient_id": patientID, "room": room, "doctor_id": owner.ID, "visit_type": visit.VisitType})
	})
	if err != nil {
		logFailure(u.log, "create visit for patient "+strconv.FormatInt(patientID, 10), err)
		return nil, "", err
	}

	u.log.Infof("Visit created: patient=%d, room=%s, type=%s, visit=%d", patientID, *visit.RoomNo, visit.VisitType, visit.ID)
	return visit, visit.VisitType, nil
}

// ChangePatientRoom moves the patient and today's visit to newRoom together. The new
// doctor is whoever sits in newRoom today and may be nobody.
func (u *assignmentUsecase) ChangePatientRoom(ctx context.Context, patientID int64, newRoom string, actor string) (*RoomChangeResult, error) {
	if patientID <= 0 {
		return nil, ErrInvalidPatientID
	}
	newRoom = normalizeRoom(newRoom)
	if newRoom == "" {
		return nil, ErrEmptyRoomIdentifier
	}

	result := &RoomChangeResult{NewRoom: newRoom}
	err := u.withSlot(ctx, patientID, func(tx *gorm.DB) error {
		patient, err := u.patientRepo.FindByIDForUpdate(ctx, tx, patientID)
		if err != nil {
			return internalError("find patient", err)
		}
		if patient == nil {
			return ErrPatientNotFound
		}

		result.OldRoom = patient.AssignedRoom
		result.OldDoctorID = patient.AssignedDoctorID
		result.OldDoctorName = patient.AssignedDoctorName

		if patient.RoomIs(newRoom) {
			result.NewDoctorID = patient.AssignedDoctorID
			result.NewDoctorName = patient.AssignedDoctorName
			return nil
		}

		if err := u.requireActiveRoom(ctx, tx, newRoom); err != nil {
			return err
		}

		doctor, err := u.scope.doctorInRoomToday(ctx, tx, newRoom)
		if err != nil {
			return err
		}

		patient.BindTo(newRoom, doctor)
		if err := u.patientRepo.UpdateBinding(ctx, tx, patient); err != nil {
			return internalError("update patient binding", err)
		}

		var doctorID *int64
		if doctor != nil {
			doctorID = &doctor.ID
		}
		note := fmt.Sprintf("Room changed from %s to %s by %s", roomLabel(result.OldRoom), newRoom, actorLabel(actor))

		result.Visit, _, err = u.scope.upsertVisit(ctx, tx, patientID, u.scope.clock.Today(), func(v *entity.Visit) {
			v.AssignTo(newRoom, doctorID)
			v.AppendNote(u.scope.clock.Now(), note)
		})
		if err != nil {
			return err
		}

		result.Changed = true
		result.NewDoctorID = patient.AssignedDoctorID
		result.NewDoctorName = patient.AssignedDoctorName

		return u.auditSvc.LogUpdate(ctx, tx, actorID(ctx), entity.AuditActionPatientRoomChange, "patient", strconv.FormatInt(patientID, 10),
			map[string]interface{}{"room": result.OldRoom, "doctor_id": result.OldDoctorID},
			map[string]interface{}{"room": newRoom, "doctor_id": result.NewDoctorID, "visit_id": result.Visit.ID})
	})
	if err != nil {
		logFailure(u.log, "change room for patient "+strconv.FormatInt(patientID, 10), err)
		return nil, err
	}

	if result.Changed {
		u.log.Infof("Patient room changed: patient=%d, %s -> %s", patientID, roomLabel(result.OldRoom), newRoom)
	}
	return result, nil
}

// MarkVisitComplete completes today's visit on behalf of doctorID. When no visit exists one
// is created already completed, in the doctor's room today or else the patient's cached room.
// A nil visit means it was already completed.
func (u *assignmentUsecase) MarkVisitComplete(ctx context.Context, patientID, doctorID int64) (*entity.Visit, error) {
	if patientID <= 0 {
		return nil, ErrInvalidPatientID
	}
	if doctorID <= 0 {
		return nil, ErrInvalidDoctorID
	}

	var visit *entity.Visit
	err := u.withSlot(ctx, patientID, func(tx *gorm.DB) error {
		patient, err := u.patientRepo.FindByIDForUpdate(ctx, tx, patientID)
		if err != nil {
			return internalError("find patient", err)
		}
		if patient == nil {
			return ErrPatientNotFound
		}

		_, room, ok, err := u.scope.doctorRoomToday(ctx, tx, doctorID)
		if err != nil {
			return err
		}
		fallbackRoom := patient.AssignedRoom
		if ok {
			fallbackRoom = &room
		}

		visit, err = u.scope.markCompleted(ctx, tx, patientID, u.scope.clock.Today(), &doctorID, fallbackRoom)
		if err != nil || visit == nil {
			return err
		}

		return u.auditSvc.LogUpdate(ctx, tx, actorID(ctx), entity.AuditActionVisitComplete, "visit", strconv.FormatInt(visit.ID, 10),
			nil, map[string]interface{}{"visit_status": visit.VisitStatus, "doctor_id": doctorID})
	})
	if err != nil {
		logFailure(u.log, "complete visit for patient "+strconv.FormatInt(patientID, 10), err)
		return nil, err
	}

	if visit != nil {
		u.log.Infof("Visit completed: id=%d, patient=%d, doctor=%d", visit.ID, patientID, doctorID)
	}
	return visit, nil
}

// withSlot holds the patient's visit slot for today around one transaction.
func (u *assignmentUsecase) withSlot(ctx context.Context, patientID int64, fn func(tx *gorm.DB) error) error {
	release, err := u.slots.Lock(ctx, patientID, u.scope.clock.Today())
	if err != nil {
		return internalError("lock visit slot", err)
	}
	defer release()

	return u.txManager.WithTransaction(ctx, fn)
}

func (u *assignmentUsecase) requireActiveRoom(ctx context.Context, tx *gorm.DB, identifier string) error {
	room, err := u.roomRepo.FindActiveByIdentifier(ctx, tx, identifier)
	if err != nil {
		return internalError("find room", err)
	}
	if room == nil {
		return ErrRoomNotFound
	}
	return nil
}

func (u *assignmentUsecase) requirePatient(ctx context.Context, tx *gorm.DB, patientID int64) error {
	patient, err := u.patientRepo.FindByIDForUpdate(ctx, tx, patientID)
	if err != nil {
		return internalError("find patient", err)
	}
	if patient == nil {
		return ErrPatientNotFound
	}
	return nil
}

func roomLabel(room *string) string {
	if room == nil || *room == "" {
		return "none"
	}
	return *room
}

func actorLabel(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}
