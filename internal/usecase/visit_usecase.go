package usecase

import (
	"context"
	"strconv"

	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/domain/repository"
	"opd-room-tracker/internal/service"
	"opd-room-tracker/pkg/clock"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NewVisit describes a visit created outside the coordinator. Zero DoctorID and empty
// Room leave the visit unassigned.
type NewVisit struct {
	PatientID int64
	DoctorID  int64
	Room      string
	Date      datatypes.Date
	Type      entity.VisitType
	Notes     string
}

type VisitUsecase interface {
	Create(ctx context.Context, in NewVisit) (*entity.Visit, error)
	GetVisitCount(ctx context.Context, patientID int64) (int64, error)
	FindForPatientOnDate(ctx context.Context, patientID int64, date datatypes.Date) (*entity.Visit, error)
	MarkCompletedToday(ctx context.Context, patientID int64, date datatypes.Date, fallbackDoctorID *int64, fallbackRoom *string) (*entity.Visit, error)
	AutoCompleteStale(ctx context.Context) (int64, error)
	StartVisit(ctx context.Context, patientID int64) (*entity.Visit, error)
	ListToday(ctx context.Context) ([]entity.Visit, error)
}

type visitUsecase struct {
	txManager repository.TxManager
	log       *logrus.Logger
	scope     dayScope
	slots     SlotLocker
	auditSvc  service.AuditService
}

func NewVisitUsecase(
	txManager repository.TxManager,
	log *logrus.Logger,
	clk clock.Clock,
	doctorRepo repository.DoctorRepository,
	visitRepo repository.VisitRepository,
	slots SlotLocker,
	auditSvc service.AuditService,
) VisitUsecase {
	return &visitUsecase{
		txManager: txManager,
		log:       log,
		scope:     dayScope{clock: clk, doctorRepo: doctorRepo, visitRepo: visitRepo},
		slots:     slots,
		auditSvc:  auditSvc,
	}
}

func (u *visitUsecase) Create(ctx context.Context, in NewVisit) (*entity.Visit, error) {
	if in.PatientID <= 0 {
		return nil, ErrInvalidPatientID
	}
	if in.DoctorID < 0 {
		return nil, ErrInvalidDoctorID
	}
	if in.Type != entity.VisitTypeFirst && in.Type != entity.VisitTypeFollowUp {
		return nil, ErrInvalidVisitType
	}

	visit := &entity.Visit{
		PatientID:   in.PatientID,
		VisitDate:   in.Date,
		VisitType:   in.Type,
		VisitStatus: entity.VisitStatusScheduled,
		Notes:       in.Notes,
	}
	if room := normalizeRoom(in.Room); room != "" {
		visit.RoomNo = &room
	}
	if in.DoctorID > 0 {
		id := in.DoctorID
		visit.AssignedDoctorID = &id
	}

	if err := u.scope.visitRepo.Create(ctx, u.txManager.Conn(ctx), visit); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrVisitSlotTaken
		}
		u.log.Warnf("Failed to create visit for patient %d: %+v", in.PatientID, err)
		return nil, internalError("create visit", err)
	}

	return visit, nil
}

// GetVisitCount counts every visit the patient ever had.
func (u *visitUsecase) GetVisitCount(ctx context.Context, patientID int64) (int64, error) {
	if patientID <= 0 {
		return 0, ErrInvalidPatientID
	}

	count, err := u.scope.visitRepo.CountByPatient(ctx, u.txManager.Conn(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to count visits for patient %d: %+v", patientID, err)
		return 0, internalError("count visits", err)
	}
	return count, nil
}

func (u *visitUsecase) FindForPatientOnDate(ctx context.Context, patientID int64, date datatypes.Date) (*entity.Visit, error) {
	if patientID <= 0 {
		return nil, ErrInvalidPatientID
	}

	visit, err := u.scope.visitRepo.FindForPatientOnDate(ctx, u.txManager.Conn(ctx), patientID, date)
	if err != nil {
		u.log.Warnf("Failed to find visit for patient %d: %+v", patientID, err)
		return nil, internalError("find visit", err)
	}
	return visit, nil
}

// MarkCompletedToday returns nil, nil when the visit for date was already completed.
func (u *visitUsecase) MarkCompletedToday(ctx context.Context, patientID int64, date datatypes.Date, fallbackDoctorID *int64, fallbackRoom *string) (*entity.Visit, error) {
	if patientID <= 0 {
		return nil, ErrInvalidPatientID
	}

	release, err := u.slots.Lock(ctx, patientID, date)
	if err != nil {
		return nil, internalError("lock visit slot", err)
	}
	defer release()

	var visit *entity.Visit
	err = u.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		visit, err = u.scope.markCompleted(ctx, tx, patientID, date, fallbackDoctorID, fallbackRoom)
		if err != nil || visit == nil {
			return err
		}
		return u.auditSvc.LogUpdate(ctx, tx, actorID(ctx), entity.AuditActionVisitComplete, "visit", strconv.FormatInt(visit.ID, 10),
			nil, map[string]interface{}{"visit_status": visit.VisitStatus})
	})
	if err != nil {
		logFailure(u.log, "mark visit completed", err)
		return nil, err
	}

	if visit != nil {
		u.log.Infof("Visit completed: id=%d, patient=%d", visit.ID, patientID)
	}
	return visit, nil
}

// AutoCompleteStale closes every open visit dated before today. It is one conditional
// UPDATE, so repeated or concurrent runs are harmless and zero rows is success.
func (u *visitUsecase) AutoCompleteStale(ctx context.Context) (int64, error) {
	today := u.scope.clock.Today()

	var count int64
	err := u.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		count, err = u.scope.visitRepo.CompleteStaleBefore(ctx, tx, today, u.scope.clock.Now())
		if err != nil {
			return internalError("auto-complete stale visits", err)
		}
		if count == 0 {
			return nil
		}
		return u.auditSvc.LogUpdate(ctx, tx, actorID(ctx), entity.AuditActionVisitAutoComplete, "visit", "",
			nil, map[string]interface{}{"before": clock.Format(today), "completed": count})
	})
	if err != nil {
		u.log.Warnf("Failed to auto-complete stale visits: %+v", err)
		return 0, err
	}

	if count > 0 {
		u.log.Infof("Auto-completed %d stale visit(s) dated before %s", count, clock.Format(today))
	}
	return count, nil
}

// StartVisit marks today's visit as in progress.
func (u *visitUsecase) StartVisit(ctx context.Context, patientID int64) (*entity.Visit, error) {
	if patientID <= 0 {
		return nil, ErrInvalidPatientID
	}
	today := u.scope.clock.Today()

	release, err := u.slots.Lock(ctx, patientID, today)
	if err != nil {
		return nil, internalError("lock visit slot", err)
	}
	defer release()

	var visit *entity.Visit
	err = u.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		visit, err = u.scope.visitRepo.FindForPatientOnDate(ctx, tx, patientID, today)
		if err != nil {
			return internalError("find visit", err)
		}
		if visit == nil {
			return ErrVisitNotFound
		}
		if visit.IsCompleted() {
			return ErrVisitAlreadyCompleted
		}
		if visit.IsInProgress() {
			return nil
		}

		visit.Start()
		if err := u.scope.visitRepo.Update(ctx, tx, visit); err != nil {
			return internalError("update visit", err)
		}
		return u.auditSvc.LogUpdate(ctx, tx, actorID(ctx), entity.AuditActionVisitStart, "visit", strconv.FormatInt(visit.ID, 10),
			map[string]interface{}{"visit_status": entity.VisitStatusScheduled},
			map[string]interface{}{"visit_status": visit.VisitStatus})
	})
	if err != nil {
		logFailure(u.log, "start visit", err)
		return nil, err
	}

	return visit, nil
}

// ListToday sweeps stale visits first so yesterday's leftovers never show as open,
// then returns the authoritative visit per patient for today.
func (u *visitUsecase) ListToday(ctx context.Context) ([]entity.Visit, error) {
	if _, err := u.AutoCompleteStale(ctx); err != nil {
		return nil, err
	}

	visits, err := u.scope.visitRepo.FindAllOnDate(ctx, u.txManager.Conn(ctx), u.scope.clock.Today())
	if err != nil {
		u.log.Warnf("Failed to list today's visits: %+v", err)
		return nil, internalError("list visits", err)
	}

	return latestPerPatient(visits), nil
}

// latestPerPatient keeps the last row per patient from a list ordered oldest first.
func latestPerPatient(visits []entity.Visit) []entity.Visit {
	index := make(map[int64]int, len(visits))
	result := make([]entity.Visit, 0, len(visits))
	for _, v := range visits {
		if i, ok := index[v.PatientID]; ok {
			result[i] = v
			continue
		}
		index[v.PatientID] = len(result)
		result = append(result, v)
	}
	return result
}
