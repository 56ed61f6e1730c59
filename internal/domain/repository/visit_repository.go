package repository

import (
	"context"
	"time"

	"opd-room-tracker/internal/domain/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VisitRepository interface {
	Create(ctx context.Context, db *gorm.DB, visit *entity.Visit) error
	// InsertIfAbsent creates visit unless the (patient, date) slot is already taken.
	// Returns false when another writer got there first.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, visit *entity.Visit) (bool, error)
	Update(ctx context.Context, db *gorm.DB, visit *entity.Visit) error
	FindForPatientOnDate(ctx context.Context, db *gorm.DB, patientID int64, date datatypes.Date) (*entity.Visit, error)
	FindAllOnDate(ctx context.Context, db *gorm.DB, date datatypes.Date) ([]entity.Visit, error)
	CountByPatient(ctx context.Context, db *gorm.DB, patientID int64) (int64, error)
	// CompleteIfOpen completes the visit only if it is not completed yet.
	// Returns affected rows: 1 = transitioned, 0 = already completed.
	CompleteIfOpen(ctx context.Context, db *gorm.DB, id int64, at time.Time) (int64, error)
	// CompleteStaleBefore completes every non-completed visit dated before date.
	CompleteStaleBefore(ctx context.Context, db *gorm.DB, date datatypes.Date, at time.Time) (int64, error)
	FindPatientNamesInRoomOnDate(ctx context.Context, db *gorm.DB, room string, date datatypes.Date) ([]string, error)
	CountByRoom(ctx context.Context, db *gorm.DB, room string) (int64, error)
	ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error)
}
