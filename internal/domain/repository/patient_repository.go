package repository

import (
	"context"

	"opd-room-tracker/internal/domain/entity"

	"gorm.io/gorm"
)

type PatientRepository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Patient, error)
	// FindByIDForUpdate locks the patient row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*entity.Patient, error)
	UpdateBinding(ctx context.Context, db *gorm.DB, patient *entity.Patient) error
	CountByAssignedRoom(ctx context.Context, db *gorm.DB, room string) (int64, error)
	ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error)
}
