package repository

import (
	"context"
	"errors"

	"opd-room-tracker/internal/domain/entity"
	domainRepo "opd-room-tracker/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type patientRepository struct{}

func NewPatientRepository() domainRepo.PatientRepository {
	return &patientRepository{}
}

func (r *patientRepository) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Patient, error) {
	var patient entity.Patient
	err := db.WithContext(ctx).Where("id = ?", id).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*entity.Patient, error) {
	var patient entity.Patient
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

// UpdateBinding writes only the cached room/doctor columns.
func (r *patientRepository) UpdateBinding(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	return db.WithContext(ctx).Model(&entity.Patient{}).
		Where("id = ?", patient.ID).
		Updates(map[string]interface{}{
			"assigned_room":        patient.AssignedRoom,
			"assigned_doctor_id":   patient.AssignedDoctorID,
			"assigned_doctor_name": patient.AssignedDoctorName,
		}).Error
}

func (r *patientRepository) CountByAssignedRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Patient{}).
		Where("assigned_room = ?", room).
		Count(&count).Error
	return count, err
}

func (r *patientRepository) ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Patient{}).
		Where("assigned_room = ?", room).
		Updates(map[string]interface{}{
			"assigned_room":        nil,
			"assigned_doctor_id":   nil,
			"assigned_doctor_name": nil,
		})
	return result.RowsAffected, result.Error
}
