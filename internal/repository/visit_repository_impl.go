package repository

import (
	"context"
	"time"

	"opd-room-tracker/internal/domain/entity"
	domainRepo "opd-room-tracker/internal/domain/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type visitRepository struct{}

func NewVisitRepository() domainRepo.VisitRepository {
	return &visitRepository{}
}

func (r *visitRepository) Create(ctx context.Context, db *gorm.DB, visit *entity.Visit) error {
	return db.WithContext(ctx).Create(visit).Error
}

// InsertIfAbsent relies on the unique (patient_id, visit_date) index.
func (r *visitRepository) InsertIfAbsent(ctx context.Context, db *gorm.DB, visit *entity.Visit) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "patient_id"}, {Name: "visit_date"}},
			DoNothing: true,
		}).
		Create(visit)
	return result.RowsAffected > 0, result.Error
}

func (r *visitRepository) Update(ctx context.Context, db *gorm.DB, visit *entity.Visit) error {
	return db.WithContext(ctx).Omit(clause.Associations).Save(visit).Error
}

// FindForPatientOnDate returns the most recently created visit for the slot.
func (r *visitRepository) FindForPatientOnDate(ctx context.Context, db *gorm.DB, patientID int64, date datatypes.Date) (*entity.Visit, error) {
	var visit entity.Visit
	err := db.WithContext(ctx).
		Where("patient_id = ? AND visit_date = ?", patientID, date).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&visit).Error
	if err != nil {
		return nil, err
	}
	if visit.ID == 0 {
		return nil, nil
	}
	return &visit, nil
}

func (r *visitRepository) FindAllOnDate(ctx context.Context, db *gorm.DB, date datatypes.Date) ([]entity.Visit, error) {
	var visits []entity.Visit
	err := db.WithContext(ctx).
		Preload("Patient").
		Where("visit_date = ?", date).
		Order("created_at ASC, id ASC").
		Find(&visits).Error
	if err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *visitRepository) CountByPatient(ctx context.Context, db *gorm.DB, patientID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Visit{}).
		Where("patient_id = ?", patientID).
		Count(&count).Error
	return count, err
}

func (r *visitRepository) CompleteIfOpen(ctx context.Context, db *gorm.DB, id int64, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Visit{}).
		Where("id = ? AND visit_status <> ?", id, entity.VisitStatusCompleted).
		Updates(map[string]interface{}{
			"visit_status": entity.VisitStatusCompleted,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

// CompleteStaleBefore is a single conditional UPDATE, so concurrent sweeps never
// process the same row twice and an empty match is not an error.
func (r *visitRepository) CompleteStaleBefore(ctx context.Context, db *gorm.DB, date datatypes.Date, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Visit{}).
		Where("visit_date < ? AND visit_status <> ?", date, entity.VisitStatusCompleted).
		Updates(map[string]interface{}{
			"visit_status": entity.VisitStatusCompleted,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

func (r *visitRepository) FindPatientNamesInRoomOnDate(ctx context.Context, db *gorm.DB, room string, date datatypes.Date) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).Model(&entity.Visit{}).
		Joins("JOIN patients ON patients.id = visits.patient_id").
		Where("visits.room_no = ? AND visits.visit_date = ?", room, date).
		Distinct().
		Order("patients.full_name ASC").
		Pluck("patients.full_name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *visitRepository) CountByRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Visit{}).
		Where("room_no = ?", room).
		Count(&count).Error
	return count, err
}

func (r *visitRepository) ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Visit{}).
		Where("room_no = ?", room).
		Update("room_no", nil)
	return result.RowsAffected, result.Error
}
