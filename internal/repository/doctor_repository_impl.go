package repository

import (
	"context"
	"errors"
	"time"

	"opd-room-tracker/internal/domain/entity"
	domainRepo "opd-room-tracker/internal/domain/repository"

	"gorm.io/gorm"
)

type doctorRepository struct{}

func NewDoctorRepository() domainRepo.DoctorRepository {
	return &doctorRepository{}
}

func (r *doctorRepository) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := db.WithContext(ctx).Where("id = ?", id).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) UpdateRoom(ctx context.Context, db *gorm.DB, id int64, room string, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Doctor{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_room":     room,
			"room_assigned_at": at,
		})
	return result.RowsAffected, result.Error
}

// FindInRoomBetween breaks ties between doctors claiming the same room by the
// latest selection, then by the highest id, so concurrent readers agree.
func (r *doctorRepository) FindInRoomBetween(ctx context.Context, db *gorm.DB, room string, from, to time.Time) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := db.WithContext(ctx).
		Where("current_room = ? AND room_assigned_at >= ? AND room_assigned_at < ?", room, from, to).
		Order("room_assigned_at DESC, id DESC").
		Limit(1).
		Find(&doctor).Error
	if err != nil {
		return nil, err
	}
	if doctor.ID == 0 {
		return nil, nil
	}
	return &doctor, nil
}

func (r *doctorRepository) FindWithRoomBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Doctor, error) {
	var doctors []entity.Doctor
	err := db.WithContext(ctx).
		Where("current_room IS NOT NULL AND room_assigned_at >= ? AND room_assigned_at < ?", from, to).
		Order("room_assigned_at DESC, id DESC").
		Find(&doctors).Error
	if err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *doctorRepository) CountByCurrentRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Doctor{}).
		Where("current_room = ?", room).
		Count(&count).Error
	return count, err
}

func (r *doctorRepository) ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Doctor{}).
		Where("current_room = ?", room).
		Updates(map[string]interface{}{
			"current_room":     nil,
			"room_assigned_at": nil,
		})
	return result.RowsAffected, result.Error
}
