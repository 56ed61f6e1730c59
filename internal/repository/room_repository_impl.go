package repository

import (
	"context"
	"errors"

	"opd-room-tracker/internal/domain/entity"
	domainRepo "opd-room-tracker/internal/domain/repository"

	"gorm.io/gorm"
)

type roomRepository struct{}

func NewRoomRepository() domainRepo.RoomRepository {
	return &roomRepository{}
}

func (r *roomRepository) Create(ctx context.Context, db *gorm.DB, room *entity.Room) error {
	return db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Room, error) {
	var room entity.Room
	err := db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindActiveByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (*entity.Room, error) {
	var room entity.Room
	err := db.WithContext(ctx).
		Where("identifier = ? AND is_active = ?", identifier, true).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) CountInactiveByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Room{}).
		Where("identifier = ? AND is_active = ?", identifier, false).
		Count(&count).Error
	return count, err
}

// FindAll supports optional filters: active flag and a free-text search.
func (r *roomRepository) FindAll(ctx context.Context, db *gorm.DB, filter *entity.RoomFilter) ([]entity.Room, error) {
	var rooms []entity.Room
	query := db.WithContext(ctx).Model(&entity.Room{})

	if filter != nil {
		if filter.Active != nil {
			query = query.Where("is_active = ?", *filter.Active)
		}
		if filter.Search != "" {
			s := "%" + filter.Search + "%"
			query = query.Where("(identifier ILIKE ? OR description ILIKE ?)", s, s)
		}
	}

	err := query.Order("identifier ASC, id ASC").Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) SetActive(ctx context.Context, db *gorm.DB, id int64, active bool) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Room{}).
		Where("id = ?", id).
		Update("is_active", active)
	return result.RowsAffected, result.Error
}

func (r *roomRepository) Delete(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Room{})
	return result.RowsAffected, result.Error
}
