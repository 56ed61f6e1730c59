package repository

import (
	"context"

	"opd-room-tracker/internal/domain/entity"

	"gorm.io/gorm"
)

type RoomRepository interface {
	Create(ctx context.Context, db *gorm.DB, room *entity.Room) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Room, error)
	FindActiveByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (*entity.Room, error)
	CountInactiveByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (int64, error)
	FindAll(ctx context.Context, db *gorm.DB, filter *entity.RoomFilter) ([]entity.Room, error)
	SetActive(ctx context.Context, db *gorm.DB, id int64, active bool) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) (int64, error)
}
