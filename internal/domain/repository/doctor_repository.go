package repository

import (
	"context"
	"time"

	"opd-room-tracker/internal/domain/entity"

	"gorm.io/gorm"
)

type DoctorRepository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.Doctor, error)
	// UpdateRoom overwrites the doctor's room selection and its timestamp.
	UpdateRoom(ctx context.Context, db *gorm.DB, id int64, room string, at time.Time) (int64, error)
	// FindInRoomBetween returns the doctor whose selection of room was made in [from, to),
	// latest selection first, or nil when nobody selected the room in that window.
	FindInRoomBetween(ctx context.Context, db *gorm.DB, room string, from, to time.Time) (*entity.Doctor, error)
	// FindWithRoomBetween returns every doctor whose selection was made in [from, to).
	FindWithRoomBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Doctor, error)
	CountByCurrentRoom(ctx context.Context, db *gorm.DB, room string) (int64, error)
	ClearRoom(ctx context.Context, db *gorm.DB, room string) (int64, error)
}
