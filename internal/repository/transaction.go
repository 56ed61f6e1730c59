package repository

import (
	"context"

	domainRepo "opd-room-tracker/internal/domain/repository"

	"gorm.io/gorm"
)

type gormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) domainRepo.TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) Conn(ctx context.Context) *gorm.DB {
	return m.db.WithContext(ctx)
}

// WithTransaction commits when fn returns nil and rolls back on error or panic.
func (m *gormTxManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
