package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxManager hands out connections and runs work inside a single database transaction.
// Repositories always receive the *gorm.DB to run on, so the same repository call
// works on a plain connection or inside fn.
type TxManager interface {
	Conn(ctx context.Context) *gorm.DB
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
