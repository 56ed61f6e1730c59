package usecase

import (
	"context"

	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultAuditPageSize = 20
	maxAuditPageSize     = 100
)

// AuditPage clamps paging input to what GetAllAuditLogs applies.
func AuditPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	return page, limit
}

type AuditLogUsecase interface {
	GetAllAuditLogs(ctx context.Context, page, limit int) ([]entity.AuditLog, int64, error)
	GetAuditLog(ctx context.Context, id int64) (*entity.AuditLog, error)
}

type auditLogUsecase struct {
	txManager    repository.TxManager
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(
	txManager repository.TxManager,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		txManager:    txManager,
		log:          log,
		auditLogRepo: auditLogRepo,
	}
}

// GetAllAuditLogs returns one page, newest first, and the total number of entries.
func (u *auditLogUsecase) GetAllAuditLogs(ctx context.Context, page, limit int) ([]entity.AuditLog, int64, error) {
	page, limit = AuditPage(page, limit)

	logs, total, err := u.auditLogRepo.FindAll(ctx, u.txManager.Conn(ctx), limit, (page-1)*limit)
	if err != nil {
		u.log.Warnf("Failed to find all audit logs: %+v", err)
		return nil, 0, internalError("list audit logs", err)
	}

	return logs, total, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, id int64) (*entity.AuditLog, error) {
	if id <= 0 {
		return nil, ErrInvalidArgument
	}

	auditLog, err := u.auditLogRepo.FindByID(ctx, u.txManager.Conn(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find audit log %d: %+v", id, err)
		return nil, internalError("find audit log", err)
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return auditLog, nil
}
