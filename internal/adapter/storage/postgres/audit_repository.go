package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/fuel-control/internal/domain"
)

type AuditRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAuditRepository(db *gorm.DB, log *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, log: log}
}

func (r *AuditRepository) Append(ctx context.Context, note *domain.AuditNote) error {
	return conn(ctx, r.db).Create(note).Error
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entity domain.AuditEntity, id uint) ([]domain.AuditNote, error) {
	var notes []domain.AuditNote
	err := conn(ctx, r.db).
		Where("entity = ? AND entity_id = ?", entity, id).
		Order("id asc").
		Find(&notes).Error
	return notes, err
}

type AttachmentRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAttachmentRepository(db *gorm.DB, log *zap.Logger) *AttachmentRepository {
	return &AttachmentRepository{db: db, log: log}
}

func (r *AttachmentRepository) Save(ctx context.Context, a *domain.Attachment) error {
	a.Size = len(a.Data)
	return conn(ctx, r.db).Save(a).Error
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id uint) (*domain.Attachment, error) {
	var a domain.Attachment
	err := conn(ctx, r.db).First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
