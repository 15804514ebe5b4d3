package mysql

import (
	"context"

	"loan-ledger/internal/domain/audit"

	"gorm.io/gorm"
)

type AuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Append(ctx context.Context, e *audit.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *AuditRepository) ListByEntityID(ctx context.Context, entityID string) ([]audit.Event, error) {
	var out []audit.Event
	res := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("timestamp_utc ASC, id ASC").
		Find(&out)
	return out, res.Error
}
