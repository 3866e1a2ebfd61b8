package domain

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type AuditPGRepository struct {
	db *gorm.DB
}

func NewAuditPGRepository(db *gorm.DB) *AuditPGRepository {
	return &AuditPGRepository{db: db}
}

func (r *AuditPGRepository) Create(ctx context.Context, entry *AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}
