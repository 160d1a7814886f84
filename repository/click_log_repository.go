package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/utm-tracker/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClickLogRepositoryImpl implements ClickLogRepository
type ClickLogRepositoryImpl struct {
	*BaseRepository[models.ClickLog, any]
}

func NewClickLogRepository(db *gorm.DB) ClickLogRepository {
	return &ClickLogRepositoryImpl{BaseRepository: NewBaseRepository[models.ClickLog, any](db)}
}

// Insert is a single statement; a duplicate visitor is reported as inserted=false
func (r *ClickLogRepositoryImpl) Insert(ctx context.Context, log *models.ClickLog) (bool, error) {
	if err := r.getDB(ctx).Create(log).Error; err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert click log: %w", err)
	}
	return true, nil
}

func (r *ClickLogRepositoryImpl) CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.ClickLog{}).Where("utm_link_id = ?", linkID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count click logs: %w", err)
	}
	return count, nil
}
