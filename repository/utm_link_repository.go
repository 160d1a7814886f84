package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/utm-tracker/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UTMLinkRepositoryImpl implements UTMLinkRepository
type UTMLinkRepositoryImpl struct {
	*BaseRepository[models.UTMLink, models.UTMLinkFilter]
}

func NewUTMLinkRepository(db *gorm.DB) UTMLinkRepository {
	return &UTMLinkRepositoryImpl{BaseRepository: NewBaseRepository[models.UTMLink, models.UTMLinkFilter](db)}
}

func (r *UTMLinkRepositoryImpl) ByID(ctx context.Context, id uuid.UUID) (*models.UTMLink, error) {
	db := r.getDB(ctx)
	var row models.UTMLink
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find utm link %s: %w", id, err)
	}
	return &row, nil
}

func (r *UTMLinkRepositoryImpl) applyFilter(db *gorm.DB, f models.UTMLinkFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.Program != nil {
		db = db.Where("program = ?", *f.Program)
	}
	if f.Channel != nil {
		db = db.Where("channel = ?", *f.Channel)
	}
	if f.Platform != nil {
		db = db.Where("platform = ?", *f.Platform)
	}
	if f.Source != nil {
		db = db.Where("source = ?", *f.Source)
	}
	if f.ProvisioningStatus != nil {
		db = db.Where("provisioning_status = ?", *f.ProvisioningStatus)
	}
	if f.Search != nil && strings.TrimSpace(*f.Search) != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(*f.Search)) + "%"
		db = db.Where("LOWER(full_url) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ? OR LOWER(utm_campaign) LIKE ?", like, like, like)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *UTMLinkRepositoryImpl) ByFilter(ctx context.Context, filter models.UTMLinkFilter, orderBy string, limit, offset int) ([]*models.UTMLink, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.UTMLink{}), filter), orderBy, limit, offset)
	var rows []*models.UTMLink
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list utm links: %w", err)
	}
	return rows, nil
}

func (r *UTMLinkRepositoryImpl) Count(ctx context.Context, filter models.UTMLinkFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.UTMLink{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count utm links: %w", err)
	}
	return count, nil
}

func (r *UTMLinkRepositoryImpl) Exists(ctx context.Context, filter models.UTMLinkFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *UTMLinkRepositoryImpl) PatchTrackingURL(ctx context.Context, id uuid.UUID, trackingURL, shortURL string) error {
	db := r.getDB(ctx)
	updates := map[string]any{
		"tracking_url":        trackingURL,
		"provisioning_status": models.ProvisioningStatusComplete,
	}
	if shortURL != "" {
		updates["short_url"] = shortURL
	}
	res := db.Model(&models.UTMLink{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to patch tracking url for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UTMLinkRepositoryImpl) UpdateShortURL(ctx context.Context, id uuid.UUID, shortURL string) error {
	db := r.getDB(ctx)
	res := db.Model(&models.UTMLink{}).Where("id = ?", id).Update("short_url", shortURL)
	if res.Error != nil {
		return fmt.Errorf("failed to update short url for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UTMLinkRepositoryImpl) IncrementClicks(ctx context.Context, id uuid.UUID, unique bool) error {
	db := r.getDB(ctx)
	updates := map[string]any{"clicks": gorm.Expr("clicks + ?", 1)}
	if unique {
		updates["unique_clicks"] = gorm.Expr("unique_clicks + ?", 1)
	}
	res := db.Model(&models.UTMLink{}).Where("id = ?", id).UpdateColumns(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to increment clicks for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UTMLinkRepositoryImpl) ListProvisioning(ctx context.Context, olderThan time.Time, limit int) ([]*models.UTMLink, error) {
	status := models.ProvisioningStatusProvisioning
	return r.ByFilter(ctx, models.UTMLinkFilter{
		ProvisioningStatus: &status,
		CreatedBefore:      &olderThan,
	}, "created_at ASC", limit, 0)
}
