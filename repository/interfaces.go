package repository

import (
	"context"
	"time"

	"github.com/amirphl/utm-tracker/models"
	"github.com/google/uuid"
)

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uuid.UUID) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UTMLinkRepository defines operations for UTM link records
type UTMLinkRepository interface {
	Repository[models.UTMLink, models.UTMLinkFilter]
	// PatchTrackingURL is the second write of link creation; it marks the record complete
	PatchTrackingURL(ctx context.Context, id uuid.UUID, trackingURL, shortURL string) error
	UpdateShortURL(ctx context.Context, id uuid.UUID, shortURL string) error
	// IncrementClicks bumps clicks, and unique_clicks when unique is set, in one statement
	IncrementClicks(ctx context.Context, id uuid.UUID, unique bool) error
	ListProvisioning(ctx context.Context, olderThan time.Time, limit int) ([]*models.UTMLink, error)
}

// ClickLogRepository defines operations for click logs
type ClickLogRepository interface {
	// Insert returns inserted=false with a nil error when the visitor was already logged for the link
	Insert(ctx context.Context, log *models.ClickLog) (bool, error)
	CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error)
}
