package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/utm-tracker/app/services"
	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/repository"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClickTrackingFlow resolves a tracking id to its destination and counts the visit.
// Public flow, no authentication required.
type ClickTrackingFlow interface {
	TrackClick(ctx context.Context, rawID string, metadata *ClientMetadata) (string, error)
}

type ClickTrackingFlowImpl struct {
	linkRepo  repository.UTMLinkRepository
	clickRepo repository.ClickLogRepository
	cache     services.LinkCache
	logger    *zap.Logger
}

func NewClickTrackingFlow(
	linkRepo repository.UTMLinkRepository,
	clickRepo repository.ClickLogRepository,
	cache services.LinkCache,
	logger *zap.Logger,
) ClickTrackingFlow {
	return &ClickTrackingFlowImpl{
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		cache:     cache,
		logger:    utils.OrNop(logger),
	}
}

// TrackClick returns the destination URL. Only a missing id or an unknown link
// is an error; failures while logging or counting the click are absorbed.
func (f *ClickTrackingFlowImpl) TrackClick(ctx context.Context, rawID string, metadata *ClientMetadata) (string, error) {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return "", ErrTrackingIDRequired
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", ErrUTMLinkNotFound
	}
	if metadata == nil {
		metadata = NewClientMetadata("", "")
	}

	destination, err := f.destination(ctx, id)
	if err != nil {
		return "", err
	}

	clicksTotal.Inc()

	inserted, err := f.clickRepo.Insert(ctx, &models.ClickLog{
		UTMLinkID: id,
		IPAddress: metadata.IPAddress,
		UserAgent: metadata.UserAgent,
	})
	if err != nil {
		clickBookkeepingFailures.WithLabelValues("click_log").Inc()
		f.logger.Warn("Failed to log click, counting it as repeat visit",
			zap.String("link_id", id.String()),
			zap.String("request_id", metadata.RequestID),
			zap.Error(err))
		inserted = false
	}
	if inserted {
		uniqueClicksTotal.Inc()
	}

	if err := f.linkRepo.IncrementClicks(ctx, id, inserted); err != nil {
		clickBookkeepingFailures.WithLabelValues("counter").Inc()
		f.logger.Error("Failed to increment click counters",
			zap.String("link_id", id.String()),
			zap.Bool("unique", inserted),
			zap.String("request_id", metadata.RequestID),
			zap.Error(err))
	}

	return destination, nil
}

// destination prefers the cache; cache errors fall through to the database
func (f *ClickTrackingFlowImpl) destination(ctx context.Context, id uuid.UUID) (string, error) {
	if f.cache != nil {
		dest, ok, err := f.cache.Destination(ctx, id)
		if err != nil {
			f.logger.Warn("Link cache lookup failed", zap.String("link_id", id.String()), zap.Error(err))
		} else if ok && dest != "" {
			return dest, nil
		}
	}

	link, err := f.linkRepo.ByID(ctx, id)
	if err != nil {
		f.logger.Error("Link lookup failed", zap.String("link_id", id.String()), zap.Error(err))
		return "", NewBusinessError("UTM_LINK_LOOKUP_FAILED", "Failed to lookup link", ErrUTMLinkNotFound)
	}
	if link == nil {
		return "", ErrUTMLinkNotFound
	}

	if f.cache != nil {
		if err := f.cache.SetDestination(ctx, id, link.FullURL); err != nil {
			f.logger.Warn("Failed to cache link destination", zap.String("link_id", id.String()), zap.Error(err))
		}
	}
	return link.FullURL, nil
}

// ResolveClientIP picks the visitor address: the first X-Forwarded-For entry,
// then X-Real-IP, then the connection address, then "unknown".
func ResolveClientIP(forwardedFor, realIP, remoteIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP = strings.TrimSpace(realIP); realIP != "" {
		return realIP
	}
	if remoteIP = strings.TrimSpace(remoteIP); remoteIP != "" {
		return remoteIP
	}
	return utils.UnknownClientValue
}
