package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/app/services"
	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/repository"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UTMLinkFlow handles link creation and single-record reads
type UTMLinkFlow interface {
	CreateUTMLink(ctx context.Context, req *dto.CreateUTMLinkRequest, userID *uuid.UUID, metadata *ClientMetadata) (*dto.CreateUTMLinkResponse, error)
	GetUTMLink(ctx context.Context, rawID string) (*dto.UTMLinkDetailResponse, error)
}

type UTMLinkFlowImpl struct {
	linkRepo      repository.UTMLinkRepository
	clickRepo     repository.ClickLogRepository
	provisioner   ShortLinkProvisioner
	emails        EmailResolver
	cache         services.LinkCache
	publicBaseURL string
	logger        *zap.Logger
}

func NewUTMLinkFlow(
	linkRepo repository.UTMLinkRepository,
	clickRepo repository.ClickLogRepository,
	provisioner ShortLinkProvisioner,
	emails EmailResolver,
	cache services.LinkCache,
	publicBaseURL string,
	logger *zap.Logger,
) UTMLinkFlow {
	return &UTMLinkFlowImpl{
		linkRepo:      linkRepo,
		clickRepo:     clickRepo,
		provisioner:   provisioner,
		emails:        emails,
		cache:         cache,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        utils.OrNop(logger),
	}
}

// TrackingURL builds the redirect address embedding the record id
func TrackingURL(publicBaseURL string, id uuid.UUID) string {
	return fmt.Sprintf("%s%s?id=%s", strings.TrimRight(publicBaseURL, "/"), utils.TrackPath, id)
}

// CreateUTMLink builds the UTM strings, stores the record, provisions a short link for
// its tracking URL and patches the record. Only the first insert can fail the call.
func (f *UTMLinkFlowImpl) CreateUTMLink(ctx context.Context, req *dto.CreateUTMLinkRequest, userID *uuid.UUID, metadata *ClientMetadata) (*dto.CreateUTMLinkResponse, error) {
	if err := f.validateCreateRequest(req); err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", err.Error(), err)
	}

	params := BuildUTMParams(UTMInput{
		Channel:       req.Channel,
		Platform:      req.Platform,
		Placement:     req.Placement,
		Program:       req.Program,
		Code:          strings.TrimSpace(utils.Deref(req.CBA)),
		AliasFragment: strings.TrimSpace(utils.Deref(req.Code)),
	})
	fullURL := BuildFullURL(req.LandingPage, params)

	link := &models.UTMLink{
		Program:            req.Program,
		Channel:            req.Channel,
		Platform:           req.Platform,
		Placement:          req.Placement,
		Code:               utils.StrPtrOrNil(utils.Deref(req.Code)),
		Domain:             utils.StrPtrOrNil(utils.Deref(req.Domain)),
		CBA:                utils.StrPtrOrNil(utils.Deref(req.CBA)),
		UTMSource:          params.Source,
		UTMMedium:          params.Medium,
		UTMCampaign:        params.Campaign,
		FullURL:            fullURL,
		UserID:             userID,
		Email:              utils.StrPtrOrNil(req.Email),
		Source:             models.UTMLinkSourceIndividual,
		ProvisioningStatus: models.ProvisioningStatusProvisioning,
	}

	if err := f.linkRepo.Save(ctx, link); err != nil {
		return nil, NewBusinessError("CREATE_UTM_LINK_FAILED", "Failed to create UTM link", err)
	}

	if f.cache != nil {
		if err := f.cache.SetDestination(ctx, link.ID, link.FullURL); err != nil {
			f.logger.Warn("Failed to warm link cache", zap.String("link_id", link.ID.String()), zap.Error(err))
		}
	}

	trackingURL := TrackingURL(f.publicBaseURL, link.ID)
	shortURL := f.provisioner.Provision(ctx, trackingURL, utils.Deref(link.Domain))

	status := models.ProvisioningStatusComplete
	if err := f.linkRepo.PatchTrackingURL(ctx, link.ID, trackingURL, shortURL); err != nil {
		status = models.ProvisioningStatusProvisioning
		f.logger.Error("Failed to patch tracking URL, record left provisioning",
			zap.String("link_id", link.ID.String()),
			zap.String("request_id", requestIDOf(metadata)),
			zap.Error(err))
	}
	linksCreated.WithLabelValues(string(models.UTMLinkSourceIndividual), string(status)).Inc()

	return &dto.CreateUTMLinkResponse{
		ID:          link.ID.String(),
		FullURL:     fullURL,
		ShortURL:    shortURL,
		TrackingURL: trackingURL,
		UTMSource:   params.Source,
		UTMMedium:   params.Medium,
		UTMCampaign: params.Campaign,
		Status:      string(status),
	}, nil
}

func (f *UTMLinkFlowImpl) validateCreateRequest(req *dto.CreateUTMLinkRequest) error {
	if !models.IsKnownProgram(req.Program) {
		return fmt.Errorf("%w: %q", ErrUnknownProgram, req.Program)
	}
	if !models.IsKnownChannel(req.Channel) {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, req.Channel)
	}
	if !models.IsKnownPlatform(req.Platform) {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, req.Platform)
	}
	if !models.IsKnownPlacement(req.Platform, req.Placement) {
		return fmt.Errorf("%w: %q on %q", ErrUnknownPlacement, req.Placement, req.Platform)
	}
	return nil
}

// GetUTMLink returns one record. Records still provisioning are returned as they are.
func (f *UTMLinkFlowImpl) GetUTMLink(ctx context.Context, rawID string) (*dto.UTMLinkDetailResponse, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, ErrUTMLinkNotFound
	}

	link, err := f.linkRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("GET_UTM_LINK_FAILED", "Failed to get UTM link", err)
	}
	if link == nil {
		return nil, ErrUTMLinkNotFound
	}

	email := ""
	if link.Email == nil && link.UserID != nil && f.emails != nil {
		resolved := f.emails.ResolveEmails(ctx, []string{link.UserID.String()})
		email = resolved[link.UserID.String()]
	}

	visitors, err := f.clickRepo.CountByLink(ctx, id)
	if err != nil {
		return nil, NewBusinessError("GET_UTM_LINK_FAILED", "Failed to count link visitors", err)
	}

	return &dto.UTMLinkDetailResponse{
		UTMLinkDTO:     ToUTMLinkDTO(link, email),
		LoggedVisitors: visitors,
	}, nil
}

func requestIDOf(metadata *ClientMetadata) string {
	if metadata == nil {
		return ""
	}
	return metadata.RequestID
}
