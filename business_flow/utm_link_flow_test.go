package businessflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/app/services"
	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/repository"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicBaseURL = "https://links.example.com/"

type linkFlowFixture struct {
	flow      UTMLinkFlow
	linkRepo  repository.UTMLinkRepository
	clickRepo repository.ClickLogRepository
	shortener *services.MockURLShortener
	cache     *memoryLinkCache
}

func newLinkFlowFixture(t *testing.T) *linkFlowFixture {
	t.Helper()
	db := setupTestDB(t)
	linkRepo := repository.NewUTMLinkRepository(db.DB)
	clickRepo := repository.NewClickLogRepository(db.DB)
	shortener := services.NewMockURLShortener()
	cache := &memoryLinkCache{dests: map[uuid.UUID]string{}}
	provisioner := NewShortLinkProvisioner(shortener, time.Second, nil)

	return &linkFlowFixture{
		flow:      NewUTMLinkFlow(linkRepo, clickRepo, provisioner, nil, cache, testPublicBaseURL, nil),
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		shortener: shortener,
		cache:     cache,
	}
}

func validCreateRequest() *dto.CreateUTMLinkRequest {
	return &dto.CreateUTMLinkRequest{
		Email:       "marketer@example.com",
		Program:     "NIAT",
		Channel:     "Invite & Earn",
		Platform:    "Offline Poster",
		Placement:   "QR Code",
		LandingPage: "https://niat.example.com/invite-landing",
		CBA:         utils.ToPtr("CBA12"),
		Code:        utils.ToPtr("spring"),
		Domain:      utils.ToPtr("niat-spring"),
	}
}

func TestCreateUTMLink_TwoPhaseProvisioning(t *testing.T) {
	f := newLinkFlowFixture(t)
	userID := uuid.New()

	resp, err := f.flow.CreateUTMLink(context.Background(), validCreateRequest(), &userID, NewClientMetadata("1.1.1.1", "ua"))
	require.NoError(t, err)

	id, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "invite-poster", resp.UTMSource)
	assert.Equal(t, "qr_code", resp.UTMMedium)
	assert.Equal(t, "invite-niat-CBA12-spring", resp.UTMCampaign)
	assert.Equal(t, "https://niat.example.com/invite-landing?utm_source=invite-poster&utm_medium=qr_code&utm_campaign=invite-niat-CBA12-spring", resp.FullURL)
	assert.Equal(t, "https://links.example.com/api/v1/track?id="+id.String(), resp.TrackingURL)
	assert.Equal(t, "https://short.local/niat-spring", resp.ShortURL)
	assert.Equal(t, "complete", resp.Status)

	stored, err := f.linkRepo.ByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, resp.TrackingURL, stored.TrackingURL)
	assert.Equal(t, resp.ShortURL, stored.ShortURL)
	assert.Equal(t, models.ProvisioningStatusComplete, stored.ProvisioningStatus)
	assert.Equal(t, models.UTMLinkSourceIndividual, stored.Source)
	assert.Equal(t, userID, *stored.UserID)
	assert.Equal(t, "marketer@example.com", *stored.Email)
	assert.Zero(t, stored.Clicks)

	require.Len(t, f.shortener.Calls, 1)
	assert.Equal(t, resp.TrackingURL, f.shortener.Calls[0].LongURL)
	assert.Equal(t, resp.FullURL, f.cache.dests[id])
}

func TestCreateUTMLink_AliasTakenUsesVariant(t *testing.T) {
	f := newLinkFlowFixture(t)
	f.shortener.Taken["niat-spring"] = "https://elsewhere.example.com"

	resp, err := f.flow.CreateUTMLink(context.Background(), validCreateRequest(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://short.local/niat-spring-v2", resp.ShortURL)
}

func TestCreateUTMLink_ShortenerDownFallsBackToTrackingURL(t *testing.T) {
	f := newLinkFlowFixture(t)
	f.shortener.Err = services.ErrShortenerUnavailable

	resp, err := f.flow.CreateUTMLink(context.Background(), validCreateRequest(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, resp.TrackingURL, resp.ShortURL)
	assert.Equal(t, "complete", resp.Status)
}

func TestCreateUTMLink_OptionalFieldsOmitted(t *testing.T) {
	f := newLinkFlowFixture(t)
	req := validCreateRequest()
	req.CBA, req.Code, req.Domain = nil, utils.ToPtr("  "), nil
	req.Email = ""

	resp, err := f.flow.CreateUTMLink(context.Background(), req, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "invite-niat", resp.UTMCampaign)
	assert.True(t, strings.HasPrefix(resp.ShortURL, "https://short.local/"))
	require.Len(t, f.shortener.Calls, 1)
	assert.Empty(t, f.shortener.Calls[0].Alias)

	stored, err := f.linkRepo.ByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.Nil(t, stored.Code)
	assert.Nil(t, stored.Email)
	assert.Nil(t, stored.UserID)
}

func TestCreateUTMLink_RejectsValuesOutsideCatalog(t *testing.T) {
	f := newLinkFlowFixture(t)

	cases := []func(*dto.CreateUTMLinkRequest){
		func(r *dto.CreateUTMLinkRequest) { r.Program = "Bootcamp" },
		func(r *dto.CreateUTMLinkRequest) { r.Channel = "Radio" },
		func(r *dto.CreateUTMLinkRequest) { r.Platform = "TikTok" },
		func(r *dto.CreateUTMLinkRequest) { r.Placement = "Bio Link" },
	}
	for _, mutate := range cases {
		req := validCreateRequest()
		mutate(req)
		_, err := f.flow.CreateUTMLink(context.Background(), req, nil, nil)
		assert.True(t, IsUnknownCatalogValue(err))
	}
	assert.Empty(t, f.shortener.Calls)
}

type failingSaveRepo struct {
	repository.UTMLinkRepository
}

func (failingSaveRepo) Save(context.Context, *models.UTMLink) error {
	return errors.New("insert failed")
}

func TestCreateUTMLink_InsertFailureIsSurfaced(t *testing.T) {
	f := newLinkFlowFixture(t)
	provisioner := NewShortLinkProvisioner(f.shortener, time.Second, nil)
	flow := NewUTMLinkFlow(failingSaveRepo{f.linkRepo}, f.clickRepo, provisioner, nil, nil, testPublicBaseURL, nil)

	_, err := flow.CreateUTMLink(context.Background(), validCreateRequest(), nil, nil)
	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "CREATE_UTM_LINK_FAILED", be.Code)
	assert.Empty(t, f.shortener.Calls)
}

type failingPatchRepo struct {
	repository.UTMLinkRepository
}

func (failingPatchRepo) PatchTrackingURL(context.Context, uuid.UUID, string, string) error {
	return errors.New("patch failed")
}

func TestCreateUTMLink_PatchFailureLeavesProvisioning(t *testing.T) {
	f := newLinkFlowFixture(t)
	provisioner := NewShortLinkProvisioner(f.shortener, time.Second, nil)
	flow := NewUTMLinkFlow(failingPatchRepo{f.linkRepo}, f.clickRepo, provisioner, nil, nil, testPublicBaseURL, nil)

	resp, err := flow.CreateUTMLink(context.Background(), validCreateRequest(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "provisioning", resp.Status)
	assert.NotEmpty(t, resp.ShortURL)

	stored, err := f.linkRepo.ByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.Equal(t, models.ProvisioningStatusProvisioning, stored.ProvisioningStatus)
	assert.Empty(t, stored.TrackingURL)
}

type staticEmails map[string]string

func (s staticEmails) ResolveEmails(_ context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if e, ok := s[id]; ok {
			out[id] = e
		} else {
			out[id] = utils.UnknownEmail
		}
	}
	return out
}

func TestGetUTMLink(t *testing.T) {
	f := newLinkFlowFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	req := validCreateRequest()
	req.Email = ""
	created, err := f.flow.CreateUTMLink(ctx, req, &userID, nil)
	require.NoError(t, err)

	provisioner := NewShortLinkProvisioner(f.shortener, time.Second, nil)
	flow := NewUTMLinkFlow(f.linkRepo, f.clickRepo, provisioner, staticEmails{userID.String(): "owner@example.com"}, nil, testPublicBaseURL, nil)

	tracker := NewClickTrackingFlow(f.linkRepo, f.clickRepo, nil, nil)
	_, err = tracker.TrackClick(ctx, created.ID, NewClientMetadata("1.1.1.1", "ua"))
	require.NoError(t, err)
	_, err = tracker.TrackClick(ctx, created.ID, NewClientMetadata("1.1.1.1", "ua"))
	require.NoError(t, err)

	got, err := flow.GetUTMLink(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "owner@example.com", got.Email)
	assert.Equal(t, int64(2), got.Clicks)
	assert.Equal(t, int64(1), got.UniqueClicks)
	assert.Equal(t, int64(1), got.LoggedVisitors)
	assert.Equal(t, "complete", got.Status)
}

func TestGetUTMLink_NotFound(t *testing.T) {
	f := newLinkFlowFixture(t)
	for _, id := range []string{uuid.NewString(), "nope", ""} {
		_, err := f.flow.GetUTMLink(context.Background(), id)
		assert.True(t, IsUTMLinkNotFound(err), "id %q", id)
	}
}
