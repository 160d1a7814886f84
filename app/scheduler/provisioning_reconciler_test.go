package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/utm-tracker/app/services"
	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/repository"
	testdb "github.com/amirphl/utm-tracker/testing"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const publicBaseURL = "https://links.example.com"

func setupReconciler(t *testing.T) (*ProvisioningReconciler, repository.UTMLinkRepository, *testdb.TestFixtures) {
	t.Helper()
	db, err := testdb.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.TeardownTestDB() })

	linkRepo := repository.NewUTMLinkRepository(db.DB)
	provisioner := businessflow.NewShortLinkProvisioner(services.NewMockURLShortener(), time.Second, nil)
	r := NewProvisioningReconciler(linkRepo, provisioner, publicBaseURL, "", 0, nil)
	return r, linkRepo, testdb.NewTestFixtures(db)
}

func stuck(age time.Duration, shortURL string) func(*models.UTMLink) {
	return func(l *models.UTMLink) {
		l.ProvisioningStatus = models.ProvisioningStatusProvisioning
		l.TrackingURL = ""
		l.ShortURL = shortURL
		l.CreatedAt = utils.UTCNow().Add(-age)
	}
}

func TestReconcile_CompletesStaleRecords(t *testing.T) {
	r, linkRepo, fx := setupReconciler(t)
	ctx := context.Background()

	withShort, err := fx.CreateTestUTMLink(ctx, stuck(10*time.Minute, "https://tinyurl.com/kept"))
	require.NoError(t, err)
	withoutShort, err := fx.CreateTestUTMLink(ctx, stuck(10*time.Minute, ""), func(l *models.UTMLink) {
		l.Domain = utils.ToPtr("spring")
	})
	require.NoError(t, err)
	fresh, err := fx.CreateTestUTMLink(ctx, stuck(0, ""))
	require.NoError(t, err)

	result, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 1, result.ShortLinks)
	assert.Zero(t, result.Failed)

	got, err := linkRepo.ByID(ctx, withShort.ID)
	require.NoError(t, err)
	assert.True(t, got.IsComplete())
	assert.Equal(t, "https://tinyurl.com/kept", got.ShortURL)
	assert.Equal(t, businessflow.TrackingURL(publicBaseURL, withShort.ID), got.TrackingURL)

	got, err = linkRepo.ByID(ctx, withoutShort.ID)
	require.NoError(t, err)
	assert.True(t, got.IsComplete())
	assert.Equal(t, "https://short.local/spring", got.ShortURL)

	// inside the grace period the creating request may still be running
	got, err = linkRepo.ByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, got.IsComplete())
}

func TestReconcile_NothingToDo(t *testing.T) {
	r, _, fx := setupReconciler(t)
	ctx := context.Background()

	_, err := fx.CreateTestUTMLink(ctx)
	require.NoError(t, err)

	result, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Scanned)
}

func TestReconcile_RespectsBatch(t *testing.T) {
	r, _, fx := setupReconciler(t)
	r.batch = 2
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := fx.CreateTestUTMLink(ctx, stuck(time.Hour, "https://tinyurl.com/x"))
		require.NoError(t, err)
	}

	first, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Completed)

	second, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Completed)
}

func TestStart_RejectsBadSpec(t *testing.T) {
	r, _, _ := setupReconciler(t)
	r.spec = "not a schedule"

	stop, err := r.Start(context.Background())
	assert.Error(t, err)
	assert.Nil(t, stop)
}
