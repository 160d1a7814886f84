package businessflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/repository"
	testdb "github.com/amirphl/utm-tracker/testing"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *testdb.TestDB {
	t.Helper()
	db, err := testdb.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.TeardownTestDB() })
	return db
}

type trackerFixture struct {
	flow      ClickTrackingFlow
	linkRepo  repository.UTMLinkRepository
	clickRepo repository.ClickLogRepository
	link      *models.UTMLink
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()
	db := setupTestDB(t)
	linkRepo := repository.NewUTMLinkRepository(db.DB)
	clickRepo := repository.NewClickLogRepository(db.DB)

	link, err := testdb.NewTestFixtures(db).CreateTestUTMLink(context.Background())
	require.NoError(t, err)

	return &trackerFixture{
		flow:      NewClickTrackingFlow(linkRepo, clickRepo, nil, nil),
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		link:      link,
	}
}

func (f *trackerFixture) counters(t *testing.T) (int64, int64) {
	t.Helper()
	link, err := f.linkRepo.ByID(context.Background(), f.link.ID)
	require.NoError(t, err)
	return link.Clicks, link.UniqueClicks
}

func TestTrackClick_MissingID(t *testing.T) {
	f := newTrackerFixture(t)
	for _, id := range []string{"", "   "} {
		_, err := f.flow.TrackClick(context.Background(), id, nil)
		assert.True(t, IsTrackingIDRequired(err))
	}
}

func TestTrackClick_UnknownOrMalformedID(t *testing.T) {
	f := newTrackerFixture(t)

	_, err := f.flow.TrackClick(context.Background(), uuid.NewString(), nil)
	assert.True(t, IsUTMLinkNotFound(err))

	_, err = f.flow.TrackClick(context.Background(), "not-a-uuid", nil)
	assert.True(t, IsUTMLinkNotFound(err))

	clicks, unique := f.counters(t)
	assert.Zero(t, clicks)
	assert.Zero(t, unique)
}

func TestTrackClick_CountsTotalAndUnique(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()

	dest, err := f.flow.TrackClick(ctx, f.link.ID.String(), NewClientMetadata("1.1.1.1", "Mozilla/5.0"))
	require.NoError(t, err)
	assert.Equal(t, f.link.FullURL, dest)

	_, err = f.flow.TrackClick(ctx, f.link.ID.String(), NewClientMetadata("1.1.1.1", "Mozilla/5.0"))
	require.NoError(t, err)
	_, err = f.flow.TrackClick(ctx, f.link.ID.String(), NewClientMetadata("2.2.2.2", "Mozilla/5.0"))
	require.NoError(t, err)
	// absent client data collapses to the shared "unknown" visitor
	_, err = f.flow.TrackClick(ctx, f.link.ID.String(), nil)
	require.NoError(t, err)
	_, err = f.flow.TrackClick(ctx, f.link.ID.String(), NewClientMetadata("", ""))
	require.NoError(t, err)

	clicks, unique := f.counters(t)
	assert.Equal(t, int64(5), clicks)
	assert.Equal(t, int64(3), unique)
}

func TestTrackClick_ConcurrentSameVisitor(t *testing.T) {
	f := newTrackerFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.flow.TrackClick(context.Background(), f.link.ID.String(), NewClientMetadata("9.9.9.9", "curl/8"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	clicks, unique := f.counters(t)
	assert.Equal(t, int64(2), clicks)
	assert.Equal(t, int64(1), unique)
}

type failingClickRepo struct{}

func (failingClickRepo) Insert(context.Context, *models.ClickLog) (bool, error) {
	return false, errors.New("click_logs unavailable")
}

func (failingClickRepo) CountByLink(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func TestTrackClick_ClickLogFailureStillRedirects(t *testing.T) {
	f := newTrackerFixture(t)
	flow := NewClickTrackingFlow(f.linkRepo, failingClickRepo{}, nil, nil)

	dest, err := flow.TrackClick(context.Background(), f.link.ID.String(), NewClientMetadata("1.1.1.1", "ua"))
	require.NoError(t, err)
	assert.Equal(t, f.link.FullURL, dest)

	clicks, unique := f.counters(t)
	assert.Equal(t, int64(1), clicks)
	assert.Zero(t, unique)
}

type failingCounterRepo struct {
	repository.UTMLinkRepository
}

func (failingCounterRepo) IncrementClicks(context.Context, uuid.UUID, bool) error {
	return errors.New("counter update failed")
}

func TestTrackClick_CounterFailureStillRedirects(t *testing.T) {
	f := newTrackerFixture(t)
	flow := NewClickTrackingFlow(failingCounterRepo{f.linkRepo}, f.clickRepo, nil, nil)

	dest, err := flow.TrackClick(context.Background(), f.link.ID.String(), NewClientMetadata("1.1.1.1", "ua"))
	require.NoError(t, err)
	assert.Equal(t, f.link.FullURL, dest)

	clicks, _ := f.counters(t)
	assert.Zero(t, clicks)
}

type memoryLinkCache struct {
	mu    sync.Mutex
	dests map[uuid.UUID]string
	err   error
}

func (c *memoryLinkCache) Destination(_ context.Context, id uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", false, c.err
	}
	d, ok := c.dests[id]
	return d, ok, nil
}

func (c *memoryLinkCache) SetDestination(_ context.Context, id uuid.UUID, fullURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.dests[id] = fullURL
	return nil
}

func TestTrackClick_CacheServesDestinationButNotCounters(t *testing.T) {
	f := newTrackerFixture(t)
	cache := &memoryLinkCache{dests: map[uuid.UUID]string{}}
	flow := NewClickTrackingFlow(f.linkRepo, f.clickRepo, cache, nil)

	_, err := flow.TrackClick(context.Background(), f.link.ID.String(), NewClientMetadata("1.1.1.1", "ua"))
	require.NoError(t, err)
	assert.Equal(t, f.link.FullURL, cache.dests[f.link.ID])

	cache.dests[f.link.ID] = "https://cached.example.com"
	dest, err := flow.TrackClick(context.Background(), f.link.ID.String(), NewClientMetadata("1.1.1.1", "ua"))
	require.NoError(t, err)
	assert.Equal(t, "https://cached.example.com", dest)

	clicks, unique := f.counters(t)
	assert.Equal(t, int64(2), clicks)
	assert.Equal(t, int64(1), unique)
}

func TestTrackClick_BrokenCacheFallsBackToDatabase(t *testing.T) {
	f := newTrackerFixture(t)
	flow := NewClickTrackingFlow(f.linkRepo, f.clickRepo, &memoryLinkCache{err: errors.New("redis down")}, nil)

	dest, err := flow.TrackClick(context.Background(), f.link.ID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, f.link.FullURL, dest)
}

func TestResolveClientIP(t *testing.T) {
	assert.Equal(t, "203.0.113.7", ResolveClientIP(" 203.0.113.7 , 10.0.0.1", "10.0.0.2", "10.0.0.3"))
	assert.Equal(t, "10.0.0.2", ResolveClientIP("", "10.0.0.2", "10.0.0.3"))
	assert.Equal(t, "10.0.0.2", ResolveClientIP(" , 10.0.0.1", "10.0.0.2", "10.0.0.3"))
	assert.Equal(t, "10.0.0.3", ResolveClientIP("", "", "10.0.0.3"))
	assert.Equal(t, "unknown", ResolveClientIP("", "", ""))
}

func TestNewClientMetadata_BoundsVisitorIdentity(t *testing.T) {
	m := NewClientMetadata(strings.Repeat("9", 300), strings.Repeat("é", 2000))
	assert.Len(t, m.IPAddress, utils.MaxClientIPLength)
	assert.LessOrEqual(t, len(m.UserAgent), utils.MaxUserAgentLength)
	assert.Equal(t, strings.Repeat("é", utils.MaxUserAgentLength/2), m.UserAgent)

	m = NewClientMetadata("  ", " \t")
	assert.Equal(t, utils.UnknownClientValue, m.IPAddress)
	assert.Equal(t, utils.UnknownClientValue, m.UserAgent)
}

func TestTrackClick_OversizedVisitorCountedUniqueOnce(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	forwarded := strings.Repeat("a", 4096)
	agent := "Mozilla/5.0 " + strings.Repeat("x", 8192)

	for i := 0; i < 2; i++ {
		_, err := f.flow.TrackClick(ctx, f.link.ID.String(), NewClientMetadata(forwarded, agent))
		require.NoError(t, err)
	}

	clicks, unique := f.counters(t)
	assert.Equal(t, int64(2), clicks)
	assert.Equal(t, int64(1), unique)
}
