package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/app/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	emails   map[uuid.UUID]string
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeIdentity) EmailByID(ctx context.Context, id uuid.UUID) (string, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	email, ok := f.emails[id]
	if !ok {
		return "", services.ErrUserNotFound
	}
	return email, nil
}

type memoryEmailCache struct {
	mu     sync.Mutex
	emails map[uuid.UUID]string
}

func (c *memoryEmailCache) Email(_ context.Context, id uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.emails[id]
	return e, ok, nil
}

func (c *memoryEmailCache) SetEmail(_ context.Context, id uuid.UUID, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emails[id] = email
	return nil
}

func TestGetUserEmails_InvalidPayload(t *testing.T) {
	flow := NewUserEmailFlow(&fakeIdentity{}, nil, 10, time.Second, 2, nil)
	for _, raw := range []string{``, `null`, `"abc"`, `{"id":"x"}`, `42`} {
		_, err := flow.GetUserEmails(context.Background(), &dto.UserEmailsRequest{UserIDs: json.RawMessage(raw)})
		assert.True(t, IsInvalidUserIDs(err), "payload %q", raw)
	}
}

func TestGetUserEmails_ResolvesAndDedupes(t *testing.T) {
	known := uuid.New()
	missing := uuid.New()
	identity := &fakeIdentity{emails: map[uuid.UUID]string{known: "ana@example.com"}}
	flow := NewUserEmailFlow(identity, nil, 10, time.Second, 2, nil)

	raw := `["` + known.String() + `","` + known.String() + `","` + missing.String() + `","bogus",7]`
	resp, err := flow.GetUserEmails(context.Background(), &dto.UserEmailsRequest{UserIDs: json.RawMessage(raw)})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		known.String():   "ana@example.com",
		missing.String(): "Unknown",
		"bogus":          "Unknown",
		"7":              "Unknown",
	}, resp.EmailMap)
	assert.Equal(t, int32(2), identity.calls.Load())
}

func TestGetUserEmails_EmptyList(t *testing.T) {
	flow := NewUserEmailFlow(&fakeIdentity{}, nil, 10, time.Second, 2, nil)
	resp, err := flow.GetUserEmails(context.Background(), &dto.UserEmailsRequest{UserIDs: json.RawMessage(`[]`)})
	require.NoError(t, err)
	assert.Empty(t, resp.EmailMap)
}

func TestResolveEmails_ConcurrencyIsCapped(t *testing.T) {
	identity := &fakeIdentity{emails: map[uuid.UUID]string{}, delay: 20 * time.Millisecond}
	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		id := uuid.New()
		identity.emails[id] = id.String() + "@example.com"
		ids = append(ids, id.String())
	}

	flow := NewUserEmailFlow(identity, nil, 5, time.Second, 3, nil)
	got := flow.ResolveEmails(context.Background(), ids)

	assert.Len(t, got, 12)
	for _, id := range ids {
		assert.Equal(t, id+"@example.com", got[id])
	}
	assert.LessOrEqual(t, identity.peak.Load(), int32(3))
}

func TestResolveEmails_SlowLookupTimesOut(t *testing.T) {
	id := uuid.New()
	identity := &fakeIdentity{emails: map[uuid.UUID]string{id: "slow@example.com"}, delay: time.Second}
	flow := NewUserEmailFlow(identity, nil, 10, 20*time.Millisecond, 1, nil)

	got := flow.ResolveEmails(context.Background(), []string{id.String()})
	assert.Equal(t, "Unknown", got[id.String()])
}

func TestResolveEmails_UsesCache(t *testing.T) {
	cached := uuid.New()
	fresh := uuid.New()
	identity := &fakeIdentity{emails: map[uuid.UUID]string{fresh: "fresh@example.com"}}
	cache := &memoryEmailCache{emails: map[uuid.UUID]string{cached: "cached@example.com"}}
	flow := NewUserEmailFlow(identity, cache, 10, time.Second, 2, nil)

	got := flow.ResolveEmails(context.Background(), []string{cached.String(), fresh.String()})
	assert.Equal(t, "cached@example.com", got[cached.String()])
	assert.Equal(t, "fresh@example.com", got[fresh.String()])
	assert.Equal(t, int32(1), identity.calls.Load())
	assert.Equal(t, "fresh@example.com", cache.emails[fresh])
}

type erroringIdentity struct{}

func (erroringIdentity) EmailByID(context.Context, uuid.UUID) (string, error) {
	return "", errors.New("identity provider down")
}

func TestResolveEmails_ProviderFailureMapsToUnknown(t *testing.T) {
	id := uuid.New()
	flow := NewUserEmailFlow(erroringIdentity{}, nil, 10, time.Second, 2, nil)
	got := flow.ResolveEmails(context.Background(), []string{id.String()})
	assert.Equal(t, map[string]string{id.String(): "Unknown"}, got)
}
