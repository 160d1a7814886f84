package services

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/utm-tracker/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LinkCache keeps link destinations hot for the redirect path. Counters are never cached.
type LinkCache interface {
	Destination(ctx context.Context, linkID uuid.UUID) (string, bool, error)
	SetDestination(ctx context.Context, linkID uuid.UUID, fullURL string) error
}

// EmailCache keeps identity lookups between dashboard requests
type EmailCache interface {
	Email(ctx context.Context, userID uuid.UUID) (string, bool, error)
	SetEmail(ctx context.Context, userID uuid.UUID, email string) error
}

// RedisCache implements LinkCache and EmailCache. A nil client turns every lookup into a miss.
type RedisCache struct {
	rc       *redis.Client
	prefix   string
	linkTTL  time.Duration
	emailTTL time.Duration
}

// NewRedisCache creates a new redis backed cache
func NewRedisCache(rc *redis.Client, cfg *config.CacheConfig) *RedisCache {
	return &RedisCache{
		rc:       rc,
		prefix:   cfg.RedisPrefix,
		linkTTL:  cfg.LinkTTL,
		emailTTL: cfg.DefaultTTL,
	}
}

func (c *RedisCache) linkKey(id uuid.UUID) string  { return c.prefix + "link:dest:" + id.String() }
func (c *RedisCache) emailKey(id uuid.UUID) string { return c.prefix + "user:email:" + id.String() }

func (c *RedisCache) get(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.rc == nil {
		return "", false, nil
	}
	v, err := c.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c == nil || c.rc == nil {
		return nil
	}
	return c.rc.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Destination(ctx context.Context, linkID uuid.UUID) (string, bool, error) {
	return c.get(ctx, c.linkKey(linkID))
}

func (c *RedisCache) SetDestination(ctx context.Context, linkID uuid.UUID, fullURL string) error {
	return c.set(ctx, c.linkKey(linkID), fullURL, c.linkTTL)
}

func (c *RedisCache) Email(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	return c.get(ctx, c.emailKey(userID))
}

func (c *RedisCache) SetEmail(ctx context.Context, userID uuid.UUID, email string) error {
	return c.set(ctx, c.emailKey(userID), email, c.emailTTL)
}
