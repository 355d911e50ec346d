// Package cache holds lease lookups in Redis so hot names skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nameledger/internal/ledger/models"
	"nameledger/pkg/platform/sentinel"
)

const (
	leaseKeyPrefix = "nameledger:lease:h:"

	DefaultTTL = 30 * time.Second
)

// setIfNewerScript stores the record only when no cached record for the name
// expires at or after it. ExpiresAt strictly increases with every committed
// registration or renewal of a name, so a late fill from a read that raced a
// mutation can never replace the mutation's record.
//
// KEYS[1] = lease hash key
// ARGV[1] = expires_at in unix milliseconds
// ARGV[2] = encoded record
// ARGV[3] = ttl in milliseconds
var setIfNewerScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'v')
if current and tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// RedisCache implements ports.LeaseCache. Entries expire after the TTL, which
// bounds how long another instance's write can go unnoticed.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

type Option func(*RedisCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewRedisCache(client redis.Cmdable, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, name string) (*models.LeaseRecord, error) {
	raw, err := c.client.HGet(ctx, leaseKeyPrefix+name, "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cached lease: %w", err)
	}
	var lease models.LeaseRecord
	if err := json.Unmarshal(raw, &lease); err != nil {
		return nil, sentinel.ErrNotFound
	}
	return &lease, nil
}

// Set caches lease unless a record with the same or a later expiry is
// already cached.
func (c *RedisCache) Set(ctx context.Context, lease *models.LeaseRecord) error {
	raw, err := json.Marshal(lease)
	if err != nil {
		return fmt.Errorf("encode lease: %w", err)
	}
	err = setIfNewerScript.Run(ctx, c.client,
		[]string{leaseKeyPrefix + lease.Name},
		lease.ExpiresAt.UnixMilli(), raw, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("set cached lease: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, name string) error {
	if err := c.client.Del(ctx, leaseKeyPrefix+name).Err(); err != nil {
		return fmt.Errorf("invalidate cached lease: %w", err)
	}
	return nil
}
