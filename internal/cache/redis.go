package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/servicehub/config"
	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client       *redis.Client
	directoryTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, directoryTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		directoryTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, directoryTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, directoryTTL: directoryTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetUser returns nil, nil on a cache miss.
func (c *RedisCache) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	ok, err := c.get(ctx, userKey(id), &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (c *RedisCache) SetUser(ctx context.Context, u *domain.User) error {
	return c.set(ctx, userKey(u.ID), u)
}

// GetService returns nil, nil on a cache miss.
func (c *RedisCache) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	var s domain.Service
	ok, err := c.get(ctx, serviceKey(id), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (c *RedisCache) SetService(ctx context.Context, s *domain.Service) error {
	return c.set(ctx, serviceKey(s.ID), s)
}

// releaseLockScript deletes the lock only while it still holds the caller's token.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireSettlementLock serializes settlement attempts for one booking across
// processes. The lock expires after ttl if its holder dies. The returned token
// must be passed to ReleaseSettlementLock.
func (c *RedisCache) AcquireSettlementLock(ctx context.Context, bookingID int64, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, settlementLockKey(bookingID), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseSettlementLock is a no-op when the lock expired and was taken by
// another holder.
func (c *RedisCache) ReleaseSettlementLock(ctx context.Context, bookingID int64, token string) error {
	return releaseLockScript.Run(ctx, c.client, []string{settlementLockKey(bookingID)}, token).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.directoryTTL).Err()
}

func userKey(id int64) string {
	return fmt.Sprintf("cache:user:%d", id)
}

func serviceKey(id int64) string {
	return fmt.Sprintf("cache:service:%d", id)
}

func settlementLockKey(bookingID int64) string {
	return fmt.Sprintf("lock:booking:%d:settlement", bookingID)
}
