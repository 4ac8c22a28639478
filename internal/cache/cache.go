// cache — кэш refresh-токенов в Redis.
// Кэш не является источником истины: промах или ошибка Redis
// означают обращение к PostgreSQL.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RefreshEntry описывает данные, которые хранятся в Redis по хэшу refresh-токена.
type RefreshEntry struct {
	UserID    uuid.UUID
	Revoked   bool
	ExpiresAt time.Time
}

// RefreshCache — контракт кэша refresh-токенов.
//
//go:generate mockgen -destination=../../mocks/mock_refresh_cache.go -package=mocks github.com/pribylovaa/bondia/internal/cache RefreshCache
type RefreshCache interface {
	// Get возвращает запись и признак её наличия в кэше.
	Get(ctx context.Context, hash string) (*RefreshEntry, bool, error)
	// Set сохраняет запись с TTL (обычно ExpiresAt-now).
	Set(ctx context.Context, hash string, e *RefreshEntry, ttl time.Duration) error
	// MarkRevoked помечает ключ revoked=true, сохраняя остаточный TTL.
	MarkRevoked(ctx context.Context, hash string) error
	// Close закрывает клиент Redis.
	Close() error
}

// RedisCache — реализация RefreshCache поверх go-redis.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Пустой prefix заменяется на "bondia:rt:".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (*RedisCache, error) {
	const op = "cache/NewRedisCache"

	if prefix == "" {
		prefix = "bondia:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *RedisCache) key(hash string) string { return c.prefix + hash }

// Get читает Redis Hash с полями uid, rev (0/1), exp (unix).
func (c *RedisCache) Get(ctx context.Context, hash string) (*RefreshEntry, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(hash)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	return decodeEntry(m)
}

// Set сохраняет запись. ttl <= 0 — запись не кэшируется.
func (c *RedisCache) Set(ctx context.Context, hash string, e *RefreshEntry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(hash), encodeEntry(e))
	pipe.Expire(ctx, c.key(hash), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// MarkRevoked выставляет rev=1 только у существующего ключа,
// чтобы не создать запись без TTL.
func (c *RedisCache) MarkRevoked(ctx context.Context, hash string) error {
	n, err := c.rdb.Exists(ctx, c.key(hash)).Result()
	if err != nil || n == 0 {
		return err
	}

	return c.rdb.HSet(ctx, c.key(hash), "rev", "1").Err()
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

func encodeEntry(e *RefreshEntry) map[string]string {
	return map[string]string{
		"uid": e.UserID.String(),
		"rev": boolTo01(e.Revoked),
		"exp": strconv.FormatInt(e.ExpiresAt.Unix(), 10),
	}
}

func decodeEntry(m map[string]string) (*RefreshEntry, bool, error) {
	uid, err := uuid.Parse(m["uid"])
	if err != nil {
		return nil, false, err
	}

	expUnix, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &RefreshEntry{
		UserID:    uid,
		Revoked:   m["rev"] == "1",
		ExpiresAt: time.Unix(expUnix, 0).UTC(),
	}, true, nil
}

func boolTo01(b bool) string {
	if b {
		return "1"
	}

	return "0"
}

var _ RefreshCache = (*RedisCache)(nil)
