package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RefreshCache — минимальный контракт кэша слотов refresh-токенов.
// Ключ — ID пользователя, значение — токен, лежащий сейчас в его слоте.
// Кэш заполняется write-through при каждой ротации; хранилище остаётся
// источником истины, промах кэша всегда ведёт к чтению из БД.
type RefreshCache interface {
	// Get возвращает токен слота и признак его наличия в кэше.
	Get(ctx context.Context, userID uuid.UUID) (string, bool, error)
	// Set сохраняет токен слота с TTL (обычно RefreshTokenTTL).
	Set(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	// Invalidate удаляет запись слота из кэша.
	Invalidate(ctx context.Context, userID uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "session:rt:".
func NewRedisCache(redisURL, prefix string) (RefreshCache, error) {
	if prefix == "" {
		prefix = "session:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(userID uuid.UUID) string { return c.prefix + userID.String() }

func (c *redisCache) Get(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	token, err := c.rdb.Get(ctx, c.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, err
	}

	return token, true, nil
}

func (c *redisCache) Set(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(userID), token, ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.rdb.Del(ctx, c.key(userID)).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
