package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"schoolprops/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "schoolprops"

type CacheService interface {
	// Item caching
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
	SetItem(ctx context.Context, item *models.InventoryItem, ttl time.Duration) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error

	// Cache invalidation
	InvalidateAllCache(ctx context.Context) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisClient builds a client from an address that may carry a redis:// scheme.
func NewRedisClient(addr, password string, db int) *redis.Client {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Warn().Err(pingErr).Str("address", parsedAddr).Msg("Redis ping failed on initialization")
	} else {
		log.Debug().Str("address", parsedAddr).Msg("Redis connection established")
	}
	return client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func itemKey(itemID uuid.UUID) string {
	return fmt.Sprintf("%s:item:%s", keyPrefix, itemID.String())
}

func (r *redisCacheService) GetItem(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	data, err := r.client.Get(ctx, itemKey(itemID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var item models.InventoryItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *redisCacheService) SetItem(ctx context.Context, item *models.InventoryItem, ttl time.Duration) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, itemKey(item.ID), data, ttl).Err()
}

func (r *redisCacheService) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.client.Del(ctx, itemKey(itemID)).Err()
}

func (r *redisCacheService) InvalidateAllCache(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, keyPrefix+":item:*").Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type noopCacheService struct{}

// NewNoopCacheService returns a cache that always misses. Used when Redis is not configured.
func NewNoopCacheService() CacheService {
	return noopCacheService{}
}

func (noopCacheService) GetItem(context.Context, uuid.UUID) (*models.InventoryItem, error) {
	return nil, nil
}

func (noopCacheService) SetItem(context.Context, *models.InventoryItem, time.Duration) error {
	return nil
}

func (noopCacheService) DeleteItem(context.Context, uuid.UUID) error { return nil }

func (noopCacheService) InvalidateAllCache(context.Context) error { return nil }

func (noopCacheService) Ping(context.Context) error { return nil }
