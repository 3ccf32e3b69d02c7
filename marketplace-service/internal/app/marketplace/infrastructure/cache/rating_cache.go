package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const ratingKeyPrefix = "farmer_rating"

// RedisRatingCache хранит FarmerRating в Redis в виде JSON
type RedisRatingCache struct {
	client *redis.Client
}

// NewRedisRatingCache подключается к Redis и проверяет соединение
func NewRedisRatingCache(addr, password string, db int) (*RedisRatingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRatingCache{client: client}, nil
}

// NewRedisRatingCacheWithClient оборачивает готовый клиент
func NewRedisRatingCacheWithClient(client *redis.Client) *RedisRatingCache {
	return &RedisRatingCache{client: client}
}

func ratingKey(farmerID uuid.UUID) string {
	return ratingKeyPrefix + ":" + farmerID.String()
}

// Get возвращает рейтинг из кеша, nil при промахе
func (c *RedisRatingCache) Get(ctx context.Context, farmerID uuid.UUID) (*entity.FarmerRating, error) {
	timer := metrics.NewRedisTimer(metrics.ServiceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := c.client.Get(ctx, ratingKey(farmerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(metrics.ServiceName, ratingKeyPrefix)
			return nil, nil
		}
		metrics.RecordRedisError(metrics.ServiceName, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get rating from cache: %w", err)
	}

	var rating entity.FarmerRating
	if err := json.Unmarshal(data, &rating); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rating: %w", err)
	}

	metrics.RecordCacheHit(metrics.ServiceName, ratingKeyPrefix)
	return &rating, nil
}

// Set кладет рейтинг в кеш на ttl
func (c *RedisRatingCache) Set(ctx context.Context, rating *entity.FarmerRating, ttl time.Duration) error {
	timer := metrics.NewRedisTimer(metrics.ServiceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	data, err := json.Marshal(rating)
	if err != nil {
		return fmt.Errorf("failed to marshal rating: %w", err)
	}

	if err := c.client.Set(ctx, ratingKey(rating.FarmerID), data, ttl).Err(); err != nil {
		metrics.RecordRedisError(metrics.ServiceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to set rating in cache: %w", err)
	}

	return nil
}

// Delete инвалидирует рейтинг фермера
func (c *RedisRatingCache) Delete(ctx context.Context, farmerID uuid.UUID) error {
	timer := metrics.NewRedisTimer(metrics.ServiceName, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := c.client.Del(ctx, ratingKey(farmerID)).Err(); err != nil {
		metrics.RecordRedisError(metrics.ServiceName, metrics.RedisOpDel)
		return fmt.Errorf("failed to delete rating from cache: %w", err)
	}
	return nil
}

func (c *RedisRatingCache) Close() error {
	return c.client.Close()
}
