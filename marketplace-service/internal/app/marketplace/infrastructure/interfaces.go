package infrastructure

import (
	"context"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"

	"github.com/google/uuid"
)

// EventPublisher публикует события маркетплейса (Kafka)
type EventPublisher interface {
	Publish(ctx context.Context, event entity.MarketplaceEvent) error
	Close() error
}

// RatingCache кеш агрегированного рейтинга фермера
// Get возвращает nil, nil при промахе
type RatingCache interface {
	Get(ctx context.Context, farmerID uuid.UUID) (*entity.FarmerRating, error)
	Set(ctx context.Context, rating *entity.FarmerRating, ttl time.Duration) error
	Delete(ctx context.Context, farmerID uuid.UUID) error
	Close() error
}
