package service

import (
	"context"
	"errors"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/infrastructure"
	"farmmarket/marketplace-service/internal/app/marketplace/repository"
	"farmmarket/pkg/logger"
	"farmmarket/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Источники пересчета рейтинга (метка метрики)
const (
	TriggerReview    = "review"
	TriggerEvent     = "event"
	TriggerReconcile = "reconcile"
)

// RatingService пересчитывает агрегированный рейтинг фермера
// Рейтинг всегда выводится полным пересчетом одобренных отзывов покупателей: O(количество отзывов),
// зато пересчет идемпотентен и исправляет любое расхождение
type RatingService struct {
	reviewRepo repository.ReviewRepository
	farmerRepo repository.FarmerRepository
	cache      infrastructure.RatingCache
	cacheTTL   time.Duration
}

// NewRatingService создает сервис рейтингов, cache может быть nil
func NewRatingService(
	reviewRepo repository.ReviewRepository,
	farmerRepo repository.FarmerRepository,
	cache infrastructure.RatingCache,
	cacheTTL time.Duration,
) *RatingService {
	return &RatingService{
		reviewRepo: reviewRepo,
		farmerRepo: farmerRepo,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// AggregateRating среднее оценок, округленное до 1 знака, и их количество
// Пустой набор дает (0, 0)
func AggregateRating(ratings []int) (decimal.Decimal, int) {
	if len(ratings) == 0 {
		return decimal.Zero, 0
	}

	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}

	mean := decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(int64(len(ratings))), 1)
	return mean, len(ratings)
}

// RecomputeRating пересчитывает рейтинг фермера по всем одобренным отзывам покупателей
// Безопасен при повторных и параллельных вызовах: последний записавший прав, так как результат
// всегда выводится из полного текущего набора
func (s *RatingService) RecomputeRating(ctx context.Context, farmerUserID uuid.UUID, trigger string) (*entity.FarmerRating, error) {
	ctx, span := tracer.Start(ctx, "RatingService.RecomputeRating")
	defer span.End()

	farmer, err := s.farmerRepo.GetByUserID(ctx, farmerUserID)
	if err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, storeErr("get farmer", err)
	}

	ratings, err := s.reviewRepo.ApprovedRatings(ctx, farmerUserID, entity.RoleBuyer)
	if err != nil {
		return nil, storeErr("load approved ratings", err)
	}

	rating, count := AggregateRating(ratings)

	if err := s.farmerRepo.UpdateRating(ctx, farmerUserID, rating, count); err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, storeErr("update farmer rating", err)
	}

	s.invalidate(ctx, farmer.ID)
	metrics.RecordRatingRecompute(trigger)

	logger.Ctx(ctx).Debug().
		Str("farmer_id", farmer.ID.String()).
		Str("rating", rating.StringFixed(1)).
		Int("review_count", count).
		Str("trigger", trigger).
		Msg("Farmer rating recomputed")

	return &entity.FarmerRating{
		FarmerID:    farmer.ID,
		Rating:      rating,
		ReviewCount: count,
	}, nil
}

// ReconcileAll пересчитывает рейтинг каждого фермера
// Ошибка по одному фермеру не останавливает остальных
func (s *RatingService) ReconcileAll(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.ObserveReconcile(time.Since(start)) }()

	userIDs, err := s.farmerRepo.ListUserIDs(ctx)
	if err != nil {
		return 0, storeErr("list farmers", err)
	}

	var (
		processed int
		errs      []error
	)
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.RecomputeRating(ctx, userID, TriggerReconcile); err != nil {
			logger.Error().Err(err).Str("farmer_user_id", userID.String()).Msg("Failed to reconcile farmer rating")
			errs = append(errs, err)
			continue
		}
		processed++
	}

	return processed, errors.Join(errs...)
}

// GetFarmerRating возвращает рейтинг фермера (cache-aside через Redis)
func (s *RatingService) GetFarmerRating(ctx context.Context, farmerID uuid.UUID) (*entity.FarmerRating, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, farmerID)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("Failed to read rating cache")
		}
		if cached != nil {
			return cached, nil
		}
	}

	farmer, err := s.farmerRepo.GetByID(ctx, farmerID)
	if err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, storeErr("get farmer", err)
	}

	rating := &entity.FarmerRating{
		FarmerID:    farmer.ID,
		Rating:      farmer.Rating,
		ReviewCount: farmer.ReviewCount,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rating, s.cacheTTL); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("Failed to cache farmer rating")
		}
	}

	return rating, nil
}

func (s *RatingService) invalidate(ctx context.Context, farmerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, farmerID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("farmer_id", farmerID.String()).Msg("Failed to invalidate rating cache")
	}
}
