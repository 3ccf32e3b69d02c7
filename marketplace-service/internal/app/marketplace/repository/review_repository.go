package repository

import (
	"context"
	"errors"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает новый репозиторий отзывов
// Уникальность (order_id, reviewer_id, reviewer_role) обеспечивает индекс reviews_order_reviewer_role_idx
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create сохраняет отзыв
// Нарушение уникального индекса возвращается как ErrDuplicateKey
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	timer := metrics.NewDbTimer(metrics.ServiceName, metrics.DbOpInsert, "reviews")
	defer timer.ObserveDuration()

	if err := conn(ctx, r.db).Create(review).Error; err != nil {
		err = translateError(err)
		if !errors.Is(err, ErrDuplicateKey) {
			metrics.RecordDbError(metrics.ServiceName, metrics.DbOpInsert, "reviews")
		}
		return err
	}
	return nil
}

// GetByID получает отзыв по ID
func (r *reviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	result := conn(ctx, r.db).First(&review, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, result.Error
	}

	return &review, nil
}

// GetByIDForUpdate получает отзыв с блокировкой строки до конца транзакции
func (r *reviewRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	result := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&review, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, result.Error
	}

	return &review, nil
}

// Exists проверяет, оставлял ли пользователь отзыв по заказу в данной роли
func (r *reviewRepository) Exists(ctx context.Context, orderID, reviewerID uuid.UUID, role entity.UserRole) (bool, error) {
	var count int64
	result := conn(ctx, r.db).
		Model(&entity.Review{}).
		Where("order_id = ? AND reviewer_id = ? AND reviewer_role = ?", orderID, reviewerID, role).
		Count(&count)

	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

// List получает отзывы по фильтру, новые первыми
func (r *reviewRepository) List(ctx context.Context, filter entity.ReviewFilter) ([]entity.Review, error) {
	query := conn(ctx, r.db).Model(&entity.Review{})

	if filter.RevieweeID != uuid.Nil {
		query = query.Where("reviewee_id = ?", filter.RevieweeID)
	}
	if filter.ReviewerID != uuid.Nil {
		query = query.Where("reviewer_id = ?", filter.ReviewerID)
	}
	if filter.ReviewerRole != "" {
		query = query.Where("reviewer_role = ?", filter.ReviewerRole)
	}
	if filter.ApprovedOnly {
		query = query.Where("approved = ?", true)
	}
	if filter.PendingOnly {
		query = query.Where("approved = ? AND moderated_at IS NULL", false)
	}
	if filter.VisibleTo != uuid.Nil {
		query = query.Where(
			"(approved = ? OR reviewer_id = ? OR (reviewee_id = ? AND moderated_at IS NULL))",
			true, filter.VisibleTo, filter.VisibleTo,
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var reviews []entity.Review
	result := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&reviews)

	if result.Error != nil {
		return nil, result.Error
	}

	return reviews, nil
}

// Update сохраняет правку автора: оценку и комментарий
// Состояние модерации не трогается, его меняет только UpdateModeration
func (r *reviewRepository) Update(ctx context.Context, review *entity.Review) error {
	result := conn(ctx, r.db).
		Model(&entity.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]interface{}{
			"rating":  review.Rating,
			"comment": review.Comment,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// UpdateModeration записывает решение модератора
func (r *reviewRepository) UpdateModeration(ctx context.Context, review *entity.Review) error {
	timer := metrics.NewDbTimer(metrics.ServiceName, metrics.DbOpUpdate, "reviews")
	defer timer.ObserveDuration()

	result := conn(ctx, r.db).
		Model(&entity.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]interface{}{
			"approved":     review.Approved,
			"moderated_by": review.ModeratedBy,
			"moderated_at": review.ModeratedAt,
		})

	if result.Error != nil {
		metrics.RecordDbError(metrics.ServiceName, metrics.DbOpUpdate, "reviews")
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// Delete удаляет отзыв
func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&entity.Review{}, "id = ?", id)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// ApprovedRatings возвращает оценки одобренных отзывов о пользователе
func (r *reviewRepository) ApprovedRatings(ctx context.Context, revieweeID uuid.UUID, role entity.UserRole) ([]int, error) {
	timer := metrics.NewDbTimer(metrics.ServiceName, metrics.DbOpSelect, "reviews")
	defer timer.ObserveDuration()

	var ratings []int
	result := conn(ctx, r.db).
		Model(&entity.Review{}).
		Where("reviewee_id = ? AND reviewer_role = ? AND approved = ?", revieweeID, role, true).
		Pluck("rating", &ratings)

	if result.Error != nil {
		metrics.RecordDbError(metrics.ServiceName, metrics.DbOpSelect, "reviews")
		return nil, result.Error
	}

	return ratings, nil
}
