package repository

import (
	"context"
	"errors"
	"fmt"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type farmerRepository struct {
	db *gorm.DB
}

// NewFarmerRepository создает репозиторий профилей фермеров
func NewFarmerRepository(db *gorm.DB) FarmerRepository {
	return &farmerRepository{db: db}
}

// GetByID получает фермера по ID профиля
func (r *farmerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Farmer, error) {
	var farmer entity.Farmer
	result := conn(ctx, r.db).First(&farmer, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, result.Error
	}

	return &farmer, nil
}

// GetByUserID получает фермера по пользователю-владельцу
func (r *farmerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Farmer, error) {
	var farmer entity.Farmer
	result := conn(ctx, r.db).First(&farmer, "user_id = ?", userID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, result.Error
	}

	return &farmer, nil
}

// ListUserIDs возвращает пользователей-владельцев всех ферм, используется для сверки рейтингов
func (r *farmerRepository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	result := conn(ctx, r.db).Model(&entity.Farmer{}).Order("user_id").Pluck("user_id", &userIDs)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list farmers: %w", result.Error)
	}

	return userIDs, nil
}

// UpdateRating записывает пересчитанный агрегат рейтинга
func (r *farmerRepository) UpdateRating(ctx context.Context, userID uuid.UUID, rating decimal.Decimal, count int) error {
	result := conn(ctx, r.db).
		Model(&entity.Farmer{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"rating":       rating,
			"review_count": count,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update farmer rating: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrFarmerNotFound
	}

	return nil
}
