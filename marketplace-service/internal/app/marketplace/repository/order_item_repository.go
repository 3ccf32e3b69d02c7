package repository

import (
	"context"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type orderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

func (r *orderItemRepository) CreateBatch(ctx context.Context, items []entity.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	result := conn(ctx, r.db).Create(&items)
	return result.Error
}

func (r *orderItemRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]entity.OrderItem, error) {
	var items []entity.OrderItem
	result := conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("product_id").
		Find(&items)

	if result.Error != nil {
		return nil, result.Error
	}

	return items, nil
}
