package repository

import (
	"context"
	"errors"
	"fmt"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create создает новый товар
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	result := conn(ctx, r.db).Create(product)
	return result.Error
}

// GetByID получает товар по ID (удаленные товары не возвращаются)
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	var product entity.Product
	result := conn(ctx, r.db).First(&product, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}

	return &product, nil
}

// ListByFarmer получает все товары фермера
func (r *productRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]entity.Product, error) {
	var products []entity.Product
	result := conn(ctx, r.db).
		Where("farmer_id = ?", farmerID).
		Order("created_at DESC").
		Find(&products)

	if result.Error != nil {
		return nil, result.Error
	}

	return products, nil
}

// Update обновляет редактируемые поля товара
// Остаток здесь не пишется: он меняется только через AdjustStock
func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	result := conn(ctx, r.db).Model(product).Where("id = ?", product.ID).Updates(map[string]interface{}{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"status":      product.Status,
	})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete мягко удаляет товар (deleted_at), позиции старых заказов продолжают ссылаться на него
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&entity.Product{}, "id = ?", id)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// AdjustStock атомарно меняет остаток одним условным UPDATE
// Проверка stock + delta >= 0 выполняется в самой БД, поэтому два параллельных
// списания не могут вместе уйти в минус. Unscoped: возврат остатка должен
// проходить и для товара, удаленного после оформления заказа
func (r *productRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	timer := metrics.NewDbTimer(metrics.ServiceName, metrics.DbOpUpdate, "products")
	defer timer.ObserveDuration()

	db := conn(ctx, r.db)

	result := db.Unscoped().
		Model(&entity.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))

	if result.Error != nil {
		metrics.RecordDbError(metrics.ServiceName, metrics.DbOpUpdate, "products")
		return 0, fmt.Errorf("failed to adjust stock: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Различаем отсутствие товара и нехватку остатка
		var count int64
		if err := db.Unscoped().Model(&entity.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to check product: %w", err)
		}
		if count == 0 {
			return 0, ErrProductNotFound
		}
		return 0, ErrInsufficientStock
	}

	var stock int
	if err := db.Unscoped().Model(&entity.Product{}).Select("stock").Where("id = ?", id).Scan(&stock).Error; err != nil {
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}

	return stock, nil
}
