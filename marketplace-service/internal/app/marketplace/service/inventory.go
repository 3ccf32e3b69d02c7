package service

import (
	"bytes"
	"context"
	"errors"
	"slices"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/repository"
	"farmmarket/pkg/metrics"

	"github.com/google/uuid"
)

// InventoryLedger владеет остатками товаров
// Все изменения идут через условное атомарное обновление в БД, без чтения-изменения-записи
type InventoryLedger struct {
	productRepo repository.ProductRepository
}

// NewInventoryLedger создает леджер остатков
func NewInventoryLedger(productRepo repository.ProductRepository) *InventoryLedger {
	return &InventoryLedger{productRepo: productRepo}
}

// AdjustStock изменяет остаток на delta и возвращает новое значение
// Никогда не обрезает до нуля: если результат отрицательный, возвращает ErrInsufficientStock
func (l *InventoryLedger) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	stock, err := l.productRepo.AdjustStock(ctx, productID, delta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			metrics.RecordStockRejection()
			return 0, ErrInsufficientStock
		case errors.Is(err, repository.ErrProductNotFound):
			return 0, ErrProductNotFound
		}
		return 0, storeErr("adjust stock", err)
	}
	return stock, nil
}

// CanFulfill проверяет, что товар можно заказать в нужном количестве
// Несуществующий товар дает false без ошибки
func (l *InventoryLedger) CanFulfill(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	product, err := l.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return false, nil
		}
		return false, storeErr("get product", err)
	}
	return checkAvailability(product, quantity) == nil, nil
}

// Reserve списывает остатки по позициям заказа
// Позиции обрабатываются в порядке ProductID, чтобы параллельные заказы блокировали строки в одном порядке
func (l *InventoryLedger) Reserve(ctx context.Context, items []entity.OrderItem) error {
	for _, item := range sortedByProduct(items) {
		if _, err := l.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			return &ItemError{ProductID: item.ProductID, Err: err}
		}
	}
	return nil
}

// Restore возвращает остатки по позициям отмененного заказа
func (l *InventoryLedger) Restore(ctx context.Context, items []entity.OrderItem) error {
	for _, item := range sortedByProduct(items) {
		if _, err := l.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			return &ItemError{ProductID: item.ProductID, Err: err}
		}
	}
	return nil
}

// checkAvailability причина, по которой товар нельзя заказать, или nil
func checkAvailability(product *entity.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if !product.IsOrderable() {
		return ErrProductUnavailable
	}
	if product.Stock < quantity {
		return ErrInsufficientStock
	}
	return nil
}

func sortedByProduct(items []entity.OrderItem) []entity.OrderItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b entity.OrderItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return sorted
}
