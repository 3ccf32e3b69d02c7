package service

import (
	"context"
	"errors"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/infrastructure"
	"farmmarket/marketplace-service/internal/app/marketplace/repository"
	"farmmarket/pkg/logger"
	"farmmarket/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// orderTransitions допустимые переходы статусов заказа
// COMPLETED и CANCELLED финальные
var orderTransitions = map[entity.OrderStatus][]entity.OrderStatus{
	entity.OrderStatusPending: {
		entity.OrderStatusAccepted,
		entity.OrderStatusCancelled,
	},
	entity.OrderStatusAccepted: {
		entity.OrderStatusCompleted,
		entity.OrderStatusCancelled,
	},
	entity.OrderStatusCompleted: {},
	entity.OrderStatusCancelled: {},
}

// CanTransition проверяет допустимость смены статуса заказа
func CanTransition(from, to entity.OrderStatus) bool {
	for _, status := range orderTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

// IsCancellable true для статусов, из которых заказ можно отменить
func IsCancellable(status entity.OrderStatus) bool {
	return CanTransition(status, entity.OrderStatusCancelled)
}

// OrderService управляет жизненным циклом заказа и его влиянием на остатки
//
// Создание заказа и списание остатков выполняются в одной транзакции.
// Смена статуса берет блокировку строки заказа, поэтому восстановление остатков
// при отмене выполняется ровно один раз, даже если отмены пришли одновременно.
type OrderService struct {
	tx            repository.Transactor
	orderRepo     repository.OrderRepository
	orderItemRepo repository.OrderItemRepository
	productRepo   repository.ProductRepository
	farmerRepo    repository.FarmerRepository
	ledger        *InventoryLedger
	publisher     infrastructure.EventPublisher
}

// NewOrderService создает новый сервис заказов с внедрением зависимостей
func NewOrderService(
	tx repository.Transactor,
	orderRepo repository.OrderRepository,
	orderItemRepo repository.OrderItemRepository,
	productRepo repository.ProductRepository,
	farmerRepo repository.FarmerRepository,
	ledger *InventoryLedger,
	publisher infrastructure.EventPublisher,
) *OrderService {
	return &OrderService{
		tx:            tx,
		orderRepo:     orderRepo,
		orderItemRepo: orderItemRepo,
		productRepo:   productRepo,
		farmerRepo:    farmerRepo,
		ledger:        ledger,
		publisher:     publisher,
	}
}

// CreateOrder создает заказ покупателя у одного фермера
// 1. Проверяет фермера
// 2. Проверяет каждую позицию: товар фермера, опубликован, хватает остатка
// 3. Фиксирует цены и считает сумму
// 4. Сохраняет заказ в статусе PENDING и списывает остатки
// Любая ошибка откатывает все целиком, частичных заказов не бывает
func (s *OrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req *entity.CreateOrderRequest) (*entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, &ItemError{ProductID: item.ProductID, Err: ErrInvalidQuantity}
		}
	}

	farmer, err := s.farmerRepo.GetByID(ctx, req.FarmerID)
	if err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, storeErr("get farmer", err)
	}
	if farmer.UserID == buyerID {
		return nil, ErrInvariantViolation
	}

	order := &entity.Order{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		FarmerID:        farmer.ID,
		Status:          entity.OrderStatusPending,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		items, err := s.priceItems(ctx, order.ID, farmer.ID, req.Items)
		if err != nil {
			return err
		}
		order.TotalAmount = calculateTotal(items)

		if err := s.orderRepo.Create(ctx, order); err != nil {
			return storeErr("create order", err)
		}
		if err := s.orderItemRepo.CreateBatch(ctx, items); err != nil {
			return storeErr("create order items", err)
		}
		// Условное списание: параллельный заказ мог забрать остаток после проверки выше
		if err := s.ledger.Reserve(ctx, items); err != nil {
			return err
		}

		order.Items = items
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, storeErr("create order", err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	metrics.RecordOrderCreated(order.TotalAmount)
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID.String()).
		Str("buyer_id", buyerID.String()).
		Str("total", order.TotalAmount.StringFixed(2)).
		Int("items", len(order.Items)).
		Msg("Order created")

	total := order.TotalAmount
	publishEvent(ctx, s.publisher, entity.MarketplaceEvent{
		EventType:   entity.EventOrderCreated,
		EntityID:    order.ID.String(),
		ActorID:     buyerID,
		OrderStatus: order.Status,
		TotalAmount: &total,
		ItemsCount:  len(order.Items),
	})

	return order, nil
}

// priceItems загружает товары и фиксирует цену на момент заказа
func (s *OrderService) priceItems(ctx context.Context, orderID, farmerID uuid.UUID, reqItems []entity.OrderItemRequest) ([]entity.OrderItem, error) {
	items := make([]entity.OrderItem, 0, len(reqItems))

	for _, reqItem := range reqItems {
		product, err := s.productRepo.GetByID(ctx, reqItem.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, &ItemError{ProductID: reqItem.ProductID, Err: ErrProductNotFound}
			}
			return nil, storeErr("get product", err)
		}
		if product.FarmerID != farmerID {
			return nil, &ItemError{ProductID: product.ID, Err: ErrProductNotFromFarmer}
		}
		if err := checkAvailability(product, reqItem.Quantity); err != nil {
			return nil, &ItemError{ProductID: product.ID, Err: err}
		}

		items = append(items, entity.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: product.ID,
			Quantity:  reqItem.Quantity,
			Price:     product.Price,
			Subtotal:  lineSubtotal(product.Price, reqItem.Quantity),
		})
	}

	return items, nil
}

// UpdateStatus меняет статус заказа, доступно фермеру заказа и администратору
// Отменить заказ может только администратор (покупатель - через CancelOrder), остатки при этом возвращаются
func (s *OrderService) UpdateStatus(ctx context.Context, principal entity.Principal, orderID uuid.UUID, newStatus entity.OrderStatus) (*entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	authorize := func(ctx context.Context, order *entity.Order) error {
		if principal.IsModerator() {
			return nil
		}
		if newStatus == entity.OrderStatusCancelled {
			return ErrForbidden
		}
		farmer, err := s.farmerRepo.GetByID(ctx, order.FarmerID)
		if err != nil {
			if errors.Is(err, repository.ErrFarmerNotFound) {
				return ErrFarmerNotFound
			}
			return storeErr("get farmer", err)
		}
		if farmer.UserID != principal.UserID {
			return ErrForbidden
		}
		return nil
	}

	return s.transition(ctx, principal, orderID, newStatus, authorize)
}

// CancelOrder отменяет заказ от имени покупателя или администратора
// Допустимо только из PENDING и ACCEPTED, иначе ErrOrderNotCancellable
func (s *OrderService) CancelOrder(ctx context.Context, principal entity.Principal, orderID uuid.UUID) (*entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelOrder")
	defer span.End()

	authorize := func(_ context.Context, order *entity.Order) error {
		if !principal.IsModerator() && order.BuyerID != principal.UserID {
			return ErrForbidden
		}
		if !IsCancellable(order.Status) {
			return ErrOrderNotCancellable
		}
		return nil
	}

	return s.transition(ctx, principal, orderID, entity.OrderStatusCancelled, authorize)
}

// transition единая точка смены статуса для UpdateStatus и CancelOrder
// Работает под блокировкой строки заказа; восстановление остатков живет только здесь
func (s *OrderService) transition(
	ctx context.Context,
	principal entity.Principal,
	orderID uuid.UUID,
	newStatus entity.OrderStatus,
	authorize func(ctx context.Context, order *entity.Order) error,
) (*entity.Order, error) {
	var (
		order    *entity.Order
		previous entity.OrderStatus
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return storeErr("lock order", err)
		}

		if err := authorize(ctx, order); err != nil {
			return err
		}
		if !CanTransition(order.Status, newStatus) {
			return ErrInvalidStatusTransition
		}

		previous = order.Status
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, previous, newStatus); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrInvalidStatusTransition
			}
			return storeErr("update order status", err)
		}

		if newStatus == entity.OrderStatusCancelled {
			if err := s.restoreStock(ctx, order.ID); err != nil {
				return err
			}
		}

		order.Status = newStatus
		return nil
	})
	if err != nil {
		return nil, storeErr("update order status", err)
	}

	metrics.RecordOrderTransition(string(previous), string(newStatus))
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID.String()).
		Str("from", string(previous)).
		Str("to", string(newStatus)).
		Str("actor_id", principal.UserID.String()).
		Msg("Order status changed")

	publishEvent(ctx, s.publisher, entity.MarketplaceEvent{
		EventType:      entity.EventOrderStatusChanged,
		EntityID:       order.ID.String(),
		ActorID:        principal.UserID,
		OrderStatus:    newStatus,
		PreviousStatus: previous,
	})

	return order, nil
}

// restoreStock возвращает на склад все позиции заказа
func (s *OrderService) restoreStock(ctx context.Context, orderID uuid.UUID) error {
	items, err := s.orderItemRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return storeErr("get order items", err)
	}
	return s.ledger.Restore(ctx, items)
}

// GetOrder получает заказ с позициями, видит покупатель, фермер заказа и администратор
func (s *OrderService) GetOrder(ctx context.Context, principal entity.Principal, orderID uuid.UUID) (*entity.Order, error) {
	order, err := s.orderRepo.GetWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, storeErr("get order", err)
	}

	if principal.IsModerator() || order.BuyerID == principal.UserID {
		return order, nil
	}

	farmer, err := s.farmerRepo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return nil, ErrForbidden
		}
		return nil, storeErr("get farmer", err)
	}
	if farmer.ID != order.FarmerID {
		return nil, ErrForbidden
	}

	return order, nil
}

// ListOrders возвращает заказы по фильтру
// Покупатель видит только свои заказы, фермер только заказы своей фермы
func (s *OrderService) ListOrders(ctx context.Context, principal entity.Principal, filter entity.OrderFilter) ([]entity.Order, error) {
	switch principal.Role {
	case entity.RoleAdmin:
	case entity.RoleFarmer:
		farmer, err := s.farmerRepo.GetByUserID(ctx, principal.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrFarmerNotFound) {
				return nil, ErrFarmerNotFound
			}
			return nil, storeErr("get farmer", err)
		}
		filter.FarmerID = farmer.ID
	default:
		filter.BuyerID = principal.UserID
	}

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return orders, nil
}

// lineSubtotal стоимость позиции по зафиксированной цене
func lineSubtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// calculateTotal сумма subtotal всех позиций, округленная до 2 знаков (half-up)
func calculateTotal(items []entity.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total.Round(2)
}
