package service

import (
	"context"
	"slices"
	"sync"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore хранилище в памяти для конкурентных и property-тестов
// Транзакции не сериализуются: откат выполняется журналом отмены, как компенсация изменений
type memStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]entity.Product
	orders   map[uuid.UUID]entity.Order
	items    map[uuid.UUID][]entity.OrderItem
	farmers  map[uuid.UUID]entity.Farmer
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]entity.Product),
		orders:   make(map[uuid.UUID]entity.Order),
		items:    make(map[uuid.UUID][]entity.OrderItem),
		farmers:  make(map[uuid.UUID]entity.Farmer),
	}
}

type undoKey struct{}

type undoLog struct {
	mu  sync.Mutex
	fns []func()
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, log)); err != nil {
		log.mu.Lock()
		defer log.mu.Unlock()
		for i := len(log.fns) - 1; i >= 0; i-- {
			log.fns[i]()
		}
		return err
	}
	return nil
}

func onRollback(ctx context.Context, fn func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.mu.Lock()
		log.fns = append(log.fns, fn)
		log.mu.Unlock()
	}
}

func (s *memStore) addFarmer() *entity.Farmer {
	s.mu.Lock()
	defer s.mu.Unlock()
	farmer := entity.Farmer{ID: uuid.New(), UserID: uuid.New()}
	s.farmers[farmer.ID] = farmer
	return &farmer
}

func (s *memStore) addProduct(farmerID uuid.UUID, price string, stock int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	product := entity.Product{
		ID:       uuid.New(),
		FarmerID: farmerID,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Status:   entity.ProductStatusPublished,
	}
	s.products[product.ID] = product
	return product.ID
}

func (s *memStore) stock(productID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// ===================== ProductRepository =====================

type memProducts struct{ *memStore }

func (r memProducts) Create(_ context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = *product
	return nil
}

func (r memProducts) GetByID(_ context.Context, id uuid.UUID) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &product, nil
}

func (r memProducts) ListByFarmer(_ context.Context, farmerID uuid.UUID) ([]entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var products []entity.Product
	for _, p := range r.products {
		if p.FarmerID == farmerID {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r memProducts) Update(_ context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	stored.Name, stored.Description, stored.Price, stored.Status = product.Name, product.Description, product.Price, product.Status
	r.products[product.ID] = stored
	return nil
}

func (r memProducts) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

func (r memProducts) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	if product.Stock+delta < 0 {
		return 0, repository.ErrInsufficientStock
	}
	product.Stock += delta
	r.products[id] = product

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		p := r.products[id]
		p.Stock -= delta
		r.products[id] = p
	})
	return product.Stock, nil
}

// ===================== OrderRepository =====================

type memOrders struct{ *memStore }

func (r memOrders) Create(ctx context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.orders, order.ID)
	})
	return nil
}

func (r memOrders) GetByID(_ context.Context, id uuid.UUID) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &order, nil
}

func (r memOrders) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	order.Items = slices.Clone(r.items[id])
	return order, nil
}

func (r memOrders) List(_ context.Context, filter entity.OrderFilter) ([]entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var orders []entity.Order
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateStatus compare-and-set как в SQL репозитории
func (r memOrders) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status != from {
		return repository.ErrConflict
	}
	order.Status = to
	r.orders[id] = order

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		o := r.orders[id]
		o.Status = from
		r.orders[id] = o
	})
	return nil
}

// ===================== OrderItemRepository =====================

type memOrderItems struct{ *memStore }

func (r memOrderItems) CreateBatch(ctx context.Context, items []entity.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	orderID := items[0].OrderID
	r.items[orderID] = slices.Clone(items)

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.items, orderID)
	})
	return nil
}

func (r memOrderItems) GetByOrderID(_ context.Context, orderID uuid.UUID) ([]entity.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items[orderID]), nil
}

// ===================== FarmerRepository =====================

type memFarmers struct{ *memStore }

func (r memFarmers) GetByID(_ context.Context, id uuid.UUID) (*entity.Farmer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	farmer, ok := r.farmers[id]
	if !ok {
		return nil, repository.ErrFarmerNotFound
	}
	return &farmer, nil
}

func (r memFarmers) GetByUserID(_ context.Context, userID uuid.UUID) (*entity.Farmer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.farmers {
		if f.UserID == userID {
			return &f, nil
		}
	}
	return nil, repository.ErrFarmerNotFound
}

func (r memFarmers) ListUserIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.farmers))
	for _, f := range r.farmers {
		ids = append(ids, f.UserID)
	}
	return ids, nil
}

func (r memFarmers) UpdateRating(_ context.Context, userID uuid.UUID, rating decimal.Decimal, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.farmers {
		if f.UserID == userID {
			f.Rating, f.ReviewCount = rating, count
			r.farmers[id] = f
			return nil
		}
	}
	return repository.ErrFarmerNotFound
}

// newMemOrderService сервис заказов поверх хранилища в памяти
func newMemOrderService(store *memStore) *OrderService {
	products := memProducts{store}
	return NewOrderService(
		store,
		memOrders{store},
		memOrderItems{store},
		products,
		memFarmers{store},
		NewInventoryLedger(products),
		nil,
	)
}
