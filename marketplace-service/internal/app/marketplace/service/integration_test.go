//go:build integration

package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"farmmarket/marketplace-service/internal/app/marketplace/database"
	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/repository"
	"farmmarket/marketplace-service/migrations"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresSuite проверяет гарантии склада и заказов на настоящем PostgreSQL
// Запуск: TEST_DATABASE_URL=postgres://... go test -tags integration ./...
type PostgresSuite struct {
	suite.Suite
	db       *gorm.DB
	orders   *OrderService
	reviews  *ReviewService
	products repository.ProductRepository
}

func TestPostgresSuite(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	suite.Run(t, &PostgresSuite{})
}

func (s *PostgresSuite) SetupSuite() {
	url := os.Getenv("TEST_DATABASE_URL")
	require.NoError(s.T(), database.RunMigrations(url, migrations.FS))

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{})
	require.NoError(s.T(), err)
	s.db = db

	tx := repository.NewTransactor(db)
	s.products = repository.NewProductRepository(db)
	farmers := repository.NewFarmerRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	s.orders = NewOrderService(tx, orderRepo, repository.NewOrderItemRepository(db), s.products, farmers,
		NewInventoryLedger(s.products), nil)
	s.reviews = NewReviewService(tx, reviewRepo, orderRepo, farmers,
		NewRatingService(reviewRepo, farmers, nil, 0), nil)
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.db.Exec("TRUNCATE reviews, order_items, orders, products, farmers, users CASCADE").Error)
}

func (s *PostgresSuite) TearDownSuite() {
	database.ClosePostgres(s.db)
}

func (s *PostgresSuite) seedUser(role entity.UserRole) uuid.UUID {
	id := uuid.New()
	s.Require().NoError(s.db.Create(&entity.User{ID: id, Email: id.String() + "@farm.test", Role: role}).Error)
	return id
}

func (s *PostgresSuite) seedFarmer() *entity.Farmer {
	farmer := &entity.Farmer{ID: uuid.New(), UserID: s.seedUser(entity.RoleFarmer), FarmName: "Berry Hill"}
	s.Require().NoError(s.db.Create(farmer).Error)
	return farmer
}

func (s *PostgresSuite) seedProduct(farmerID uuid.UUID, stock int) uuid.UUID {
	product := &entity.Product{
		ID:       uuid.New(),
		FarmerID: farmerID,
		Name:     "Blueberries",
		Price:    decimal.RequireFromString("3.50"),
		Stock:    stock,
		Status:   entity.ProductStatusPublished,
	}
	s.Require().NoError(s.db.Create(product).Error)
	return product.ID
}

func (s *PostgresSuite) stock(productID uuid.UUID) int {
	p, err := s.products.GetByID(context.Background(), productID)
	s.Require().NoError(err)
	return p.Stock
}

func (s *PostgresSuite) orderFor(farmerID uuid.UUID, items ...entity.OrderItemRequest) *entity.CreateOrderRequest {
	return &entity.CreateOrderRequest{FarmerID: farmerID, Items: items, DeliveryAddress: "Village road 12"}
}

func (s *PostgresSuite) TestNoOversellUnderConcurrentOrders() {
	// Arrange
	farmer := s.seedFarmer()
	productID := s.seedProduct(farmer.ID, 10)
	buyers := make([]uuid.UUID, 30)
	for i := range buyers {
		buyers[i] = s.seedUser(entity.RoleBuyer)
	}

	// Act
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, buyerID := range buyers {
		wg.Add(1)
		go func(buyerID uuid.UUID) {
			defer wg.Done()
			_, err := s.orders.CreateOrder(context.Background(), buyerID,
				s.orderFor(farmer.ID, entity.OrderItemRequest{ProductID: productID, Quantity: 1}))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(s.T(), err, ErrInsufficientStock)
		}(buyerID)
	}
	wg.Wait()

	// Assert
	s.Equal(10, succeeded)
	s.Equal(0, s.stock(productID))
}

func (s *PostgresSuite) TestStockConservationAcrossCreateAndCancel() {
	// Arrange
	farmer := s.seedFarmer()
	berries := s.seedProduct(farmer.ID, 20)
	honey := s.seedProduct(farmer.ID, 8)
	buyer := entity.Principal{UserID: s.seedUser(entity.RoleBuyer), Role: entity.RoleBuyer}

	// Act
	kept, err := s.orders.CreateOrder(context.Background(), buyer.UserID, s.orderFor(farmer.ID,
		entity.OrderItemRequest{ProductID: berries, Quantity: 4},
		entity.OrderItemRequest{ProductID: honey, Quantity: 2}))
	s.Require().NoError(err)

	cancelled, err := s.orders.CreateOrder(context.Background(), buyer.UserID, s.orderFor(farmer.ID,
		entity.OrderItemRequest{ProductID: honey, Quantity: 5},
		entity.OrderItemRequest{ProductID: berries, Quantity: 1}))
	s.Require().NoError(err)
	_, err = s.orders.CancelOrder(context.Background(), buyer, cancelled.ID)
	s.Require().NoError(err)

	// Нехватка второй позиции не должна оставить списанной первую
	_, err = s.orders.CreateOrder(context.Background(), buyer.UserID, s.orderFor(farmer.ID,
		entity.OrderItemRequest{ProductID: berries, Quantity: 1},
		entity.OrderItemRequest{ProductID: honey, Quantity: 100}))
	s.ErrorIs(err, ErrInsufficientStock)

	// Assert - остаток + позиции активных заказов = начальный остаток
	s.Equal(20-4, s.stock(berries))
	s.Equal(8-2, s.stock(honey))
	s.Equal(entity.OrderStatusPending, kept.Status)
}

func (s *PostgresSuite) TestRacingCancelsRestoreOnce() {
	// Arrange
	farmer := s.seedFarmer()
	productID := s.seedProduct(farmer.ID, 10)
	buyer := entity.Principal{UserID: s.seedUser(entity.RoleBuyer), Role: entity.RoleBuyer}
	order, err := s.orders.CreateOrder(context.Background(), buyer.UserID,
		s.orderFor(farmer.ID, entity.OrderItemRequest{ProductID: productID, Quantity: 6}))
	s.Require().NoError(err)

	// Act
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		cancelled int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.orders.CancelOrder(context.Background(), buyer, order.ID)
			if err == nil {
				mu.Lock()
				cancelled++
				mu.Unlock()
				return
			}
			assert.ErrorIs(s.T(), err, ErrOrderNotCancellable)
		}()
	}
	wg.Wait()

	// Assert
	s.Equal(1, cancelled)
	s.Equal(10, s.stock(productID))
}

func (s *PostgresSuite) TestConcurrentDuplicateReviewsAcceptOne() {
	// Arrange
	farmer := s.seedFarmer()
	productID := s.seedProduct(farmer.ID, 5)
	buyer := entity.Principal{UserID: s.seedUser(entity.RoleBuyer), Role: entity.RoleBuyer}
	order, err := s.orders.CreateOrder(context.Background(), buyer.UserID,
		s.orderFor(farmer.ID, entity.OrderItemRequest{ProductID: productID, Quantity: 1}))
	s.Require().NoError(err)
	s.Require().NoError(s.db.Model(&entity.Order{}).Where("id = ?", order.ID).
		Update("status", entity.OrderStatusCompleted).Error)

	req := &entity.CreateReviewRequest{
		OrderID:      order.ID,
		RevieweeID:   farmer.UserID,
		ReviewerRole: entity.RoleBuyer,
		Rating:       5,
	}

	// Act
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.reviews.CreateReview(context.Background(), buyer, req)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	// Assert
	s.Equal(1, created)
	for _, err := range errs {
		s.True(errors.Is(err, ErrIneligibleReviewer), "unexpected error: %v", err)
	}
}
