package handler

import (
	"context"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderService мок для OrderService в тестах handler
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req *entity.CreateOrderRequest) (*entity.Order, error) {
	args := m.Called(ctx, buyerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, principal entity.Principal, orderID uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, principal, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, principal entity.Principal, filter entity.OrderFilter) ([]entity.Order, error) {
	args := m.Called(ctx, principal, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, principal entity.Principal, orderID uuid.UUID, newStatus entity.OrderStatus) (*entity.Order, error) {
	args := m.Called(ctx, principal, orderID, newStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, principal entity.Principal, orderID uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, principal, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

// MockReviewService мок для ReviewService
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) CanReview(ctx context.Context, orderID, userID uuid.UUID, role entity.UserRole) (bool, error) {
	args := m.Called(ctx, orderID, userID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewService) CreateReview(ctx context.Context, principal entity.Principal, req *entity.CreateReviewRequest) (*entity.Review, error) {
	args := m.Called(ctx, principal, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewService) UpdateReview(ctx context.Context, principal entity.Principal, reviewID uuid.UUID, req *entity.UpdateReviewRequest) (*entity.Review, error) {
	args := m.Called(ctx, principal, reviewID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewService) DeleteReview(ctx context.Context, principal entity.Principal, reviewID uuid.UUID) error {
	args := m.Called(ctx, principal, reviewID)
	return args.Error(0)
}

func (m *MockReviewService) Moderate(ctx context.Context, principal entity.Principal, reviewID uuid.UUID, action entity.ModerationAction) (*entity.Review, error) {
	args := m.Called(ctx, principal, reviewID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewService) GetReview(ctx context.Context, viewer *entity.Principal, reviewID uuid.UUID) (*entity.Review, error) {
	args := m.Called(ctx, viewer, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewService) ListFarmerReviews(ctx context.Context, viewer *entity.Principal, farmerID uuid.UUID, limit, offset int) ([]entity.Review, error) {
	args := m.Called(ctx, viewer, farmerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewService) ListPending(ctx context.Context, principal entity.Principal, limit, offset int) ([]entity.Review, error) {
	args := m.Called(ctx, principal, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

// MockRatingService мок для RatingService
type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) GetFarmerRating(ctx context.Context, farmerID uuid.UUID) (*entity.FarmerRating, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FarmerRating), args.Error(1)
}

func (m *MockRatingService) RecomputeRating(ctx context.Context, farmerUserID uuid.UUID, trigger string) (*entity.FarmerRating, error) {
	args := m.Called(ctx, farmerUserID, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FarmerRating), args.Error(1)
}

func (m *MockRatingService) ReconcileAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockMessageService мок для MessageService
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) SendMessage(ctx context.Context, principal entity.Principal, req *entity.SendMessageRequest) (*entity.Message, error) {
	args := m.Called(ctx, principal, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Message), args.Error(1)
}

func (m *MockMessageService) Moderate(ctx context.Context, principal entity.Principal, messageID string, flag entity.ModerationFlag) (*entity.Message, error) {
	args := m.Called(ctx, principal, messageID, flag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Message), args.Error(1)
}

func (m *MockMessageService) ListConversation(ctx context.Context, principal entity.Principal, counterpartyID uuid.UUID, limit int64) ([]entity.Message, error) {
	args := m.Called(ctx, principal, counterpartyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Message), args.Error(1)
}

func (m *MockMessageService) ListPending(ctx context.Context, principal entity.Principal, limit int64) ([]entity.Message, error) {
	args := m.Called(ctx, principal, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Message), args.Error(1)
}

func (m *MockMessageService) MarkRead(ctx context.Context, principal entity.Principal, messageID string) error {
	args := m.Called(ctx, principal, messageID)
	return args.Error(0)
}

// MockProductService мок для ProductService
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) CreateProduct(ctx context.Context, principal entity.Principal, req *entity.CreateProductRequest) (*entity.Product, error) {
	args := m.Called(ctx, principal, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*entity.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductService) ListFarmerProducts(ctx context.Context, farmerID uuid.UUID) ([]entity.Product, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockProductService) UpdateProduct(ctx context.Context, principal entity.Principal, productID uuid.UUID, req *entity.UpdateProductRequest) (*entity.Product, error) {
	args := m.Called(ctx, principal, productID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductService) DeleteProduct(ctx context.Context, principal entity.Principal, productID uuid.UUID) error {
	args := m.Called(ctx, principal, productID)
	return args.Error(0)
}

func (m *MockProductService) CanFulfill(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Bool(0), args.Error(1)
}
