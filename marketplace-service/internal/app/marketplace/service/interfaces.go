package service

import (
	"context"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"

	"github.com/google/uuid"
)

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID, req *entity.CreateOrderRequest) (*entity.Order, error)
	GetOrder(ctx context.Context, principal entity.Principal, orderID uuid.UUID) (*entity.Order, error)
	ListOrders(ctx context.Context, principal entity.Principal, filter entity.OrderFilter) ([]entity.Order, error)
	UpdateStatus(ctx context.Context, principal entity.Principal, orderID uuid.UUID, newStatus entity.OrderStatus) (*entity.Order, error)
	CancelOrder(ctx context.Context, principal entity.Principal, orderID uuid.UUID) (*entity.Order, error)
}

type ReviewServiceInterface interface {
	CanReview(ctx context.Context, orderID, userID uuid.UUID, role entity.UserRole) (bool, error)
	CreateReview(ctx context.Context, principal entity.Principal, req *entity.CreateReviewRequest) (*entity.Review, error)
	UpdateReview(ctx context.Context, principal entity.Principal, reviewID uuid.UUID, req *entity.UpdateReviewRequest) (*entity.Review, error)
	DeleteReview(ctx context.Context, principal entity.Principal, reviewID uuid.UUID) error
	Moderate(ctx context.Context, principal entity.Principal, reviewID uuid.UUID, action entity.ModerationAction) (*entity.Review, error)
	GetReview(ctx context.Context, viewer *entity.Principal, reviewID uuid.UUID) (*entity.Review, error)
	ListFarmerReviews(ctx context.Context, viewer *entity.Principal, farmerID uuid.UUID, limit, offset int) ([]entity.Review, error)
	ListPending(ctx context.Context, principal entity.Principal, limit, offset int) ([]entity.Review, error)
}

type RatingServiceInterface interface {
	GetFarmerRating(ctx context.Context, farmerID uuid.UUID) (*entity.FarmerRating, error)
	RecomputeRating(ctx context.Context, farmerUserID uuid.UUID, trigger string) (*entity.FarmerRating, error)
	ReconcileAll(ctx context.Context) (int, error)
}

type MessageServiceInterface interface {
	SendMessage(ctx context.Context, principal entity.Principal, req *entity.SendMessageRequest) (*entity.Message, error)
	Moderate(ctx context.Context, principal entity.Principal, messageID string, flag entity.ModerationFlag) (*entity.Message, error)
	ListConversation(ctx context.Context, principal entity.Principal, counterpartyID uuid.UUID, limit int64) ([]entity.Message, error)
	ListPending(ctx context.Context, principal entity.Principal, limit int64) ([]entity.Message, error)
	MarkRead(ctx context.Context, principal entity.Principal, messageID string) error
}

type ProductServiceInterface interface {
	CreateProduct(ctx context.Context, principal entity.Principal, req *entity.CreateProductRequest) (*entity.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*entity.Product, error)
	ListFarmerProducts(ctx context.Context, farmerID uuid.UUID) ([]entity.Product, error)
	UpdateProduct(ctx context.Context, principal entity.Principal, productID uuid.UUID, req *entity.UpdateProductRequest) (*entity.Product, error)
	DeleteProduct(ctx context.Context, principal entity.Principal, productID uuid.UUID) error
	CanFulfill(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
}

var (
	_ OrderServiceInterface   = (*OrderService)(nil)
	_ ReviewServiceInterface  = (*ReviewService)(nil)
	_ RatingServiceInterface  = (*RatingService)(nil)
	_ MessageServiceInterface = (*MessageService)(nil)
	_ ProductServiceInterface = (*ProductService)(nil)
	_ RatingRecomputer        = (*RatingService)(nil)
)
