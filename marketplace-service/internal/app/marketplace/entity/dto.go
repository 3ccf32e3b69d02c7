package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest - запрос покупателя на создание заказа у одного фермера
type CreateOrderRequest struct {
	FarmerID        uuid.UUID          `json:"farmer_id" validate:"required"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"delivery_address" validate:"required,min=5,max=500"`
	Notes           *string            `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// OrderItemRequest - позиция заказа
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// UpdateOrderStatusRequest - запрос на смену статуса заказа
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=ACCEPTED COMPLETED CANCELLED"`
}

// CreateReviewRequest - запрос на создание отзыва по выполненному заказу
type CreateReviewRequest struct {
	OrderID      uuid.UUID `json:"order_id" validate:"required"`
	RevieweeID   uuid.UUID `json:"reviewee_id" validate:"required"`
	ReviewerRole UserRole  `json:"reviewer_role" validate:"required,oneof=BUYER FARMER"`
	Rating       int       `json:"rating" validate:"required,min=1,max=5"`
	Comment      string    `json:"comment" validate:"max=2000"`
}

// UpdateReviewRequest - запрос на обновление отзыва автором
type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

// ModerateReviewRequest - решение модератора по отзыву
type ModerateReviewRequest struct {
	Action ModerationAction `json:"action" validate:"required,oneof=approve reject"`
}

// ModerationAction действие модератора над отзывом
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

// SendMessageRequest - запрос на отправку сообщения
type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
	Content    string    `json:"content" validate:"required,min=1,max=4000"`
	Language   string    `json:"language" validate:"omitempty,bcp47_language_tag"`
}

// ModerateMessageRequest - решение модератора по сообщению
type ModerateMessageRequest struct {
	Flag ModerationFlag `json:"flag" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

// CreateProductRequest - запрос фермера на создание товара (создается в статусе DRAFT)
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"` // Проверяется в сервисе: > 0, не более 2 знаков
	Stock       int             `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest - частичное обновление товара, nil поля не меняются
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	StockDelta  *int             `json:"stock_delta,omitempty"` // Приход (+) или списание (-) остатка
	Status      *ProductStatus   `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED INACTIVE"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FarmerRating - агрегированный рейтинг фермера
type FarmerRating struct {
	FarmerID    uuid.UUID       `json:"farmer_id"`
	Rating      decimal.Decimal `json:"rating"`
	ReviewCount int             `json:"review_count"`
}

// ReviewEligibility - ответ на проверку возможности оставить отзыв
type ReviewEligibility struct {
	OrderID   uuid.UUID `json:"order_id"`
	Role      UserRole  `json:"role"`
	CanReview bool      `json:"can_review"`
}
