package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Типы событий для Kafka топика marketplace_events
const (
	EventOrderCreated       = "ORDER_CREATED"
	EventOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventReviewCreated      = "REVIEW_CREATED"
	EventReviewUpdated      = "REVIEW_UPDATED"
	EventReviewModerated    = "REVIEW_MODERATED"
	EventReviewDeleted      = "REVIEW_DELETED"
	EventMessageSent        = "MESSAGE_SENT"
	EventMessageModerated   = "MESSAGE_MODERATED"
)

// MarketplaceEvent событие о переходе состояния, публикуется после коммита
type MarketplaceEvent struct {
	EventType string    `json:"event_type"`
	EntityID  string    `json:"entity_id"`
	ActorID   uuid.UUID `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`

	// Заказы
	OrderStatus    OrderStatus      `json:"order_status,omitempty"`
	PreviousStatus OrderStatus      `json:"previous_status,omitempty"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	ItemsCount     int              `json:"items_count,omitempty"`

	// Отзывы и сообщения
	RevieweeID     uuid.UUID      `json:"reviewee_id,omitempty"`
	ReviewerRole   UserRole       `json:"reviewer_role,omitempty"`
	Rating         int            `json:"rating,omitempty"`
	ModerationFlag ModerationFlag `json:"moderation_flag,omitempty"`
}

// AffectsFarmerRating проверяет, может ли событие изменить рейтинг фермера
func (e *MarketplaceEvent) AffectsFarmerRating() bool {
	if e.ReviewerRole != RoleBuyer {
		return false
	}
	switch e.EventType {
	case EventReviewModerated, EventReviewUpdated, EventReviewDeleted:
		return true
	}
	return false
}
