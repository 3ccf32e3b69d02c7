package entity

import "github.com/google/uuid"

// OrderFilter критерии выборки заказов
// Нулевые значения полей означают отсутствие условия
type OrderFilter struct {
	Status   OrderStatus
	BuyerID  uuid.UUID
	FarmerID uuid.UUID
	Limit    int
	Offset   int
}

// ReviewFilter критерии выборки отзывов
type ReviewFilter struct {
	RevieweeID   uuid.UUID
	ReviewerID   uuid.UUID
	ReviewerRole UserRole
	ApprovedOnly bool
	PendingOnly  bool // Только не прошедшие модерацию (moderated_at IS NULL)
	Limit        int
	Offset       int

	// VisibleTo оставляет одобренные, свои и ожидающие модерации отзывы о читателе
	VisibleTo uuid.UUID
}

// MessageFilter критерии выборки сообщений
type MessageFilter struct {
	UserID         uuid.UUID // Отправитель или получатель
	CounterpartyID uuid.UUID // Вторая сторона переписки
	Flag           ModerationFlag
	Limit          int64
}
