package entity

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModerationFlag состояние модерации пользовательского контента
// Пустое значение трактуется как PENDING
type ModerationFlag string

const (
	ModerationPending  ModerationFlag = "PENDING"
	ModerationApproved ModerationFlag = "APPROVED"
	ModerationRejected ModerationFlag = "REJECTED"
)

// Normalize приводит неустановленный флаг к PENDING
func (f ModerationFlag) Normalize() ModerationFlag {
	if f == "" {
		return ModerationPending
	}
	return f
}

// IsValid проверяет что флаг входит в допустимый набор
func (f ModerationFlag) IsValid() bool {
	switch f {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	}
	return false
}

// ModerationState выводит состояние отзыва из флага одобрения и аудита
func (r *Review) ModerationState() ModerationFlag {
	if r.Approved {
		return ModerationApproved
	}
	if r.ModeratedAt != nil {
		return ModerationRejected
	}
	return ModerationPending
}

// ApplyModeration записывает решение модератора
func (r *Review) ApplyModeration(flag ModerationFlag, moderatorID uuid.UUID, at time.Time) {
	if flag == ModerationPending {
		// Возврат в очередь: у отзыва нет явного флага, поэтому сбрасываем аудит целиком
		r.Approved = false
		r.ModeratedBy = nil
		r.ModeratedAt = nil
		return
	}
	r.Approved = flag == ModerationApproved
	r.ModeratedBy = &moderatorID
	r.ModeratedAt = &at
}

// Author автор отзыва
func (r *Review) Author() uuid.UUID {
	return r.ReviewerID
}

// Counterparty сторона, о которой написан отзыв
func (r *Review) Counterparty() uuid.UUID {
	return r.RevieweeID
}

// Message сообщение между покупателем и фермером, хранится в MongoDB
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SenderID       uuid.UUID          `json:"sender_id" bson:"sender_id"`
	ReceiverID     uuid.UUID          `json:"receiver_id" bson:"receiver_id"`
	Content        string             `json:"content" bson:"content"`
	Language       string             `json:"language" bson:"language"` // Языковой тег (ru, en, ...)
	Read           bool               `json:"read" bson:"read"`
	ModerationFlag *ModerationFlag    `json:"moderation_flag,omitempty" bson:"moderation_flag,omitempty"`
	ModeratedBy    *uuid.UUID         `json:"moderated_by,omitempty" bson:"moderated_by,omitempty"`
	ModeratedAt    *time.Time         `json:"moderated_at,omitempty" bson:"moderated_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// ModerationState текущий флаг сообщения, неустановленный флаг = PENDING
func (m *Message) ModerationState() ModerationFlag {
	if m.ModerationFlag == nil {
		return ModerationPending
	}
	return m.ModerationFlag.Normalize()
}

// ApplyModeration записывает флаг вместе с модератором и временем (все или ничего)
func (m *Message) ApplyModeration(flag ModerationFlag, moderatorID uuid.UUID, at time.Time) {
	m.ModerationFlag = &flag
	m.ModeratedBy = &moderatorID
	m.ModeratedAt = &at
}

// Author отправитель сообщения
func (m *Message) Author() uuid.UUID {
	return m.SenderID
}

// Counterparty получатель сообщения
func (m *Message) Counterparty() uuid.UUID {
	return m.ReceiverID
}
