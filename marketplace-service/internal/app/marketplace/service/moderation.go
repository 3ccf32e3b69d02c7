package service

import (
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"

	"github.com/google/uuid"
)

// Moderatable контент, проходящий очередь модерации (отзывы, сообщения)
type Moderatable interface {
	ModerationState() entity.ModerationFlag
	ApplyModeration(flag entity.ModerationFlag, moderatorID uuid.UUID, at time.Time)
	Author() uuid.UUID
	Counterparty() uuid.UUID
}

// CanModerate true если решение по контенту еще не принято
func CanModerate(item Moderatable) bool {
	return item.ModerationState() == entity.ModerationPending
}

// Moderate применяет флаг модерации
// Повторное APPROVED/REJECTED запрещено, PENDING возвращает контент в очередь
func Moderate(item Moderatable, moderatorID uuid.UUID, flag entity.ModerationFlag, at time.Time) error {
	flag = flag.Normalize()
	if !flag.IsValid() {
		return ErrInvalidModeration
	}
	if !CanModerate(item) && flag != entity.ModerationPending {
		return ErrAlreadyModerated
	}
	if at.IsZero() {
		at = now()
	}

	item.ApplyModeration(flag, moderatorID, at)
	return nil
}

// ModerateReview применяет решение модератора к отзыву
//
// Одобрение необратимо. Отклонение обратимо: отклоненный отзыв можно позже одобрить,
// а повторное отклонение только обновляет модератора и время.
func ModerateReview(review *entity.Review, moderatorID uuid.UUID, action entity.ModerationAction, at time.Time) error {
	if at.IsZero() {
		at = now()
	}

	switch action {
	case entity.ActionApprove:
		if review.Approved {
			return ErrAlreadyApproved
		}
		review.ApplyModeration(entity.ModerationApproved, moderatorID, at)
	case entity.ActionReject:
		if review.Approved {
			return ErrCannotRejectApproved
		}
		review.ApplyModeration(entity.ModerationRejected, moderatorID, at)
	default:
		return ErrInvalidModeration
	}

	return nil
}

// IsVisibleTo проверяет видимость контента для читателя, nil означает анонимного читателя
//
//	APPROVED - всем
//	PENDING  - модератору, автору и второй стороне
//	REJECTED - модератору и автору
func IsVisibleTo(item Moderatable, viewer *entity.Principal) bool {
	state := item.ModerationState()
	if state == entity.ModerationApproved {
		return true
	}
	if viewer == nil {
		return false
	}
	if viewer.IsModerator() || viewer.UserID == item.Author() {
		return true
	}
	return state == entity.ModerationPending && viewer.UserID == item.Counterparty()
}
