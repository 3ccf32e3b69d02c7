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
)

// MessageService переписка покупателей и фермеров с модерацией
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	publisher   infrastructure.EventPublisher
}

// NewMessageService создает сервис сообщений
func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	publisher infrastructure.EventPublisher,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

// SendMessage отправляет сообщение, только между покупателем и фермером
func (s *MessageService) SendMessage(ctx context.Context, principal entity.Principal, req *entity.SendMessageRequest) (*entity.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.SendMessage")
	defer span.End()

	if principal.UserID == req.ReceiverID {
		return nil, ErrInvariantViolation
	}

	receiver, err := s.userRepo.GetByID(ctx, req.ReceiverID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("get receiver", err)
	}
	if !canCorrespond(principal.Role, receiver.Role) {
		return nil, ErrInvalidParticipants
	}

	message := &entity.Message{
		SenderID:   principal.UserID,
		ReceiverID: receiver.ID,
		Content:    req.Content,
		Language:   req.Language,
		CreatedAt:  now(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, storeErr("create message", err)
	}

	publishEvent(ctx, s.publisher, entity.MarketplaceEvent{
		EventType: entity.EventMessageSent,
		EntityID:  message.ID.Hex(),
		ActorID:   principal.UserID,
	})

	return message, nil
}

// canCorrespond переписка разрешена только между разными ролями BUYER и FARMER
func canCorrespond(a, b entity.UserRole) bool {
	return (a == entity.RoleBuyer && b == entity.RoleFarmer) ||
		(a == entity.RoleFarmer && b == entity.RoleBuyer)
}

// Moderate выставляет флаг модерации сообщению
// PENDING возвращает сообщение в очередь, повторное APPROVED/REJECTED дает ErrAlreadyModerated
func (s *MessageService) Moderate(ctx context.Context, principal entity.Principal, messageID string, flag entity.ModerationFlag) (*entity.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.Moderate")
	defer span.End()

	if !principal.IsModerator() {
		return nil, ErrForbidden
	}

	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	expected := message.ModerationState()
	if err := Moderate(message, principal.UserID, flag, now()); err != nil {
		return nil, err
	}

	if err := s.messageRepo.UpdateModeration(ctx, message, expected); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			// Другой модератор успел раньше
			return nil, ErrAlreadyModerated
		case errors.Is(err, repository.ErrMessageNotFound):
			return nil, ErrMessageNotFound
		}
		return nil, storeErr("update message moderation", err)
	}

	state := message.ModerationState()
	metrics.RecordModeration("message", string(state))
	logger.Ctx(ctx).Info().
		Str("message_id", messageID).
		Str("moderator_id", principal.UserID.String()).
		Str("flag", string(state)).
		Msg("Message moderated")

	publishEvent(ctx, s.publisher, entity.MarketplaceEvent{
		EventType:      entity.EventMessageModerated,
		EntityID:       messageID,
		ActorID:        principal.UserID,
		ModerationFlag: state,
	})

	return message, nil
}

// ListConversation переписка пользователя с собеседником, видимая пользователю
func (s *MessageService) ListConversation(ctx context.Context, principal entity.Principal, counterpartyID uuid.UUID, limit int64) ([]entity.Message, error) {
	messages, err := s.messageRepo.List(ctx, entity.MessageFilter{
		UserID:         principal.UserID,
		CounterpartyID: counterpartyID,
		Limit:          limit,
	})
	if err != nil {
		return nil, storeErr("list messages", err)
	}

	visible := make([]entity.Message, 0, len(messages))
	for i := range messages {
		if IsVisibleTo(&messages[i], &principal) {
			visible = append(visible, messages[i])
		}
	}
	return visible, nil
}

// ListPending очередь сообщений на модерацию
func (s *MessageService) ListPending(ctx context.Context, principal entity.Principal, limit int64) ([]entity.Message, error) {
	if !principal.IsModerator() {
		return nil, ErrForbidden
	}

	messages, err := s.messageRepo.List(ctx, entity.MessageFilter{
		Flag:  entity.ModerationPending,
		Limit: limit,
	})
	if err != nil {
		return nil, storeErr("list pending messages", err)
	}
	return messages, nil
}

// MarkRead отмечает сообщение прочитанным, только получатель и только видимое ему сообщение
func (s *MessageService) MarkRead(ctx context.Context, principal entity.Principal, messageID string) error {
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if message.ReceiverID != principal.UserID {
		return ErrForbidden
	}
	if !IsVisibleTo(message, &principal) {
		return ErrMessageNotFound
	}

	if err := s.messageRepo.MarkRead(ctx, messageID, principal.UserID); err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return storeErr("mark message read", err)
	}
	return nil
}

func (s *MessageService) getMessage(ctx context.Context, messageID string) (*entity.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, storeErr("get message", err)
	}
	return message, nil
}
