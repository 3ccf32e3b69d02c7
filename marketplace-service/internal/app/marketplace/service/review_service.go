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

// RatingRecomputer пересчет рейтинга фермера после изменения набора одобренных отзывов
type RatingRecomputer interface {
	RecomputeRating(ctx context.Context, farmerUserID uuid.UUID, trigger string) (*entity.FarmerRating, error)
}

// ReviewService проверяет право на отзыв, хранит отзывы и запускает пересчет рейтинга
type ReviewService struct {
	tx         repository.Transactor
	reviewRepo repository.ReviewRepository
	orderRepo  repository.OrderRepository
	farmerRepo repository.FarmerRepository
	ratings    RatingRecomputer
	publisher  infrastructure.EventPublisher
}

// NewReviewService создает сервис отзывов
func NewReviewService(
	tx repository.Transactor,
	reviewRepo repository.ReviewRepository,
	orderRepo repository.OrderRepository,
	farmerRepo repository.FarmerRepository,
	ratings RatingRecomputer,
	publisher infrastructure.EventPublisher,
) *ReviewService {
	return &ReviewService{
		tx:         tx,
		reviewRepo: reviewRepo,
		orderRepo:  orderRepo,
		farmerRepo: farmerRepo,
		ratings:    ratings,
		publisher:  publisher,
	}
}

// CanReview может ли пользователь оставить отзыв по заказу в указанной роли
// Ошибка возвращается только при сбое хранилища
func (s *ReviewService) CanReview(ctx context.Context, orderID, userID uuid.UUID, role entity.UserRole) (bool, error) {
	_, err := s.eligibility(ctx, orderID, userID, role)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrStore):
		return false, err
	default:
		return false, nil
	}
}

// eligibility проверяет право на отзыв и возвращает вторую сторону заказа
func (s *ReviewService) eligibility(ctx context.Context, orderID, userID uuid.UUID, role entity.UserRole) (uuid.UUID, error) {
	if role != entity.RoleBuyer && role != entity.RoleFarmer {
		return uuid.Nil, ErrIneligibleReviewer
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return uuid.Nil, ErrOrderNotFound
		}
		return uuid.Nil, storeErr("get order", err)
	}
	if order.Status != entity.OrderStatusCompleted {
		return uuid.Nil, ErrIneligibleReviewer
	}

	farmer, err := s.farmerRepo.GetByID(ctx, order.FarmerID)
	if err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return uuid.Nil, ErrFarmerNotFound
		}
		return uuid.Nil, storeErr("get farmer", err)
	}

	var counterparty uuid.UUID
	switch role {
	case entity.RoleBuyer:
		if userID != order.BuyerID {
			return uuid.Nil, ErrIneligibleReviewer
		}
		counterparty = farmer.UserID
	case entity.RoleFarmer:
		if userID != farmer.UserID {
			return uuid.Nil, ErrIneligibleReviewer
		}
		counterparty = order.BuyerID
	}

	exists, err := s.reviewRepo.Exists(ctx, orderID, userID, role)
	if err != nil {
		return uuid.Nil, storeErr("check review exists", err)
	}
	if exists {
		return uuid.Nil, ErrIneligibleReviewer
	}

	return counterparty, nil
}

// CreateReview создает отзыв в статусе на модерации
// Все условия проверяются заново внутри транзакции, результат прежнего CanReview не учитывается
func (s *ReviewService) CreateReview(ctx context.Context, principal entity.Principal, req *entity.CreateReviewRequest) (*entity.Review, error) {
	ctx, span := tracer.Start(ctx, "ReviewService.CreateReview")
	defer span.End()

	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if principal.Role != req.ReviewerRole {
		return nil, ErrIneligibleReviewer
	}
	if principal.UserID == req.RevieweeID {
		return nil, ErrInvariantViolation
	}

	review := &entity.Review{
		ID:           uuid.New(),
		OrderID:      req.OrderID,
		ReviewerID:   principal.UserID,
		RevieweeID:   req.RevieweeID,
		ReviewerRole: req.ReviewerRole,
		Rating:       req.Rating,
		Comment:      req.Comment,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		counterparty, err := s.eligibility(ctx, req.OrderID, principal.UserID, req.ReviewerRole)
		if err != nil {
			return err
		}
		if req.RevieweeID != counterparty {
			return ErrIneligibleReviewer
		}

		if err := s.reviewRepo.Create(ctx, review); err != nil {
			// Параллельный запрос успел вставить такой же отзыв
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrIneligibleReviewer
			}
			return storeErr("create review", err)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("create review", err)
	}

	metrics.RecordReviewCreated(string(review.ReviewerRole))
	publishEvent(ctx, s.publisher, reviewEvent(entity.EventReviewCreated, review, principal.UserID))

	return review, nil
}

// UpdateReview меняет оценку и комментарий, доступно только автору
// Если отзыв уже одобрен, рейтинг фермера пересчитывается
func (s *ReviewService) UpdateReview(ctx context.Context, principal entity.Principal, reviewID uuid.UUID, req *entity.UpdateReviewRequest) (*entity.Review, error) {
	ctx, span := tracer.Start(ctx, "ReviewService.UpdateReview")
	defer span.End()

	if req.Rating != 0 && (req.Rating < 1 || req.Rating > 5) {
		return nil, ErrInvalidRating
	}

	var review *entity.Review
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		review, err = s.lockReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if review.ReviewerID != principal.UserID {
			return ErrForbidden
		}

		if req.Rating != 0 {
			review.Rating = req.Rating
		}
		if req.Comment != "" {
			review.Comment = req.Comment
		}

		if err := s.reviewRepo.Update(ctx, review); err != nil {
			if errors.Is(err, repository.ErrReviewNotFound) {
				return ErrReviewNotFound
			}
			return storeErr("update review", err)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update review", err)
	}

	if review.Approved {
		s.recompute(ctx, review)
	}
	publishEvent(ctx, s.publisher, reviewEvent(entity.EventReviewUpdated, review, principal.UserID))

	return review, nil
}

// DeleteReview удаляет отзыв, доступно автору и администратору
func (s *ReviewService) DeleteReview(ctx context.Context, principal entity.Principal, reviewID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "ReviewService.DeleteReview")
	defer span.End()

	var review *entity.Review
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		review, err = s.lockReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if !principal.IsModerator() && review.ReviewerID != principal.UserID {
			return ErrForbidden
		}

		if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
			if errors.Is(err, repository.ErrReviewNotFound) {
				return ErrReviewNotFound
			}
			return storeErr("delete review", err)
		}
		return nil
	})
	if err != nil {
		return storeErr("delete review", err)
	}

	if review.Approved {
		s.recompute(ctx, review)
	}
	publishEvent(ctx, s.publisher, reviewEvent(entity.EventReviewDeleted, review, principal.UserID))

	return nil
}

// Moderate применяет решение модератора: approve или reject
// Одобрение отзыва покупателя сразу пересчитывает рейтинг фермера
func (s *ReviewService) Moderate(ctx context.Context, principal entity.Principal, reviewID uuid.UUID, action entity.ModerationAction) (*entity.Review, error) {
	ctx, span := tracer.Start(ctx, "ReviewService.Moderate")
	defer span.End()

	if !principal.IsModerator() {
		return nil, ErrForbidden
	}

	var review *entity.Review
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		review, err = s.lockReview(ctx, reviewID)
		if err != nil {
			return err
		}

		if err := ModerateReview(review, principal.UserID, action, now()); err != nil {
			return err
		}

		if err := s.reviewRepo.UpdateModeration(ctx, review); err != nil {
			if errors.Is(err, repository.ErrReviewNotFound) {
				return ErrReviewNotFound
			}
			return storeErr("update review moderation", err)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("moderate review", err)
	}

	state := review.ModerationState()
	metrics.RecordModeration("review", string(state))
	logger.Ctx(ctx).Info().
		Str("review_id", review.ID.String()).
		Str("moderator_id", principal.UserID.String()).
		Str("state", string(state)).
		Msg("Review moderated")

	if review.Approved {
		s.recompute(ctx, review)
	}
	publishEvent(ctx, s.publisher, reviewEvent(entity.EventReviewModerated, review, principal.UserID))

	return review, nil
}

// GetReview возвращает отзыв, если он виден читателю (viewer == nil - аноним)
// Скрытый отзыв неотличим от несуществующего
func (s *ReviewService) GetReview(ctx context.Context, viewer *entity.Principal, reviewID uuid.UUID) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, storeErr("get review", err)
	}
	if !IsVisibleTo(review, viewer) {
		return nil, ErrReviewNotFound
	}
	return review, nil
}

// ListFarmerReviews отзывы о фермере, видимые читателю
func (s *ReviewService) ListFarmerReviews(ctx context.Context, viewer *entity.Principal, farmerID uuid.UUID, limit, offset int) ([]entity.Review, error) {
	farmer, err := s.farmerRepo.GetByID(ctx, farmerID)
	if err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, storeErr("get farmer", err)
	}

	filter := entity.ReviewFilter{
		RevieweeID: farmer.UserID,
		Limit:      limit,
		Offset:     offset,
	}
	// Видимость проверяется в запросе, иначе LIMIT/OFFSET резали бы страницу до фильтра
	switch {
	case viewer == nil:
		filter.ApprovedOnly = true
	case !viewer.IsModerator():
		filter.VisibleTo = viewer.UserID
	}

	reviews, err := s.reviewRepo.List(ctx, filter)
	if err != nil {
		return nil, storeErr("list reviews", err)
	}
	return reviews, nil
}

// ListPending очередь отзывов на модерацию
func (s *ReviewService) ListPending(ctx context.Context, principal entity.Principal, limit, offset int) ([]entity.Review, error) {
	if !principal.IsModerator() {
		return nil, ErrForbidden
	}

	reviews, err := s.reviewRepo.List(ctx, entity.ReviewFilter{
		PendingOnly: true,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, storeErr("list pending reviews", err)
	}
	return reviews, nil
}

func (s *ReviewService) lockReview(ctx context.Context, reviewID uuid.UUID) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByIDForUpdate(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, storeErr("lock review", err)
	}
	return review, nil
}

// recompute пересчитывает рейтинг, если отзыв влияет на рейтинг фермера
// Ошибка не отменяет зафиксированную операцию: событие в Kafka и сверка по расписанию догонят рейтинг
func (s *ReviewService) recompute(ctx context.Context, review *entity.Review) {
	if review.ReviewerRole != entity.RoleBuyer {
		return
	}
	if _, err := s.ratings.RecomputeRating(ctx, review.RevieweeID, TriggerReview); err != nil {
		logger.Ctx(ctx).Error().
			Err(err).
			Str("review_id", review.ID.String()).
			Str("reviewee_id", review.RevieweeID.String()).
			Msg("Failed to recompute farmer rating")
	}
}

func reviewEvent(eventType string, review *entity.Review, actorID uuid.UUID) entity.MarketplaceEvent {
	return entity.MarketplaceEvent{
		EventType:      eventType,
		EntityID:       review.ID.String(),
		ActorID:        actorID,
		RevieweeID:     review.RevieweeID,
		ReviewerRole:   review.ReviewerRole,
		Rating:         review.Rating,
		ModerationFlag: review.ModerationState(),
	}
}
