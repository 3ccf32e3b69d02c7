package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMessageLimit int64 = 100

type messageRepository struct {
	collection *mongo.Collection
}

// NewMessageRepository создает репозиторий сообщений в MongoDB
// Создает индексы по участникам переписки и по флагу модерации
func NewMessageRepository(db *mongo.Database) MessageRepository {
	collection := db.Collection("messages")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sender_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("sender_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("receiver_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "moderation_flag", Value: 1}},
			Options: options.Index().SetName("moderation_flag_idx"),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Индексы могут уже существовать, работу не прерываем
		logger.Warn().Err(err).Msg("Failed to create message indexes")
	}

	return &messageRepository{collection: collection}
}

// Create сохраняет новое сообщение
func (r *messageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		message.ID = oid
	}

	return nil
}

// GetByID получает сообщение по ID
func (r *messageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	var message entity.Message
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&message)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}

// List получает сообщения пользователя, новые первыми
func (r *messageRepository) List(ctx context.Context, filter entity.MessageFilter) ([]entity.Message, error) {
	query := messageListQuery(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]entity.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	return messages, nil
}

// UpdateModeration записывает флаг, модератора и время одной операцией
// Документ обновляется только если его флаг все еще равен expected
func (r *messageRepository) UpdateModeration(ctx context.Context, message *entity.Message, expected entity.ModerationFlag) error {
	query := bson.M{"_id": message.ID}
	for k, v := range flagCondition(expected) {
		query[k] = v
	}

	update := bson.M{
		"$set": bson.M{
			"moderation_flag": message.ModerationFlag,
			"moderated_by":    message.ModeratedBy,
			"moderated_at":    message.ModeratedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, query, update)
	if err != nil {
		return fmt.Errorf("failed to update message moderation: %w", err)
	}

	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, message.ID.Hex()); err != nil {
			return err
		}
		return ErrConflict
	}

	return nil
}

// MarkRead отмечает сообщение прочитанным, отметить может только получатель
func (r *messageRepository) MarkRead(ctx context.Context, id string, receiverID uuid.UUID) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrMessageNotFound
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "receiver_id": receiverID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// messageListQuery строит фильтр выборки сообщений
func messageListQuery(filter entity.MessageFilter) bson.M {
	query := bson.M{}

	switch {
	case filter.UserID != uuid.Nil && filter.CounterpartyID != uuid.Nil:
		query["$or"] = bson.A{
			bson.M{"sender_id": filter.UserID, "receiver_id": filter.CounterpartyID},
			bson.M{"sender_id": filter.CounterpartyID, "receiver_id": filter.UserID},
		}
	case filter.UserID != uuid.Nil:
		query["$or"] = bson.A{
			bson.M{"sender_id": filter.UserID},
			bson.M{"receiver_id": filter.UserID},
		}
	}

	if filter.Flag != "" {
		for k, v := range flagCondition(filter.Flag) {
			query[k] = v
		}
	}

	return query
}

// flagCondition условие на флаг модерации
// Отсутствующий флаг равнозначен PENDING
func flagCondition(flag entity.ModerationFlag) bson.M {
	if flag.Normalize() == entity.ModerationPending {
		return bson.M{"moderation_flag": bson.M{"$in": bson.A{nil, string(entity.ModerationPending)}}}
	}
	return bson.M{"moderation_flag": string(flag)}
}
