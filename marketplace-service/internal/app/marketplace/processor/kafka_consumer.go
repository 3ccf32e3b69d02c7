package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/service"
	"farmmarket/pkg/logger"
	"farmmarket/pkg/metrics"
	"farmmarket/pkg/tracing"

	"github.com/segmentio/kafka-go"
)

// MessageReader подмножество kafka.Reader, нужное консьюмеру
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RatingConsumer слушает marketplace_events и пересчитывает рейтинг фермера
// после модерации, правки или удаления отзыва покупателя
type RatingConsumer struct {
	reader     MessageReader
	ratingSvc  service.RatingServiceInterface
	topic      string
	groupID    string
	retryDelay time.Duration
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewRatingConsumer создает consumer группы groupID
func NewRatingConsumer(brokers []string, topic, groupID string, ratingSvc service.RatingServiceInterface) *RatingConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: time.Second,
	})

	return NewRatingConsumerWithReader(reader, topic, groupID, ratingSvc)
}

// NewRatingConsumerWithReader создает consumer поверх произвольного reader (используется в тестах)
func NewRatingConsumerWithReader(reader MessageReader, topic, groupID string, ratingSvc service.RatingServiceInterface) *RatingConsumer {
	return &RatingConsumer{
		reader:     reader,
		ratingSvc:  ratingSvc,
		topic:      topic,
		groupID:    groupID,
		retryDelay: time.Second,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start запускает чтение в отдельной горутине
func (c *RatingConsumer) Start(ctx context.Context) {
	logger.Info().Str("topic", c.topic).Str("group", c.groupID).Msg("Starting rating consumer")
	go c.consume(ctx)
}

// Stop останавливает consumer и закрывает reader
func (c *RatingConsumer) Stop() {
	close(c.stopChan)
	<-c.doneChan
	if err := c.reader.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close kafka reader")
	}
	logger.Info().Msg("Rating consumer stopped")
}

func (c *RatingConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		message, err := c.reader.FetchMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				logger.Error().Err(err).Str("topic", c.topic).Msg("Failed to fetch message")
				metrics.RecordKafkaError(metrics.ServiceName, c.topic, "fetch")
				c.sleep(ctx)
			}
			continue
		}

		if !c.processWithRetry(ctx, message) {
			return
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			logger.Error().Err(err).Msg("Failed to commit message")
			metrics.RecordKafkaError(metrics.ServiceName, c.topic, "commit")
		}
	}
}

// processWithRetry повторяет обработку одного сообщения, пока она не пройдет
// Следующее сообщение не читается: коммит более позднего offset сдвинул бы группу за упавшее
// Возвращает false, если consumer останавливается
func (c *RatingConsumer) processWithRetry(ctx context.Context, message kafka.Message) bool {
	for {
		err := c.processMessage(ctx, message)
		if err == nil {
			return true
		}

		logger.Error().Err(err).
			Int64("offset", message.Offset).
			Int("partition", message.Partition).
			Msg("Failed to process message, retrying")
		metrics.RecordKafkaError(metrics.ServiceName, c.topic, "process")

		if !c.sleep(ctx) {
			return false
		}
	}
}

// sleep ждет retryDelay, false - consumer останавливается
func (c *RatingConsumer) sleep(ctx context.Context) bool {
	select {
	case <-time.After(c.retryDelay):
		return true
	case <-c.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}

// processMessage обрабатывает одно событие
// Битое сообщение и событие о неизвестном фермере пропускаются: повтор их не исправит
func (c *RatingConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	start := time.Now()
	ctx = tracing.ExtractKafkaHeaders(ctx, message.Headers)

	var event entity.MarketplaceEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		logger.Warn().Err(err).Int64("offset", message.Offset).Msg("Skipping malformed event")
		metrics.RecordKafkaError(metrics.ServiceName, c.topic, "decode")
		return nil
	}

	defer func() {
		metrics.RecordKafkaMessageConsumed(metrics.ServiceName, c.topic, c.groupID, time.Since(start))
	}()

	if !event.AffectsFarmerRating() {
		return nil
	}

	logger.Ctx(ctx).Debug().
		Str("event_type", event.EventType).
		Str("entity_id", event.EntityID).
		Str("reviewee_id", event.RevieweeID.String()).
		Msg("Recomputing rating from event")

	if _, err := c.ratingSvc.RecomputeRating(ctx, event.RevieweeID, service.TriggerEvent); err != nil {
		if errors.Is(err, service.ErrFarmerNotFound) {
			logger.Warn().Str("reviewee_id", event.RevieweeID.String()).Msg("Rating event for unknown farmer")
			return nil
		}
		return fmt.Errorf("recompute rating for %s: %w", event.RevieweeID, err)
	}

	return nil
}
