package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/pkg/metrics"
	"farmmarket/pkg/tracing"

	"github.com/segmentio/kafka-go"
)

// MessageWriter подмножество kafka.Writer, нужное продюсеру
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer публикует MarketplaceEvent в топик marketplace_events
type KafkaProducer struct {
	writer MessageWriter
	topic  string
}

// NewKafkaProducer создает продюсер
// Ключ сообщения = EntityID, поэтому события одной сущности идут в одну партицию по порядку
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaProducer{writer: writer, topic: topic}
}

// NewKafkaProducerWithWriter создает продюсер поверх произвольного writer (используется в тестах)
func NewKafkaProducerWithWriter(writer MessageWriter, topic string) *KafkaProducer {
	return &KafkaProducer{writer: writer, topic: topic}
}

// Publish сериализует событие в JSON и отправляет его в Kafka
func (p *KafkaProducer) Publish(ctx context.Context, event entity.MarketplaceEvent) error {
	timer := metrics.NewKafkaProduceTimer(metrics.ServiceName, p.topic)

	value, err := json.Marshal(event)
	if err != nil {
		timer.Error()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.EntityID),
		Value: value,
		Time:  event.Timestamp,
		Headers: tracing.InjectKafkaHeaders(ctx, []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		}),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		timer.Error()
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	timer.Success()
	return nil
}

// Close закрывает writer и дожидается отправки буфера
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
