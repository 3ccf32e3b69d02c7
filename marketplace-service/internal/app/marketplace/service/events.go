package service

import (
	"context"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/infrastructure"
	"farmmarket/pkg/logger"
	"farmmarket/pkg/tracing"
)

var tracer = tracing.Tracer("farmmarket/marketplace-service/service")

// publishEvent отправляет событие после коммита
// Ошибка только логируется: операция уже зафиксирована, потребители событий не обязательны
func publishEvent(ctx context.Context, publisher infrastructure.EventPublisher, event entity.MarketplaceEvent) {
	if publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}

	if err := publisher.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().
			Err(err).
			Str("event_type", event.EventType).
			Str("entity_id", event.EntityID).
			Msg("Failed to publish marketplace event")
	}
}
